package preserves

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"unicode/utf8"

	"github.com/hashicorp/go-multierror"
)

// Plan is one node of the typed reader described in spec §4.5: a
// resumable state machine that consumes Scanner tokens one at a time and
// eventually produces a Value. Feed returns (Value{}, false, nil) when
// the plan needs more tokens (the "Persists" outcome), (v, true, nil)
// when it has finished, or a non-nil error when the token stream doesn't
// fit the plan's shape.
//
// Cleanup is called exactly when a plan is abandoned mid-flight because
// an enclosing plan or the Driver failed; it releases any
// allocator-owned buffer the plan is holding but has not yet handed off
// in a returned Value. A plan that has already returned true from Feed
// is never asked to clean up. The sequence, set, and record plans hold at
// most one in-progress child and return its Cleanup error; dictionaryPlan
// aggregates the Cleanup errors of its key and value plans with
// go-multierror instead of returning only the last one.
type Plan interface {
	Feed(tok Token, alloc Allocator) (Value, bool, error)
	Cleanup(alloc Allocator) error
}

// newAnyPlan returns a Plan that decodes whatever value comes next,
// inferring its shape from the first token it sees other than
// TokPartialNumber (a digit run may still turn out to be the length
// prefix of a Binary, String, or Symbol). This is the plan Parse uses for
// its generic, schema-free decode into Value.
func newAnyPlan() Plan { return &anyPlan{} }

type anyPlan struct {
	child Plan
}

func (p *anyPlan) Feed(tok Token, alloc Allocator) (Value, bool, error) {
	if p.child != nil {
		return p.child.Feed(tok, alloc)
	}
	if tok.Kind == TokPartialNumber {
		return Value{}, false, nil
	}
	if kind, ok := scalarKindForToken(tok.Kind); ok {
		p.child = newScalarPlan(kind)
		return p.child.Feed(tok, alloc)
	}
	switch tok.Kind {
	case TokSeqStart:
		p.child = newSequencePlan()
	case TokSetStart:
		p.child = newSetPlan()
	case TokDictStart:
		p.child = newDictionaryPlan()
	case TokRecStart:
		p.child = newRecordPlan()
	default:
		return Value{}, false, fmt.Errorf("%w: %s", ErrUnexpectedToken, tok.Kind)
	}
	return Value{}, false, nil
}

func (p *anyPlan) Cleanup(alloc Allocator) error {
	if p.child != nil {
		return p.child.Cleanup(alloc)
	}
	return nil
}

func scalarKindForToken(tk TokenKind) (Kind, bool) {
	switch tk {
	case TokBoolean:
		return KindBoolean, true
	case TokInteger, TokPartialNumber:
		return KindInteger, true
	case TokFloat, TokPartialFloat:
		return KindFloat, true
	case TokDouble, TokPartialDouble:
		return KindDouble, true
	case TokBinary, TokPartialBinary:
		return KindBinary, true
	case TokString, TokPartialString:
		return KindString, true
	case TokSymbol, TokPartialSymbol:
		return KindSymbol, true
	default:
		return 0, false
	}
}

// scalarPlan decodes one atom (Boolean, Integer, Float, Double, Binary,
// String, or Symbol) of a known target Kind. Float/Double/Binary/
// String/Symbol payloads may straddle several Feed calls; scalarPlan
// copies each fragment into an allocator-owned buffer as it arrives,
// since a Partial* token's Bytes slice borrows the Scanner's current
// input and is invalidated by the next Feed to the Scanner.
type scalarPlan struct {
	want Kind
	buf  []byte
}

// newScalarPlan returns a Plan that accepts only tokens belonging to
// want, rejecting any other token kind with ErrUnexpectedToken. It is
// also used standalone by typed decode call sites that know their target
// shape ahead of time.
func newScalarPlan(want Kind) *scalarPlan { return &scalarPlan{want: want} }

func (p *scalarPlan) Feed(tok Token, alloc Allocator) (Value, bool, error) {
	switch tok.Kind {
	case TokBoolean:
		if p.want != KindBoolean {
			return p.mismatch(tok)
		}
		return Bool(tok.Bool), true, nil
	case TokInteger:
		if p.want != KindInteger {
			return p.mismatch(tok)
		}
		mag := new(big.Int).SetUint64(tok.Magnitude)
		if tok.Negative {
			mag.Neg(mag)
		}
		return BigInt(mag), true, nil
	case TokPartialNumber:
		if p.want != KindInteger {
			return p.mismatch(tok)
		}
		return Value{}, false, nil
	case TokFloat, TokPartialFloat:
		if p.want != KindFloat {
			return p.mismatch(tok)
		}
		return p.accumulateFixed(tok, alloc, TokFloat, 4, func(payload []byte) Value {
			return Float32(math.Float32frombits(binary.BigEndian.Uint32(payload)))
		})
	case TokDouble, TokPartialDouble:
		if p.want != KindDouble {
			return p.mismatch(tok)
		}
		return p.accumulateFixed(tok, alloc, TokDouble, 8, func(payload []byte) Value {
			return Float64(math.Float64frombits(binary.BigEndian.Uint64(payload)))
		})
	case TokBinary, TokPartialBinary:
		if p.want != KindBinary {
			return p.mismatch(tok)
		}
		return p.accumulate(tok, alloc, TokBinary, func(payload []byte) (Value, error) {
			return Bin(payload), nil
		})
	case TokString, TokPartialString:
		if p.want != KindString {
			return p.mismatch(tok)
		}
		return p.accumulate(tok, alloc, TokString, func(payload []byte) (Value, error) {
			if !utf8.Valid(payload) {
				return Value{}, fmt.Errorf("%w: String payload", ErrInvalidUTF8)
			}
			return Str(string(payload)), nil
		})
	case TokSymbol, TokPartialSymbol:
		if p.want != KindSymbol {
			return p.mismatch(tok)
		}
		return p.accumulate(tok, alloc, TokSymbol, func(payload []byte) (Value, error) {
			if !utf8.Valid(payload) {
				return Value{}, fmt.Errorf("%w: Symbol payload", ErrInvalidUTF8)
			}
			return Sym(string(payload)), nil
		})
	default:
		return p.mismatch(tok)
	}
}

func (p *scalarPlan) mismatch(tok Token) (Value, bool, error) {
	return Value{}, false, fmt.Errorf("%w: expected %s, got %s", ErrUnexpectedToken, p.want, tok.Kind)
}

func (p *scalarPlan) accumulateFixed(tok Token, alloc Allocator, fullKind TokenKind, width int, finish func([]byte) Value) (Value, bool, error) {
	if p.buf == nil {
		p.buf = alloc.Bytes(width)
	}
	p.buf = append(p.buf, tok.Bytes...)
	if tok.Kind != fullKind {
		return Value{}, false, nil
	}
	return finish(p.buf), true, nil
}

func (p *scalarPlan) accumulate(tok Token, alloc Allocator, fullKind TokenKind, finish func([]byte) (Value, error)) (Value, bool, error) {
	if p.buf == nil {
		p.buf = alloc.Bytes(len(tok.Bytes) + int(tok.Remaining))
	}
	p.buf = append(p.buf, tok.Bytes...)
	if tok.Kind != fullKind {
		return Value{}, false, nil
	}
	v, err := finish(p.buf)
	if err != nil {
		return Value{}, false, err
	}
	return v, true, nil
}

func (p *scalarPlan) Cleanup(alloc Allocator) error {
	if p.buf == nil {
		return nil
	}
	return alloc.Release(p.buf)
}

// elementCollectionPlan implements both the Sequence and Set plans,
// which share a shape: an element Plan run to completion once per
// member, until a fixed end token arrives.
type elementCollectionPlan struct {
	endKind TokenKind
	build   func([]Value) Value
	elems   []Value
	cur     Plan
}

func newSequencePlan() Plan {
	return &elementCollectionPlan{endKind: TokSeqEnd, build: func(vs []Value) Value { return Seq(vs...) }}
}

func newSetPlan() Plan {
	return &elementCollectionPlan{endKind: TokSetEnd, build: func(vs []Value) Value { return SetOf(vs...) }}
}

func (p *elementCollectionPlan) Feed(tok Token, alloc Allocator) (Value, bool, error) {
	if p.cur != nil {
		v, done, err := p.cur.Feed(tok, alloc)
		if err != nil {
			return Value{}, false, err
		}
		if !done {
			return Value{}, false, nil
		}
		p.elems = append(p.elems, v)
		p.cur = nil
		return Value{}, false, nil
	}
	if tok.Kind == p.endKind {
		return p.build(p.elems), true, nil
	}
	p.cur = newAnyPlan()
	return p.Feed(tok, alloc)
}

func (p *elementCollectionPlan) Cleanup(alloc Allocator) error {
	if p.cur != nil {
		return p.cur.Cleanup(alloc)
	}
	return nil
}

// dictionaryPlan decodes a generic (schema-free) Dictionary: alternating
// key and value plans until DictEnd.
type dictionaryPlan struct {
	entries []DictEntry
	keyPlan Plan
	key     Value
	haveKey bool
	valPlan Plan
}

func newDictionaryPlan() Plan { return &dictionaryPlan{} }

func (p *dictionaryPlan) Feed(tok Token, alloc Allocator) (Value, bool, error) {
	if p.haveKey {
		if p.valPlan == nil {
			p.valPlan = newAnyPlan()
		}
		v, done, err := p.valPlan.Feed(tok, alloc)
		if err != nil {
			return Value{}, false, err
		}
		if !done {
			return Value{}, false, nil
		}
		p.entries = append(p.entries, DictEntry{Key: p.key, Value: v})
		p.valPlan = nil
		p.haveKey = false
		return Value{}, false, nil
	}
	if p.keyPlan != nil {
		v, done, err := p.keyPlan.Feed(tok, alloc)
		if err != nil {
			return Value{}, false, err
		}
		if !done {
			return Value{}, false, nil
		}
		p.key = v
		p.haveKey = true
		p.keyPlan = nil
		return Value{}, false, nil
	}
	if tok.Kind == TokDictEnd {
		return Dict(p.entries...), true, nil
	}
	p.keyPlan = newAnyPlan()
	return p.Feed(tok, alloc)
}

func (p *dictionaryPlan) Cleanup(alloc Allocator) error {
	var merr *multierror.Error
	if p.keyPlan != nil {
		merr = multierror.Append(merr, p.keyPlan.Cleanup(alloc))
	}
	if p.valPlan != nil {
		merr = multierror.Append(merr, p.valPlan.Cleanup(alloc))
	}
	return merr.ErrorOrNil()
}

// recordPlan decodes a Record: a label followed by zero or more fields,
// until RecEnd. The scanner has already rejected `<>` (spec §3's
// empty-record rule), so recordPlan never has to.
type recordPlan struct {
	label     Value
	haveLabel bool
	fields    []Value
	cur       Plan
}

func newRecordPlan() Plan { return &recordPlan{} }

func (p *recordPlan) Feed(tok Token, alloc Allocator) (Value, bool, error) {
	if p.cur != nil {
		v, done, err := p.cur.Feed(tok, alloc)
		if err != nil {
			return Value{}, false, err
		}
		if !done {
			return Value{}, false, nil
		}
		if !p.haveLabel {
			p.label = v
			p.haveLabel = true
		} else {
			p.fields = append(p.fields, v)
		}
		p.cur = nil
		return Value{}, false, nil
	}
	if p.haveLabel && tok.Kind == TokRecEnd {
		return Rec(p.label, p.fields...), true, nil
	}
	p.cur = newAnyPlan()
	return p.Feed(tok, alloc)
}

func (p *recordPlan) Cleanup(alloc Allocator) error {
	if p.cur != nil {
		return p.cur.Cleanup(alloc)
	}
	return nil
}

// Driver owns a Scanner, a refill buffer, and the byte source it reads
// from, and drives a Plan to completion by alternating Scanner.Next with
// refills (spec §4.1's "resumable, cooperative" contract realized for a
// blocking io.Reader source rather than a push-fed one).
type Driver struct {
	scanner *Scanner
	source  io.Reader
	alloc   Allocator
	buf     []byte
}

// NewDriver returns a Driver reading from source, using alloc for every
// heap allocation the decode makes (a nil alloc falls back to plain
// make/append), with a refill buffer of bufferSize bytes (spec §6.4's
// default of 64 is used when bufferSize <= 0).
func NewDriver(source io.Reader, alloc Allocator, bufferSize int) *Driver {
	if alloc == nil {
		alloc = heapAllocator{}
	}
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Driver{
		scanner: NewScanner(),
		source:  source,
		alloc:   alloc,
		buf:     make([]byte, bufferSize),
	}
}

// Decode reads and decodes exactly one top-level value. Calling Decode
// again on the same Driver reads the next value from the same source,
// in the style of encoding/json's Decoder; Decode returns io.EOF once
// the source is exhausted between values.
func (d *Driver) Decode() (Value, error) {
	var plan Plan = newAnyPlan()
	for {
		tok, err := d.scanner.Next()
		if err != nil {
			if errors.Is(err, errBufferUnderrun) {
				if rerr := d.refill(); rerr != nil {
					return Value{}, abort(plan, d.alloc, rerr)
				}
				continue
			}
			return Value{}, abort(plan, d.alloc, err)
		}
		if tok.Kind == TokEndOfDocument {
			return Value{}, abort(plan, d.alloc, io.EOF)
		}
		v, done, ferr := plan.Feed(tok, d.alloc)
		if ferr != nil {
			return Value{}, abort(plan, d.alloc, ferr)
		}
		if done {
			return v, nil
		}
	}
}

// abort cleans up plan and folds any cleanup-time Release error together
// with primary, the error that triggered the abort, rather than letting
// one silently shadow the other.
func abort(plan Plan, alloc Allocator, primary error) error {
	if cerr := plan.Cleanup(alloc); cerr != nil {
		return multierror.Append(primary, cerr).ErrorOrNil()
	}
	return primary
}

func (d *Driver) refill() error {
	n, err := d.source.Read(d.buf)
	if n > 0 {
		d.scanner.Feed(d.buf[:n])
	}
	if err == io.EOF {
		d.scanner.EndInput()
		return nil
	}
	return err
}
