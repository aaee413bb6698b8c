package preserves

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"math/big"
	"strconv"
	"unicode/utf8"
)

// SyrupEncoder emits Syrup atoms and collection delimiters to an
// underlying sink. It is stateless beyond the sink itself: each method
// writes exactly the bytes spec §4.2 assigns to that atom or delimiter, in
// one call, and methods may be called in any order the caller's grammar
// permits. Composing a well-formed document (matched Rec/Seq/Set/Dict
// start and end, a label before other record fields, etc.) is the
// caller's responsibility — see Writer for the schema-driven layer that
// does this automatically.
type SyrupEncoder struct {
	w io.Writer
}

// NewSyrupEncoder wraps w as a Syrup atom encoder.
func NewSyrupEncoder(w io.Writer) *SyrupEncoder {
	return &SyrupEncoder{w: w}
}

func (e *SyrupEncoder) writeString(s string) error {
	_, err := io.WriteString(e.w, s)
	return err
}

func (e *SyrupEncoder) writeBytes(b []byte) error {
	_, err := e.w.Write(b)
	return err
}

// Bool emits `t` or `f`.
func (e *SyrupEncoder) Bool(b bool) error {
	if b {
		return e.writeString("t")
	}
	return e.writeString("f")
}

// Float32 emits `F` followed by 4 big-endian bytes.
func (e *SyrupEncoder) Float32(f float32) error {
	var buf [5]byte
	buf[0] = 'F'
	binary.BigEndian.PutUint32(buf[1:], math.Float32bits(f))
	return e.writeBytes(buf[:])
}

// Float64 emits `D` followed by 8 big-endian bytes.
func (e *SyrupEncoder) Float64(f float64) error {
	var buf [9]byte
	buf[0] = 'D'
	binary.BigEndian.PutUint64(buf[1:], math.Float64bits(f))
	return e.writeBytes(buf[:])
}

// Integer emits the decimal magnitude of i followed by `+` or `-`.
func (e *SyrupEncoder) Integer(i *big.Int) error {
	if i == nil {
		i = new(big.Int)
	}
	sign := "+"
	mag := i
	if i.Sign() < 0 {
		sign = "-"
		mag = new(big.Int).Neg(i)
	}
	if err := e.writeString(mag.String()); err != nil {
		return err
	}
	return e.writeString(sign)
}

// Binary emits the decimal length of b, `:`, then b verbatim.
func (e *SyrupEncoder) Binary(b []byte) error {
	if err := e.writeString(strconv.Itoa(len(b))); err != nil {
		return err
	}
	if err := e.writeString(":"); err != nil {
		return err
	}
	return e.writeBytes(b)
}

// String emits the decimal byte length of s, `"`, then s's UTF-8 bytes.
// Returns ErrInvalidUTF8 if s is not valid UTF-8.
func (e *SyrupEncoder) String(s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: String payload", ErrInvalidUTF8)
	}
	if err := e.writeString(strconv.Itoa(len(s))); err != nil {
		return err
	}
	if err := e.writeString(`"`); err != nil {
		return err
	}
	return e.writeString(s)
}

// Symbol emits the decimal byte length of s, `'`, then s's UTF-8 bytes.
// Returns ErrInvalidUTF8 if s is not valid UTF-8.
func (e *SyrupEncoder) Symbol(s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: Symbol payload", ErrInvalidUTF8)
	}
	if err := e.writeString(strconv.Itoa(len(s))); err != nil {
		return err
	}
	if err := e.writeString("'"); err != nil {
		return err
	}
	return e.writeString(s)
}

// DictStart emits `{`.
func (e *SyrupEncoder) DictStart() error { return e.writeString("{") }

// DictEnd emits `}`.
func (e *SyrupEncoder) DictEnd() error { return e.writeString("}") }

// SeqStart emits `[`.
func (e *SyrupEncoder) SeqStart() error { return e.writeString("[") }

// SeqEnd emits `]`.
func (e *SyrupEncoder) SeqEnd() error { return e.writeString("]") }

// RecStart emits `<`.
func (e *SyrupEncoder) RecStart() error { return e.writeString("<") }

// RecEnd emits `>`.
func (e *SyrupEncoder) RecEnd() error { return e.writeString(">") }

// SetStart emits `#`.
func (e *SyrupEncoder) SetStart() error { return e.writeString("#") }

// SetEnd emits `$`.
func (e *SyrupEncoder) SetEnd() error { return e.writeString("$") }

// WriteValue emits the full Syrup encoding of v, sorting Dictionary
// entries and Set members by canonical encoded byte order as spec §3 and
// §4.4 require.
func (e *SyrupEncoder) WriteValue(v Value) error {
	switch v.kind {
	case KindBoolean:
		b, _ := v.AsBool()
		return e.Bool(b)
	case KindFloat:
		f, _ := v.AsFloat32()
		return e.Float32(f)
	case KindDouble:
		f, _ := v.AsFloat64()
		return e.Float64(f)
	case KindInteger:
		i, _ := v.AsBigInt()
		return e.Integer(i)
	case KindBinary:
		b, _ := v.AsBytes()
		return e.Binary(b)
	case KindString:
		s, _ := v.AsString()
		return e.String(s)
	case KindSymbol:
		s, _ := v.AsSymbol()
		return e.Symbol(s)
	case KindSequence:
		return e.writeSequence(v)
	case KindSet:
		return e.writeSet(v)
	case KindDictionary:
		return e.writeDictionary(v)
	case KindRecord:
		return e.writeRecord(v)
	default:
		return fmt.Errorf("preserves: unknown value kind %d", v.kind)
	}
}

func (e *SyrupEncoder) writeSequence(v Value) error {
	elems, _ := v.AsSequence()
	if err := e.SeqStart(); err != nil {
		return err
	}
	for _, el := range elems {
		if err := e.WriteValue(el); err != nil {
			return err
		}
	}
	return e.SeqEnd()
}

func (e *SyrupEncoder) writeSet(v Value) error {
	members, _ := v.AsSet()
	sorted, err := sortByCanonicalEncoding(members, func(m Value) (Value, error) { return m, nil }, encodeCanonicalSyrup)
	if err != nil {
		return err
	}
	if err := e.SetStart(); err != nil {
		return err
	}
	for _, m := range sorted {
		if err := e.WriteValue(m); err != nil {
			return err
		}
	}
	return e.SetEnd()
}

func (e *SyrupEncoder) writeDictionary(v Value) error {
	entries, _ := v.AsDictionary()
	sortedEntries, err := sortDictEntries(entries, encodeCanonicalSyrup)
	if err != nil {
		return err
	}
	if err := e.DictStart(); err != nil {
		return err
	}
	for _, ent := range sortedEntries {
		if err := e.WriteValue(ent.Key); err != nil {
			return err
		}
		if err := e.WriteValue(ent.Value); err != nil {
			return err
		}
	}
	return e.DictEnd()
}

func (e *SyrupEncoder) writeRecord(v Value) error {
	rec, _ := v.AsRecord()
	if err := e.RecStart(); err != nil {
		return err
	}
	if err := e.WriteValue(rec.Label); err != nil {
		return err
	}
	for _, f := range rec.Fields {
		if err := e.WriteValue(f); err != nil {
			return err
		}
	}
	return e.RecEnd()
}
