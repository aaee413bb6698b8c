package preserves

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"math/big"
	"unicode/utf8"
)

// Preserves Binary tag bytes (spec §4.3, §6.2).
const (
	tagFalse = 0x80
	tagTrue  = 0x81
	// 0x82, 0x83 reserved.
	tagEnd = 0x84
	// 0x85 annotation, 0x86 embedded — recognized by spec, never emitted
	// or consumed by this system.
	tagFloatOrDouble = 0x87
	tagSignedInt     = 0xB0
	tagString        = 0xB1
	tagBinary        = 0xB2
	tagSymbol        = 0xB3
	tagRecord        = 0xB4
	tagSequence      = 0xB5
	tagSet           = 0xB6
	tagDictionary    = 0xB7
	// 0x88..0xAF, 0xB8..0xBF reserved.
)

// BinaryEncoder emits Preserves Binary atoms and collection framing to an
// underlying sink. Like SyrupEncoder it is stateless beyond the sink:
// callers (typically Writer) are responsible for matching collection
// Start/End calls.
type BinaryEncoder struct {
	w io.Writer
}

// NewBinaryEncoder wraps w as a Preserves Binary atom encoder.
func NewBinaryEncoder(w io.Writer) *BinaryEncoder {
	return &BinaryEncoder{w: w}
}

func (e *BinaryEncoder) writeByte(b byte) error {
	_, err := e.w.Write([]byte{b})
	return err
}

func (e *BinaryEncoder) writeBytes(b []byte) error {
	_, err := e.w.Write(b)
	return err
}

// appendUvarint appends the unsigned LEB128 encoding of v to buf and returns
// the result, mirroring encoding/binary.PutUvarint's shape but building a
// slice rather than requiring a pre-sized one.
func appendUvarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

func (e *BinaryEncoder) writeLenPrefixed(tag byte, payload []byte) error {
	header := append([]byte{tag}, appendUvarint(nil, uint64(len(payload)))...)
	if err := e.writeBytes(header); err != nil {
		return err
	}
	return e.writeBytes(payload)
}

// Bool emits 0x80 or 0x81.
func (e *BinaryEncoder) Bool(b bool) error {
	if b {
		return e.writeByte(tagTrue)
	}
	return e.writeByte(tagFalse)
}

// Float32 emits tag 0x87, LEB128 length 4, then 4 big-endian bytes.
func (e *BinaryEncoder) Float32(f float32) error {
	var payload [4]byte
	binary.BigEndian.PutUint32(payload[:], math.Float32bits(f))
	return e.writeLenPrefixed(tagFloatOrDouble, payload[:])
}

// Float64 emits tag 0x87, LEB128 length 8, then 8 big-endian bytes.
func (e *BinaryEncoder) Float64(f float64) error {
	var payload [8]byte
	binary.BigEndian.PutUint64(payload[:], math.Float64bits(f))
	return e.writeLenPrefixed(tagFloatOrDouble, payload[:])
}

// MinSignedWidth returns the two's-complement payload width the binary
// encoder uses for v (spec §4.3, §8): zero for v == 0, otherwise
// ceil((bitlen(|v|)+1)/8). This is the shortest two's-complement form
// for every v except -2^(8k-1) (-128, -32768, ...), where it is one byte
// wider than the shortest form.
func MinSignedWidth(v *big.Int) int {
	if v.Sign() == 0 {
		return 0
	}
	mag := v
	if v.Sign() < 0 {
		// The rule is stated on the magnitude, so both signs use the bit
		// length of |v|.
		mag = new(big.Int).Abs(v)
	}
	bits := mag.BitLen()
	return (bits + 1 + 7) / 8
}

// Integer emits tag 0xB0, LEB128 minimum width, then that many bytes of
// two's-complement big-endian payload. Zero encodes with an empty
// payload.
func (e *BinaryEncoder) Integer(v *big.Int) error {
	if v == nil {
		v = new(big.Int)
	}
	width := MinSignedWidth(v)
	payload := twosComplementBytes(v, width)
	return e.writeLenPrefixed(tagSignedInt, payload)
}

// twosComplementBytes renders v as width bytes of big-endian two's
// complement. width must be at least MinSignedWidth(v); width == 0 is
// valid only for v == 0.
func twosComplementBytes(v *big.Int, width int) []byte {
	if width == 0 {
		return nil
	}
	out := make([]byte, width)
	if v.Sign() >= 0 {
		b := v.Bytes()
		copy(out[width-len(b):], b)
		return out
	}
	// Two's complement of a negative number: (2^(8*width) + v).
	mod := new(big.Int).Lsh(big.NewInt(1), uint(width*8))
	mod.Add(mod, v)
	b := mod.Bytes()
	copy(out[width-len(b):], b)
	return out
}

// Binary emits tag 0xB2, LEB128 length, then the payload bytes.
func (e *BinaryEncoder) Binary(b []byte) error {
	return e.writeLenPrefixed(tagBinary, b)
}

// String emits tag 0xB1, LEB128 length, then s's UTF-8 bytes. Returns
// ErrInvalidUTF8 if s is not valid UTF-8.
func (e *BinaryEncoder) String(s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: String payload", ErrInvalidUTF8)
	}
	return e.writeLenPrefixed(tagString, []byte(s))
}

// Symbol emits tag 0xB3, LEB128 length, then s's UTF-8 bytes. Returns
// ErrInvalidUTF8 if s is not valid UTF-8.
func (e *BinaryEncoder) Symbol(s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: Symbol payload", ErrInvalidUTF8)
	}
	return e.writeLenPrefixed(tagSymbol, []byte(s))
}

// RecordStart emits tag 0xB4.
func (e *BinaryEncoder) RecordStart() error { return e.writeByte(tagRecord) }

// SequenceStart emits tag 0xB5.
func (e *BinaryEncoder) SequenceStart() error { return e.writeByte(tagSequence) }

// SetStart emits tag 0xB6.
func (e *BinaryEncoder) SetStart() error { return e.writeByte(tagSet) }

// DictionaryStart emits tag 0xB7.
func (e *BinaryEncoder) DictionaryStart() error { return e.writeByte(tagDictionary) }

// End emits tag 0x84, terminating whichever collection is open.
func (e *BinaryEncoder) End() error { return e.writeByte(tagEnd) }

// WriteValue emits the full Preserves Binary encoding of v, sorting
// Dictionary entries and Set members by canonical encoded byte order
// (spec §3, §4.4, §6.3).
func (e *BinaryEncoder) WriteValue(v Value) error {
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

func (e *BinaryEncoder) writeSequence(v Value) error {
	elems, _ := v.AsSequence()
	if err := e.SequenceStart(); err != nil {
		return err
	}
	for _, el := range elems {
		if err := e.WriteValue(el); err != nil {
			return err
		}
	}
	return e.End()
}

func (e *BinaryEncoder) writeSet(v Value) error {
	members, _ := v.AsSet()
	sorted, err := sortByCanonicalEncoding(members, func(m Value) (Value, error) { return m, nil }, encodeCanonicalBinary)
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
	return e.End()
}

func (e *BinaryEncoder) writeDictionary(v Value) error {
	entries, _ := v.AsDictionary()
	sortedEntries, err := sortDictEntries(entries, encodeCanonicalBinary)
	if err != nil {
		return err
	}
	if err := e.DictionaryStart(); err != nil {
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
	return e.End()
}

func (e *BinaryEncoder) writeRecord(v Value) error {
	rec, _ := v.AsRecord()
	if err := e.RecordStart(); err != nil {
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
	return e.End()
}
