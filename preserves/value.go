package preserves

import (
	"fmt"
	"math/big"
)

// Kind identifies which variant of the Preserves value algebra a Value
// holds.
type Kind uint8

const (
	KindBoolean Kind = iota
	KindFloat        // binary32
	KindDouble       // binary64
	KindInteger
	KindBinary
	KindString
	KindSymbol
	KindSequence
	KindSet
	KindDictionary
	KindRecord
)

// String returns the kind name, matching the wire vocabulary in spec §3.
func (k Kind) String() string {
	switch k {
	case KindBoolean:
		return "Boolean"
	case KindFloat:
		return "Float"
	case KindDouble:
		return "Double"
	case KindInteger:
		return "Integer"
	case KindBinary:
		return "Binary"
	case KindString:
		return "String"
	case KindSymbol:
		return "Symbol"
	case KindSequence:
		return "Sequence"
	case KindSet:
		return "Set"
	case KindDictionary:
		return "Dictionary"
	case KindRecord:
		return "Record"
	default:
		return "Unknown"
	}
}

// DictEntry is one key/value pair of a Dictionary value.
type DictEntry struct {
	Key   Value
	Value Value
}

// Record is a label plus an ordered list of field values (spec §3).
type Record struct {
	Label  Value
	Fields []Value
}

// Value is an abstract Preserves value: exactly one of the fields below is
// meaningful, selected by Kind. Value is a plain struct, not an interface,
// so it can be copied and compared with go-cmp in tests without reflection
// surprises.
type Value struct {
	kind Kind

	boolVal   bool
	floatVal  float32
	doubleVal float64
	intVal    *big.Int
	bytesVal  []byte // Binary, String, Symbol payload
	seqVal    []Value
	setVal    []Value
	dictVal   []DictEntry
	recVal    *Record
}

// Kind returns the value's variant.
func (v Value) Kind() Kind { return v.kind }

// Bool constructs a Boolean value.
func Bool(b bool) Value { return Value{kind: KindBoolean, boolVal: b} }

// Float32 constructs a Float (binary32) value.
func Float32(f float32) Value { return Value{kind: KindFloat, floatVal: f} }

// Float64 constructs a Double (binary64) value.
func Float64(f float64) Value { return Value{kind: KindDouble, doubleVal: f} }

// Int constructs an Integer value from a host int64.
func Int(i int64) Value { return Value{kind: KindInteger, intVal: big.NewInt(i)} }

// BigInt constructs an Integer value from an arbitrary-precision magnitude.
func BigInt(i *big.Int) Value {
	if i == nil {
		i = new(big.Int)
	}
	return Value{kind: KindInteger, intVal: new(big.Int).Set(i)}
}

// Bin constructs a Binary value. The byte string has no text constraint.
func Bin(b []byte) Value {
	return Value{kind: KindBinary, bytesVal: append([]byte(nil), b...)}
}

// Str constructs a String value. The caller asserts the bytes are valid
// UTF-8; Write returns ErrInvalidUTF8 if that assertion is false.
func Str(s string) Value {
	return Value{kind: KindString, bytesVal: []byte(s)}
}

// Sym constructs a Symbol value. Like String, the payload must be valid
// UTF-8.
func Sym(s string) Value {
	return Value{kind: KindSymbol, bytesVal: []byte(s)}
}

// Seq constructs a Sequence value.
func Seq(vs ...Value) Value {
	return Value{kind: KindSequence, seqVal: vs}
}

// SetOf constructs a Set value. Member order is not significant; Write
// sorts members by canonical encoded byte order before emitting them.
func SetOf(vs ...Value) Value {
	return Value{kind: KindSet, setVal: vs}
}

// Dict constructs a Dictionary value from entries. Entry order is not
// significant; Write sorts entries by canonical encoded key order.
func Dict(entries ...DictEntry) Value {
	return Value{kind: KindDictionary, dictVal: entries}
}

// Rec constructs a Record value: a label plus ordered fields. spec §3
// requires the label to be present, so a Record can never be empty the
// way `<>` is rejected by the scanner.
func Rec(label Value, fields ...Value) Value {
	return Value{kind: KindRecord, recVal: &Record{Label: label, Fields: fields}}
}

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, error) {
	if v.kind != KindBoolean {
		return false, fmt.Errorf("preserves: expected Boolean, got %s", v.kind)
	}
	return v.boolVal, nil
}

// AsFloat32 returns the Float payload.
func (v Value) AsFloat32() (float32, error) {
	if v.kind != KindFloat {
		return 0, fmt.Errorf("preserves: expected Float, got %s", v.kind)
	}
	return v.floatVal, nil
}

// AsFloat64 returns the Double payload.
func (v Value) AsFloat64() (float64, error) {
	if v.kind != KindDouble {
		return 0, fmt.Errorf("preserves: expected Double, got %s", v.kind)
	}
	return v.doubleVal, nil
}

// AsBigInt returns the Integer payload.
func (v Value) AsBigInt() (*big.Int, error) {
	if v.kind != KindInteger {
		return nil, fmt.Errorf("preserves: expected Integer, got %s", v.kind)
	}
	return v.intVal, nil
}

// AsBytes returns the Binary payload.
func (v Value) AsBytes() ([]byte, error) {
	if v.kind != KindBinary {
		return nil, fmt.Errorf("preserves: expected Binary, got %s", v.kind)
	}
	return v.bytesVal, nil
}

// AsString returns the String payload.
func (v Value) AsString() (string, error) {
	if v.kind != KindString {
		return "", fmt.Errorf("preserves: expected String, got %s", v.kind)
	}
	return string(v.bytesVal), nil
}

// AsSymbol returns the Symbol payload.
func (v Value) AsSymbol() (string, error) {
	if v.kind != KindSymbol {
		return "", fmt.Errorf("preserves: expected Symbol, got %s", v.kind)
	}
	return string(v.bytesVal), nil
}

// AsSequence returns the Sequence elements.
func (v Value) AsSequence() ([]Value, error) {
	if v.kind != KindSequence {
		return nil, fmt.Errorf("preserves: expected Sequence, got %s", v.kind)
	}
	return v.seqVal, nil
}

// AsSet returns the Set members.
func (v Value) AsSet() ([]Value, error) {
	if v.kind != KindSet {
		return nil, fmt.Errorf("preserves: expected Set, got %s", v.kind)
	}
	return v.setVal, nil
}

// AsDictionary returns the Dictionary entries.
func (v Value) AsDictionary() ([]DictEntry, error) {
	if v.kind != KindDictionary {
		return nil, fmt.Errorf("preserves: expected Dictionary, got %s", v.kind)
	}
	return v.dictVal, nil
}

// AsRecord returns the Record payload.
func (v Value) AsRecord() (*Record, error) {
	if v.kind != KindRecord {
		return nil, fmt.Errorf("preserves: expected Record, got %s", v.kind)
	}
	return v.recVal, nil
}

// Equal reports whether v and other denote the same Preserves value.
// go-cmp detects this method automatically (its "Equal(T) bool" rule)
// and uses it instead of reflecting into Value's unexported fields — the
// comparison spec §8's testable properties want: Set and Dictionary
// compare by membership, not by the order their entries happen to be
// stored in.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindBoolean:
		return v.boolVal == other.boolVal
	case KindFloat:
		return v.floatVal == other.floatVal
	case KindDouble:
		return v.doubleVal == other.doubleVal
	case KindInteger:
		return v.intVal.Cmp(other.intVal) == 0
	case KindBinary, KindString, KindSymbol:
		return string(v.bytesVal) == string(other.bytesVal)
	case KindSequence:
		if len(v.seqVal) != len(other.seqVal) {
			return false
		}
		for i, e := range v.seqVal {
			if !e.Equal(other.seqVal[i]) {
				return false
			}
		}
		return true
	case KindSet:
		return sameMembers(v.setVal, other.setVal)
	case KindDictionary:
		return sameEntries(v.dictVal, other.dictVal)
	case KindRecord:
		if !v.recVal.Label.Equal(other.recVal.Label) {
			return false
		}
		if len(v.recVal.Fields) != len(other.recVal.Fields) {
			return false
		}
		for i, f := range v.recVal.Fields {
			if !f.Equal(other.recVal.Fields[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func sameMembers(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	as, err := sortByCanonicalEncoding(a, func(m Value) (Value, error) { return m, nil }, encodeCanonicalBinary)
	if err != nil {
		return false
	}
	bs, err := sortByCanonicalEncoding(b, func(m Value) (Value, error) { return m, nil }, encodeCanonicalBinary)
	if err != nil {
		return false
	}
	for i := range as {
		if !as[i].Equal(bs[i]) {
			return false
		}
	}
	return true
}

func sameEntries(a, b []DictEntry) bool {
	if len(a) != len(b) {
		return false
	}
	as, err := sortDictEntries(a, encodeCanonicalBinary)
	if err != nil {
		return false
	}
	bs, err := sortDictEntries(b, encodeCanonicalBinary)
	if err != nil {
		return false
	}
	for i := range as {
		if !as[i].Key.Equal(bs[i].Key) || !as[i].Value.Equal(bs[i].Value) {
			return false
		}
	}
	return true
}

// DictLookup returns the value for key and whether it was found, comparing
// keys by their canonical encoded form rather than by Go struct equality
// (spec §3: dictionaries are keyed by value identity, not representation).
func (v Value) DictLookup(key Value) (Value, bool) {
	entries, err := v.AsDictionary()
	if err != nil {
		return Value{}, false
	}
	kb, err := encodeCanonicalBinary(key)
	if err != nil {
		return Value{}, false
	}
	for _, e := range entries {
		eb, err := encodeCanonicalBinary(e.Key)
		if err != nil {
			continue
		}
		if string(eb) == string(kb) {
			return e.Value, true
		}
	}
	return Value{}, false
}
