package preserves

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"sync"
)

// PreservesEncoder lets a host type take over its own encoding instead
// of going through the reflect-driven default (spec §4.4's composing
// writer, addition 4.4a).
type PreservesEncoder interface {
	EncodePreserves() (Value, error)
}

// PreservesLabel lets a host struct type supply the Record label the
// composing writer would otherwise have no way to infer, opting that
// struct into record-shaped (rather than dictionary-shaped) encoding.
type PreservesLabel interface {
	PreservesLabel() string
}

// ValueEncoder is satisfied by both SyrupEncoder and BinaryEncoder: the
// composing writer builds a Value and hands it to whichever wire format
// the caller chose.
type ValueEncoder interface {
	WriteValue(Value) error
}

// Writer composes ToValue with a ValueEncoder, so callers can pass
// ordinary Go values instead of building a Value tree by hand.
type Writer struct {
	enc ValueEncoder
}

// NewWriter wraps enc (a *SyrupEncoder or *BinaryEncoder) as a Writer.
func NewWriter(enc ValueEncoder) *Writer { return &Writer{enc: enc} }

// Write converts x to a Value via ToValue and emits it.
func (w *Writer) Write(x any) error {
	v, err := ToValue(x)
	if err != nil {
		return err
	}
	return w.enc.WriteValue(v)
}

var (
	preservesEncoderType = reflect.TypeOf((*PreservesEncoder)(nil)).Elem()
	preservesLabelType   = reflect.TypeOf((*PreservesLabel)(nil)).Elem()
)

type hookInfo struct {
	encoder bool
	label   bool
}

// hookCache memoizes, per reflect.Type, whether that type or its pointer
// implements PreservesEncoder/PreservesLabel, so repeated encoding of the
// same host type (the common case: encoding many records of one Go
// struct type) doesn't repeat the Implements check.
var hookCache sync.Map // map[reflect.Type]hookInfo

func hooksFor(t reflect.Type) hookInfo {
	if v, ok := hookCache.Load(t); ok {
		return v.(hookInfo)
	}
	info := hookInfo{
		encoder: t.Implements(preservesEncoderType),
		label:   t.Implements(preservesLabelType),
	}
	hookCache.Store(t, info)
	return info
}

func checkEncoder(rv reflect.Value) (PreservesEncoder, bool) {
	if !rv.IsValid() {
		return nil, false
	}
	if hooksFor(rv.Type()).encoder && rv.CanInterface() {
		if enc, ok := rv.Interface().(PreservesEncoder); ok {
			return enc, true
		}
	}
	if rv.CanAddr() {
		pt := reflect.PointerTo(rv.Type())
		if hooksFor(pt).encoder {
			if enc, ok := rv.Addr().Interface().(PreservesEncoder); ok {
				return enc, true
			}
		}
	}
	return nil, false
}

func checkLabel(rv reflect.Value) (PreservesLabel, bool) {
	if !rv.IsValid() {
		return nil, false
	}
	if hooksFor(rv.Type()).label && rv.CanInterface() {
		if l, ok := rv.Interface().(PreservesLabel); ok {
			return l, true
		}
	}
	if rv.CanAddr() {
		pt := reflect.PointerTo(rv.Type())
		if hooksFor(pt).label {
			if l, ok := rv.Addr().Interface().(PreservesLabel); ok {
				return l, true
			}
		}
	}
	return nil, false
}

type stringer interface{ String() string }

func checkEnumStringer(rv reflect.Value) (stringer, bool) {
	if !rv.IsValid() || !rv.CanInterface() {
		return nil, false
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
	default:
		return nil, false
	}
	s, ok := rv.Interface().(stringer)
	return s, ok
}

// ToValue converts a Go value into its Value encoding (spec §4.4's
// composing writer):
//
//   - bool -> Boolean
//   - any integer width -> Integer
//   - float32 -> Float, float64 -> Double
//   - string -> String
//   - []byte or a fixed-size byte array -> Binary
//   - a slice or array of anything else -> Sequence
//   - a map whose value type is struct{} or bool -> Set (members are the
//     keys; a false-valued bool entry is treated as absent)
//   - any other map -> Dictionary
//   - a struct implementing PreservesLabel -> Record, labeled by
//     PreservesLabel() and with fields in declaration order
//   - any other struct -> Dictionary, keyed by field name (or the
//     `preserves:"name"` tag), field order preserved (Write sorts on
//     output; member order here is not significant)
//   - a pointer or interface -> the value it points to (nil is only
//     valid for an optional struct field, where it is dropped instead)
//   - an integer-kinded type with a String method -> Symbol(String()),
//     the enum convention
//
// A type implementing PreservesEncoder bypasses all of the above.
func ToValue(x any) (Value, error) {
	if x == nil {
		return Value{}, fmt.Errorf("preserves: cannot encode nil")
	}
	if v, ok := x.(Value); ok {
		return v, nil
	}
	return toValueReflect(reflect.ValueOf(x))
}

func toValueReflect(rv reflect.Value) (Value, error) {
	if enc, ok := checkEncoder(rv); ok {
		return enc.EncodePreserves()
	}
	if s, ok := checkEnumStringer(rv); ok {
		return Sym(s.String()), nil
	}

	switch rv.Kind() {
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return BigInt(new(big.Int).SetUint64(u)), nil
		}
		return Int(int64(u)), nil
	case reflect.Float32:
		return Float32(float32(rv.Float())), nil
	case reflect.Float64:
		return Float64(rv.Float()), nil
	case reflect.String:
		return Str(rv.String()), nil
	case reflect.Slice, reflect.Array:
		return sliceOrArrayToValue(rv)
	case reflect.Map:
		return mapToValue(rv)
	case reflect.Struct:
		return structToValue(rv)
	case reflect.Ptr:
		if rv.IsNil() {
			return Value{}, fmt.Errorf("preserves: cannot encode nil pointer")
		}
		return toValueReflect(rv.Elem())
	case reflect.Interface:
		if rv.IsNil() {
			return Value{}, fmt.Errorf("preserves: cannot encode nil interface")
		}
		return toValueReflect(rv.Elem())
	default:
		return Value{}, fmt.Errorf("preserves: cannot encode %s", rv.Kind())
	}
}

func sliceOrArrayToValue(rv reflect.Value) (Value, error) {
	if rv.Kind() == reflect.Slice && rv.IsNil() && rv.Type().Elem().Kind() == reflect.Uint8 {
		return Bin(nil), nil
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		b := make([]byte, rv.Len())
		reflect.Copy(reflect.ValueOf(b), rv)
		return Bin(b), nil
	}
	elems := make([]Value, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		v, err := toValueReflect(rv.Index(i))
		if err != nil {
			return Value{}, err
		}
		elems[i] = v
	}
	return Seq(elems...), nil
}

func mapToValue(rv reflect.Value) (Value, error) {
	elemKind := rv.Type().Elem().Kind()
	setLike := elemKind == reflect.Struct && rv.Type().Elem().NumField() == 0
	setLike = setLike || elemKind == reflect.Bool

	iter := rv.MapRange()
	if setLike {
		var members []Value
		for iter.Next() {
			if elemKind == reflect.Bool && !iter.Value().Bool() {
				continue
			}
			k, err := toValueReflect(iter.Key())
			if err != nil {
				return Value{}, err
			}
			members = append(members, k)
		}
		return SetOf(members...), nil
	}

	var entries []DictEntry
	for iter.Next() {
		k, err := toValueReflect(iter.Key())
		if err != nil {
			return Value{}, err
		}
		v, err := toValueReflect(iter.Value())
		if err != nil {
			return Value{}, err
		}
		entries = append(entries, DictEntry{Key: k, Value: v})
	}
	return Dict(entries...), nil
}

func fieldName(f reflect.StructField) (string, bool) {
	tag := f.Tag.Get("preserves")
	if tag == "-" {
		return "", false
	}
	if tag != "" {
		return tag, true
	}
	return f.Name, true
}

func structToValue(rv reflect.Value) (Value, error) {
	t := rv.Type()

	if label, ok := checkLabel(rv); ok {
		fields := make([]Value, 0, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.PkgPath != "" {
				continue
			}
			if _, keep := fieldName(f); !keep {
				continue
			}
			fv, err := toValueReflect(rv.Field(i))
			if err != nil {
				return Value{}, err
			}
			fields = append(fields, fv)
		}
		return Rec(Sym(label.PreservesLabel()), fields...), nil
	}

	entries := make([]DictEntry, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue
		}
		name, keep := fieldName(f)
		if !keep {
			continue
		}
		fv := rv.Field(i)
		if fv.Kind() == reflect.Ptr && fv.IsNil() {
			continue // optional field, absent from the dictionary
		}
		val, err := toValueReflect(fv)
		if err != nil {
			return Value{}, err
		}
		entries = append(entries, DictEntry{Key: Sym(name), Value: val})
	}
	return Dict(entries...), nil
}
