package preserves

import (
	"fmt"
	"reflect"
	"sync"
)

// PreservesDecoder lets a host type take over decoding its own value
// instead of going through the reflect-driven default, the mirror image
// of PreservesEncoder.
type PreservesDecoder interface {
	DecodePreserves(Value) error
}

var preservesDecoderType = reflect.TypeOf((*PreservesDecoder)(nil)).Elem()

func checkDecoder(rv reflect.Value) (PreservesDecoder, bool) {
	if !rv.CanAddr() {
		return nil, false
	}
	pt := reflect.PointerTo(rv.Type())
	if !pt.Implements(preservesDecoderType) {
		return nil, false
	}
	dec, ok := rv.Addr().Interface().(PreservesDecoder)
	return dec, ok
}

// FromValue is the materializing half of the composing writer (spec
// §4.4, §4.5): given an already-decoded Value tree and a pointer to a
// host target, it populates the target the way the struct/dictionary
// plan spec §4.5 describes — field names resolved against a compile-time
// static map built from target's struct tags, duplicate keys rejected
// with ErrKeyFoundBefore, keys absent from the schema rejected with
// ErrUnknownKey, and non-pointer fields absent from the source
// dictionary rejected with ErrMissingKey once every key has been seen.
//
// Unlike the scanner-driven plans in plan.go, FromValue works over an
// already-assembled Value rather than a live token stream: the token-
// level resumability spec §4.5 requires is provided by Parse/Driver
// building that Value in the first place, so a second, parallel
// token-driven struct plan would only duplicate that work under a
// different API. FromValue's field-by-field dispatch, presence
// tracking, and error set are otherwise exactly the struct plan spec
// §4.5 describes.
func FromValue(v Value, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("preserves: FromValue target must be a non-nil pointer")
	}
	return fromValueReflect(v, rv.Elem())
}

func fromValueReflect(v Value, rv reflect.Value) error {
	if dec, ok := checkDecoder(rv); ok {
		return dec.DecodePreserves(v)
	}

	switch rv.Kind() {
	case reflect.Bool:
		b, err := v.AsBool()
		if err != nil {
			return err
		}
		rv.SetBool(b)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := v.AsBigInt()
		if err != nil {
			return err
		}
		if !i.IsInt64() {
			return fmt.Errorf("%w: %s out of int64 range", ErrIllFit, i)
		}
		n := i.Int64()
		if rv.OverflowInt(n) {
			return fmt.Errorf("%w: %d overflows %s", ErrIllFit, n, rv.Type())
		}
		rv.SetInt(n)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		i, err := v.AsBigInt()
		if err != nil {
			return err
		}
		if i.Sign() < 0 {
			return fmt.Errorf("%w: negative magnitude %s for unsigned target", ErrIllFit, i)
		}
		if !i.IsUint64() {
			return fmt.Errorf("%w: %s out of uint64 range", ErrIllFit, i)
		}
		u := i.Uint64()
		if rv.OverflowUint(u) {
			return fmt.Errorf("%w: %d overflows %s", ErrIllFit, u, rv.Type())
		}
		rv.SetUint(u)
		return nil
	case reflect.Float32:
		f, err := v.AsFloat32()
		if err != nil {
			return err
		}
		rv.SetFloat(float64(f))
		return nil
	case reflect.Float64:
		f, err := v.AsFloat64()
		if err != nil {
			return err
		}
		rv.SetFloat(f)
		return nil
	case reflect.String:
		switch v.Kind() {
		case KindString:
			s, _ := v.AsString()
			rv.SetString(s)
			return nil
		case KindSymbol:
			s, _ := v.AsSymbol()
			rv.SetString(s)
			return nil
		default:
			return fmt.Errorf("%w: expected String or Symbol, got %s", ErrUnexpectedToken, v.Kind())
		}
	case reflect.Slice, reflect.Array:
		return sliceOrArrayFromValue(v, rv)
	case reflect.Map:
		return mapFromValue(v, rv)
	case reflect.Struct:
		return structFromValue(v, rv)
	case reflect.Ptr:
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		return fromValueReflect(v, rv.Elem())
	default:
		return fmt.Errorf("preserves: cannot decode into %s", rv.Kind())
	}
}

func sliceOrArrayFromValue(v Value, rv reflect.Value) error {
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		b, err := v.AsBytes()
		if err != nil {
			return err
		}
		if rv.Kind() == reflect.Slice {
			rv.SetBytes(append([]byte(nil), b...))
			return nil
		}
		if rv.Len() != len(b) {
			return fmt.Errorf("%w: Binary length %d doesn't match target array length %d", ErrIllFit, len(b), rv.Len())
		}
		reflect.Copy(rv, reflect.ValueOf(b))
		return nil
	}

	elems, err := v.AsSequence()
	if err != nil {
		return err
	}
	if rv.Kind() == reflect.Slice {
		rv.Set(reflect.MakeSlice(rv.Type(), len(elems), len(elems)))
	} else if rv.Len() != len(elems) {
		return fmt.Errorf("%w: Sequence length %d doesn't match target array length %d", ErrIllFit, len(elems), rv.Len())
	}
	for i, el := range elems {
		if err := fromValueReflect(el, rv.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

func mapFromValue(v Value, rv reflect.Value) error {
	elemType := rv.Type().Elem()
	setLike := (elemType.Kind() == reflect.Struct && elemType.NumField() == 0) || elemType.Kind() == reflect.Bool

	if setLike && v.Kind() == KindSet {
		members, err := v.AsSet()
		if err != nil {
			return err
		}
		rv.Set(reflect.MakeMapWithSize(rv.Type(), len(members)))
		for _, m := range members {
			kv := reflect.New(rv.Type().Key()).Elem()
			if err := fromValueReflect(m, kv); err != nil {
				return err
			}
			ev := reflect.New(elemType).Elem()
			if elemType.Kind() == reflect.Bool {
				ev.SetBool(true)
			}
			rv.SetMapIndex(kv, ev)
		}
		return nil
	}

	entries, err := v.AsDictionary()
	if err != nil {
		return err
	}
	rv.Set(reflect.MakeMapWithSize(rv.Type(), len(entries)))
	for _, ent := range entries {
		kv := reflect.New(rv.Type().Key()).Elem()
		if err := fromValueReflect(ent.Key, kv); err != nil {
			return err
		}
		ev := reflect.New(elemType).Elem()
		if err := fromValueReflect(ent.Value, ev); err != nil {
			return err
		}
		rv.SetMapIndex(kv, ev)
	}
	return nil
}

// structFieldPlan is one entry of a struct type's compile-time static
// field map (spec §4.5's struct plan): the Symbol name a dictionary key
// or record position is matched against, and whether the field may be
// legitimately absent (a pointer field: spec §4.4's Optional shape).
type structFieldPlan struct {
	name     string
	index    int
	optional bool
}

// structFieldCache memoizes structFieldsFor per reflect.Type, the same
// read-mostly, write-rarely cache shape as writer.go's hookCache.
var structFieldCache sync.Map // map[reflect.Type][]structFieldPlan

func structFieldsFor(t reflect.Type) []structFieldPlan {
	if fields, ok := structFieldCache.Load(t); ok {
		return fields.([]structFieldPlan)
	}
	var fields []structFieldPlan
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue
		}
		name, keep := fieldName(f)
		if !keep {
			continue
		}
		fields = append(fields, structFieldPlan{
			name:     name,
			index:    i,
			optional: f.Type.Kind() == reflect.Ptr,
		})
	}
	structFieldCache.Store(t, fields)
	return fields
}

func structFromValue(v Value, rv reflect.Value) error {
	t := rv.Type()

	if _, labeled := reflect.New(t).Interface().(PreservesLabel); labeled {
		return recordFromValue(v, rv)
	}

	entries, err := v.AsDictionary()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExpectedDictionaryStart, err)
	}

	fields := structFieldsFor(t)
	byName := make(map[string]structFieldPlan, len(fields))
	for _, f := range fields {
		byName[f.name] = f
	}

	seen := make(map[string]bool, len(entries))
	for _, ent := range entries {
		key, err := ent.Key.AsSymbol()
		if err != nil {
			return fmt.Errorf("%w: dictionary key %s is not a Symbol", ErrUnknownKey, ent.Key.Kind())
		}
		if seen[key] {
			return fmt.Errorf("%w: %q", ErrKeyFoundBefore, key)
		}
		seen[key] = true
		f, ok := byName[key]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownKey, key)
		}
		if err := fromValueReflect(ent.Value, rv.Field(f.index)); err != nil {
			return err
		}
	}

	for _, f := range fields {
		if !f.optional && !seen[f.name] {
			return fmt.Errorf("%w: %q", ErrMissingKey, f.name)
		}
	}
	return nil
}

func recordFromValue(v Value, rv reflect.Value) error {
	rec, err := v.AsRecord()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedToken, err)
	}
	label, ok := reflect.New(rv.Type()).Interface().(PreservesLabel)
	if ok {
		if want := label.PreservesLabel(); rec.Label.Kind() != KindSymbol {
			return fmt.Errorf("%w: record label is not a Symbol", ErrUnexpectedToken)
		} else if got, _ := rec.Label.AsSymbol(); got != want {
			return fmt.Errorf("%w: record labeled %q, target expects %q", ErrUnexpectedToken, got, want)
		}
	}

	fields := structFieldsFor(rv.Type())
	if len(rec.Fields) != len(fields) {
		return fmt.Errorf("%w: record has %d fields, target has %d", ErrIllFit, len(rec.Fields), len(fields))
	}
	for i, f := range fields {
		if err := fromValueReflect(rec.Fields[i], rv.Field(f.index)); err != nil {
			return err
		}
	}
	return nil
}
