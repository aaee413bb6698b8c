package preserves

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromValue_Scalars(t *testing.T) {
	var b bool
	require.NoError(t, FromValue(Bool(true), &b))
	require.True(t, b)

	var n int32
	require.NoError(t, FromValue(Int(-7), &n))
	require.Equal(t, int32(-7), n)

	var u uint8
	require.NoError(t, FromValue(Int(200), &u))
	require.Equal(t, uint8(200), u)

	var f32 float32
	require.NoError(t, FromValue(Float32(1.5), &f32))
	require.Equal(t, float32(1.5), f32)

	var f64 float64
	require.NoError(t, FromValue(Float64(2.5), &f64))
	require.Equal(t, 2.5, f64)

	var s string
	require.NoError(t, FromValue(Str("hi"), &s))
	require.Equal(t, "hi", s)

	var sym string
	require.NoError(t, FromValue(Sym("foo"), &sym))
	require.Equal(t, "foo", sym)
}

func TestFromValue_IntegerOverflowIsIllFit(t *testing.T) {
	var n int8
	err := FromValue(Int(1000), &n)
	require.ErrorIs(t, err, ErrIllFit)
}

func TestFromValue_NegativeIntoUnsignedIsIllFit(t *testing.T) {
	var u uint32
	err := FromValue(Int(-1), &u)
	require.ErrorIs(t, err, ErrIllFit)
}

func TestFromValue_ByteSliceAndArray(t *testing.T) {
	var bs []byte
	require.NoError(t, FromValue(Bin([]byte{1, 2, 3}), &bs))
	require.Equal(t, []byte{1, 2, 3}, bs)

	var arr [3]byte
	require.NoError(t, FromValue(Bin([]byte{4, 5, 6}), &arr))
	require.Equal(t, [3]byte{4, 5, 6}, arr)

	var wrongSize [2]byte
	require.ErrorIs(t, FromValue(Bin([]byte{1, 2, 3}), &wrongSize), ErrIllFit)
}

func TestFromValue_SliceOfInts(t *testing.T) {
	var ints []int
	require.NoError(t, FromValue(Seq(Int(1), Int(2), Int(3)), &ints))
	require.Equal(t, []int{1, 2, 3}, ints)
}

func TestFromValue_MapSetShapes(t *testing.T) {
	var asStruct map[string]struct{}
	require.NoError(t, FromValue(SetOf(Str("a"), Str("b")), &asStruct))
	require.Equal(t, map[string]struct{}{"a": {}, "b": {}}, asStruct)

	var asBool map[string]bool
	require.NoError(t, FromValue(SetOf(Str("a")), &asBool))
	require.Equal(t, map[string]bool{"a": true}, asBool)
}

func TestFromValue_Dictionary(t *testing.T) {
	var m map[string]int
	require.NoError(t, FromValue(Dict(DictEntry{Key: Str("one"), Value: Int(1)}), &m))
	require.Equal(t, map[string]int{"one": 1}, m)
}

func TestFromValue_StructWithPreservesLabel(t *testing.T) {
	var p point
	require.NoError(t, FromValue(Rec(Sym("point"), Int(1), Int(2)), &p))
	require.Equal(t, point{X: 1, Y: 2}, p)
}

func TestFromValue_RecordWrongLabelIsUnexpectedToken(t *testing.T) {
	var p point
	err := FromValue(Rec(Sym("notpoint"), Int(1), Int(2)), &p)
	require.ErrorIs(t, err, ErrUnexpectedToken)
}

func TestFromValue_StructFromDictionaryUsesTags(t *testing.T) {
	var p person
	require.NoError(t, FromValue(Dict(
		DictEntry{Key: Sym("Name"), Value: Str("Ada")},
		DictEntry{Key: Sym("years"), Value: Int(30)},
	), &p))
	require.Equal(t, person{Name: "Ada", Age: 30}, p)
}

func TestFromValue_MissingRequiredKeyIsError(t *testing.T) {
	var p person
	err := FromValue(Dict(DictEntry{Key: Sym("Name"), Value: Str("Ada")}), &p)
	require.ErrorIs(t, err, ErrMissingKey)
}

func TestFromValue_UnknownKeyIsError(t *testing.T) {
	var p person
	err := FromValue(Dict(
		DictEntry{Key: Sym("Name"), Value: Str("Ada")},
		DictEntry{Key: Sym("years"), Value: Int(30)},
		DictEntry{Key: Sym("extra"), Value: Bool(true)},
	), &p)
	require.ErrorIs(t, err, ErrUnknownKey)
}

func TestFromValue_OptionalPointerFieldMayBeAbsent(t *testing.T) {
	var w withOptional
	require.NoError(t, FromValue(Dict(DictEntry{Key: Sym("Name"), Value: Str("x")}), &w))
	require.Equal(t, "x", w.Name)
	require.Nil(t, w.Note)

	require.NoError(t, FromValue(Dict(
		DictEntry{Key: Sym("Name"), Value: Str("x")},
		DictEntry{Key: Sym("Note"), Value: Str("hello")},
	), &w))
	require.NotNil(t, w.Note)
	require.Equal(t, "hello", *w.Note)
}

type decodedCustom struct{ n int }

func (c *decodedCustom) DecodePreserves(v Value) error {
	i, err := v.AsBigInt()
	if err != nil {
		return err
	}
	c.n = int(i.Int64())
	return nil
}

func TestFromValue_PreservesDecoderHookBypassesDefaultDecoding(t *testing.T) {
	var c decodedCustom
	require.NoError(t, FromValue(Int(42), &c))
	require.Equal(t, 42, c.n)
}

func TestDecodeInto_ParsesThenMaterializes(t *testing.T) {
	var p point
	require.NoError(t, DecodeInto(strings.NewReader("<5'point1+2+>"), &p))
	require.Equal(t, point{X: 1, Y: 2}, p)
}
