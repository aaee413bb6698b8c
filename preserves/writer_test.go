package preserves

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToValue_Scalars(t *testing.T) {
	v, err := ToValue(true)
	require.NoError(t, err)
	require.True(t, v.Equal(Bool(true)))

	v, err = ToValue(int32(-7))
	require.NoError(t, err)
	require.True(t, v.Equal(Int(-7)))

	v, err = ToValue(uint8(200))
	require.NoError(t, err)
	require.True(t, v.Equal(Int(200)))

	v, err = ToValue(float32(1.5))
	require.NoError(t, err)
	require.True(t, v.Equal(Float32(1.5)))

	v, err = ToValue(2.5)
	require.NoError(t, err)
	require.True(t, v.Equal(Float64(2.5)))

	v, err = ToValue("hi")
	require.NoError(t, err)
	require.True(t, v.Equal(Str("hi")))
}

func TestToValue_UintAboveMaxInt64PromotesToBigInt(t *testing.T) {
	var u uint64 = math.MaxInt64 + 1
	v, err := ToValue(u)
	require.NoError(t, err)

	got, err := v.AsBigInt()
	require.NoError(t, err)
	require.Equal(t, new(big.Int).SetUint64(u), got)
}

func TestToValue_ByteSliceAndArrayBecomeBinary(t *testing.T) {
	v, err := ToValue([]byte{1, 2, 3})
	require.NoError(t, err)
	require.True(t, v.Equal(Bin([]byte{1, 2, 3})))

	v, err = ToValue([3]byte{4, 5, 6})
	require.NoError(t, err)
	require.True(t, v.Equal(Bin([]byte{4, 5, 6})))
}

func TestToValue_NilByteSliceIsEmptyBinary(t *testing.T) {
	var b []byte
	v, err := ToValue(b)
	require.NoError(t, err)
	require.True(t, v.Equal(Bin(nil)))
}

func TestToValue_SliceOfOtherTypesBecomesSequence(t *testing.T) {
	v, err := ToValue([]int{1, 2, 3})
	require.NoError(t, err)
	require.True(t, v.Equal(Seq(Int(1), Int(2), Int(3))))
}

func TestToValue_MapWithEmptyStructValuesBecomesSet(t *testing.T) {
	m := map[string]struct{}{"a": {}, "b": {}}
	v, err := ToValue(m)
	require.NoError(t, err)
	require.True(t, v.Equal(SetOf(Str("a"), Str("b"))))
}

func TestToValue_MapWithBoolValuesBecomesSetOmittingFalse(t *testing.T) {
	m := map[string]bool{"a": true, "b": false}
	v, err := ToValue(m)
	require.NoError(t, err)
	require.True(t, v.Equal(SetOf(Str("a"))))
}

func TestToValue_OtherMapBecomesDictionary(t *testing.T) {
	m := map[string]int{"one": 1}
	v, err := ToValue(m)
	require.NoError(t, err)
	require.True(t, v.Equal(Dict(DictEntry{Key: Str("one"), Value: Int(1)})))
}

type point struct {
	X int
	Y int
}

func (point) PreservesLabel() string { return "point" }

func TestToValue_StructWithPreservesLabelBecomesRecord(t *testing.T) {
	v, err := ToValue(point{X: 1, Y: 2})
	require.NoError(t, err)
	require.True(t, v.Equal(Rec(Sym("point"), Int(1), Int(2))))
}

type person struct {
	Name string
	Age  int `preserves:"years"`
}

func TestToValue_StructWithoutLabelBecomesDictionaryUsingTags(t *testing.T) {
	v, err := ToValue(person{Name: "Ada", Age: 30})
	require.NoError(t, err)
	require.True(t, v.Equal(Dict(
		DictEntry{Key: Sym("Name"), Value: Str("Ada")},
		DictEntry{Key: Sym("years"), Value: Int(30)},
	)))
}

type withOptional struct {
	Name string
	Note *string
}

func TestToValue_NilPointerFieldOmittedFromDictionary(t *testing.T) {
	v, err := ToValue(withOptional{Name: "x"})
	require.NoError(t, err)
	require.True(t, v.Equal(Dict(DictEntry{Key: Sym("Name"), Value: Str("x")})))

	note := "hello"
	v, err = ToValue(withOptional{Name: "x", Note: &note})
	require.NoError(t, err)
	require.True(t, v.Equal(Dict(
		DictEntry{Key: Sym("Name"), Value: Str("x")},
		DictEntry{Key: Sym("Note"), Value: Str("hello")},
	)))
}

type customEncoded struct{ n int }

func (c customEncoded) EncodePreserves() (Value, error) {
	return Rec(Sym("custom"), Int(int64(c.n))), nil
}

func TestToValue_PreservesEncoderHookBypassesDefaultEncoding(t *testing.T) {
	v, err := ToValue(customEncoded{n: 9})
	require.NoError(t, err)
	require.True(t, v.Equal(Rec(Sym("custom"), Int(9))))
}

type color int

const (
	colorRed color = iota
	colorBlue
)

func (c color) String() string {
	if c == colorRed {
		return "red"
	}
	return "blue"
}

func TestToValue_EnumStringerBecomesSymbol(t *testing.T) {
	v, err := ToValue(colorBlue)
	require.NoError(t, err)
	require.True(t, v.Equal(Sym("blue")))
}

func TestToValue_NilIsError(t *testing.T) {
	_, err := ToValue(nil)
	require.Error(t, err)
}

func TestToValue_PointerIsDereferenced(t *testing.T) {
	n := 5
	v, err := ToValue(&n)
	require.NoError(t, err)
	require.True(t, v.Equal(Int(5)))
}
