package preserves

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func decodeOne(t *testing.T, syrup string) Value {
	t.Helper()
	v, err := Parse(strings.NewReader(syrup))
	require.NoError(t, err)
	return v
}

func TestDriver_Decode_Scalars(t *testing.T) {
	require.True(t, decodeOne(t, "t").Equal(Bool(true)))
	require.True(t, decodeOne(t, "f").Equal(Bool(false)))
	require.True(t, decodeOne(t, "12+").Equal(Int(12)))
	require.True(t, decodeOne(t, "12-").Equal(Int(-12)))
	require.True(t, decodeOne(t, `3"abc`).Equal(Str("abc")))
	require.True(t, decodeOne(t, "3'foo").Equal(Sym("foo")))
	require.True(t, decodeOne(t, "3:abc").Equal(Bin([]byte("abc"))))
}

func TestDriver_Decode_Sequence(t *testing.T) {
	got := decodeOne(t, "[1+2+3+]")
	want := Seq(Int(1), Int(2), Int(3))
	require.True(t, want.Equal(got))
}

func TestDriver_Decode_NestedRecordAndSet(t *testing.T) {
	got := decodeOne(t, "<5'point#1+2+$>")
	want := Rec(Sym("point"), SetOf(Int(1), Int(2)))
	require.True(t, want.Equal(got))
}

func TestDriver_Decode_Dictionary(t *testing.T) {
	got := decodeOne(t, `{3'one1+3'two2+}`)
	want := Dict(
		DictEntry{Key: Sym("one"), Value: Int(1)},
		DictEntry{Key: Sym("two"), Value: Int(2)},
	)
	require.True(t, want.Equal(got))
}

func TestDriver_Decode_SyrupRoundTrip(t *testing.T) {
	original := Rec(Sym("msg"),
		Dict(
			DictEntry{Key: Sym("id"), Value: Int(7)},
			DictEntry{Key: Sym("tags"), Value: SetOf(Sym("a"), Sym("b"))},
		),
		Seq(Str("hello"), Bin([]byte{0, 1, 2})),
	)

	var buf bytes.Buffer
	require.NoError(t, WriteSyrupValue(&buf, original))

	got, err := Parse(&buf)
	require.NoError(t, err)
	require.True(t, original.Equal(got))
}

func TestDriver_Decode_BinaryRoundTrip(t *testing.T) {
	original := Rec(Sym("msg"), Int(-12345), Float64(3.5), SetOf(Int(1), Int(2), Int(3)))

	var buf bytes.Buffer
	require.NoError(t, WriteBinaryValue(&buf, original))

	got, err := DecodeBinary(&buf)
	require.NoError(t, err)
	require.True(t, original.Equal(got))
}

func TestDriver_Decode_AcrossTinyRefillBuffer(t *testing.T) {
	syrup := `<7'message{3'one1+10'Mechanical2"hi}>`
	v, err := Parse(strings.NewReader(syrup), WithBufferSize(1))
	require.NoError(t, err)

	want := Rec(Sym("message"), Dict(
		DictEntry{Key: Sym("one"), Value: Int(1)},
		DictEntry{Key: Sym("Mechanical"), Value: Str("hi")},
	))
	require.True(t, want.Equal(v))
}

func TestDriver_Decode_SequentialValuesOnOneStream(t *testing.T) {
	d := NewDriver(strings.NewReader("tf3'foo"), nil, 0)
	v1, err := d.Decode()
	require.NoError(t, err)
	require.True(t, v1.Equal(Bool(true)))

	v2, err := d.Decode()
	require.NoError(t, err)
	require.True(t, v2.Equal(Bool(false)))

	v3, err := d.Decode()
	require.NoError(t, err)
	require.True(t, v3.Equal(Sym("foo")))

	_, err = d.Decode()
	require.ErrorIs(t, err, io.EOF)
}

func TestDriver_Decode_SyntaxErrorCleansUpPartialState(t *testing.T) {
	_, err := Parse(strings.NewReader("[1+2+x"))
	require.Error(t, err)
}

func TestDriver_Decode_UsesPoolAllocator(t *testing.T) {
	pool := NewPoolAllocator(8)
	v, err := Parse(strings.NewReader("10'Mechanical"), WithAllocator(pool), WithBufferSize(1))
	require.NoError(t, err)
	require.True(t, v.Equal(Sym("Mechanical")))
}
