package preserves

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSyrupEncoder_Atoms(t *testing.T) {
	cases := []struct {
		name string
		fn   func(e *SyrupEncoder) error
		want string
	}{
		{"true", func(e *SyrupEncoder) error { return e.Bool(true) }, "t"},
		{"false", func(e *SyrupEncoder) error { return e.Bool(false) }, "f"},
		{"positive integer", func(e *SyrupEncoder) error { return e.Integer(big.NewInt(12)) }, "12+"},
		{"negative integer", func(e *SyrupEncoder) error { return e.Integer(big.NewInt(-12)) }, "12-"},
		{"zero integer", func(e *SyrupEncoder) error { return e.Integer(big.NewInt(0)) }, "0+"},
		{"binary", func(e *SyrupEncoder) error { return e.Binary([]byte{1, 2, 3}) }, "3:\x01\x02\x03"},
		{"string", func(e *SyrupEncoder) error { return e.String("hi") }, `2"hi`},
		{"symbol", func(e *SyrupEncoder) error { return e.Symbol("foo") }, "3'foo"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, tc.fn(NewSyrupEncoder(&buf)))
			require.Equal(t, tc.want, buf.String())
		})
	}
}

func TestSyrupEncoder_Delimiters(t *testing.T) {
	var buf bytes.Buffer
	e := NewSyrupEncoder(&buf)
	require.NoError(t, e.RecStart())
	require.NoError(t, e.RecEnd())
	require.NoError(t, e.SeqStart())
	require.NoError(t, e.SeqEnd())
	require.NoError(t, e.SetStart())
	require.NoError(t, e.SetEnd())
	require.NoError(t, e.DictStart())
	require.NoError(t, e.DictEnd())
	require.Equal(t, "<>[]#${}", buf.String())
}

func TestSyrupEncoder_WriteValue_Record(t *testing.T) {
	var buf bytes.Buffer
	v := Rec(Sym("point"), Int(1), Int(2))
	require.NoError(t, NewSyrupEncoder(&buf).WriteValue(v))
	require.Equal(t, "<5'point1+2+>", buf.String())
}

func TestSyrupEncoder_WriteValue_DictionarySortsByCanonicalKeyOrder(t *testing.T) {
	v := Dict(
		DictEntry{Key: Sym("zeta"), Value: Int(1)},
		DictEntry{Key: Sym("alpha"), Value: Int(2)},
	)
	var buf bytes.Buffer
	require.NoError(t, NewSyrupEncoder(&buf).WriteValue(v))

	var wantOrder bytes.Buffer
	require.NoError(t, NewSyrupEncoder(&wantOrder).Symbol("alpha"))
	require.Contains(t, buf.String(), wantOrder.String())
	// Keys sort by their Syrup encoding, length prefix first: "4'zeta"
	// comes before "5'alpha".
	require.True(t, bytes.Index(buf.Bytes(), []byte("zeta")) < bytes.Index(buf.Bytes(), []byte("alpha")))
}

func TestSyrupEncoder_WriteValue_EmptySequenceAndSet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewSyrupEncoder(&buf).WriteValue(Seq()))
	require.Equal(t, "[]", buf.String())

	buf.Reset()
	require.NoError(t, NewSyrupEncoder(&buf).WriteValue(SetOf()))
	require.Equal(t, "#$", buf.String())
}

func TestSyrupEncoder_InvalidUTF8(t *testing.T) {
	var buf bytes.Buffer
	err := NewSyrupEncoder(&buf).String(string([]byte{0xff, 0xfe}))
	require.ErrorIs(t, err, ErrInvalidUTF8)
}
