package preserves

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, input string, chunkSize int) []Token {
	t.Helper()
	s := NewScanner()
	var toks []Token
	var pending []byte // payload fragments from Partial* tokens
	pos := 0
	for {
		tok, err := s.Next()
		if err != nil {
			if !IsBufferUnderrun(err) {
				require.NoError(t, err)
			}
			if pos >= len(input) {
				s.EndInput()
				continue
			}
			end := pos + chunkSize
			if end > len(input) {
				end = len(input)
			}
			s.Feed([]byte(input[pos:end]))
			pos = end
			continue
		}
		if tok.Kind == TokEndOfDocument {
			return toks
		}
		if isPartialKind(tok.Kind) {
			if tok.Kind != TokPartialNumber {
				pending = append(pending, tok.Bytes...)
			}
			continue
		}
		if pending != nil {
			tok.Bytes = append(pending, tok.Bytes...)
			pending = nil
		}
		toks = append(toks, tok)
	}
}

func isPartialKind(k TokenKind) bool {
	switch k {
	case TokPartialFloat, TokPartialDouble, TokPartialBinary, TokPartialString, TokPartialSymbol, TokPartialNumber:
		return true
	default:
		return false
	}
}

func TestScanner_BooleanAndDelimiters(t *testing.T) {
	toks := scanAll(t, "tf[]{}#$", 64)
	kinds := make([]TokenKind, len(toks))
	for i, tk := range toks {
		kinds[i] = tk.Kind
	}
	require.Equal(t, []TokenKind{
		TokBoolean, TokBoolean, TokSeqStart, TokSeqEnd, TokDictStart, TokDictEnd,
		TokSetStart, TokSetEnd,
	}, kinds)
}

func TestScanner_Record(t *testing.T) {
	toks := scanAll(t, "<1+2+>", 64)
	kinds := make([]TokenKind, len(toks))
	for i, tk := range toks {
		kinds[i] = tk.Kind
	}
	require.Equal(t, []TokenKind{TokRecStart, TokInteger, TokInteger, TokRecEnd}, kinds)
}

func TestScanner_Integer(t *testing.T) {
	toks := scanAll(t, "123+", 64)
	require.Len(t, toks, 1)
	require.Equal(t, TokInteger, toks[0].Kind)
	require.Equal(t, uint64(123), toks[0].Magnitude)
	require.False(t, toks[0].Negative)
}

func TestScanner_NegativeInteger(t *testing.T) {
	toks := scanAll(t, "7-", 64)
	require.Len(t, toks, 1)
	require.Equal(t, TokInteger, toks[0].Kind)
	require.Equal(t, uint64(7), toks[0].Magnitude)
	require.True(t, toks[0].Negative)
}

func TestScanner_SymbolAndStringAndBinary(t *testing.T) {
	toks := scanAll(t, `3'foo2"hi3:abc`, 64)
	require.Len(t, toks, 3)

	require.Equal(t, TokSymbol, toks[0].Kind)
	require.Equal(t, "foo", string(toks[0].Bytes))

	require.Equal(t, TokString, toks[1].Kind)
	require.Equal(t, "hi", string(toks[1].Bytes))

	require.Equal(t, TokBinary, toks[2].Kind)
	require.Equal(t, "abc", string(toks[2].Bytes))
}

func TestScanner_PayloadStraddlesRefill(t *testing.T) {
	// One byte at a time forces the symbol payload across many Feed calls.
	toks := scanAll(t, "10'Mechanical", 1)
	require.Len(t, toks, 1)
	require.Equal(t, TokSymbol, toks[0].Kind)
	require.Equal(t, "Mechanical", string(toks[0].Bytes))
}

func TestScanner_PartialNumberIsCumulative(t *testing.T) {
	s := NewScanner()
	s.Feed([]byte("1"))
	tok, err := s.Next()
	require.NoError(t, err)
	require.Equal(t, TokPartialNumber, tok.Kind)
	require.Equal(t, "1", string(tok.Bytes))

	s.Feed([]byte("2"))
	tok, err = s.Next()
	require.NoError(t, err)
	require.Equal(t, TokPartialNumber, tok.Kind)
	require.Equal(t, "12", string(tok.Bytes), "digit accumulator must be cumulative, not incremental")

	s.Feed([]byte("+"))
	tok, err = s.Next()
	require.NoError(t, err)
	require.Equal(t, TokInteger, tok.Kind)
	require.Equal(t, uint64(12), tok.Magnitude)
}

func TestScanner_EmptyRecordRejected(t *testing.T) {
	s := NewScanner()
	s.Feed([]byte("<>"))
	_, err := s.Next() // consumes '<', yields RecStart
	require.NoError(t, err)
	_, err = s.Next() // consumes '>' immediately after RecStart
	require.ErrorIs(t, err, ErrSyntax)
}

func TestScanner_OverflowOnHugeInteger(t *testing.T) {
	s := NewScanner()
	huge := "99999999999999999999999999999999999999+"
	s.Feed([]byte(huge))
	var lastErr error
	for i := 0; i < len(huge)+1; i++ {
		_, lastErr = s.Next()
		if lastErr != nil {
			break
		}
	}
	require.ErrorIs(t, lastErr, ErrOverflow)
}

func TestScanner_EndInputMidTokenIsUnexpectedEOF(t *testing.T) {
	s := NewScanner()
	s.Feed([]byte("3'fo"))
	tok, err := s.Next()
	require.NoError(t, err)
	require.Equal(t, TokPartialSymbol, tok.Kind)
	require.Equal(t, uint64(1), tok.Remaining)

	_, err = s.Next()
	require.ErrorIs(t, err, errBufferUnderrun)

	s.EndInput()
	_, err = s.Next()
	require.ErrorIs(t, err, ErrUnexpectedEOF)
}

func TestScanner_EndOfDocumentAtCleanBoundary(t *testing.T) {
	s := NewScanner()
	s.Feed([]byte("t"))
	tok, err := s.Next()
	require.NoError(t, err)
	require.Equal(t, TokBoolean, tok.Kind)

	s.EndInput()
	tok, err = s.Next()
	require.NoError(t, err)
	require.Equal(t, TokEndOfDocument, tok.Kind)
}
