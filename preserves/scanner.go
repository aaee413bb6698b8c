package preserves

import "fmt"

// TokenKind identifies the shape of a Token the Scanner has produced.
type TokenKind uint8

const (
	TokBoolean TokenKind = iota
	TokFloat
	TokDouble
	TokInteger
	TokBinary
	TokString
	TokSymbol

	// Partial* tokens carry a fragment of a length-prefixed payload that
	// did not fit in the buffer fed so far. TokPartialNumber is the one
	// exception: its Bytes field holds every digit seen for the number so
	// far, not just the latest fragment, because there is no other way
	// for a caller to recover the full digit string once the sign byte
	// finally arrives.
	TokPartialFloat
	TokPartialDouble
	TokPartialBinary
	TokPartialString
	TokPartialSymbol
	TokPartialNumber

	TokDictStart
	TokDictEnd
	TokSeqStart
	TokSeqEnd
	TokRecStart
	TokRecEnd
	TokSetStart
	TokSetEnd

	TokEndOfDocument
)

// String returns the token kind name, for diagnostics and the `preserves
// tokens` CLI subcommand.
func (k TokenKind) String() string {
	switch k {
	case TokBoolean:
		return "Boolean"
	case TokFloat:
		return "Float"
	case TokDouble:
		return "Double"
	case TokInteger:
		return "Integer"
	case TokBinary:
		return "Binary"
	case TokString:
		return "String"
	case TokSymbol:
		return "Symbol"
	case TokPartialFloat:
		return "PartialFloat"
	case TokPartialDouble:
		return "PartialDouble"
	case TokPartialBinary:
		return "PartialBinary"
	case TokPartialString:
		return "PartialString"
	case TokPartialSymbol:
		return "PartialSymbol"
	case TokPartialNumber:
		return "PartialNumber"
	case TokDictStart:
		return "DictStart"
	case TokDictEnd:
		return "DictEnd"
	case TokSeqStart:
		return "SeqStart"
	case TokSeqEnd:
		return "SeqEnd"
	case TokRecStart:
		return "RecStart"
	case TokRecEnd:
		return "RecEnd"
	case TokSetStart:
		return "SetStart"
	case TokSetEnd:
		return "SetEnd"
	case TokEndOfDocument:
		return "EndOfDocument"
	default:
		return "UNKNOWN"
	}
}

// Token is one item in the Scanner's resumable token stream (spec §4.1).
// Which fields are meaningful depends on Kind: Bool for TokBoolean, Bytes
// for the payload-bearing kinds (and digits for the Integer/Number kinds),
// Magnitude/Negative alongside Bytes for TokInteger, and Remaining
// alongside Bytes for every Partial* kind except TokPartialNumber, whose
// Bytes is cumulative rather than incremental.
type Token struct {
	Kind      TokenKind
	Bool      bool
	Bytes     []byte
	Remaining uint64
	Magnitude uint64
	Negative  bool
}

func (t Token) String() string {
	switch t.Kind {
	case TokBoolean:
		return fmt.Sprintf("%s(%v)", t.Kind, t.Bool)
	case TokInteger:
		sign := "+"
		if t.Negative {
			sign = "-"
		}
		return fmt.Sprintf("%s(%s%d)", t.Kind, sign, t.Magnitude)
	case TokBinary, TokString, TokSymbol, TokPartialBinary, TokPartialString, TokPartialSymbol:
		return fmt.Sprintf("%s(%d bytes)", t.Kind, len(t.Bytes))
	default:
		return t.Kind.String()
	}
}

type scanState uint8

const (
	stateValue scanState = iota
	stateRecordLabel
	stateNumber
	stateFloat
	stateDouble
	stateBinary
	stateString
	stateSymbol
)

// Scanner is the resumable textual (Syrup) tokenizer described in spec
// §4.1. It holds exactly the state spec §4.1 names: the current state,
// the unread slice of the most recently fed input, whether endInput has
// been called, and (while mid-payload or mid-number) the count of bytes
// still owed or the digits accumulated so far. It never blocks and never
// looks ahead past what Feed has supplied: when it runs out of bytes
// before finishing a token it returns errBufferUnderrun rather than
// waiting. While scanning a number, a Next call that consumed digits
// before running out returns a TokPartialNumber token instead, and the
// following call (with no new Feed) returns errBufferUnderrun.
//
// A Scanner does not track collection nesting — matching Start/End tokens
// and rejecting malformed structure above the single-token level is the
// Driver and Plan's job, not the Scanner's.
type Scanner struct {
	state   scanState
	input   []byte
	cursor  int
	endSeen bool

	remaining uint64 // bytes still owed, while in a payload state

	numberDigits     []byte
	numberMagnitude  uint64
	numberOverflowed bool
}

// NewScanner returns a Scanner ready to receive its first Feed.
func NewScanner() *Scanner {
	return &Scanner{}
}

// Feed supplies the next chunk of input. It is a no-op once EndInput has
// been called. The Scanner borrows data directly — the caller must not
// mutate it until the Scanner has consumed it (Drain reports how much, if
// any, remains unread).
func (s *Scanner) Feed(data []byte) {
	if s.endSeen {
		return
	}
	s.input = data
	s.cursor = 0
}

// EndInput tells the Scanner no further bytes are coming. After this, a
// Next call that runs out of input while the Scanner is between tokens
// yields TokEndOfDocument; one that runs out mid-token yields
// ErrUnexpectedEOF.
func (s *Scanner) EndInput() {
	s.endSeen = true
}

// Drain returns the unread tail of the most recent Feed, if any, and
// clears the Scanner's hold on that buffer.
func (s *Scanner) Drain() []byte {
	tail := s.input[s.cursor:]
	s.input = nil
	s.cursor = 0
	return tail
}

// Next advances the state machine by exactly one token or error. It
// never consumes more of the fed input than one token requires.
func (s *Scanner) Next() (Token, error) {
	switch s.state {
	case stateValue:
		return s.nextValue(false)
	case stateRecordLabel:
		return s.nextValue(true)
	case stateNumber:
		return s.continueNumber()
	case stateFloat:
		return s.continuePayload(TokFloat, TokPartialFloat)
	case stateDouble:
		return s.continuePayload(TokDouble, TokPartialDouble)
	case stateBinary:
		return s.continuePayload(TokBinary, TokPartialBinary)
	case stateString:
		return s.continuePayload(TokString, TokPartialString)
	case stateSymbol:
		return s.continuePayload(TokSymbol, TokPartialSymbol)
	default:
		return Token{}, fmt.Errorf("preserves: scanner in unknown state %d", s.state)
	}
}

func (s *Scanner) nextValue(isLabel bool) (Token, error) {
	if s.cursor >= len(s.input) {
		if s.endSeen {
			if isLabel {
				return Token{}, fmt.Errorf("%w: record ended before its label", ErrUnexpectedEOF)
			}
			return Token{Kind: TokEndOfDocument}, nil
		}
		return Token{}, errBufferUnderrun
	}

	c := s.input[s.cursor]

	if isLabel && c == '>' {
		s.cursor++
		s.state = stateValue
		return Token{}, fmt.Errorf("%w: %w", ErrSyntax, ErrEmptyRecord)
	}

	switch {
	case c == 't':
		s.cursor++
		s.state = stateValue
		return Token{Kind: TokBoolean, Bool: true}, nil
	case c == 'f':
		s.cursor++
		s.state = stateValue
		return Token{Kind: TokBoolean, Bool: false}, nil
	case c == 'F':
		s.cursor++
		return s.enterPayload(stateFloat, TokFloat, TokPartialFloat, 4)
	case c == 'D':
		s.cursor++
		return s.enterPayload(stateDouble, TokDouble, TokPartialDouble, 8)
	case c >= '0' && c <= '9':
		s.state = stateNumber
		return s.continueNumber()
	case c == '{':
		s.cursor++
		s.state = stateValue
		return Token{Kind: TokDictStart}, nil
	case c == '}':
		s.cursor++
		s.state = stateValue
		return Token{Kind: TokDictEnd}, nil
	case c == '[':
		s.cursor++
		s.state = stateValue
		return Token{Kind: TokSeqStart}, nil
	case c == ']':
		s.cursor++
		s.state = stateValue
		return Token{Kind: TokSeqEnd}, nil
	case c == '<':
		s.cursor++
		s.state = stateRecordLabel
		return Token{Kind: TokRecStart}, nil
	case c == '>':
		s.cursor++
		s.state = stateValue
		return Token{Kind: TokRecEnd}, nil
	case c == '#':
		s.cursor++
		s.state = stateValue
		return Token{Kind: TokSetStart}, nil
	case c == '$':
		s.cursor++
		s.state = stateValue
		return Token{Kind: TokSetEnd}, nil
	default:
		s.cursor++
		s.state = stateValue
		return Token{}, fmt.Errorf("%w: unexpected byte %q", ErrSyntax, c)
	}
}

// continueNumber scans decimal digits, accumulating both the host-width
// magnitude and the original digit bytes, until it sees a sign (finalizing
// an Integer), a length-prefix sigil (finalizing into a payload state), or
// runs out of input (surfacing TokPartialNumber if this call consumed any
// digits, errBufferUnderrun otherwise).
func (s *Scanner) continueNumber() (Token, error) {
	start := s.cursor
	for s.cursor < len(s.input) {
		c := s.input[s.cursor]
		switch {
		case c >= '0' && c <= '9':
			s.cursor++
			s.numberDigits = append(s.numberDigits, c)
			d := uint64(c - '0')
			if !s.numberOverflowed {
				if s.numberMagnitude > (maxUint64-d)/10 {
					s.numberOverflowed = true
				} else {
					s.numberMagnitude = s.numberMagnitude*10 + d
				}
			}
			if s.numberOverflowed {
				return Token{}, fmt.Errorf("%w: digit accumulator", ErrOverflow)
			}
		case c == '+' || c == '-':
			s.cursor++
			tok := Token{
				Kind:      TokInteger,
				Bytes:     s.numberDigits,
				Magnitude: s.numberMagnitude,
				Negative:  c == '-',
			}
			s.resetNumber()
			s.state = stateValue
			return tok, nil
		case c == ':':
			s.cursor++
			n := s.numberMagnitude
			s.resetNumber()
			return s.enterPayload(stateBinary, TokBinary, TokPartialBinary, n)
		case c == '"':
			s.cursor++
			n := s.numberMagnitude
			s.resetNumber()
			return s.enterPayload(stateString, TokString, TokPartialString, n)
		case c == '\'':
			s.cursor++
			n := s.numberMagnitude
			s.resetNumber()
			return s.enterPayload(stateSymbol, TokSymbol, TokPartialSymbol, n)
		default:
			s.cursor++
			s.resetNumber()
			s.state = stateValue
			return Token{}, fmt.Errorf("%w: unexpected byte %q in number", ErrSyntax, c)
		}
	}

	if s.endSeen {
		return Token{}, fmt.Errorf("%w: mid-number", ErrUnexpectedEOF)
	}
	if s.cursor == start {
		return Token{}, errBufferUnderrun
	}
	return Token{Kind: TokPartialNumber, Bytes: append([]byte(nil), s.numberDigits...)}, nil
}

func (s *Scanner) resetNumber() {
	s.numberDigits = nil
	s.numberMagnitude = 0
	s.numberOverflowed = false
}

// enterPayload transitions into a length-prefixed payload state and
// immediately tries to consume bytes already available in the current
// input, so one Feed covering a whole small payload yields its full
// token in a single Next call.
func (s *Scanner) enterPayload(state scanState, full, partial TokenKind, remaining uint64) (Token, error) {
	if remaining == 0 {
		s.state = stateValue
		return Token{Kind: full, Bytes: nil}, nil
	}
	s.state = state
	s.remaining = remaining
	return s.continuePayload(full, partial)
}

func (s *Scanner) continuePayload(full, partial TokenKind) (Token, error) {
	avail := len(s.input) - s.cursor
	if avail <= 0 {
		if s.endSeen {
			return Token{}, fmt.Errorf("%w: mid-payload", ErrUnexpectedEOF)
		}
		return Token{}, errBufferUnderrun
	}
	n := avail
	if uint64(n) > s.remaining {
		n = int(s.remaining)
	}
	slice := s.input[s.cursor : s.cursor+n]
	s.cursor += n
	s.remaining -= uint64(n)
	if s.remaining == 0 {
		s.state = stateValue
		return Token{Kind: full, Bytes: slice}, nil
	}
	return Token{Kind: partial, Bytes: slice, Remaining: s.remaining}, nil
}

const maxUint64 = ^uint64(0)
