package preserves

import "errors"

// Sentinel errors for the scanner, the plan engine, and the writer. Each
// corresponds to one row of spec §7's error table; callers match against
// these with errors.Is (they are also wrapped with positional context via
// fmt.Errorf("%w", ...) at the point of failure).
var (
	// ErrSyntax is returned when the scanner sees a byte inadmissible in
	// its current state.
	ErrSyntax = errors.New("preserves: syntax error")

	// ErrUnexpectedEOF is returned when the byte source yields zero bytes
	// while the scanner or driver needs more to complete a token.
	ErrUnexpectedEOF = errors.New("preserves: unexpected end of input")

	// errBufferUnderrun signals the scanner has no unread input left and
	// endInput has not been called; the driver handles it internally by
	// refilling and never surfaces it to a Parse caller (spec §4.1, §7).
	errBufferUnderrun = errors.New("preserves: buffer underrun")

	// ErrOverflow is returned when the scanner's digit accumulator
	// overflows its uint64 width. Range checks against a host integer
	// target (FromValue) report ErrIllFit instead.
	ErrOverflow = errors.New("preserves: integer overflow")

	// ErrIllFit is returned when a token's shape doesn't fit the target:
	// wrong float width, out-of-range integer, negative magnitude for an
	// unsigned target, and so on.
	ErrIllFit = errors.New("preserves: value does not fit target")

	// ErrInvalidUTF8 is returned when a String or Symbol payload fails
	// UTF-8 validation, at either parse or write time.
	ErrInvalidUTF8 = errors.New("preserves: invalid UTF-8")

	// ErrUnexpectedToken is returned when a token's kind doesn't match
	// what the active plan expects next.
	ErrUnexpectedToken = errors.New("preserves: unexpected token")

	// ErrExpectedDictionaryStart is returned by FromValue when a
	// dictionary-shaped struct target meets a non-Dictionary Value.
	// ErrExpectedDictionaryEnd is defined alongside it; no code path in
	// this package returns it.
	ErrExpectedDictionaryStart = errors.New("preserves: expected dictionary start")
	ErrExpectedDictionaryEnd   = errors.New("preserves: expected dictionary end")

	// ErrKeyFoundBefore is returned when a struct plan sees the same key
	// twice.
	ErrKeyFoundBefore = errors.New("preserves: duplicate key")

	// ErrUnknownKey is returned when a struct plan sees a key absent from
	// the target schema.
	ErrUnknownKey = errors.New("preserves: unknown key")

	// ErrMissingKey is returned when a dictionary closes before every
	// required field of a struct plan has been set (spec §9 open question
	// (b), resolved in SPEC_FULL.md).
	ErrMissingKey = errors.New("preserves: missing required key")

	// ErrEmptyRecord is returned when the scanner sees `<>`: spec §3
	// requires at least one value (the label) between RecStart and
	// RecEnd.
	ErrEmptyRecord = errors.New("preserves: empty record")

	// ErrReservedTag is returned by the binary decoder on a tag byte the
	// format reserves or that this system deliberately never emits or
	// consumes (spec §6.2: 0x85 annotation, 0x86 embedded).
	ErrReservedTag = errors.New("preserves: reserved or unsupported tag byte")
)

// IsBufferUnderrun reports whether err is the Scanner's internal signal
// that it has exhausted its current input and needs another Feed before
// it can produce a token. Driver handles this itself; callers driving a
// Scanner directly (the `preserves tokens` CLI subcommand) use this to
// tell "needs more bytes" apart from a genuine syntax error.
func IsBufferUnderrun(err error) bool {
	return errors.Is(err, errBufferUnderrun)
}
