package preserves

import "io"

// ParseOptions configures Parse. The zero value is a valid, usable
// configuration: a plain heap Allocator and the 64-byte refill buffer
// spec §6.4 names as the default.
type ParseOptions struct {
	Allocator  Allocator
	BufferSize int
}

// ParseOption mutates a ParseOptions; WithAllocator and WithBufferSize
// are the two knobs spec §6.4 exposes.
type ParseOption func(*ParseOptions)

// WithAllocator routes every heap allocation Parse makes through a.
func WithAllocator(a Allocator) ParseOption {
	return func(o *ParseOptions) { o.Allocator = a }
}

// WithBufferSize sets the Driver's refill buffer size.
func WithBufferSize(n int) ParseOption {
	return func(o *ParseOptions) { o.BufferSize = n }
}

// Parse decodes exactly one Syrup value from source. It is a thin
// convenience over NewDriver for the common case of decoding a single
// document; a caller decoding a stream of back-to-back values should
// build a Driver directly and call Decode repeatedly.
func Parse(source io.Reader, opts ...ParseOption) (Value, error) {
	var o ParseOptions
	for _, opt := range opts {
		opt(&o)
	}
	return NewDriver(source, o.Allocator, o.BufferSize).Decode()
}

// WriteSyrup encodes x (via ToValue) to sink in the textual Syrup
// format.
func WriteSyrup(sink io.Writer, x any) error {
	return NewWriter(NewSyrupEncoder(sink)).Write(x)
}

// WriteBinary encodes x (via ToValue) to sink in the Preserves Binary
// format.
func WriteBinary(sink io.Writer, x any) error {
	return NewWriter(NewBinaryEncoder(sink)).Write(x)
}

// WriteSyrupValue emits v to sink in Syrup, bypassing ToValue for
// callers that already have a Value tree.
func WriteSyrupValue(sink io.Writer, v Value) error {
	return NewSyrupEncoder(sink).WriteValue(v)
}

// WriteBinaryValue emits v to sink in Preserves Binary, bypassing
// ToValue for callers that already have a Value tree.
func WriteBinaryValue(sink io.Writer, v Value) error {
	return NewBinaryEncoder(sink).WriteValue(v)
}

// DecodeInto parses exactly one Syrup value from source and materializes
// it into target (a non-nil pointer), the schema-driven counterpart to
// WriteSyrup (spec §4.5's struct/dictionary plan, realized via
// FromValue).
func DecodeInto(source io.Reader, target any, opts ...ParseOption) error {
	v, err := Parse(source, opts...)
	if err != nil {
		return err
	}
	return FromValue(v, target)
}
