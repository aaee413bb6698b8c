// Package preserves implements encoding and streaming decoding for the
// Preserves data model: a textual notation ("Syrup") and a binary notation
// ("Preserves Binary") that are alternative serializations of the same
// abstract values.
//
// # Data Model
//
// Scalars: Boolean, Float (binary32), Double (binary64), Integer (signed,
// unbounded magnitude), Binary, String, Symbol.
// Containers: Sequence, Set, Dictionary, Record (a label plus ordered
// fields).
//
// # Dual Encoding
//
// Syrup is the form a human or REPL reads and writes; Preserves Binary is
// the tag-framed form systems store and transport. Both share the Value
// algebra in this package and the canonical ordering rules: Dictionary
// entries sort by the encoded byte order of their key, Set members sort by
// the encoded byte order of the member.
//
// # Syrup Syntax
//
//	Boolean:    t / f
//	Float:      F followed by 4 big-endian bytes
//	Double:     D followed by 8 big-endian bytes
//	Integer:    <digits>+ or <digits>-
//	Binary:     <digits>:<bytes>
//	String:     <digits>"<utf8 bytes>
//	Symbol:     <digits>'<utf8 bytes>
//	Sequence:   [ v1 v2 ... ]
//	Record:     < label v1 v2 ... >
//	Set:        # v1 v2 ... $
//	Dictionary: { k1 v1 k2 v2 ... }
//
// # Quick Start
//
//	v, err := preserves.Parse(strings.NewReader(`<3'foo1+2+>`))
//	...
//	var sink bytes.Buffer
//	err = preserves.WriteSyrup(&sink, v)
//
// # Streaming
//
// Scanner consumes an arbitrary slice of Syrup input at a time and never
// requires the caller to buffer the whole document; it yields partial
// tokens when a length-prefixed payload straddles a buffer boundary.
// Driver drives a Scanner and a Plan to assemble a Value across as many
// refills as the source needs; FromValue then materializes a Value into a
// typed Go target.
package preserves
