package preserves

import (
	"bytes"
	"sort"
)

// CompareBytes implements the canonical ordering primitive from spec §6.3:
// lexicographic byte-order comparison, with a strict prefix treated as
// smaller. It returns -1, 0, or 1, matching bytes.Compare's contract so it
// can be used directly with sort.Slice-style comparators.
func CompareBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// encodeCanonicalSyrup and encodeCanonicalBinary return the encoding of v
// in the active wire format, the byte sequence that dictionary-key and
// set-member sorting (spec §4.4, §6.3) compare against. Each format sorts
// by its own encoded bytes rather than a shared one: spec §8's worked
// example (`{0,...,33}` in Syrup sorting as `0+1+10+11+...+4+5+...`) is
// exactly the lexicographic order of the decimal-string Syrup encoding,
// which differs from the order the same values get as Preserves Binary's
// fixed-width two's-complement payloads.
func encodeCanonicalSyrup(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := NewSyrupEncoder(&buf).WriteValue(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeCanonicalBinary(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := NewBinaryEncoder(&buf).WriteValue(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// sortByCanonicalEncoding sorts items by the encodeFn-encoded byte order
// of keyFn(item), per spec §4.4's set-canonicalization contract: encode
// every member to a temporary buffer, sort the temporaries, emit in order.
// encodeFn must match the wire format the caller is about to emit —
// encodeCanonicalSyrup for SyrupEncoder, encodeCanonicalBinary for
// BinaryEncoder — since the two formats disagree on ordering.
func sortByCanonicalEncoding[T any](items []T, keyFn func(T) (Value, error), encodeFn func(Value) ([]byte, error)) ([]T, error) {
	type keyed struct {
		item T
		key  []byte
	}
	ks := make([]keyed, len(items))
	for i, it := range items {
		kv, err := keyFn(it)
		if err != nil {
			return nil, err
		}
		kb, err := encodeFn(kv)
		if err != nil {
			return nil, err
		}
		ks[i] = keyed{item: it, key: kb}
	}
	sort.SliceStable(ks, func(i, j int) bool {
		return CompareBytes(ks[i].key, ks[j].key) < 0
	})
	out := make([]T, len(ks))
	for i, k := range ks {
		out[i] = k.item
	}
	return out, nil
}

// sortDictEntries sorts Dictionary entries by the encodeFn-encoded byte
// order of their key (spec §3, §4.4, §6.3, §8).
func sortDictEntries(entries []DictEntry, encodeFn func(Value) ([]byte, error)) ([]DictEntry, error) {
	return sortByCanonicalEncoding(entries, func(e DictEntry) (Value, error) { return e.Key, nil }, encodeFn)
}
