package shared

import "bytes"

// Pair is the unit stored by every layer of the tree. Equality and order are
// defined on Key only. A zero-length Value is a tombstone.
type Pair struct {
	Key   []byte
	Value []byte
}

func (p Pair) IsTombstone() bool {
	return len(p.Value) == 0
}

// Size is the payload accounted against the writebuffer threshold.
func (p Pair) Size() int {
	return len(p.Key) + len(p.Value)
}

func (p Pair) Clone() Pair {
	return Pair{
		Key:   append([]byte{}, p.Key...),
		Value: append([]byte{}, p.Value...),
	}
}

// Compare orders byte strings by length first, then lexicographically. A nil
// key sorts before any non-nil key, including an empty one.
func Compare(a, b []byte) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return bytes.Compare(a, b)
}

func ComparePairs(a, b Pair) int {
	return Compare(a.Key, b.Key)
}
