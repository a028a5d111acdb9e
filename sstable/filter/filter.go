// Package filter implements the bloom filter stored beside every table.
package filter

import (
	"math"

	"github.com/AmrMurad1/go-lsm/shared"
	"github.com/cockroachdb/errors"
	"github.com/spaolacci/murmur3"
)

// DefaultFalsePositiveRate is used when a table is built without an explicit
// rate.
const DefaultFalsePositiveRate = 0.001

// Filter is a bloom filter over m bits probed k times using double hashing of
// a 128-bit murmur3 digest.
type Filter struct {
	m     uint64
	k     uint64
	words []uint64
}

// New sizes a filter for n insertions at false-positive rate p.
func New(n int, p float64) (*Filter, error) {
	if n <= 0 {
		n = 1
	}
	if p <= 0 || p >= 1 {
		return nil, errors.Newf("filter: false-positive rate %v outside (0, 1)", p)
	}
	ln2 := math.Ln2
	m := uint64(math.Ceil(-float64(n) * math.Log(p) / (ln2 * ln2)))
	k := uint64(math.Ceil(-math.Log2(p)))
	if m == 0 {
		m = 1
	}
	if k == 0 {
		k = 1
	}
	return &Filter{
		m:     m,
		k:     k,
		words: make([]uint64, (m+63)/64),
	}, nil
}

// Bits is the number of bits m.
func (f *Filter) Bits() uint64 { return f.m }

// Hashes is the number of probes k.
func (f *Filter) Hashes() uint64 { return f.k }

func (f *Filter) Add(key []byte) {
	h1, h2 := murmur3.Sum128(key)
	for i := uint64(0); i < f.k; i++ {
		bit := f.location(h1, h2, i)
		f.words[bit>>6] |= 1 << (bit & 63)
	}
}

// MayContain returns false only when key was never added.
func (f *Filter) MayContain(key []byte) bool {
	h1, h2 := murmur3.Sum128(key)
	for i := uint64(0); i < f.k; i++ {
		bit := f.location(h1, h2, i)
		if f.words[bit>>6]&(1<<(bit&63)) == 0 {
			return false
		}
	}
	return true
}

// location returns |h1 + i*h2| mod m, computed in signed 64-bit arithmetic.
func (f *Filter) location(h1, h2, i uint64) uint64 {
	combined := int64(h1) + int64(i)*int64(h2)
	r := combined % int64(f.m)
	if r < 0 {
		r = -r
	}
	return uint64(r)
}

// WriteFile persists the filter as varint(m) varint(k) varint(len(words))
// followed by the words as fixed 64-bit big-endian integers.
func (f *Filter) WriteFile(path string) error {
	out, err := shared.CreateOutputStream(path)
	if err != nil {
		return err
	}
	if err := f.write(out); err != nil {
		return errors.CombineErrors(errors.Wrapf(err, "filter: write %s", path), out.Close())
	}
	return errors.Wrapf(out.Close(), "filter: close %s", path)
}

func (f *Filter) write(out *shared.OutputStream) error {
	for _, v := range []uint64{f.m, f.k, uint64(len(f.words))} {
		if _, err := out.WriteUvarint(v); err != nil {
			return err
		}
	}
	for _, w := range f.words {
		if _, err := out.WriteFixed64(w); err != nil {
			return err
		}
	}
	return nil
}

// ReadFile loads a filter written by WriteFile. Any structural problem is
// reported as a corruption error.
func ReadFile(path string) (*Filter, error) {
	in, err := shared.OpenInputStream(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	var header [3]uint64
	for i := range header {
		v, err := in.ReadUvarint()
		if err != nil {
			return nil, corrupt(path, err)
		}
		header[i] = v
	}
	m, k, n := header[0], header[1], header[2]
	if m == 0 || k == 0 || n != (m+63)/64 {
		return nil, shared.CorruptionErrorf("filter: %s: bad header m=%d k=%d words=%d", path, m, k, n)
	}
	if remaining := in.Size() - in.Offset(); n > uint64(in.Size())/8 || uint64(remaining) != n*8 {
		return nil, shared.CorruptionErrorf("filter: %s: %d words need %d bytes, %d present",
			path, n, n*8, remaining)
	}
	words := make([]uint64, n)
	for i := range words {
		w, err := in.ReadFixed64()
		if err != nil {
			return nil, corrupt(path, err)
		}
		words[i] = w
	}
	return &Filter{m: m, k: k, words: words}, nil
}

func corrupt(path string, err error) error {
	if errors.Is(err, shared.ErrCorruption) {
		return errors.Wrapf(err, "filter: %s", path)
	}
	return shared.CorruptionErrorf("filter: %s: %v", path, err)
}
