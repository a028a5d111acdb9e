package sstable

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/AmrMurad1/go-lsm/shared"
	"github.com/AmrMurad1/go-lsm/sstable/filter"
	"github.com/cockroachdb/errors"
)

// SSTable is an immutable sorted table: a data file of blob pairs, a sparse
// index sampled every few entries and a bloom filter. The index and filter
// live in memory; point reads go to the data file.
type SSTable struct {
	base   string
	file   *os.File
	size   int64
	filter *filter.Filter

	numEntries uint64
	offsets    []int64
	counts     []uint64
	sparseKeys [][]byte
	minKey     []byte
	maxKey     []byte
}

// Open loads the table whose files share base. The minimum key is the first
// sparse key; the maximum is read from the final sparse segment.
func Open(base string) (*SSTable, error) {
	f, err := filter.ReadFile(shared.FilterPath(base))
	if err != nil {
		return nil, err
	}
	file, err := os.Open(shared.DataPath(base))
	if err != nil {
		return nil, errors.Wrapf(err, "sstable: open %s", shared.DataPath(base))
	}
	st, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, errors.Wrapf(err, "sstable: stat %s", shared.DataPath(base))
	}
	t := &SSTable{
		base:   base,
		file:   file,
		size:   st.Size(),
		filter: f,
	}
	if err := t.readIndex(); err != nil {
		_ = file.Close()
		return nil, err
	}
	if err := t.recoverMaxKey(); err != nil {
		_ = file.Close()
		return nil, err
	}
	return t, nil
}

func (t *SSTable) readIndex() error {
	path := shared.IndexPath(t.base)
	in, err := shared.OpenInputStream(path)
	if err != nil {
		return err
	}
	defer in.Close()

	corrupt := func(err error) error {
		if errors.Is(err, shared.ErrCorruption) {
			return errors.Wrapf(err, "sstable: %s", path)
		}
		return shared.CorruptionErrorf("sstable: %s: %v", path, err)
	}

	n, err := in.ReadUvarint()
	if err != nil {
		return corrupt(err)
	}
	sparse, err := in.ReadUvarint()
	if err != nil {
		return corrupt(err)
	}
	if n == 0 || sparse == 0 || sparse > n || sparse > uint64(in.Size()) {
		return shared.CorruptionErrorf("sstable: %s: %d entries with %d sparse points", path, n, sparse)
	}

	t.numEntries = n
	t.offsets = make([]int64, sparse)
	t.counts = make([]uint64, sparse)
	for i := 1; i < len(t.offsets); i++ {
		d, err := in.ReadUvarint()
		if err != nil {
			return corrupt(err)
		}
		t.offsets[i] = t.offsets[i-1] + int64(d)
		if d == 0 || t.offsets[i] >= t.size || t.offsets[i] < 0 {
			return shared.CorruptionErrorf("sstable: %s: sparse offset %d outside data file", path, t.offsets[i])
		}
	}
	for i := 1; i < len(t.counts); i++ {
		d, err := in.ReadUvarint()
		if err != nil {
			return corrupt(err)
		}
		t.counts[i] = t.counts[i-1] + d
		if d == 0 || t.counts[i] >= n {
			return shared.CorruptionErrorf("sstable: %s: sparse count %d of %d entries", path, t.counts[i], n)
		}
	}
	t.sparseKeys = make([][]byte, sparse)
	for i := range t.sparseKeys {
		l, err := in.ReadVarint32()
		if err != nil {
			return corrupt(err)
		}
		k, err := in.ReadBytes(l)
		if err != nil {
			return corrupt(err)
		}
		if i > 0 && shared.Compare(t.sparseKeys[i-1], k) >= 0 {
			return shared.CorruptionErrorf("sstable: %s: sparse keys out of order", path)
		}
		t.sparseKeys[i] = k
	}
	if in.Offset() != in.Size() {
		return shared.CorruptionErrorf("sstable: %s: %d trailing bytes", path, in.Size()-in.Offset())
	}
	t.minKey = t.sparseKeys[0]
	return nil
}

// recoverMaxKey scans the last sparse segment. Its last record holds the
// largest key in the table.
func (t *SSTable) recoverMaxKey() error {
	last := len(t.offsets) - 1
	in := shared.NewInputStream(t.file, t.size)
	if err := in.SeekTo(t.offsets[last]); err != nil {
		return shared.CorruptionErrorf("sstable: %s: %v", shared.DataPath(t.base), err)
	}
	for remaining := t.numEntries - t.counts[last]; remaining > 0; remaining-- {
		p, err := in.ReadBlobPair()
		if err != nil {
			return t.dataError(err)
		}
		t.maxKey = p.Key
	}
	if in.Offset() != t.size {
		return shared.CorruptionErrorf("sstable: %s: %d bytes after the last record",
			shared.DataPath(t.base), t.size-in.Offset())
	}
	return nil
}

func (t *SSTable) dataError(err error) error {
	if err == io.EOF {
		return shared.CorruptionErrorf("sstable: %s: fewer records than indexed", shared.DataPath(t.base))
	}
	return errors.Wrapf(err, "sstable: %s", shared.DataPath(t.base))
}

// Get looks up key. It returns the stored value and true when the table
// holds the key; a tombstone is found with an empty value.
func (t *SSTable) Get(key []byte) ([]byte, bool, error) {
	if shared.Compare(key, t.minKey) < 0 || shared.Compare(key, t.maxKey) > 0 {
		return nil, false, nil
	}
	if !t.filter.MayContain(key) {
		return nil, false, nil
	}

	i := t.segment(key)
	in := shared.NewInputStream(t.file, t.size)
	if err := in.SeekTo(t.offsets[i]); err != nil {
		return nil, false, t.dataError(err)
	}
	for remaining := t.numEntries - t.counts[i]; remaining > 0; remaining-- {
		klen, err := in.ReadVarint32()
		if err != nil {
			return nil, false, t.dataError(err)
		}
		// keys are ordered by length first
		if klen > len(key) {
			return nil, false, nil
		}
		vlen, err := in.ReadVarint32()
		if err != nil {
			return nil, false, t.dataError(err)
		}
		if klen < len(key) {
			if err := in.Skip(int64(klen) + int64(vlen)); err != nil {
				return nil, false, t.dataError(err)
			}
			continue
		}
		k, err := in.ReadBytes(klen)
		if err != nil {
			return nil, false, t.dataError(err)
		}
		switch c := bytes.Compare(key, k); {
		case c == 0:
			v, err := in.ReadBytes(vlen)
			if err != nil {
				return nil, false, t.dataError(err)
			}
			return v, true, nil
		case c < 0:
			return nil, false, nil
		}
		if err := in.Skip(int64(vlen)); err != nil {
			return nil, false, t.dataError(err)
		}
	}
	return nil, false, nil
}

// segment returns the index of the greatest sparse key not above key. The
// caller has checked that key is not below the first sparse key.
func (t *SSTable) segment(key []byte) int {
	low, high := 0, len(t.sparseKeys)
	for low < high-1 {
		mid := (low + high) / 2
		switch c := shared.Compare(key, t.sparseKeys[mid]); {
		case c == 0:
			return mid
		case c < 0:
			high = mid
		default:
			low = mid
		}
	}
	return low
}

// MayContain consults the bloom filter only.
func (t *SSTable) MayContain(key []byte) bool {
	return t.filter.MayContain(key)
}

// NewIterator scans every pair in key order. Iterators read through their
// own buffer and may run concurrently with Get.
func (t *SSTable) NewIterator() *Iterator {
	return &Iterator{
		table:     t,
		in:        shared.NewInputStream(t.file, t.size),
		remaining: t.numEntries,
	}
}

func (t *SSTable) Base() string { return t.base }

// ID is the number in the table's file names.
func (t *SSTable) ID() uint64 {
	id, _ := shared.ParseTableID(filepath.Base(t.base) + shared.DataSuffix)
	return id
}

func (t *SSTable) MinKey() []byte     { return t.minKey }
func (t *SSTable) MaxKey() []byte     { return t.maxKey }
func (t *SSTable) NumEntries() uint64 { return t.numEntries }

// Size is the length of the data file in bytes.
func (t *SSTable) Size() int64 { return t.size }

// SparseCount is the number of sparse index points.
func (t *SSTable) SparseCount() int { return len(t.sparseKeys) }

// Overlaps reports whether the key ranges of t and o intersect.
func (t *SSTable) Overlaps(o *SSTable) bool {
	return shared.Compare(t.minKey, o.maxKey) <= 0 && shared.Compare(o.minKey, t.maxKey) <= 0
}

// Close releases the data file. The files stay on disk.
func (t *SSTable) Close() error {
	if t.file == nil {
		return nil
	}
	err := t.file.Close()
	t.file = nil
	return errors.Wrapf(err, "sstable: close %s", shared.DataPath(t.base))
}

// Remove closes the table and deletes its three files.
func (t *SSTable) Remove() error {
	return errors.CombineErrors(t.Close(), shared.RemoveTableFiles(t.base))
}

// Iterator yields the pairs of a table in order.
type Iterator struct {
	table     *SSTable
	in        *shared.InputStream
	remaining uint64
	curr      shared.Pair
	err       error
}

func (it *Iterator) Next() bool {
	if it.err != nil || it.remaining == 0 {
		return false
	}
	p, err := it.in.ReadBlobPair()
	if err != nil {
		it.err = it.table.dataError(err)
		return false
	}
	it.curr = p
	it.remaining--
	return true
}

func (it *Iterator) Pair() shared.Pair {
	return it.curr
}

func (it *Iterator) Err() error {
	return it.err
}
