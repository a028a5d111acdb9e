package sstable

import (
	"os"

	"github.com/AmrMurad1/go-lsm/iterator"
	"github.com/AmrMurad1/go-lsm/shared"
	"github.com/AmrMurad1/go-lsm/sstable/filter"
	"github.com/cockroachdb/errors"
)

const (
	DefaultSampleStride    = 128
	DefaultExpectedEntries = 1 << 16
)

// Config controls how tables are written.
type Config struct {
	// SampleStride is the number of entries between sparse index points.
	SampleStride int
	// MaxBytes caps the data file. The cap is checked before each record,
	// so the last record may cross it. Zero means no cap.
	MaxBytes int64
	// FalsePositiveRate of the bloom filter.
	FalsePositiveRate float64
	// ExpectedEntries sizes the bloom filter.
	ExpectedEntries int
}

func DefaultConfig() Config {
	return Config{
		SampleStride:      DefaultSampleStride,
		FalsePositiveRate: filter.DefaultFalsePositiveRate,
		ExpectedEntries:   DefaultExpectedEntries,
	}
}

func (c Config) withDefaults() Config {
	if c.SampleStride <= 0 {
		c.SampleStride = DefaultSampleStride
	}
	if c.FalsePositiveRate <= 0 || c.FalsePositiveRate >= 1 {
		c.FalsePositiveRate = filter.DefaultFalsePositiveRate
	}
	if c.ExpectedEntries <= 0 {
		c.ExpectedEntries = DefaultExpectedEntries
	}
	return c
}

// Writer streams sorted pairs into the data file of a new table and collects
// the sparse index and bloom filter written by Finish.
type Writer struct {
	base   string
	config Config
	data   *shared.OutputStream
	filter *filter.Filter

	offsets    []int64
	counts     []uint64
	sparseKeys [][]byte
	count      uint64
	minKey     []byte
	maxKey     []byte
}

func NewWriter(base string, config Config) (*Writer, error) {
	config = config.withDefaults()
	f, err := filter.New(config.ExpectedEntries, config.FalsePositiveRate)
	if err != nil {
		return nil, err
	}
	data, err := shared.CreateOutputStream(shared.DataPath(base))
	if err != nil {
		return nil, err
	}
	return &Writer{
		base:   base,
		config: config,
		data:   data,
		filter: f,
	}, nil
}

// Add appends a pair. Keys must be strictly increasing.
func (w *Writer) Add(pair shared.Pair) error {
	if w.count > 0 && shared.Compare(pair.Key, w.maxKey) <= 0 {
		return errors.Newf("sstable: %s: key %q added after %q", w.base, pair.Key, w.maxKey)
	}
	if w.count == 0 {
		w.minKey = append([]byte{}, pair.Key...)
	}
	w.maxKey = append(w.maxKey[:0], pair.Key...)

	if w.count%uint64(w.config.SampleStride) == 0 {
		w.offsets = append(w.offsets, w.data.Offset())
		w.counts = append(w.counts, w.count)
		w.sparseKeys = append(w.sparseKeys, append([]byte{}, pair.Key...))
	}
	w.filter.Add(pair.Key)

	if _, err := w.data.WriteBlobPair(pair.Key, pair.Value); err != nil {
		return errors.Wrapf(err, "sstable: write %s", shared.DataPath(w.base))
	}
	w.count++
	return nil
}

// Full reports whether the data file has reached the byte cap.
func (w *Writer) Full() bool {
	return w.config.MaxBytes > 0 && w.data.Offset() >= w.config.MaxBytes
}

func (w *Writer) Count() uint64 {
	return w.count
}

// Finish writes the index and filter files and opens the table for reading.
// Finishing a writer that received no pairs fails with shared.ErrEmptyTable
// and leaves no files behind.
func (w *Writer) Finish() (*SSTable, error) {
	if w.count == 0 {
		return nil, errors.CombineErrors(
			errors.Wrapf(shared.ErrEmptyTable, "sstable: %s", w.base), w.Abort())
	}
	size := w.data.Offset()
	if err := w.data.Close(); err != nil {
		return nil, w.fail(errors.Wrapf(err, "sstable: close %s", shared.DataPath(w.base)))
	}
	if err := w.filter.WriteFile(shared.FilterPath(w.base)); err != nil {
		return nil, w.fail(err)
	}
	if err := w.writeIndex(); err != nil {
		return nil, w.fail(err)
	}

	file, err := os.Open(shared.DataPath(w.base))
	if err != nil {
		return nil, w.fail(errors.Wrapf(err, "sstable: reopen %s", shared.DataPath(w.base)))
	}
	return &SSTable{
		base:       w.base,
		file:       file,
		size:       size,
		filter:     w.filter,
		numEntries: w.count,
		offsets:    w.offsets,
		counts:     w.counts,
		sparseKeys: w.sparseKeys,
		minKey:     w.minKey,
		maxKey:     append([]byte{}, w.maxKey...),
	}, nil
}

// writeIndex persists varint(entries) varint(sparse count), the offset and
// count deltas with the first of each omitted, and the sparse keys.
func (w *Writer) writeIndex() error {
	path := shared.IndexPath(w.base)
	out, err := shared.CreateOutputStream(path)
	if err != nil {
		return err
	}
	write := func() error {
		if _, err := out.WriteUvarint(w.count); err != nil {
			return err
		}
		if _, err := out.WriteUvarint(uint64(len(w.sparseKeys))); err != nil {
			return err
		}
		for i := 1; i < len(w.offsets); i++ {
			if _, err := out.WriteUvarint(uint64(w.offsets[i] - w.offsets[i-1])); err != nil {
				return err
			}
		}
		for i := 1; i < len(w.counts); i++ {
			if _, err := out.WriteUvarint(w.counts[i] - w.counts[i-1]); err != nil {
				return err
			}
		}
		for _, k := range w.sparseKeys {
			if _, err := out.WriteVarint32(len(k)); err != nil {
				return err
			}
			if _, err := out.Write(k); err != nil {
				return err
			}
		}
		return nil
	}
	if err := write(); err != nil {
		return errors.CombineErrors(errors.Wrapf(err, "sstable: write %s", path), out.Close())
	}
	return errors.Wrapf(out.Close(), "sstable: close %s", path)
}

func (w *Writer) fail(err error) error {
	return errors.CombineErrors(err, shared.RemoveTableFiles(w.base))
}

// Abort discards the table being written.
func (w *Writer) Abort() error {
	return errors.CombineErrors(w.data.Close(), shared.RemoveTableFiles(w.base))
}

// Build writes pairs from it into a single table until it is exhausted or
// the byte cap is reached.
func Build(base string, it iterator.Iterator, config Config) (*SSTable, error) {
	return buildOne(base, iterator.NewPeeker(it), config)
}

func buildOne(base string, it *iterator.Peeker, config Config) (*SSTable, error) {
	w, err := NewWriter(base, config)
	if err != nil {
		return nil, err
	}
	for !w.Full() && it.Next() {
		if err := w.Add(it.Pair()); err != nil {
			return nil, errors.CombineErrors(err, w.Abort())
		}
	}
	if err := it.Err(); err != nil {
		return nil, errors.CombineErrors(err, w.Abort())
	}
	return w.Finish()
}
