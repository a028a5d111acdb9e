package sstable

import (
	"bytes"
	"io"

	"github.com/AmrMurad1/go-lsm/iterator"
	"github.com/AmrMurad1/go-lsm/shared"
	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/s2"
)

// Dump writes every pair of t to w as an s2-compressed stream of blob pairs
// and returns the number of pairs written.
func Dump(t *SSTable, w io.Writer) (int, error) {
	sw := s2.NewWriter(w)
	out := shared.NewOutputStream(sw)
	it := t.NewIterator()
	n := 0
	for it.Next() {
		p := it.Pair()
		if _, err := out.WriteBlobPair(p.Key, p.Value); err != nil {
			return n, errors.CombineErrors(err, sw.Close())
		}
		n++
	}
	if err := it.Err(); err != nil {
		return n, errors.CombineErrors(err, sw.Close())
	}
	if err := out.Flush(); err != nil {
		return n, errors.CombineErrors(err, sw.Close())
	}
	return n, errors.Wrap(sw.Close(), "sstable: dump")
}

// ReadDump decompresses a stream written by Dump and returns its pairs as an
// iterator.
func ReadDump(r io.Reader) (iterator.Iterator, error) {
	data, err := io.ReadAll(s2.NewReader(r))
	if err != nil {
		return nil, errors.Wrap(err, "sstable: read dump")
	}
	return &dumpIterator{in: shared.NewInputStream(bytes.NewReader(data), int64(len(data)))}, nil
}

type dumpIterator struct {
	in   *shared.InputStream
	curr shared.Pair
	err  error
}

func (d *dumpIterator) Next() bool {
	if d.err != nil {
		return false
	}
	p, err := d.in.ReadBlobPair()
	if err != nil {
		if err != io.EOF {
			d.err = err
		}
		return false
	}
	d.curr = p
	return true
}

func (d *dumpIterator) Pair() shared.Pair { return d.curr }

func (d *dumpIterator) Err() error { return d.err }
