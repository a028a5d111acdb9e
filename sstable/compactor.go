package sstable

import (
	"github.com/AmrMurad1/go-lsm/iterator"
	"github.com/cockroachdb/errors"
)

// BuildRun writes it into consecutive tables, starting a new one whenever
// the current table reaches config.MaxBytes. Each table holds a contiguous
// slice of the stream, so a sorted unique input yields tables with disjoint
// key ranges. nextBase names each new table. On failure every table written
// so far is removed.
func BuildRun(it iterator.Iterator, nextBase func() string, config Config) ([]*SSTable, error) {
	p := iterator.NewPeeker(it)
	var run []*SSTable
	for p.HasNext() {
		t, err := buildOne(nextBase(), p, config)
		if err != nil {
			return nil, errors.CombineErrors(err, removeAll(run))
		}
		run = append(run, t)
	}
	if err := p.Err(); err != nil {
		return nil, errors.CombineErrors(err, removeAll(run))
	}
	return run, nil
}

// Compact merges tables into a sorted run. Tables are given newest first:
// on equal keys the pair from the earlier table wins. When dropTombstones
// is set, deletions are not carried into the output. The inputs are left
// untouched.
func Compact(tables []*SSTable, nextBase func() string, config Config, dropTombstones bool) ([]*SSTable, error) {
	sources := make([]iterator.Iterator, len(tables))
	var entries uint64
	for i, t := range tables {
		sources[i] = t.NewIterator()
		entries += t.NumEntries()
	}
	if config.ExpectedEntries <= 0 && entries > 0 {
		config.ExpectedEntries = int(min(entries, uint64(DefaultExpectedEntries)*64))
	}

	var it iterator.Iterator = iterator.NewMerger(sources...)
	if dropTombstones {
		it = iterator.NewDropTombstones(it)
	}
	return BuildRun(it, nextBase, config)
}

func removeAll(tables []*SSTable) error {
	var err error
	for _, t := range tables {
		err = errors.CombineErrors(err, t.Remove())
	}
	return err
}
