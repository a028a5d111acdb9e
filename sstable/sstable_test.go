package sstable

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/AmrMurad1/go-lsm/iterator"
	"github.com/AmrMurad1/go-lsm/shared"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func sortedPairs(n int) []shared.Pair {
	pairs := make([]shared.Pair, 0, n)
	for i := 0; i < n; i++ {
		pairs = append(pairs, shared.Pair{
			Key:   []byte(fmt.Sprintf("k%d", i)),
			Value: []byte(fmt.Sprintf("value-%d", i)),
		})
	}
	sort.Slice(pairs, func(i, j int) bool { return shared.ComparePairs(pairs[i], pairs[j]) < 0 })
	return pairs
}

func seq(dir string) func() string {
	id := uint64(0)
	return func() string {
		id++
		return shared.TableBase(dir, id)
	}
}

func smallConfig() Config {
	c := DefaultConfig()
	c.SampleStride = 4
	c.ExpectedEntries = 1000
	return c
}

func TestWriteAndGet(t *testing.T) {
	dir := t.TempDir()
	pairs := sortedPairs(500)
	pairs[10].Value = []byte{}

	tbl, err := Build(shared.TableBase(dir, 1), iterator.NewSlice(pairs), smallConfig())
	require.NoError(t, err)
	defer tbl.Close()

	require.Equal(t, uint64(500), tbl.NumEntries())
	require.Equal(t, 125, tbl.SparseCount())
	require.Equal(t, pairs[0].Key, tbl.MinKey())
	require.Equal(t, pairs[499].Key, tbl.MaxKey())
	require.Equal(t, uint64(1), tbl.ID())

	for i, p := range pairs {
		v, ok, err := tbl.Get(p.Key)
		require.NoError(t, err)
		require.True(t, ok, "key %s", p.Key)
		require.Equal(t, p.Value, v, "entry %d", i)
	}

	for _, k := range []string{"", "k", "k5000", "a1", "zz", "k10a"} {
		_, ok, err := tbl.Get([]byte(k))
		require.NoError(t, err)
		require.False(t, ok, "key %q", k)
	}

	// filter soundness
	for i := 0; i < 2000; i++ {
		k := []byte(fmt.Sprintf("miss%d", i))
		if !tbl.MayContain(k) {
			_, ok, err := tbl.Get(k)
			require.NoError(t, err)
			require.False(t, ok)
		}
	}
}

func TestScanOrderAndRoundTrip(t *testing.T) {
	dir := t.TempDir()
	pairs := sortedPairs(300)
	tbl, err := Build(shared.TableBase(dir, 7), iterator.NewSlice(pairs), smallConfig())
	require.NoError(t, err)
	defer tbl.Close()

	got, err := iterator.Collect(tbl.NewIterator())
	require.NoError(t, err)
	require.Equal(t, pairs, got)
	for i := 1; i < len(got); i++ {
		require.Negative(t, shared.Compare(got[i-1].Key, got[i].Key))
	}
}

func TestReopen(t *testing.T) {
	dir := t.TempDir()
	base := shared.TableBase(dir, 3)
	for _, n := range []int{1, 4, 5, 257} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			pairs := sortedPairs(n)
			tbl, err := Build(base, iterator.NewSlice(pairs), smallConfig())
			require.NoError(t, err)
			require.NoError(t, tbl.Close())

			re, err := Open(base)
			require.NoError(t, err)
			defer re.Close()

			require.Equal(t, pairs[0].Key, re.MinKey())
			require.Equal(t, pairs[n-1].Key, re.MaxKey())
			require.Equal(t, uint64(n), re.NumEntries())
			for _, p := range pairs {
				v, ok, err := re.Get(p.Key)
				require.NoError(t, err)
				require.True(t, ok)
				require.Equal(t, p.Value, v)
			}
			got, err := iterator.Collect(re.NewIterator())
			require.NoError(t, err)
			require.Equal(t, pairs, got)
		})
	}
}

func TestIndexLayout(t *testing.T) {
	dir := t.TempDir()
	base := shared.TableBase(dir, 1)
	pairs := []shared.Pair{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Value: []byte("22")},
		{Key: []byte("c"), Value: []byte("3")},
	}
	c := smallConfig()
	c.SampleStride = 2
	tbl, err := Build(base, iterator.NewSlice(pairs), c)
	require.NoError(t, err)
	require.NoError(t, tbl.Close())

	index, err := os.ReadFile(shared.IndexPath(base))
	require.NoError(t, err)
	// 3 entries, 2 sparse points, offset delta 4+5=9, count delta 2, keys a and c
	require.Equal(t, []byte{0x84, 0x83, 0x8a, 0x83, 0x82, 'a', 0x82, 'c'}, index)

	data, err := os.ReadFile(shared.DataPath(base))
	require.NoError(t, err)
	require.Equal(t, []byte{0x82, 0x82, 'a', '1'}, data[:4])
}

func TestEmptyTable(t *testing.T) {
	dir := t.TempDir()
	base := shared.TableBase(dir, 1)
	_, err := Build(base, iterator.NewSlice(nil), smallConfig())
	require.True(t, errors.Is(err, shared.ErrEmptyTable))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestOutOfOrder(t *testing.T) {
	dir := t.TempDir()
	pairs := []shared.Pair{
		{Key: []byte("b"), Value: []byte("1")},
		{Key: []byte("a"), Value: []byte("1")},
	}
	_, err := Build(shared.TableBase(dir, 1), iterator.NewSlice(pairs), smallConfig())
	require.Error(t, err)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestByteCap(t *testing.T) {
	dir := t.TempDir()
	pairs := sortedPairs(1000)
	c := smallConfig()
	c.MaxBytes = 1000

	p := iterator.NewPeeker(iterator.NewSlice(pairs))
	tbl, err := buildOne(shared.TableBase(dir, 1), p, c)
	require.NoError(t, err)
	defer tbl.Close()
	require.GreaterOrEqual(t, tbl.Size(), int64(1000))
	// the cap is checked before each record, so at most one record crosses it
	require.Less(t, tbl.Size(), int64(1000+32))
	require.True(t, p.HasNext())
	require.Equal(t, pairs[tbl.NumEntries()].Key, p.Peek().Key)
}

func TestBuildRun(t *testing.T) {
	dir := t.TempDir()
	pairs := sortedPairs(2000)
	c := smallConfig()
	c.MaxBytes = 4096

	run, err := BuildRun(iterator.NewSlice(pairs), seq(dir), c)
	require.NoError(t, err)
	require.Greater(t, len(run), 1)

	var all []shared.Pair
	for i, tbl := range run {
		for j := i + 1; j < len(run); j++ {
			require.False(t, tbl.Overlaps(run[j]))
		}
		got, err := iterator.Collect(tbl.NewIterator())
		require.NoError(t, err)
		all = append(all, got...)
		require.NoError(t, tbl.Close())
	}
	require.Equal(t, pairs, all)
}

func TestCompactShadowing(t *testing.T) {
	dir := t.TempDir()
	next := seq(dir)
	c := smallConfig()

	older, err := Build(next(), iterator.NewSlice([]shared.Pair{
		{Key: []byte("a"), Value: []byte("old")},
		{Key: []byte("b"), Value: []byte("old")},
		{Key: []byte("c"), Value: []byte("old")},
	}), c)
	require.NoError(t, err)
	newer, err := Build(next(), iterator.NewSlice([]shared.Pair{
		{Key: []byte("a"), Value: []byte("new")},
		{Key: []byte("b"), Value: []byte{}},
	}), c)
	require.NoError(t, err)

	run, err := Compact([]*SSTable{newer, older}, next, c, false)
	require.NoError(t, err)
	require.Len(t, run, 1)
	got, err := iterator.Collect(run[0].NewIterator())
	require.NoError(t, err)
	require.Equal(t, []shared.Pair{
		{Key: []byte("a"), Value: []byte("new")},
		{Key: []byte("b"), Value: []byte{}},
		{Key: []byte("c"), Value: []byte("old")},
	}, got)

	run2, err := Compact([]*SSTable{newer, older}, next, c, true)
	require.NoError(t, err)
	got, err = iterator.Collect(run2[0].NewIterator())
	require.NoError(t, err)
	require.Len(t, got, 2)

	for _, tbl := range append(run, append(run2, newer, older)...) {
		require.NoError(t, tbl.Remove())
	}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestOpenCorrupt(t *testing.T) {
	dir := t.TempDir()
	base := shared.TableBase(dir, 1)
	tbl, err := Build(base, iterator.NewSlice(sortedPairs(50)), smallConfig())
	require.NoError(t, err)
	require.NoError(t, tbl.Close())

	index, err := os.ReadFile(shared.IndexPath(base))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(shared.IndexPath(base), index[:len(index)-2], 0o644))
	_, err = Open(base)
	require.True(t, errors.Is(err, shared.ErrCorruption), "got %v", err)

	require.NoError(t, os.WriteFile(shared.IndexPath(base), index, 0o644))
	data, err := os.ReadFile(shared.DataPath(base))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(shared.DataPath(base), data[:len(data)-1], 0o644))
	_, err = Open(base)
	require.True(t, errors.Is(err, shared.ErrCorruption), "got %v", err)

	_, err = Open(filepath.Join(dir, "sst_99"))
	require.True(t, errors.Is(err, os.ErrNotExist))
}

func TestDumpRoundTrip(t *testing.T) {
	dir := t.TempDir()
	pairs := sortedPairs(400)
	tbl, err := Build(shared.TableBase(dir, 1), iterator.NewSlice(pairs), smallConfig())
	require.NoError(t, err)
	defer tbl.Close()

	var buf bytes.Buffer
	n, err := Dump(tbl, &buf)
	require.NoError(t, err)
	require.Equal(t, 400, n)

	it, err := ReadDump(&buf)
	require.NoError(t, err)
	got, err := iterator.Collect(it)
	require.NoError(t, err)
	require.Equal(t, pairs, got)
}
