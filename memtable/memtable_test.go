package memtable

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/AmrMurad1/go-lsm/shared"
	"github.com/stretchr/testify/require"
)

func TestMaxLevelFor(t *testing.T) {
	require.Equal(t, 1, MaxLevelFor(0))
	require.Equal(t, 1, MaxLevelFor(2))
	require.Equal(t, 2, MaxLevelFor(3))
	require.Equal(t, 16, MaxLevelFor(1<<16))
	require.Equal(t, 17, MaxLevelFor(1<<16+1))
}

func TestSkipListSetGet(t *testing.T) {
	s := New(64)
	require.Equal(t, 2, s.Set(shared.Pair{Key: []byte("a"), Value: []byte("1")}))
	require.Equal(t, 3, s.Set(shared.Pair{Key: []byte("bb"), Value: []byte("2")}))

	v, ok := s.Get([]byte("a"))
	require.True(t, ok)
	require.Equal(t, []byte("1"), v)

	_, ok = s.Get([]byte("c"))
	require.False(t, ok)

	// overwrite only accounts the value delta
	require.Equal(t, 2, s.Set(shared.Pair{Key: []byte("a"), Value: []byte("123")}))
	require.Equal(t, 7, s.Size())
	require.Equal(t, 2, s.Len())

	require.Equal(t, -3, s.Set(shared.Pair{Key: []byte("a"), Value: []byte{}}))
	v, ok = s.Get([]byte("a"))
	require.True(t, ok)
	require.Empty(t, v)
	require.Equal(t, 4, s.Size())
}

func TestMemtableOrderedScan(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	m := NewMemtable(1 << 10)
	want := map[string]string{}
	for i := 0; i < 2000; i++ {
		k := fmt.Sprintf("%d", rng.IntN(500))
		v := fmt.Sprintf("v%d", i)
		m.Set([]byte(k), []byte(v))
		want[k] = v
	}
	m.Delete([]byte("7"))
	want["7"] = ""

	require.Equal(t, len(want), m.Count())

	size := 0
	for k, v := range want {
		size += len(k) + len(v)
	}
	require.Equal(t, size, m.Size())

	var keys [][]byte
	for k := range want {
		keys = append(keys, []byte(k))
	}
	sort.Slice(keys, func(i, j int) bool { return shared.Compare(keys[i], keys[j]) < 0 })

	it := m.NewIterator()
	i := 0
	for it.Next() {
		p := it.Pair()
		require.Equal(t, keys[i], p.Key)
		require.Equal(t, want[string(p.Key)], string(p.Value))
		i++
	}
	require.NoError(t, it.Err())
	require.Equal(t, len(keys), i)
	require.False(t, it.Next())
}

func TestMemtableTombstone(t *testing.T) {
	m := NewMemtable(16)
	require.True(t, m.Empty())
	m.Set([]byte{1}, []byte{0xaa})
	m.Delete([]byte{1})

	v, ok := m.Get([]byte{1})
	require.True(t, ok)
	require.NotNil(t, v)
	require.Empty(t, v)
	require.Equal(t, 1, m.Size())
}
