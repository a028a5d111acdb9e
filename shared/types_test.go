package shared

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b []byte
		want int
	}{
		{nil, nil, 0},
		{nil, []byte{}, -1},
		{[]byte{}, nil, 1},
		{[]byte("b"), []byte("aa"), -1},
		{[]byte("zz"), []byte("aaa"), -1},
		{[]byte("ab"), []byte("aa"), 1},
		{[]byte("abc"), []byte("abc"), 0},
		// bytes compare unsigned
		{[]byte{0x01}, []byte{0xff}, -1},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, Compare(tc.a, tc.b), "Compare(%q, %q)", tc.a, tc.b)
		require.Equal(t, -tc.want, Compare(tc.b, tc.a), "Compare(%q, %q)", tc.b, tc.a)
	}
}

func TestPairClone(t *testing.T) {
	p := Pair{Key: []byte("k"), Value: []byte("v")}
	c := p.Clone()
	p.Key[0] = 'x'
	require.Equal(t, []byte("k"), c.Key)
	require.False(t, c.IsTombstone())
	require.True(t, Pair{Key: []byte("k")}.IsTombstone())
	require.Equal(t, 2, c.Size())
}

func TestParseTableID(t *testing.T) {
	id, ok := ParseTableID("/tmp/x/sst_42.index")
	require.True(t, ok)
	require.Equal(t, uint64(42), id)

	for _, name := range []string{"sst_.data", "sst_4.tmp", "foo_4.data", "sst_x.bloom"} {
		_, ok := ParseTableID(name)
		require.False(t, ok, name)
	}
}
