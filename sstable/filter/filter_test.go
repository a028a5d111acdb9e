package filter

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/AmrMurad1/go-lsm/shared"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestSizing(t *testing.T) {
	f, err := New(1000, 0.001)
	require.NoError(t, err)
	// ceil(-1000 * ln(0.001) / ln(2)^2) and ceil(-log2(0.001))
	require.Equal(t, uint64(14378), f.Bits())
	require.Equal(t, uint64(10), f.Hashes())

	_, err = New(10, 0)
	require.Error(t, err)
	_, err = New(10, 1)
	require.Error(t, err)
}

func TestNoFalseNegatives(t *testing.T) {
	f, err := New(5000, DefaultFalsePositiveRate)
	require.NoError(t, err)
	for i := 0; i < 5000; i++ {
		f.Add([]byte(fmt.Sprintf("key-%d", i)))
	}
	for i := 0; i < 5000; i++ {
		require.True(t, f.MayContain([]byte(fmt.Sprintf("key-%d", i))))
	}

	fp := 0
	for i := 0; i < 10000; i++ {
		if f.MayContain([]byte(fmt.Sprintf("absent-%d", i))) {
			fp++
		}
	}
	// 0.1% expected; allow a wide margin
	require.Less(t, fp, 60)
}

func TestFileRoundTrip(t *testing.T) {
	f, err := New(100, 0.01)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		f.Add([]byte{byte(i), byte(i >> 8)})
	}
	path := filepath.Join(t.TempDir(), "sst_1.bloom")
	require.NoError(t, f.WriteFile(path))

	g, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, f.Bits(), g.Bits())
	require.Equal(t, f.Hashes(), g.Hashes())
	require.Equal(t, f.words, g.words)
	for i := 0; i < 100; i++ {
		require.True(t, g.MayContain([]byte{byte(i), byte(i >> 8)}))
	}
}

func TestReadCorrupt(t *testing.T) {
	f, err := New(100, 0.01)
	require.NoError(t, err)
	f.Add([]byte("x"))
	dir := t.TempDir()
	path := filepath.Join(dir, "sst_1.bloom")
	require.NoError(t, f.WriteFile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	for name, b := range map[string][]byte{
		"empty":       {},
		"header-only": data[:2],
		"truncated":   data[:len(data)-3],
		"trailing":    append(append([]byte{}, data...), 0),
		"bad-header":  {0x81, 0x81, 0x81},
	} {
		t.Run(name, func(t *testing.T) {
			p := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(p, b, 0o644))
			_, err := ReadFile(p)
			require.True(t, errors.Is(err, shared.ErrCorruption), "got %v", err)
		})
	}

	_, err = ReadFile(filepath.Join(dir, "missing"))
	require.True(t, errors.Is(err, os.ErrNotExist))
}
