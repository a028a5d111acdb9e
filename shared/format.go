package shared

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	TablePrefix = "sst_"

	DataSuffix   = ".data"
	IndexSuffix  = ".index"
	FilterSuffix = ".bloom"
)

// TableBase returns the path shared by the three files of table id in dir.
func TableBase(dir string, id uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%s%d", TablePrefix, id))
}

func DataPath(base string) string   { return base + DataSuffix }
func IndexPath(base string) string  { return base + IndexSuffix }
func FilterPath(base string) string { return base + FilterSuffix }

// ParseTableID extracts n from a file named sst_<n>.<suffix>.
func ParseTableID(name string) (uint64, bool) {
	name = filepath.Base(name)
	if !strings.HasPrefix(name, TablePrefix) {
		return 0, false
	}
	stem := strings.TrimPrefix(name, TablePrefix)
	dot := strings.IndexByte(stem, '.')
	if dot <= 0 {
		return 0, false
	}
	switch stem[dot:] {
	case DataSuffix, IndexSuffix, FilterSuffix:
	default:
		return 0, false
	}
	id, err := strconv.ParseUint(stem[:dot], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// MaxTableID returns the largest table id found in dir, or 0 when there is
// none.
func MaxTableID(dir string) (uint64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	var max uint64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if id, ok := ParseTableID(e.Name()); ok && id > max {
			max = id
		}
	}
	return max, nil
}

// RemoveTableFiles deletes the three files of a table. Missing files are not
// an error.
func RemoveTableFiles(base string) error {
	for _, p := range []string{DataPath(base), IndexPath(base), FilterPath(base)} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
