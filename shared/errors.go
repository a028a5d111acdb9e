package shared

import "github.com/cockroachdb/errors"

var (
	// ErrCorruption marks errors caused by an index, filter or data file whose
	// structure cannot be parsed.
	ErrCorruption = errors.New("lsm: corruption")

	// ErrEmptyTable is returned when a table writer is finished without any
	// entry written.
	ErrEmptyTable = errors.New("lsm: cannot build an empty table")

	// ErrVarintOverflow is returned when n+1 does not fit the varint encoding.
	ErrVarintOverflow = errors.New("lsm: varint overflow")
)

// CorruptionErrorf formats an error and marks it as ErrCorruption.
func CorruptionErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrCorruption)
}
