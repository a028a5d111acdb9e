package lsm

import (
	"time"

	"github.com/AmrMurad1/go-lsm/memtable"
	"github.com/AmrMurad1/go-lsm/sstable"
	"github.com/AmrMurad1/go-lsm/sstable/filter"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var (
	// ErrInvalidOptions is returned by Open when the options cannot describe a
	// working tree.
	ErrInvalidOptions = errors.New("lsm: invalid options")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("lsm: engine closed")
)

const (
	DefaultWriteBufferSize    = 32 << 20
	DefaultL0MaxTables        = 2
	DefaultGrowthFactor       = 1.75
	DefaultFlushInterval      = 50 * time.Millisecond
	DefaultCompactionInterval = 250 * time.Millisecond
	DefaultExpectedElements   = 1 << 16
)

// Options configure an Engine.
type Options struct {
	// WriteBufferSize is the payload in bytes above which the mutable
	// writebuffer is frozen. Tables written by a flush are capped at twice
	// this size.
	WriteBufferSize int
	// L0MaxTables bounds the number of tables in level 0. The bound for
	// level i is floor(L0MaxTables * GrowthFactor^i).
	L0MaxTables int
	// GrowthFactor scales the table count bound and the table byte cap from
	// one level to the next.
	GrowthFactor float64
	// SampleStride is the number of entries between sparse index points.
	SampleStride int
	// FalsePositiveRate of the per-table bloom filters.
	FalsePositiveRate float64
	// ExpectedElements sizes the writebuffer skip list.
	ExpectedElements int

	FlushInterval      time.Duration
	CompactionInterval time.Duration

	// ElideTombstones drops deletions when compacting into the deepest
	// level.
	ElideTombstones bool
	// DisableBackground leaves flushing and compaction to explicit calls of
	// Flush and Compact.
	DisableBackground bool

	Logger *zap.Logger
	// Registerer receives the engine's metrics. Nil disables registration.
	Registerer prometheus.Registerer
	// OnBackgroundError is called with every error of a background flush or
	// compaction.
	OnBackgroundError func(error)
}

type Option func(*Options)

func DefaultOptions() Options {
	return Options{
		WriteBufferSize:    DefaultWriteBufferSize,
		L0MaxTables:        DefaultL0MaxTables,
		GrowthFactor:       DefaultGrowthFactor,
		SampleStride:       sstable.DefaultSampleStride,
		FalsePositiveRate:  filter.DefaultFalsePositiveRate,
		ExpectedElements:   DefaultExpectedElements,
		FlushInterval:      DefaultFlushInterval,
		CompactionInterval: DefaultCompactionInterval,
		Logger:             zap.NewNop(),
	}
}

func WithOptions(o Options) Option {
	return func(opts *Options) { *opts = o }
}

func WithWriteBufferSize(n int) Option {
	return func(o *Options) { o.WriteBufferSize = n }
}

func WithL0MaxTables(n int) Option {
	return func(o *Options) { o.L0MaxTables = n }
}

func WithGrowthFactor(f float64) Option {
	return func(o *Options) { o.GrowthFactor = f }
}

func WithSampleStride(n int) Option {
	return func(o *Options) { o.SampleStride = n }
}

func WithFalsePositiveRate(p float64) Option {
	return func(o *Options) { o.FalsePositiveRate = p }
}

func WithIntervals(flush, compaction time.Duration) Option {
	return func(o *Options) {
		o.FlushInterval = flush
		o.CompactionInterval = compaction
	}
}

func WithElideTombstones(on bool) Option {
	return func(o *Options) { o.ElideTombstones = on }
}

func WithoutBackground() Option {
	return func(o *Options) { o.DisableBackground = true }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

func WithRegisterer(r prometheus.Registerer) Option {
	return func(o *Options) { o.Registerer = r }
}

func WithBackgroundErrorHandler(fn func(error)) Option {
	return func(o *Options) { o.OnBackgroundError = fn }
}

func (o Options) Validate() error {
	switch {
	case o.WriteBufferSize <= 0:
		return errors.Wrapf(ErrInvalidOptions, "write buffer size %d", o.WriteBufferSize)
	case o.L0MaxTables <= 0:
		return errors.Wrapf(ErrInvalidOptions, "level 0 table bound %d", o.L0MaxTables)
	case o.GrowthFactor <= 1:
		return errors.Wrapf(ErrInvalidOptions, "growth factor %v must exceed 1", o.GrowthFactor)
	case o.SampleStride <= 0:
		return errors.Wrapf(ErrInvalidOptions, "sample stride %d", o.SampleStride)
	case o.FalsePositiveRate <= 0 || o.FalsePositiveRate >= 1:
		return errors.Wrapf(ErrInvalidOptions, "false-positive rate %v", o.FalsePositiveRate)
	case o.ExpectedElements <= 0:
		return errors.Wrapf(ErrInvalidOptions, "expected elements %d", o.ExpectedElements)
	case !o.DisableBackground && (o.FlushInterval <= 0 || o.CompactionInterval <= 0):
		return errors.Wrapf(ErrInvalidOptions, "intervals %s and %s", o.FlushInterval, o.CompactionInterval)
	}
	return nil
}

func (o Options) newMemtable() *memtable.Memtable {
	return memtable.NewMemtable(o.ExpectedElements)
}

// tableConfig returns the writer settings for tables capped at maxBytes.
func (o Options) tableConfig(maxBytes int64, expected int) sstable.Config {
	return sstable.Config{
		SampleStride:      o.SampleStride,
		MaxBytes:          maxBytes,
		FalsePositiveRate: o.FalsePositiveRate,
		ExpectedEntries:   expected,
	}
}
