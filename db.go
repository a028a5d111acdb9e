package lsm

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/AmrMurad1/go-lsm/memtable"
	"github.com/AmrMurad1/go-lsm/shared"
	"github.com/AmrMurad1/go-lsm/sstable"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Status qualifies the result of Lookup.
type Status int

const (
	StatusNotFound Status = iota
	StatusFound
	StatusDeleted
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusDeleted:
		return "deleted"
	default:
		return "not found"
	}
}

// Engine is the tree: a mutable writebuffer, a queue of frozen ones waiting
// for the flusher, and levels of sorted tables merged by the compactor.
//
// Locks are always taken in the order wbMu, immMu, levelMu.
type Engine struct {
	dir     string
	opts    Options
	log     *zap.Logger
	metrics *metrics

	wbMu sync.Mutex
	wb   *memtable.Memtable

	immMu sync.Mutex
	imm   []*memtable.Memtable // newest first

	levelMu sync.RWMutex
	levels  [][]*sstable.SSTable // newest table first within a level

	nextID atomic.Uint64

	// at most one flush and one compaction run at a time
	flushMu   sync.Mutex
	compactMu sync.Mutex

	workers  *workers
	stopOnce sync.Once
	closed   atomic.Bool
}

// Open creates dir if needed and starts an empty tree in it. Tables already
// present in dir are left alone, and new table ids start above the largest
// one found.
func Open(dir string, opts ...Option) (*Engine, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if err := createPath(dir); err != nil {
		return nil, err
	}
	maxID, err := shared.MaxTableID(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "lsm: scan %s", dir)
	}
	m, err := newMetrics(o.Registerer)
	if err != nil {
		return nil, errors.Wrap(err, "lsm: register metrics")
	}

	e := &Engine{
		dir:     dir,
		opts:    o,
		log:     o.Logger.With(zap.String("dir", dir)),
		metrics: m,
		wb:      o.newMemtable(),
	}
	e.nextID.Store(maxID)

	if !o.DisableBackground {
		e.workers = startWorkers(e)
	}
	e.log.Info("engine opened",
		zap.Int("write_buffer_size", o.WriteBufferSize),
		zap.Int("l0_max_tables", o.L0MaxTables),
		zap.Uint64("next_table_id", maxID+1))
	return e, nil
}

func createPath(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "lsm: create data directory %s", dir)
	}
	return nil
}

func (e *Engine) nextBase() string {
	return shared.TableBase(e.dir, e.nextID.Add(1))
}

// Add stores value under key. An empty value is a tombstone. The engine
// copies both slices.
func (e *Engine) Add(key, value []byte) error {
	if e.closed.Load() {
		return ErrClosed
	}
	k := append([]byte{}, key...)
	v := append([]byte{}, value...)

	e.wbMu.Lock()
	defer e.wbMu.Unlock()
	e.wb.Set(k, v)
	e.metrics.writes.Inc()
	if e.wb.Size() > e.opts.WriteBufferSize {
		e.freezeLocked()
	}
	e.metrics.writeBufferBytes.Set(float64(e.wb.Size()))
	return nil
}

// Delete writes a tombstone for key.
func (e *Engine) Delete(key []byte) error {
	return e.Add(key, nil)
}

// freezeLocked moves the mutable writebuffer to the front of the immutable
// queue. The caller holds wbMu.
func (e *Engine) freezeLocked() {
	e.immMu.Lock()
	e.imm = append([]*memtable.Memtable{e.wb}, e.imm...)
	n := len(e.imm)
	e.immMu.Unlock()
	e.log.Debug("write buffer frozen",
		zap.Int("bytes", e.wb.Size()), zap.Int("entries", e.wb.Count()), zap.Int("immutable", n))
	e.wb = e.opts.newMemtable()
	e.metrics.immutableBuffers.Set(float64(n))
}

// Get returns the newest value of key, or nil when the key is unknown or
// deleted.
func (e *Engine) Get(key []byte) ([]byte, error) {
	v, status, err := e.Lookup(key)
	if err != nil || status != StatusFound {
		return nil, err
	}
	return v, nil
}

// Lookup is Get that tells a deleted key apart from an unknown one.
func (e *Engine) Lookup(key []byte) ([]byte, Status, error) {
	if e.closed.Load() {
		return nil, StatusNotFound, ErrClosed
	}
	if key == nil {
		key = []byte{}
	}
	v, status, err := e.lookup(key)
	e.metrics.gets.WithLabelValues(strings.ReplaceAll(status.String(), " ", "_")).Inc()
	return v, status, err
}

func (e *Engine) lookup(key []byte) ([]byte, Status, error) {
	e.wbMu.Lock()
	v, ok := e.wb.Get(key)
	e.wbMu.Unlock()
	if ok {
		return result(v)
	}

	e.immMu.Lock()
	for _, mt := range e.imm {
		if v, ok := mt.Get(key); ok {
			e.immMu.Unlock()
			return result(v)
		}
	}
	e.immMu.Unlock()

	e.levelMu.RLock()
	defer e.levelMu.RUnlock()
	for i, level := range e.levels {
		for _, t := range level {
			v, ok, err := t.Get(key)
			if err != nil {
				return nil, StatusNotFound, errors.Wrapf(err, "lsm: get from level %d", i)
			}
			if ok {
				return result(v)
			}
		}
	}
	return nil, StatusNotFound, nil
}

func result(v []byte) ([]byte, Status, error) {
	if len(v) == 0 {
		return nil, StatusDeleted, nil
	}
	return v, StatusFound, nil
}

// Flush freezes a non-empty writebuffer and writes every frozen writebuffer
// to level 0 before returning.
func (e *Engine) Flush() error {
	if e.closed.Load() {
		return ErrClosed
	}
	e.wbMu.Lock()
	if !e.wb.Empty() {
		e.freezeLocked()
		e.metrics.writeBufferBytes.Set(0)
	}
	e.wbMu.Unlock()
	return e.flushAll()
}

// Compact runs one compaction pass over all levels.
func (e *Engine) Compact() error {
	if e.closed.Load() {
		return ErrClosed
	}
	return e.compact()
}

// Stop halts the background workers and waits for running flushes and
// compactions to finish. Writes that were not flushed stay in memory only.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		if e.workers != nil {
			e.workers.stop()
		}
		e.flushMu.Lock()
		defer e.flushMu.Unlock()
		e.compactMu.Lock()
		defer e.compactMu.Unlock()
		e.log.Info("engine stopped")
	})
}

// Close stops the engine and releases every table. Table files stay on
// disk; the contents of writebuffers are discarded.
func (e *Engine) Close() error {
	if e.closed.Swap(true) {
		return ErrClosed
	}
	e.Stop()

	e.levelMu.Lock()
	defer e.levelMu.Unlock()
	var err error
	for _, level := range e.levels {
		for _, t := range level {
			err = errors.CombineErrors(err, t.Close())
		}
	}
	e.levels = nil
	return err
}

// LevelStats describes one level of the tree.
type LevelStats struct {
	Tables  int
	Bytes   int64
	Entries uint64
}

type Stats struct {
	WriteBufferBytes   int
	WriteBufferEntries int
	ImmutableBuffers   int
	Levels             []LevelStats
}

func (s Stats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "writebuffer: %d bytes, %d entries\n", s.WriteBufferBytes, s.WriteBufferEntries)
	fmt.Fprintf(&b, "immutable: %d\n", s.ImmutableBuffers)
	for i, l := range s.Levels {
		fmt.Fprintf(&b, "L%d: %d tables, %d bytes, %d entries\n", i, l.Tables, l.Bytes, l.Entries)
	}
	return b.String()
}

func (e *Engine) Stats() Stats {
	var s Stats
	e.wbMu.Lock()
	s.WriteBufferBytes = e.wb.Size()
	s.WriteBufferEntries = e.wb.Count()
	e.wbMu.Unlock()

	e.immMu.Lock()
	s.ImmutableBuffers = len(e.imm)
	e.immMu.Unlock()

	e.levelMu.RLock()
	s.Levels = e.levelStatsLocked()
	e.levelMu.RUnlock()
	return s
}

func (e *Engine) levelStatsLocked() []LevelStats {
	stats := make([]LevelStats, len(e.levels))
	for i, level := range e.levels {
		stats[i].Tables = len(level)
		for _, t := range level {
			stats[i].Bytes += t.Size()
			stats[i].Entries += t.NumEntries()
		}
	}
	return stats
}

// Dir is the data directory.
func (e *Engine) Dir() string {
	return e.dir
}
