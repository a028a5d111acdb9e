package lsm

import (
	"time"

	"github.com/AmrMurad1/go-lsm/sstable"
	"go.uber.org/zap"
)

// flushAll drains the immutable queue, oldest first. It fails with ErrClosed
// once Close has begun, so no table is installed after the levels are
// released.
func (e *Engine) flushAll() error {
	e.flushMu.Lock()
	defer e.flushMu.Unlock()
	if e.closed.Load() {
		return ErrClosed
	}
	for {
		ok, err := e.flushOldest()
		if err != nil || !ok {
			return err
		}
	}
}

// flushOldest writes the oldest frozen writebuffer to level 0 and reports
// whether there was one. The writebuffer stays readable in the queue until
// its tables are installed. The caller holds flushMu.
func (e *Engine) flushOldest() (bool, error) {
	e.immMu.Lock()
	if len(e.imm) == 0 {
		e.immMu.Unlock()
		return false, nil
	}
	mt := e.imm[len(e.imm)-1]
	e.immMu.Unlock()

	start := time.Now()
	config := e.opts.tableConfig(2*int64(e.opts.WriteBufferSize), mt.Count())
	tables, err := sstable.BuildRun(mt.NewIterator(), e.nextBase, config)
	if err != nil {
		return false, err
	}

	var bytes int64
	e.levelMu.Lock()
	if len(e.levels) == 0 {
		e.levels = append(e.levels, nil)
	}
	// a single flush yields disjoint tables, so their relative order is free
	l0 := make([]*sstable.SSTable, 0, len(tables)+len(e.levels[0]))
	l0 = append(l0, tables...)
	e.levels[0] = append(l0, e.levels[0]...)
	e.metrics.setLevels(e.levelStatsLocked())
	e.levelMu.Unlock()

	e.immMu.Lock()
	e.imm = e.imm[:len(e.imm)-1]
	n := len(e.imm)
	e.immMu.Unlock()

	for _, t := range tables {
		bytes += t.Size()
	}
	e.metrics.flushes.Inc()
	e.metrics.flushedBytes.Add(float64(bytes))
	e.metrics.immutableBuffers.Set(float64(n))
	e.log.Info("flushed write buffer",
		zap.Int("entries", mt.Count()),
		zap.Int("tables", len(tables)),
		zap.Uint64("first_table", tables[0].ID()),
		zap.Int64("bytes", bytes),
		zap.Duration("took", time.Since(start)))
	return true, nil
}
