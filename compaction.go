package lsm

import (
	"math"
	"time"

	"github.com/AmrMurad1/go-lsm/sstable"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// maxTables is the table count bound of level i.
func (o Options) maxTables(i int) int {
	return int(math.Floor(float64(o.L0MaxTables) * math.Pow(o.GrowthFactor, float64(i))))
}

// maxTableBytes is the data file cap of tables produced by compacting level
// i into level i+1.
func (o Options) maxTableBytes(i int) int64 {
	return int64(2 * float64(o.WriteBufferSize) * math.Pow(o.GrowthFactor, float64(i)))
}

func (e *Engine) compact() error {
	e.compactMu.Lock()
	defer e.compactMu.Unlock()
	if e.closed.Load() {
		return ErrClosed
	}
	return e.compactLevels()
}

// compactLevels walks the levels once, merging every level that holds more
// tables than its bound into the next one. A failed merge leaves both levels
// as they were. The caller holds compactMu.
func (e *Engine) compactLevels() error {
	e.levelMu.Lock()
	defer e.levelMu.Unlock()

	var cleanupErr error
	for i := 0; i < len(e.levels); i++ {
		if len(e.levels[i]) <= e.opts.maxTables(i) {
			continue
		}
		grown := i == len(e.levels)-1
		if grown {
			e.levels = append(e.levels, nil)
		}
		start := time.Now()

		// newest first: level i before level i+1, each already newest first
		sources := make([]*sstable.SSTable, 0, len(e.levels[i])+len(e.levels[i+1]))
		sources = append(sources, e.levels[i]...)
		sources = append(sources, e.levels[i+1]...)

		dropTombstones := e.opts.ElideTombstones && i+1 == len(e.levels)-1
		config := e.opts.tableConfig(e.opts.maxTableBytes(i), 0)
		out, err := sstable.Compact(sources, e.nextBase, config, dropTombstones)
		if err != nil {
			if grown {
				e.levels = e.levels[:i+1]
			}
			return errors.Wrapf(err, "lsm: compact level %d into %d", i, i+1)
		}

		e.levels[i] = nil
		e.levels[i+1] = out
		for _, t := range sources {
			if err := t.Remove(); err != nil {
				e.log.Warn("removing compacted table", zap.String("table", t.Base()), zap.Error(err))
				cleanupErr = errors.CombineErrors(cleanupErr, err)
			}
		}

		e.metrics.compactions.Inc()
		e.log.Info("compacted level",
			zap.Int("level", i),
			zap.Int("input_tables", len(sources)),
			zap.Int("output_tables", len(out)),
			zap.Bool("dropped_tombstones", dropTombstones),
			zap.Duration("took", time.Since(start)))
	}
	e.metrics.setLevels(e.levelStatsLocked())
	return cleanupErr
}

// Levels returns the number of tables in each level.
func (e *Engine) Levels() []int {
	e.levelMu.RLock()
	defer e.levelMu.RUnlock()
	counts := make([]int, len(e.levels))
	for i, l := range e.levels {
		counts[i] = len(l)
	}
	return counts
}
