package lsm

import (
	"context"
	"time"

	"github.com/thejerf/suture/v4"
	"go.uber.org/zap"
)

// workers runs the flusher and the compactor under a supervisor that
// restarts them if they panic or return early.
type workers struct {
	cancel context.CancelFunc
	done   <-chan error
}

func startWorkers(e *Engine) *workers {
	sup := suture.New("lsm", suture.Spec{
		EventHook: func(ev suture.Event) {
			e.log.Warn("worker event", zap.String("event", ev.String()))
		},
	})
	sup.Add(&periodic{
		name:     "flusher",
		interval: e.opts.FlushInterval,
		log:      e.log,
		run: func() {
			if err := e.flushAll(); err != nil {
				e.backgroundError("flush", err)
			}
		},
	})
	sup.Add(&periodic{
		name:     "compactor",
		interval: e.opts.CompactionInterval,
		log:      e.log,
		run: func() {
			if err := e.compact(); err != nil {
				e.backgroundError("compaction", err)
			}
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	return &workers{cancel: cancel, done: sup.ServeBackground(ctx)}
}

func (w *workers) stop() {
	w.cancel()
	<-w.done
}

func (e *Engine) backgroundError(op string, err error) {
	e.log.Error("background "+op+" failed", zap.Error(err))
	e.metrics.backgroundErrors.WithLabelValues(op).Inc()
	if e.opts.OnBackgroundError != nil {
		e.opts.OnBackgroundError(err)
	}
}

// periodic calls run every interval until its context is cancelled. A tick
// is skipped when run is still busy with the previous one.
type periodic struct {
	name     string
	interval time.Duration
	log      *zap.Logger
	run      func()
}

func (p *periodic) Serve(ctx context.Context) error {
	p.log.Debug("worker started", zap.String("worker", p.name))
	defer p.log.Debug("worker stopped", zap.String("worker", p.name))

	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.run()
		}
	}
}

func (p *periodic) String() string {
	return p.name
}
