package lsm

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "lsm"

type metrics struct {
	writes           prometheus.Counter
	gets             *prometheus.CounterVec
	flushes          prometheus.Counter
	flushedBytes     prometheus.Counter
	compactions      prometheus.Counter
	backgroundErrors *prometheus.CounterVec
	writeBufferBytes prometheus.Gauge
	immutableBuffers prometheus.Gauge
	levelTables      *prometheus.GaugeVec
	levelBytes       *prometheus.GaugeVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		writes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "writes_total",
			Help:      "Number of puts and deletes applied to the writebuffer.",
		}),
		gets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "gets_total",
			Help:      "Number of point lookups by result.",
		}, []string{"result"}),
		flushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "flushes_total",
			Help:      "Number of writebuffers written to level 0.",
		}),
		flushedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "flushed_bytes_total",
			Help:      "Bytes of data files written by flushes.",
		}),
		compactions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "compactions_total",
			Help:      "Number of level merges.",
		}),
		backgroundErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "background_errors_total",
			Help:      "Failed background operations.",
		}, []string{"op"}),
		writeBufferBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "write_buffer_bytes",
			Help:      "Payload held by the mutable writebuffer.",
		}),
		immutableBuffers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "immutable_write_buffers",
			Help:      "Frozen writebuffers waiting to be flushed.",
		}),
		levelTables: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "level_tables",
			Help:      "Tables per level.",
		}, []string{"level"}),
		levelBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "level_bytes",
			Help:      "Data file bytes per level.",
		}, []string{"level"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{
		m.writes, m.gets, m.flushes, m.flushedBytes, m.compactions,
		m.backgroundErrors, m.writeBufferBytes, m.immutableBuffers,
		m.levelTables, m.levelBytes,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *metrics) setLevels(levels []LevelStats) {
	m.levelTables.Reset()
	m.levelBytes.Reset()
	for i, l := range levels {
		label := strconv.Itoa(i)
		m.levelTables.WithLabelValues(label).Set(float64(l.Tables))
		m.levelBytes.WithLabelValues(label).Set(float64(l.Bytes))
	}
}
