package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type IndexerMetrics struct {
	registry *prometheus.Registry

	documentsTotal    *prometheus.CounterVec
	documentDuration  *prometheus.HistogramVec
	chunksIndexed     prometheus.Counter
	upsertFlushes     prometheus.Counter
	documentsInFlight prometheus.Gauge
}

func NewIndexerMetrics(service string) *IndexerMetrics {
	registry := prometheus.NewRegistry()

	documentsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tender",
			Subsystem: "indexer",
			Name:      "documents_total",
			Help:      "Total processed documents by outcome.",
		},
		[]string{"service", "status"},
	)
	documentDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tender",
			Subsystem: "indexer",
			Name:      "document_duration_seconds",
			Help:      "Per-document indexing duration in seconds by outcome.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	chunksIndexed := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tender",
			Subsystem: "indexer",
			Name:      "chunks_indexed_total",
			Help:      "Total chunks embedded and upserted.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	upsertFlushes := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tender",
			Subsystem: "indexer",
			Name:      "upsert_flushes_total",
			Help:      "Total point buffer flushes to the vector store.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	documentsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tender",
			Subsystem: "indexer",
			Name:      "documents_in_flight",
			Help:      "Number of documents currently being indexed.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(documentsTotal, documentDuration, chunksIndexed, upsertFlushes, documentsInFlight)

	return &IndexerMetrics{
		registry:          registry,
		documentsTotal:    documentsTotal,
		documentDuration:  documentDuration,
		chunksIndexed:     chunksIndexed,
		upsertFlushes:     upsertFlushes,
		documentsInFlight: documentsInFlight,
	}
}

func (m *IndexerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *IndexerMetrics) StartDocument() {
	m.documentsInFlight.Inc()
}

func (m *IndexerMetrics) FinishDocument(service, status string, duration time.Duration) {
	m.documentsInFlight.Dec()
	m.documentsTotal.WithLabelValues(service, status).Inc()
	m.documentDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *IndexerMetrics) AddChunks(n int) {
	if n > 0 {
		m.chunksIndexed.Add(float64(n))
	}
}

func (m *IndexerMetrics) RecordFlush() {
	m.upsertFlushes.Inc()
}
