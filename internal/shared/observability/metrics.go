package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ReloadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "easierless_reload_seconds",
		Help:    "Time spent rebuilding the symbol index.",
		Buckets: prometheus.DefBuckets,
	})

	ReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "easierless_reloads_total",
		Help: "Total number of reload cycles by trigger.",
	}, []string{"trigger"})

	ReloadsCoalescedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "easierless_reloads_coalesced_total",
		Help: "Total number of reload requests folded into a pending reload.",
	})

	FilesLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "easierless_files_loaded",
		Help: "Number of stylesheet records in the current index generation.",
	})

	ImportReadFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "easierless_import_read_failures_total",
		Help: "Total number of stylesheet reads that failed during graph loading.",
	})

	SymbolsIndexed = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "easierless_symbols_indexed",
		Help: "Number of indexed symbols in the current generation by kind.",
	}, []string{"kind"})

	ExtractionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "easierless_extraction_seconds",
		Help:    "Time spent extracting symbols from loaded files.",
		Buckets: prometheus.DefBuckets,
	})

	AutoImportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "easierless_auto_imports_total",
		Help: "Total number of auto-import attempts by outcome.",
	}, []string{"outcome"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "easierless_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	WatchedFiles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "easierless_watched_files",
		Help: "Number of files currently watched for changes.",
	})
)
