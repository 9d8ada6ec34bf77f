package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels analyses that produced a result.
	OutcomeSuccess = "success"
	// OutcomeError labels analyses rejected or aborted.
	OutcomeError = "error"

	KindDowntime         = "downtime"
	KindOverload         = "overload"
	KindCorrelatedOutage = "correlated_outage"

	CacheHit  = "hit"
	CacheMiss = "miss"
)

var (
	analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_outage",
			Name:      "analyses_total",
			Help:      "Total number of log analyses, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	analysisDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mirador_outage",
			Name:      "analysis_seconds",
			Help:      "Log analysis latency in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)

	recordsIngestedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mirador_outage",
			Name:      "records_ingested_total",
			Help:      "Health-check records parsed across all analyses.",
		},
	)

	intervalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_outage",
			Name:      "intervals_total",
			Help:      "Intervals emitted, partitioned by kind.",
		},
		[]string{"kind"},
	)

	reportCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_outage",
			Name:      "report_cache_lookups_total",
			Help:      "Report cache lookups, partitioned by result.",
		},
		[]string{"result"},
	)
)

// Register attaches mirador-outage collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		analysesTotal,
		analysisDurationSeconds,
		recordsIngestedTotal,
		intervalsTotal,
		reportCacheTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveAnalysis records an analysis duration and outcome label.
func ObserveAnalysis(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	analysesTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	analysisDurationSeconds.Observe(duration.Seconds())
}

// AddRecords counts parsed records.
func AddRecords(n int) {
	if n > 0 {
		recordsIngestedTotal.Add(float64(n))
	}
}

// AddIntervals counts emitted intervals of one kind.
func AddIntervals(kind string, n int) {
	if n > 0 {
		intervalsTotal.WithLabelValues(kind).Add(float64(n))
	}
}

// ObserveCacheLookup counts a report cache hit or miss.
func ObserveCacheLookup(hit bool) {
	if hit {
		reportCacheTotal.WithLabelValues(CacheHit).Inc()
		return
	}
	reportCacheTotal.WithLabelValues(CacheMiss).Inc()
}
