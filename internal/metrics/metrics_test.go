package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second register should tolerate duplicates: %v", err)
	}
}

func TestObserveAnalysisNormalisesOutcome(t *testing.T) {
	before := testutil.ToFloat64(analysesTotal.WithLabelValues(OutcomeSuccess))
	ObserveAnalysis(-time.Second, "whatever")
	if got := testutil.ToFloat64(analysesTotal.WithLabelValues(OutcomeSuccess)); got != before+1 {
		t.Fatalf("expected success counter to grow by one, got %f -> %f", before, got)
	}
}

func TestAddIntervalsIgnoresZero(t *testing.T) {
	before := testutil.ToFloat64(intervalsTotal.WithLabelValues(KindOverload))
	AddIntervals(KindOverload, 0)
	AddIntervals(KindOverload, 3)
	if got := testutil.ToFloat64(intervalsTotal.WithLabelValues(KindOverload)); got != before+3 {
		t.Fatalf("expected +3, got %f -> %f", before, got)
	}
}

func TestObserveCacheLookup(t *testing.T) {
	hits := testutil.ToFloat64(reportCacheTotal.WithLabelValues(CacheHit))
	misses := testutil.ToFloat64(reportCacheTotal.WithLabelValues(CacheMiss))
	ObserveCacheLookup(true)
	ObserveCacheLookup(false)
	ObserveCacheLookup(false)
	if testutil.ToFloat64(reportCacheTotal.WithLabelValues(CacheHit)) != hits+1 {
		t.Fatalf("hit counter mismatch")
	}
	if testutil.ToFloat64(reportCacheTotal.WithLabelValues(CacheMiss)) != misses+2 {
		t.Fatalf("miss counter mismatch")
	}
}
