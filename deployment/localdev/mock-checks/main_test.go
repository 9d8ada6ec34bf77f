package main

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/miradorstack/mirador-outage/internal/engine"
	"github.com/miradorstack/mirador-outage/internal/models"
	"github.com/miradorstack/mirador-outage/internal/utils"
)

func TestGeneratedLogProducesSubnetOutage(t *testing.T) {
	var buf bytes.Buffer
	if err := writeChecks(&buf, defaultScenario()); err != nil {
		t.Fatalf("write checks: %v", err)
	}

	pipeline := engine.NewPipeline(utils.NewLogger(io.Discard, "error", false), nil, nil)
	result, err := pipeline.Run(context.Background(), &buf, models.DefaultParams())
	if err != nil {
		t.Fatalf("analyse generated log: %v", err)
	}

	if result.Hosts != 4 || len(result.Downtime) != 4 {
		t.Fatalf("expected one downtime per host, got hosts=%d downtime=%d", result.Hosts, len(result.Downtime))
	}
	want := []models.Interval{{
		Subject: "10.20.30.0/24",
		Start:   time.Date(2020, 10, 19, 13, 12, 0, 0, time.UTC),
		End:     time.Date(2020, 10, 19, 13, 14, 0, 0, time.UTC),
	}}
	if diff := cmp.Diff(want, result.CorrelatedOutage); diff != "" {
		t.Fatalf("unexpected correlated outage (-want +got):\n%s", diff)
	}
	if len(result.Overload) != 1 || result.Overload[0].Subject != "10.20.30.1/24" || !result.Overload[0].Unterminated {
		t.Fatalf("expected host .1 to stay overloaded, got %+v", result.Overload)
	}
}

func TestScenarioFromQuery(t *testing.T) {
	sc, err := scenarioFromQuery(httptest.NewRequest("GET", "/checks.log?hosts=8&checks=5", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sc.hosts != 8 || sc.checks != 5 {
		t.Fatalf("unexpected scenario: %+v", sc)
	}

	for _, query := range []string{"?hosts=0", "?checks=x", "?hosts=300"} {
		if _, err := scenarioFromQuery(httptest.NewRequest("GET", "/checks.log"+query, nil)); err == nil {
			t.Fatalf("%s: expected error", query)
		}
	}
}
