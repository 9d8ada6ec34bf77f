package api

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-outage/internal/models"
	"github.com/miradorstack/mirador-outage/internal/utils"
)

func TestFromStructRequestOverridesDefaults(t *testing.T) {
	req, err := structpb.NewStruct(map[string]interface{}{
		KeyLines:              []interface{}{"20201019130000,10.0.0.1/24,5"},
		KeyWindowSize:         3,
		KeyThresholdMs:        250,
		KeyCollapseCorrelated: true,
	})
	if err != nil {
		t.Fatalf("build request: %v", err)
	}

	got, err := FromStructRequest(req, models.DefaultParams())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	want := AnalyzeRequest{
		Lines: []string{"20201019130000,10.0.0.1/24,5"},
		Params: models.AnalysisParams{
			MinRunLength:       models.DefaultMinRunLength,
			WindowSize:         3,
			ThresholdMs:        250,
			CollapseCorrelated: true,
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected request (-want +got):\n%s", diff)
	}
}

func TestFromStructRequestRejectsBadShapes(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]interface{}
	}{
		{name: "lines not list", fields: map[string]interface{}{KeyLines: "x"}},
		{name: "line not string", fields: map[string]interface{}{KeyLines: []interface{}{1}}},
		{name: "fractional window", fields: map[string]interface{}{KeyWindowSize: 2.5}},
		{name: "threshold as string", fields: map[string]interface{}{KeyThresholdMs: "250"}},
		{name: "collapse as number", fields: map[string]interface{}{KeyCollapseCorrelated: 1}},
		{name: "unknown key", fields: map[string]interface{}{"tenant": "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := structpb.NewStruct(tt.fields)
			if err != nil {
				t.Fatalf("build request: %v", err)
			}
			_, err = FromStructRequest(req, models.DefaultParams())
			if !errors.Is(err, utils.ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
			if !utils.IsClientError(err) {
				t.Fatalf("request shape errors must count as client errors")
			}
		})
	}
}

func TestNewAnalyzeRequestRoundTrip(t *testing.T) {
	params := models.AnalysisParams{MinRunLength: 2, WindowSize: 4, ThresholdMs: 100, CollapseCorrelated: true}
	lines := []string{"a", "b"}

	req, err := NewAnalyzeRequest(lines, params)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	got, err := FromStructRequest(req, models.DefaultParams())
	if err != nil {
		t.Fatalf("parse request: %v", err)
	}
	if diff := cmp.Diff(AnalyzeRequest{Lines: lines, Params: params}, got); diff != "" {
		t.Fatalf("unexpected request (-want +got):\n%s", diff)
	}
}

func TestToStructResult(t *testing.T) {
	start := time.Date(2020, 10, 19, 13, 0, 1, 0, time.UTC)
	result := models.AnalysisResult{
		Downtime: []models.Interval{
			{Subject: "10.0.0.2/24", Start: start, End: start.Add(2 * time.Second), Unterminated: true},
		},
		Overload:         []models.Interval{},
		CorrelatedOutage: []models.Interval{},
		Hosts:            1,
		Records:          4,
	}

	resp, err := ToStructResult("id-1", result, false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	fields := resp.GetFields()
	if fields[KeyAnalysisID].GetStringValue() != "id-1" {
		t.Fatalf("unexpected analysis id: %v", fields[KeyAnalysisID])
	}
	downtime := fields[KeyDowntime].GetListValue().GetValues()
	if len(downtime) != 1 {
		t.Fatalf("expected one downtime interval, got %d", len(downtime))
	}
	interval := downtime[0].GetStructValue().GetFields()
	if interval["end"].GetStringValue() != utils.UnterminatedMarker || !interval["unterminated"].GetBoolValue() {
		t.Fatalf("unterminated interval rendered wrong: %v", interval)
	}
	if interval["start"].GetStringValue() != "2020-10-19 13:00:01" {
		t.Fatalf("unexpected start: %v", interval["start"])
	}

	want := []string{
		"## downtime",
		"10.0.0.2/24,2020-10-19 13:00:01,----/--/-- --:--:--",
		"",
		"## overload",
		"",
		"## correlated_outage",
		"",
	}
	if diff := cmp.Diff(want, ReportLines(resp)); diff != "" {
		t.Fatalf("unexpected report (-want +got):\n%s", diff)
	}
}
