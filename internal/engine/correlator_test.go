package engine

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/miradorstack/mirador-outage/internal/models"
)

var base = time.Date(2020, 10, 19, 13, 0, 0, 0, time.UTC)

func at(minute int) time.Time {
	return base.Add(time.Duration(minute) * time.Minute)
}

func down(subject string, start, end int) models.Interval {
	return models.Interval{Subject: subject, Start: at(start), End: at(end)}
}

func downOpen(subject string, start, last int) models.Interval {
	return models.Interval{Subject: subject, Start: at(start), End: at(last), Unterminated: true}
}

func TestCorrelateFullOverlap(t *testing.T) {
	got := NewSubnetCorrelator(nil, false).Correlate([]models.Interval{
		down("10.0.0.1/24", 1, 5),
		down("10.0.0.2/24", 1, 5),
	})
	want := []models.Interval{down("10.0.0.0/24", 1, 5)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected outages (-want +got):\n%s", diff)
	}
}

func TestCorrelateIntersection(t *testing.T) {
	got := NewSubnetCorrelator(nil, false).Correlate([]models.Interval{
		down("10.0.0.2/24", 3, 8),
		down("10.0.0.1/24", 1, 5),
	})
	want := []models.Interval{down("10.0.0.0/24", 3, 5)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("expected max(start)..min(end) (-want +got):\n%s", diff)
	}
}

func TestCorrelateUnterminated(t *testing.T) {
	correlator := NewSubnetCorrelator(nil, false)

	got := correlator.Correlate([]models.Interval{
		downOpen("10.0.0.1/24", 1, 9),
		downOpen("10.0.0.2/24", 2, 9),
	})
	if len(got) != 1 || !got[0].Unterminated || !got[0].Start.Equal(at(2)) {
		t.Fatalf("expected unterminated outage from t2, got %+v", got)
	}

	got = correlator.Correlate([]models.Interval{
		downOpen("10.0.0.1/24", 1, 9),
		down("10.0.0.2/24", 2, 4),
	})
	want := []models.Interval{down("10.0.0.0/24", 2, 4)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("terminated end must win the minimum (-want +got):\n%s", diff)
	}
}

func TestCorrelateNoOverlap(t *testing.T) {
	got := NewSubnetCorrelator(nil, false).Correlate([]models.Interval{
		down("10.0.0.1/24", 1, 2),
		down("10.0.0.2/24", 3, 4),
		down("10.0.0.1/24", 5, 6),
	})
	if len(got) != 0 {
		t.Fatalf("hosts never down together, got %+v", got)
	}
}

func TestCorrelateSingleHostSubnet(t *testing.T) {
	got := NewSubnetCorrelator(nil, false).Correlate([]models.Interval{
		down("10.0.0.1/24", 1, 5),
		down("10.0.0.1/24", 7, 9),
	})
	if len(got) != 0 {
		t.Fatalf("single-host subnet must not emit, got %+v", got)
	}
}

func TestCorrelateSeparatesSubnets(t *testing.T) {
	got := NewSubnetCorrelator(nil, false).Correlate([]models.Interval{
		down("10.0.0.1/24", 1, 5),
		down("10.0.1.2/24", 1, 5),
		down("192.168.1.1/24", 1, 5),
		down("192.168.1.200/24", 2, 6),
	})
	want := []models.Interval{down("192.168.1.0/24", 2, 5)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected outages (-want +got):\n%s", diff)
	}
}

func TestCorrelateGroupsByNetworkAddress(t *testing.T) {
	// Both networks are 10.0.0.0; the prefix lengths differ.
	got := NewSubnetCorrelator(nil, false).Correlate([]models.Interval{
		down("10.0.0.1/24", 1, 5),
		down("10.0.0.2/16", 1, 5),
	})
	want := []models.Interval{down("10.0.0.0/24", 1, 5)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected outages (-want +got):\n%s", diff)
	}
}

func TestCorrelateRepeatedEmissions(t *testing.T) {
	input := []models.Interval{
		down("10.0.0.1/24", 0, 10),
		down("10.0.0.2/24", 2, 3),
		down("10.0.0.2/24", 2, 3),
		down("10.0.0.2/24", 5, 6),
	}

	got := NewSubnetCorrelator(nil, false).Correlate(input)
	want := []models.Interval{
		down("10.0.0.0/24", 2, 3),
		down("10.0.0.0/24", 2, 3),
		down("10.0.0.0/24", 5, 6),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("emissions must be preserved (-want +got):\n%s", diff)
	}

	collapsed := NewSubnetCorrelator(nil, true).Correlate(input)
	if diff := cmp.Diff([]models.Interval{want[0], want[2]}, collapsed); diff != "" {
		t.Fatalf("collapse should drop identical consecutive emissions (-want +got):\n%s", diff)
	}
}

func TestCorrelateThreeHostsNeedsAll(t *testing.T) {
	got := NewSubnetCorrelator(nil, false).Correlate([]models.Interval{
		down("10.0.0.1/24", 0, 10),
		down("10.0.0.2/24", 1, 10),
		down("10.0.0.3/24", 11, 12),
	})
	if len(got) != 0 {
		t.Fatalf("third host never overlapped, got %+v", got)
	}
}

func TestCorrelateSkipsUnparsableSubjects(t *testing.T) {
	got := NewSubnetCorrelator(nil, false).Correlate([]models.Interval{
		down("not-an-address", 0, 10),
		down("10.0.0.1/24", 0, 10),
	})
	if len(got) != 0 {
		t.Fatalf("expected no outages, got %+v", got)
	}
}

func TestSubnetOf(t *testing.T) {
	cases := map[string]string{
		"10.20.30.1/16": "10.20.0.0/16",
		"10.0.0.7/24":   "10.0.0.0/24",
		"192.168.1.1":   "192.168.1.1/32",
		"fd00::1/64":    "fd00::/64",
	}
	for in, want := range cases {
		got, err := SubnetOf(in)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", in, err)
		}
		if got.String() != want {
			t.Fatalf("%s: expected %s, got %s", in, want, got)
		}
	}
}
