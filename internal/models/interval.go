package models

import "time"

// Interval is a derived time span attached to a host or a subnet.
type Interval struct {
	Subject string    `json:"subject"`
	Start   time.Time `json:"start"`
	// End is the last observed timestamp of the condition.
	End time.Time `json:"end"`
	// Unterminated marks a span still ongoing at the last observed record.
	// It outranks End when ordering or rendering.
	Unterminated bool `json:"unterminated"`
}

// EndsBefore reports whether the interval is closed strictly before t.
func (i Interval) EndsBefore(t time.Time) bool {
	return !i.Unterminated && i.End.Before(t)
}

// EarlierEnd returns the end that comes first, Unterminated sorting last.
// When both are unterminated the earlier observed End is kept.
func EarlierEnd(a, b Interval) Interval {
	switch {
	case a.Unterminated && !b.Unterminated:
		return b
	case b.Unterminated && !a.Unterminated:
		return a
	case b.End.Before(a.End):
		return b
	default:
		return a
	}
}

// AnalysisResult groups the three interval collections of one run.
type AnalysisResult struct {
	Downtime         []Interval `json:"downtime"`
	Overload         []Interval `json:"overload"`
	CorrelatedOutage []Interval `json:"correlated_outage"`
	Hosts            int        `json:"hosts"`
	Records          int        `json:"records"`
}
