package utils

import (
	"fmt"
	"time"
)

const (
	// CheckTimestampLayout is the compact timestamp used in health-check logs.
	CheckTimestampLayout = "20060102150405"
	// ReportTimeLayout renders interval bounds in reports.
	ReportTimeLayout = "2006-01-02 15:04:05"
	// UnterminatedMarker stands in for the end of an interval still ongoing.
	UnterminatedMarker = "----/--/-- --:--:--"
)

// ParseCheckTimestamp parses a YYYYMMDDHHMMSS value as UTC.
func ParseCheckTimestamp(value string) (time.Time, error) {
	if len(value) != len(CheckTimestampLayout) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, value)
	}
	t, err := time.Parse(CheckTimestampLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrMalformedTimestamp, value, err)
	}
	return t, nil
}

// FormatReportTime renders t for a report line.
func FormatReportTime(t time.Time) string {
	return t.Format(ReportTimeLayout)
}

// DurationMinutes converts a pair of timestamps into minute duration.
func DurationMinutes(start, end time.Time) float64 {
	if end.Before(start) {
		start, end = end, start
	}
	return end.Sub(start).Minutes()
}
