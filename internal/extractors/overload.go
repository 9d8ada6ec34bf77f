package extractors

import (
	"time"

	"github.com/miradorstack/mirador-outage/internal/models"
)

// OverloadDetector flags spans where a trailing mean response time stays at or above a threshold.
type OverloadDetector struct{}

// NewOverloadDetector creates an overload detector.
func NewOverloadDetector() *OverloadDetector {
	return &OverloadDetector{}
}

// Detect scans an ordered host log. Records without a response time are skipped
// and leave the window untouched. windowSize must be positive.
func (d *OverloadDetector) Detect(log models.HostLog, windowSize int, thresholdMs int64) []models.Interval {
	if len(log.Records) < windowSize || windowSize <= 0 {
		return nil
	}

	intervals := make([]models.Interval, 0)
	window := NewResponseWindow(windowSize)

	var (
		open  bool
		start time.Time
		end   time.Time
	)
	for _, record := range log.Records {
		ms, ok := record.Status.ResponseTime()
		if !ok {
			continue
		}

		window.Push(ms)
		if !window.Full() {
			continue
		}

		if window.Mean() >= thresholdMs {
			if !open {
				open = true
				start = record.Timestamp
			}
			end = record.Timestamp
			continue
		}

		if open {
			intervals = append(intervals, models.Interval{Subject: log.Address, Start: start, End: end})
			open = false
		}
	}

	if open {
		intervals = append(intervals, models.Interval{Subject: log.Address, Start: start, End: end, Unterminated: true})
	}

	return intervals
}
