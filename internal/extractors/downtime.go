package extractors

import (
	"time"

	"github.com/miradorstack/mirador-outage/internal/models"
)

// DowntimeDetector finds runs of consecutive unreachable checks per host.
type DowntimeDetector struct{}

// NewDowntimeDetector creates a downtime detector.
func NewDowntimeDetector() *DowntimeDetector {
	return &DowntimeDetector{}
}

// downRun tracks the candidate interval while a host is down.
type downRun struct {
	active bool
	first  time.Time
	last   time.Time
	count  int
}

func (r *downRun) extend(ts time.Time) {
	if !r.active {
		*r = downRun{active: true, first: ts}
	}
	r.last = ts
	r.count++
}

// Detect scans an ordered host log and returns downtime intervals whose run of
// unreachable checks is at least minRunLength long.
func (d *DowntimeDetector) Detect(log models.HostLog, minRunLength int) []models.Interval {
	if len(log.Records) == 0 {
		return nil
	}

	intervals := make([]models.Interval, 0)
	var run downRun
	for _, record := range log.Records {
		if record.Status.Unreachable() {
			run.extend(record.Timestamp)
			continue
		}
		if run.active && run.count >= minRunLength {
			intervals = append(intervals, models.Interval{
				Subject: log.Address,
				Start:   run.first,
				End:     run.last,
			})
		}
		run = downRun{}
	}

	// Never recovered within the observed data.
	if run.active && run.count >= minRunLength {
		intervals = append(intervals, models.Interval{
			Subject:      log.Address,
			Start:        run.first,
			End:          run.last,
			Unterminated: true,
		})
	}

	return intervals
}
