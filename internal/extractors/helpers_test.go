package extractors

import (
	"time"

	"github.com/miradorstack/mirador-outage/internal/models"
)

var base = time.Date(2020, 10, 19, 13, 0, 0, 0, time.UTC)

func at(minute int) time.Time {
	return base.Add(time.Duration(minute) * time.Minute)
}

// hostLog builds a log with one record per minute; "-" and other non-numeric
// tokens become faults, integers become readings.
func hostLog(address string, statuses ...any) models.HostLog {
	log := models.HostLog{Address: address}
	for i, status := range statuses {
		rec := models.HealthRecord{Address: address, Timestamp: at(i)}
		switch v := status.(type) {
		case int:
			rec.Status = models.Numeric(int64(v))
		case string:
			rec.Status = models.Fault(v)
		}
		log.Records = append(log.Records, rec)
	}
	return log
}
