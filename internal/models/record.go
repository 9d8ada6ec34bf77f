package models

import (
	"net/netip"
	"time"
)

// UnreachableCode is the only fault code that counts as downtime.
const UnreachableCode = "-"

// HealthRecord is one parsed health-check line.
type HealthRecord struct {
	Address   string
	Prefix    netip.Prefix
	Timestamp time.Time
	Status    Status
}

// Status carries either a numeric response time or a fault code, never both.
type Status struct {
	numeric    bool
	responseMs int64
	fault      string
}

// Numeric builds a Status for a successful check answered in ms milliseconds.
func Numeric(ms int64) Status {
	return Status{numeric: true, responseMs: ms}
}

// Fault builds a Status for a check that reported code instead of a response time.
func Fault(code string) Status {
	return Status{fault: code}
}

// ResponseTime returns the response time and whether one was recorded.
func (s Status) ResponseTime() (int64, bool) {
	if !s.numeric {
		return 0, false
	}
	return s.responseMs, true
}

// FaultCode returns the raw fault token; empty for numeric readings.
func (s Status) FaultCode() string {
	return s.fault
}

// Unreachable reports whether the check hit the host-down fault code.
func (s Status) Unreachable() bool {
	return !s.numeric && s.fault == UnreachableCode
}

// HostLog is the time-ordered record sequence of a single address.
type HostLog struct {
	Address string
	Records []HealthRecord
}
