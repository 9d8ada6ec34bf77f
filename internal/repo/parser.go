package repo

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/miradorstack/mirador-outage/internal/models"
	"github.com/miradorstack/mirador-outage/internal/utils"
)

const recordFields = 3

// ParseRecord converts one "TIMESTAMP,ADDRESS,STATUS" line into a HealthRecord.
func ParseRecord(line string) (models.HealthRecord, error) {
	fields := strings.Split(strings.TrimRight(line, " \t\r\n"), ",")
	if len(fields) != recordFields {
		return models.HealthRecord{}, fmt.Errorf("%w: expected %d fields, got %d", utils.ErrMalformedLine, recordFields, len(fields))
	}

	ts, err := utils.ParseCheckTimestamp(fields[0])
	if err != nil {
		return models.HealthRecord{}, err
	}

	prefix, err := ParseAddress(fields[1])
	if err != nil {
		return models.HealthRecord{}, err
	}

	return models.HealthRecord{
		Address:   fields[1],
		Prefix:    prefix,
		Timestamp: ts,
		Status:    parseStatus(fields[2]),
	}, nil
}

// ParseAddress accepts "a.b.c.d/p" or a bare address, which is treated as a single-host prefix.
func ParseAddress(value string) (netip.Prefix, error) {
	if strings.Contains(value, "/") {
		prefix, err := netip.ParsePrefix(value)
		if err != nil {
			return netip.Prefix{}, fmt.Errorf("%w: %q: %v", utils.ErrMalformedAddress, value, err)
		}
		return prefix, nil
	}
	addr, err := netip.ParseAddr(value)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("%w: %q: %v", utils.ErrMalformedAddress, value, err)
	}
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

func parseStatus(raw string) models.Status {
	if raw == "" || !isDigits(raw) {
		return models.Fault(raw)
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// Out of int64 range; keep the token rather than invent a reading.
		return models.Fault(raw)
	}
	return models.Numeric(ms)
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
