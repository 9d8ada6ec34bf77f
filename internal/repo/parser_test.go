package repo

import (
	"errors"
	"testing"
	"time"

	"github.com/miradorstack/mirador-outage/internal/utils"
)

func TestParseRecordNumeric(t *testing.T) {
	rec, err := ParseRecord("20201019133124,10.20.30.1/16,2\r\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Address != "10.20.30.1/16" {
		t.Fatalf("unexpected address %q", rec.Address)
	}
	if rec.Prefix.Bits() != 16 {
		t.Fatalf("expected /16 prefix, got %s", rec.Prefix)
	}
	if !rec.Timestamp.Equal(time.Date(2020, 10, 19, 13, 31, 24, 0, time.UTC)) {
		t.Fatalf("unexpected timestamp %v", rec.Timestamp)
	}
	ms, ok := rec.Status.ResponseTime()
	if !ok || ms != 2 {
		t.Fatalf("expected 2ms reading, got %d (%v)", ms, ok)
	}
	if rec.Status.FaultCode() != "" || rec.Status.Unreachable() {
		t.Fatalf("numeric reading must not carry a fault")
	}
}

func TestParseRecordFaults(t *testing.T) {
	cases := []struct {
		status      string
		unreachable bool
	}{
		{"-", true},
		{"abc", false},
		{"", false},
		{"+5", false},
		{"-5", false},
		{"1.5", false},
		{"99999999999999999999999", false},
	}
	for _, tc := range cases {
		rec, err := ParseRecord("20201019133124,10.20.30.1/16," + tc.status)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tc.status, err)
		}
		if _, ok := rec.Status.ResponseTime(); ok {
			t.Fatalf("%q: expected no response time", tc.status)
		}
		if rec.Status.FaultCode() != tc.status {
			t.Fatalf("%q: fault code not kept verbatim: %q", tc.status, rec.Status.FaultCode())
		}
		if rec.Status.Unreachable() != tc.unreachable {
			t.Fatalf("%q: unreachable=%v", tc.status, rec.Status.Unreachable())
		}
	}
}

func TestParseRecordBareAddress(t *testing.T) {
	rec, err := ParseRecord("20201019133124,192.168.1.1,10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Prefix.Bits() != 32 {
		t.Fatalf("bare address should be a /32, got %s", rec.Prefix)
	}
}

func TestParseRecordErrors(t *testing.T) {
	cases := []struct {
		line string
		want error
	}{
		{"20201019133124,10.20.30.1/16", utils.ErrMalformedLine},
		{"20201019133124", utils.ErrMalformedLine},
		{"20201019133124,10.20.30.1/16,2,extra", utils.ErrMalformedLine},
		{"2020-10-19,10.20.30.1/16,2", utils.ErrMalformedTimestamp},
		{"20201019133124,10.20.30.1/33,2", utils.ErrMalformedAddress},
		{"20201019133124,server-a,2", utils.ErrMalformedAddress},
	}
	for _, tc := range cases {
		_, err := ParseRecord(tc.line)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%q: expected %v, got %v", tc.line, tc.want, err)
		}
		if !errors.Is(err, utils.ErrMalformedInput) {
			t.Fatalf("%q: expected ErrMalformedInput umbrella", tc.line)
		}
	}
}
