package repo

import (
	"bufio"
	"fmt"
	"io"
	"sort"

	"github.com/miradorstack/mirador-outage/internal/models"
)

const maxLineBytes = 1 << 20

// LineError pins a parse failure to its 1-based line number.
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// LogStore groups parsed records by address. Addresses keep first-seen order.
type LogStore struct {
	order   []string
	logs    map[string][]models.HealthRecord
	records int
}

func newLogStore() *LogStore {
	return &LogStore{logs: make(map[string][]models.HealthRecord)}
}

// Ingest reads every line of r and returns the sorted per-host store.
// The first malformed line aborts ingestion.
func Ingest(r io.Reader) (*LogStore, error) {
	store := newLogStore()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := store.append(lineNo, scanner.Text()); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read lines: %w", err)
	}

	store.sort()
	return store, nil
}

// IngestLines is Ingest over an in-memory slice of lines.
func IngestLines(lines []string) (*LogStore, error) {
	store := newLogStore()
	for i, line := range lines {
		if err := store.append(i+1, line); err != nil {
			return nil, err
		}
	}
	store.sort()
	return store, nil
}

func (s *LogStore) append(lineNo int, line string) error {
	record, err := ParseRecord(line)
	if err != nil {
		return &LineError{Line: lineNo, Text: line, Err: err}
	}
	if _, ok := s.logs[record.Address]; !ok {
		s.order = append(s.order, record.Address)
	}
	s.logs[record.Address] = append(s.logs[record.Address], record)
	s.records++
	return nil
}

func (s *LogStore) sort() {
	for _, records := range s.logs {
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].Timestamp.Before(records[j].Timestamp)
		})
	}
}

// Hosts lists addresses in the order they first appeared in the input.
func (s *LogStore) Hosts() []string {
	return append([]string(nil), s.order...)
}

// Log returns the ordered records for address; unknown addresses yield an empty log.
func (s *LogStore) Log(address string) models.HostLog {
	return models.HostLog{Address: address, Records: s.logs[address]}
}

// Logs returns every host log in first-seen order.
func (s *LogStore) Logs() []models.HostLog {
	out := make([]models.HostLog, 0, len(s.order))
	for _, address := range s.order {
		out = append(out, s.Log(address))
	}
	return out
}

// Records is the number of parsed records across all hosts.
func (s *LogStore) Records() int {
	return s.records
}
