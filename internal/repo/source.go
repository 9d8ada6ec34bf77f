package repo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// LineSource opens the raw health-check log for ingestion.
type LineSource interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	Name() string
}

// FileSource reads a local file; "-" means stdin.
type FileSource struct {
	Path  string
	Stdin io.Reader
}

// NewFileSource constructs a FileSource for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path, Stdin: os.Stdin}
}

// Open opens the file, or wraps stdin without taking ownership of it.
func (s *FileSource) Open(context.Context) (io.ReadCloser, error) {
	if s.Path == "-" {
		if s.Stdin == nil {
			return nil, fmt.Errorf("stdin not available")
		}
		return io.NopCloser(s.Stdin), nil
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// Name identifies the source in logs.
func (s *FileSource) Name() string {
	if s.Path == "-" {
		return "stdin"
	}
	return s.Path
}

// HTTPSource fetches a log published over HTTP(S).
type HTTPSource struct {
	url        string
	httpClient *http.Client
}

// NewHTTPSource constructs an HTTPSource bounded by timeout.
func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		url: strings.TrimSpace(url),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Open issues the GET and hands back the body; the caller closes it.
func (s *HTTPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if s == nil || s.url == "" {
		return nil, fmt.Errorf("log URL not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch log: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("log server returned %s", resp.Status)
	}
	return resp.Body, nil
}

// Name identifies the source in logs.
func (s *HTTPSource) Name() string {
	return s.url
}
