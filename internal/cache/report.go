package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/miradorstack/mirador-outage/internal/models"
)

const reportKeyPrefix = "mirador-outage:report:"

// ReportCache stores analysis results keyed by input digest and tunables.
type ReportCache struct {
	provider Provider
	ttl      time.Duration
}

// NewReportCache wraps provider; a nil provider disables caching.
func NewReportCache(provider Provider, ttl time.Duration) *ReportCache {
	if provider == nil {
		provider = NoopProvider{}
	}
	return &ReportCache{provider: provider, ttl: ttl}
}

// ReportKey digests the raw lines and the tunables that influence the result.
func ReportKey(lines []string, params models.AnalysisParams) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%d|%d|%t\n", params.MinRunLength, params.WindowSize, params.ThresholdMs, params.CollapseCorrelated)
	for _, line := range lines {
		h.Write([]byte(line))
		h.Write([]byte{'\n'})
	}
	return reportKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Load returns a cached result or ErrCacheMiss.
func (c *ReportCache) Load(ctx context.Context, key string) (models.AnalysisResult, error) {
	data, err := c.provider.Get(ctx, key)
	if err != nil {
		return models.AnalysisResult{}, err
	}
	var result models.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		// A corrupt entry is dropped and treated as a miss.
		_ = c.provider.Del(ctx, key)
		return models.AnalysisResult{}, errors.Join(ErrCacheMiss, fmt.Errorf("decode cached report: %w", err))
	}
	return result, nil
}

// Store saves result under key for the configured TTL.
func (c *ReportCache) Store(ctx context.Context, key string, result models.AnalysisResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return c.provider.Set(ctx, key, data, c.ttl)
}
