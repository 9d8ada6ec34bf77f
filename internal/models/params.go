package models

import (
	"fmt"

	"github.com/miradorstack/mirador-outage/internal/utils"
)

const (
	DefaultMinRunLength = 0
	DefaultWindowSize   = 10
	DefaultThresholdMs  = 180000
)

// AnalysisParams holds the detector tunables for a run.
type AnalysisParams struct {
	MinRunLength       int   `yaml:"minRunLength"`
	WindowSize         int   `yaml:"windowSize"`
	ThresholdMs        int64 `yaml:"thresholdMs"`
	CollapseCorrelated bool  `yaml:"collapseCorrelated"`
	// Workers bounds per-host fan-out; zero or less means GOMAXPROCS.
	Workers int `yaml:"workers"`
}

// DefaultParams returns the stock tunables.
func DefaultParams() AnalysisParams {
	return AnalysisParams{
		MinRunLength: DefaultMinRunLength,
		WindowSize:   DefaultWindowSize,
		ThresholdMs:  DefaultThresholdMs,
	}
}

// Validate rejects tunables that would make a detector meaningless.
func (p AnalysisParams) Validate() error {
	if p.WindowSize <= 0 {
		return fmt.Errorf("%w: window size must be positive, got %d", utils.ErrInvalidConfiguration, p.WindowSize)
	}
	if p.MinRunLength < 0 {
		return fmt.Errorf("%w: min run length must not be negative, got %d", utils.ErrInvalidConfiguration, p.MinRunLength)
	}
	if p.ThresholdMs < 0 {
		return fmt.Errorf("%w: threshold must not be negative, got %d", utils.ErrInvalidConfiguration, p.ThresholdMs)
	}
	return nil
}
