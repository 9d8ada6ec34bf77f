package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/miradorstack/mirador-outage/internal/extractors"
	"github.com/miradorstack/mirador-outage/internal/metrics"
	"github.com/miradorstack/mirador-outage/internal/models"
	"github.com/miradorstack/mirador-outage/internal/repo"
	"github.com/miradorstack/mirador-outage/internal/utils"
)

// Pipeline runs per-host detection followed by subnet correlation.
type Pipeline struct {
	logger           *slog.Logger
	downtimeDetector *extractors.DowntimeDetector
	overloadDetector *extractors.OverloadDetector
}

// NewPipeline constructs a new analysis pipeline.
func NewPipeline(
	logger *slog.Logger,
	downtimeDetector *extractors.DowntimeDetector,
	overloadDetector *extractors.OverloadDetector,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if downtimeDetector == nil {
		downtimeDetector = extractors.NewDowntimeDetector()
	}
	if overloadDetector == nil {
		overloadDetector = extractors.NewOverloadDetector()
	}

	return &Pipeline{
		logger:           logger,
		downtimeDetector: downtimeDetector,
		overloadDetector: overloadDetector,
	}
}

// Run validates params, ingests r and analyses the resulting store.
func (p *Pipeline) Run(ctx context.Context, r io.Reader, params models.AnalysisParams) (models.AnalysisResult, error) {
	return p.observe(ctx, params, func() (*repo.LogStore, error) { return repo.Ingest(r) })
}

// RunLines is Run over lines already held in memory, as received over gRPC.
func (p *Pipeline) RunLines(ctx context.Context, lines []string, params models.AnalysisParams) (models.AnalysisResult, error) {
	return p.observe(ctx, params, func() (*repo.LogStore, error) { return repo.IngestLines(lines) })
}

func (p *Pipeline) observe(ctx context.Context, params models.AnalysisParams, ingest func() (*repo.LogStore, error)) (models.AnalysisResult, error) {
	start := time.Now()
	result, err := p.run(ctx, params, ingest)
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
	}
	metrics.ObserveAnalysis(time.Since(start), outcome)
	return result, err
}

func (p *Pipeline) run(ctx context.Context, params models.AnalysisParams, ingest func() (*repo.LogStore, error)) (models.AnalysisResult, error) {
	if err := params.Validate(); err != nil {
		return models.AnalysisResult{}, utils.NewAppError("analyze", "rejected parameters", err)
	}

	store, err := ingest()
	if err != nil {
		return models.AnalysisResult{}, utils.NewAppError("ingest", "log rejected", err)
	}
	metrics.AddRecords(store.Records())

	return p.Analyze(ctx, store, params)
}

// hostFindings holds one host's detector output.
type hostFindings struct {
	downtime []models.Interval
	overload []models.Interval
}

// Analyze runs the detectors over every host of store, then correlates downtime by subnet.
func (p *Pipeline) Analyze(ctx context.Context, store *repo.LogStore, params models.AnalysisParams) (models.AnalysisResult, error) {
	if err := params.Validate(); err != nil {
		return models.AnalysisResult{}, utils.NewAppError("analyze", "rejected parameters", err)
	}
	if store == nil {
		return models.AnalysisResult{}, fmt.Errorf("log store not provided")
	}

	logs := store.Logs()
	findings := make([]hostFindings, len(logs))

	workers := params.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, log := range logs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			findings[i] = hostFindings{
				downtime: p.downtimeDetector.Detect(log, params.MinRunLength),
				overload: p.overloadDetector.Detect(log, params.WindowSize, params.ThresholdMs),
			}
			p.logger.Debug("host analysed",
				slog.String("address", log.Address),
				slog.Int("records", len(log.Records)),
				slog.Int("downtime", len(findings[i].downtime)),
				slog.Int("overload", len(findings[i].overload)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.AnalysisResult{}, fmt.Errorf("host analysis: %w", err)
	}

	result := models.AnalysisResult{
		Downtime:         make([]models.Interval, 0),
		Overload:         make([]models.Interval, 0),
		CorrelatedOutage: make([]models.Interval, 0),
		Hosts:            len(logs),
		Records:          store.Records(),
	}
	for _, f := range findings {
		result.Downtime = append(result.Downtime, f.downtime...)
		result.Overload = append(result.Overload, f.overload...)
	}

	correlator := NewSubnetCorrelator(p.logger, params.CollapseCorrelated)
	result.CorrelatedOutage = correlator.Correlate(result.Downtime)

	metrics.AddIntervals(metrics.KindDowntime, len(result.Downtime))
	metrics.AddIntervals(metrics.KindOverload, len(result.Overload))
	metrics.AddIntervals(metrics.KindCorrelatedOutage, len(result.CorrelatedOutage))

	p.logger.Info("analysis complete",
		slog.Int("hosts", result.Hosts),
		slog.Int("records", result.Records),
		slog.Int("downtime", len(result.Downtime)),
		slog.Int("overload", len(result.Overload)),
		slog.Int("correlated_outage", len(result.CorrelatedOutage)),
		slog.Float64("closed_downtime_minutes", closedMinutes(result.Downtime)))

	return result, nil
}

func closedMinutes(intervals []models.Interval) float64 {
	total := 0.0
	for _, interval := range intervals {
		if interval.Unterminated {
			continue
		}
		total += utils.DurationMinutes(interval.Start, interval.End)
	}
	return total
}
