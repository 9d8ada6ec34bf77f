package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-outage/internal/api"
	"github.com/miradorstack/mirador-outage/internal/cache"
	"github.com/miradorstack/mirador-outage/internal/engine"
	"github.com/miradorstack/mirador-outage/internal/metrics"
	"github.com/miradorstack/mirador-outage/internal/models"
	"github.com/miradorstack/mirador-outage/internal/utils"
)

// AnalysisService implements the gRPC Analyzer service.
type AnalysisService struct {
	api.UnimplementedAnalyzerServer

	logger   *slog.Logger
	pipeline *engine.Pipeline
	reports  *cache.ReportCache
	defaults models.AnalysisParams
	newID    func() string
}

// NewAnalysisService constructs the Analyzer facade. Request tunables that are
// omitted fall back to defaults.
func NewAnalysisService(logger *slog.Logger, pipeline *engine.Pipeline, reports *cache.ReportCache, defaults models.AnalysisParams) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	if pipeline == nil {
		pipeline = engine.NewPipeline(logger, nil, nil)
	}
	if reports == nil {
		reports = cache.NewReportCache(nil, 0)
	}
	return &AnalysisService{
		logger:   logger,
		pipeline: pipeline,
		reports:  reports,
		defaults: defaults,
		newID:    uuid.NewString,
	}
}

// Analyze runs the detectors over the submitted lines, serving repeated
// submissions from the report cache.
func (s *AnalysisService) Analyze(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	domainReq, err := api.FromStructRequest(req, s.defaults)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	analysisID := s.newID()
	logger := s.logger.With(slog.String("analysis_id", analysisID))
	logger.Debug("Analyze called", slog.Int("lines", len(domainReq.Lines)))

	key := cache.ReportKey(domainReq.Lines, domainReq.Params)
	cached, err := s.reports.Load(ctx, key)
	switch {
	case err == nil:
		metrics.ObserveCacheLookup(true)
		return s.respond(analysisID, cached, true)
	case !errors.Is(err, cache.ErrCacheMiss):
		logger.Warn("report cache lookup failed", slog.Any("error", err))
	}
	metrics.ObserveCacheLookup(false)

	result, err := s.pipeline.RunLines(ctx, domainReq.Lines, domainReq.Params)
	if err != nil {
		return nil, toStatus(logger, err)
	}

	if err := s.reports.Store(ctx, key, result); err != nil {
		logger.Warn("report cache store failed", slog.Any("error", err))
	}
	return s.respond(analysisID, result, false)
}

func (s *AnalysisService) respond(analysisID string, result models.AnalysisResult, cached bool) (*structpb.Struct, error) {
	resp, err := api.ToStructResult(analysisID, result, cached)
	if err != nil {
		s.logger.Error("encode analysis response", slog.Any("error", err))
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	return resp, nil
}

func toStatus(logger *slog.Logger, err error) error {
	switch {
	case utils.IsClientError(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		logger.Error("analysis failed", slog.Any("error", err))
		return status.Error(codes.Internal, "analysis failed")
	}
}
