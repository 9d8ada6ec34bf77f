package api

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-outage/internal/models"
	"github.com/miradorstack/mirador-outage/internal/report"
	"github.com/miradorstack/mirador-outage/internal/utils"
)

// Request and response keys of the Analyze RPC.
const (
	KeyLines              = "lines"
	KeyMinRunLength       = "min_run_length"
	KeyWindowSize         = "window_size"
	KeyThresholdMs        = "threshold_ms"
	KeyCollapseCorrelated = "collapse_correlated"

	KeyAnalysisID       = "analysis_id"
	KeyHosts            = "hosts"
	KeyRecords          = "records"
	KeyDowntime         = "downtime"
	KeyOverload         = "overload"
	KeyCorrelatedOutage = "correlated_outage"
	KeyReport           = "report"
	KeyCached           = "cached"
)

// AnalyzeRequest is the domain form of an Analyze call.
type AnalyzeRequest struct {
	Lines  []string
	Params models.AnalysisParams
}

// FromStructRequest maps the gRPC payload onto an AnalyzeRequest. Tunables
// absent from req keep the values in defaults.
func FromStructRequest(req *structpb.Struct, defaults models.AnalysisParams) (AnalyzeRequest, error) {
	if req == nil {
		return AnalyzeRequest{}, fmt.Errorf("%w: request is nil", utils.ErrInvalidRequest)
	}

	out := AnalyzeRequest{Params: defaults}
	for key, value := range req.GetFields() {
		switch key {
		case KeyLines:
			lines, err := stringList(key, value)
			if err != nil {
				return AnalyzeRequest{}, err
			}
			out.Lines = lines
		case KeyMinRunLength:
			n, err := integer(key, value)
			if err != nil {
				return AnalyzeRequest{}, err
			}
			out.Params.MinRunLength = int(n)
		case KeyWindowSize:
			n, err := integer(key, value)
			if err != nil {
				return AnalyzeRequest{}, err
			}
			out.Params.WindowSize = int(n)
		case KeyThresholdMs:
			n, err := integer(key, value)
			if err != nil {
				return AnalyzeRequest{}, err
			}
			out.Params.ThresholdMs = n
		case KeyCollapseCorrelated:
			b, ok := value.GetKind().(*structpb.Value_BoolValue)
			if !ok {
				return AnalyzeRequest{}, fmt.Errorf("%w: %s must be a bool", utils.ErrInvalidRequest, key)
			}
			out.Params.CollapseCorrelated = b.BoolValue
		default:
			return AnalyzeRequest{}, fmt.Errorf("%w: unknown field %q", utils.ErrInvalidRequest, key)
		}
	}
	return out, nil
}

func stringList(key string, value *structpb.Value) ([]string, error) {
	list := value.GetListValue()
	if list == nil {
		return nil, fmt.Errorf("%w: %s must be a list of strings", utils.ErrInvalidRequest, key)
	}
	lines := make([]string, 0, len(list.GetValues()))
	for i, item := range list.GetValues() {
		s, ok := item.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, fmt.Errorf("%w: %s[%d] is not a string", utils.ErrInvalidRequest, key, i)
		}
		lines = append(lines, s.StringValue)
	}
	return lines, nil
}

func integer(key string, value *structpb.Value) (int64, error) {
	num, ok := value.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%w: %s must be a number", utils.ErrInvalidRequest, key)
	}
	v := num.NumberValue
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) || math.Abs(v) > 1<<53 {
		return 0, fmt.Errorf("%w: %s must be an integer, got %v", utils.ErrInvalidRequest, key, v)
	}
	return int64(v), nil
}

// NewAnalyzeRequest builds the gRPC payload for lines analysed with params.
func NewAnalyzeRequest(lines []string, params models.AnalysisParams) (*structpb.Struct, error) {
	items := make([]interface{}, len(lines))
	for i, line := range lines {
		items[i] = line
	}
	return structpb.NewStruct(map[string]interface{}{
		KeyLines:              items,
		KeyMinRunLength:       params.MinRunLength,
		KeyWindowSize:         params.WindowSize,
		KeyThresholdMs:        params.ThresholdMs,
		KeyCollapseCorrelated: params.CollapseCorrelated,
	})
}

// ToStructResult converts a domain result into the gRPC response payload.
func ToStructResult(analysisID string, result models.AnalysisResult, cached bool) (*structpb.Struct, error) {
	lines := report.Lines(result)
	reportLines := make([]interface{}, len(lines))
	for i, line := range lines {
		reportLines[i] = line
	}

	return structpb.NewStruct(map[string]interface{}{
		KeyAnalysisID:       analysisID,
		KeyHosts:            result.Hosts,
		KeyRecords:          result.Records,
		KeyDowntime:         intervalList(result.Downtime),
		KeyOverload:         intervalList(result.Overload),
		KeyCorrelatedOutage: intervalList(result.CorrelatedOutage),
		KeyReport:           reportLines,
		KeyCached:           cached,
	})
}

func intervalList(intervals []models.Interval) []interface{} {
	out := make([]interface{}, 0, len(intervals))
	for _, interval := range intervals {
		end := utils.UnterminatedMarker
		if !interval.Unterminated {
			end = utils.FormatReportTime(interval.End)
		}
		out = append(out, map[string]interface{}{
			"subject":      interval.Subject,
			"start":        utils.FormatReportTime(interval.Start),
			"end":          end,
			"unterminated": interval.Unterminated,
		})
	}
	return out
}

// ReportLines extracts the rendered report from an Analyze response.
func ReportLines(resp *structpb.Struct) []string {
	values := resp.GetFields()[KeyReport].GetListValue().GetValues()
	lines := make([]string, 0, len(values))
	for _, v := range values {
		lines = append(lines, v.GetStringValue())
	}
	return lines
}
