package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/miradorstack/mirador-outage/internal/config"
	"github.com/miradorstack/mirador-outage/internal/engine"
	"github.com/miradorstack/mirador-outage/internal/models"
	"github.com/miradorstack/mirador-outage/internal/report"
	"github.com/miradorstack/mirador-outage/internal/repo"
	"github.com/miradorstack/mirador-outage/internal/utils"
)

type analyzeOptions struct {
	file         string
	url          string
	output       string
	minRunLength int
	windowSize   int
	thresholdMs  int64
	overload     string
	collapse     bool
	workers      int
}

func newAnalyzeCommand(configPath *string) *cobra.Command {
	var opts analyzeOptions

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyse a health-check log and print the outage report",
		Example: "  outage-analyzer analyze --file checks.log\n" +
			"  cat checks.log | outage-analyzer analyze --file - --overload 10,180000\n" +
			"  outage-analyzer analyze --url https://logs.example.com/checks.log --min-run-length 3",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			params, err := opts.params(cmd.Flags(), cfg.Analysis)
			if err != nil {
				return err
			}
			source, err := opts.source(cmd, cfg)
			if err != nil {
				return err
			}
			logger := utils.NewLogger(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.JSON)
			return runAnalyze(cmd, logger, source, params, opts.output)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", `Log file to analyse ("-" reads stdin)`)
	cmd.Flags().StringVar(&opts.url, "url", "", "Fetch the log over HTTP(S) instead of reading a file")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write the report to this path instead of stdout")
	cmd.Flags().IntVar(&opts.minRunLength, "min-run-length", models.DefaultMinRunLength, "Minimum consecutive unreachable checks for a downtime interval")
	cmd.Flags().IntVar(&opts.windowSize, "window-size", models.DefaultWindowSize, "Number of numeric readings in the overload window")
	cmd.Flags().Int64Var(&opts.thresholdMs, "threshold-ms", models.DefaultThresholdMs, "Window mean response time (ms) that counts as overload")
	cmd.Flags().StringVar(&opts.overload, "overload", "", "Overload tunables as WINDOW,THRESHOLD_MS")
	cmd.Flags().BoolVar(&opts.collapse, "collapse-correlated", false, "Drop consecutive identical correlated outage emissions")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Hosts analysed in parallel (0 means GOMAXPROCS)")

	return cmd
}

// params overlays explicitly set flags on the configured tunables.
func (o analyzeOptions) params(flags *pflag.FlagSet, base models.AnalysisParams) (models.AnalysisParams, error) {
	params := base
	if flags.Changed("overload") {
		if flags.Changed("window-size") || flags.Changed("threshold-ms") {
			return params, fmt.Errorf("%w: --overload cannot be combined with --window-size or --threshold-ms", utils.ErrInvalidConfiguration)
		}
		window, threshold, err := parseOverload(o.overload)
		if err != nil {
			return params, err
		}
		params.WindowSize = window
		params.ThresholdMs = threshold
	}
	if flags.Changed("min-run-length") {
		params.MinRunLength = o.minRunLength
	}
	if flags.Changed("window-size") {
		params.WindowSize = o.windowSize
	}
	if flags.Changed("threshold-ms") {
		params.ThresholdMs = o.thresholdMs
	}
	if flags.Changed("collapse-correlated") {
		params.CollapseCorrelated = o.collapse
	}
	if flags.Changed("workers") {
		params.Workers = o.workers
	}
	return params, params.Validate()
}

// parseOverload reads "M,T" into a window size and threshold.
func parseOverload(value string) (int, int64, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: --overload expects WINDOW,THRESHOLD_MS, got %q", utils.ErrInvalidConfiguration, value)
	}
	window, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: overload window %q: %v", utils.ErrInvalidConfiguration, parts[0], err)
	}
	threshold, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: overload threshold %q: %v", utils.ErrInvalidConfiguration, parts[1], err)
	}
	return window, threshold, nil
}

func (o analyzeOptions) source(cmd *cobra.Command, cfg *config.Config) (repo.LineSource, error) {
	switch {
	case o.file != "" && o.url != "":
		return nil, errors.New("use either --file or --url, not both")
	case o.url != "":
		return repo.NewHTTPSource(o.url, cfg.Source.HTTPTimeout), nil
	case o.file != "":
		return &repo.FileSource{Path: o.file, Stdin: cmd.InOrStdin()}, nil
	default:
		return nil, errors.New("one of --file or --url is required")
	}
}

func runAnalyze(cmd *cobra.Command, logger *slog.Logger, source repo.LineSource, params models.AnalysisParams, output string) error {
	ctx := cmd.Context()

	// Reject tunables before touching the source.
	if err := params.Validate(); err != nil {
		return err
	}

	rc, err := source.Open(ctx)
	if err != nil {
		return err
	}
	defer rc.Close()

	pipeline := engine.NewPipeline(logger, nil, nil)
	result, err := pipeline.Run(ctx, rc, params)
	if err != nil {
		return err
	}

	destination := "stdout"
	if output == "" {
		if err := report.Write(cmd.OutOrStdout(), result); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	} else {
		if err := writeReportFile(output, result); err != nil {
			return err
		}
		destination = output
	}

	logger.Info("report written",
		slog.String("source", source.Name()),
		slog.String("destination", destination),
		slog.String("records", humanize.Comma(int64(result.Records))),
		slog.String("hosts", humanize.Comma(int64(result.Hosts))),
		slog.Int("downtime", len(result.Downtime)),
		slog.Int("overload", len(result.Overload)),
		slog.Int("correlated_outage", len(result.CorrelatedOutage)))
	return nil
}

// writeReportFile writes the report to path.
func writeReportFile(path string, result models.AnalysisResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	return writeAndClose(f, result)
}

// writeAndClose owns w; a failed close is a failed write.
func writeAndClose(w io.WriteCloser, result models.AnalysisResult) error {
	if err := report.Write(w, result); err != nil {
		_ = w.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close report file: %w", err)
	}
	return nil
}
