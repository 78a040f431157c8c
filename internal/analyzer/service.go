package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/minhdang/bpagent/internal/cache"
	"github.com/minhdang/bpagent/internal/core/config"
	"github.com/minhdang/bpagent/internal/core/errs"
)

// ResultsAPI is the slice of the API client the analyzer needs.
type ResultsAPI interface {
	GetTestResults(ctx context.Context, testID, runID string, useCache bool) (map[string]any, error)
}

// RunKey identifies one test run.
type RunKey struct {
	TestID string
	RunID  string
}

// BatchSummary pairs a run with its summarization outcome.
type BatchSummary struct {
	Run     RunKey
	Summary Summary
	Err     error
}

// summarySuffix derives the cache sub-id for derived summaries, keeping
// them distinct from the raw result entry of the same run.
const summarySuffix = "_summary"

// Service orchestrates summarization, comparison and rendering.
type Service struct {
	api      ResultsAPI
	cache    *cache.Store
	registry *Registry
	cfg      config.AnalyzerConfig
	log      *slog.Logger
}

// NewService wires the analyzer. The store may be a disabled cache.
func NewService(api ResultsAPI, store *cache.Store, registry *Registry, cfg config.AnalyzerConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{api: api, cache: store, registry: registry, cfg: cfg, log: logger}
}

// Summary returns the condensed view of a run, consulting the summary
// cache before fetching and summarizing raw results.
func (s *Service) Summary(ctx context.Context, testID, runID string, useCache bool) (Summary, error) {
	if useCache {
		if doc, ok := s.cache.Get(testID, runID+summarySuffix); ok {
			if cached, ok := summaryFromDoc(doc); ok {
				s.log.Debug("using cached summary", "test_id", testID, "run_id", runID)
				return cached, nil
			}
		}
	}

	raw, err := s.api.GetTestResults(ctx, testID, runID, useCache)
	if err != nil {
		return Summary{}, err
	}

	summary := Summarize(testID, runID, raw)
	if useCache {
		s.cache.Set(testID, runID+summarySuffix, summary.toDoc())
	}
	return summary, nil
}

// CompareRuns summarizes both runs and diffs them.
func (s *Service) CompareRuns(ctx context.Context, a, b RunKey, useCache bool) (Comparison, error) {
	sa, err := s.Summary(ctx, a.TestID, a.RunID, useCache)
	if err != nil {
		return Comparison{}, err
	}
	sb, err := s.Summary(ctx, b.TestID, b.RunID, useCache)
	if err != nil {
		return Comparison{}, err
	}
	return Compare(sa, sb), nil
}

// GenerateReport renders one report to outputDir and returns its path.
func (s *Service) GenerateReport(ctx context.Context, testID, runID, reportType, format, outputDir string) (path string, err error) {
	scope := errs.Scope{
		Details: map[string]any{
			"test_id":     testID,
			"run_id":      runID,
			"report_type": reportType,
			"format":      format,
		},
		Kind:   errs.KindReport,
		Code:   errs.CodeReport,
		Logger: s.log,
	}
	defer func() { err = scope.Wrap(err) }()

	if format != "html" && format != "csv" {
		return "", errs.Validation(fmt.Sprintf("unsupported output format %q", format),
			map[string]string{"format": "must be html or csv"})
	}

	gen, err := s.registry.Report(reportType)
	if err != nil {
		return "", err
	}

	summary, err := s.Summary(ctx, testID, runID, true)
	if err != nil {
		return "", err
	}
	raw, err := s.api.GetTestResults(ctx, testID, runID, true)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", errs.Report(fmt.Sprintf("create output dir: %v", err), reportType, format)
	}
	path = filepath.Join(outputDir, fmt.Sprintf("report_%s_%s_%s.%s", testID, runID, reportType, format))

	data := ReportData{
		Summary:     summary,
		Raw:         raw,
		GeneratedAt: time.Now().Format(time.RFC1123),
	}
	if err := s.renderFile(path, func(f *os.File) error { return gen.Generate(f, data, format) }); err != nil {
		return "", err
	}

	s.log.Info("report generated", "path", path, "type", reportType, "format", format)
	return path, nil
}

// GenerateCharts renders every applicable chart for a run and returns
// their paths.
func (s *Service) GenerateCharts(ctx context.Context, testID, runID, outputDir string) ([]string, error) {
	summary, err := s.Summary(ctx, testID, runID, true)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, errs.Chart(fmt.Sprintf("create output dir: %v", err), "")
	}

	var paths []string
	for _, name := range s.registry.ChartNames() {
		gen, err := s.registry.Chart(name)
		if err != nil {
			return nil, err
		}
		if app, ok := gen.(interface{ Applicable(Summary) bool }); ok && !app.Applicable(summary) {
			continue
		}

		path := filepath.Join(outputDir, fmt.Sprintf("%s_%s_%s.svg", testID, runID, name))
		if err := s.renderFile(path, func(f *os.File) error { return gen.Generate(f, summary) }); err != nil {
			return nil, errs.Chart(fmt.Sprintf("render %s chart: %v", name, err), name)
		}
		paths = append(paths, path)
	}

	s.log.Info("charts generated", "count", len(paths), "test_id", testID, "run_id", runID)
	return paths, nil
}

// CompareChart renders a two-run comparison chart and returns its path.
func (s *Service) CompareChart(ctx context.Context, a, b RunKey, chartType, outputDir string) (string, error) {
	gen, err := s.registry.Chart(chartType)
	if err != nil {
		return "", err
	}
	cmpGen, ok := gen.(ComparisonChartGenerator)
	if !ok {
		return "", errs.Chart(fmt.Sprintf("chart type %q does not support comparison", chartType), chartType)
	}

	sa, err := s.Summary(ctx, a.TestID, a.RunID, true)
	if err != nil {
		return "", err
	}
	sb, err := s.Summary(ctx, b.TestID, b.RunID, true)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", errs.Chart(fmt.Sprintf("create output dir: %v", err), chartType)
	}
	path := filepath.Join(outputDir, fmt.Sprintf("compare_%s_%s_vs_%s_%s_%s.svg",
		a.TestID, a.RunID, b.TestID, b.RunID, chartType))

	if err := s.renderFile(path, func(f *os.File) error { return cmpGen.GenerateComparison(f, sa, sb) }); err != nil {
		return "", errs.Chart(fmt.Sprintf("render comparison chart: %v", err), chartType)
	}
	return path, nil
}

// BatchSummaries summarizes many runs concurrently. Output order matches
// input order; individual failures do not abort siblings.
func (s *Service) BatchSummaries(ctx context.Context, runs []RunKey, useCache bool) []BatchSummary {
	out := make([]BatchSummary, len(runs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, run := range runs {
		i, run := i, run
		g.Go(func() error {
			summary, err := s.Summary(ctx, run.TestID, run.RunID, useCache)
			out[i] = BatchSummary{Run: run, Summary: summary, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// renderFile writes one rendered artifact. The close error is checked so
// a write truncated at flush does not report success, and failed renders
// never leave a partial file behind.
func (s *Service) renderFile(path string, render func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}
