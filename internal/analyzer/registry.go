package analyzer

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/minhdang/bpagent/internal/core/errs"
)

// ReportData is what report generators render.
type ReportData struct {
	Summary     Summary
	Raw         map[string]any
	GeneratedAt string
}

// ReportGenerator renders one report type. Format is "html" or "csv".
type ReportGenerator interface {
	Generate(w io.Writer, data ReportData, format string) error
}

// ChartGenerator renders one chart type as SVG.
type ChartGenerator interface {
	Generate(w io.Writer, summary Summary) error
}

// ComparisonChartGenerator is implemented by chart generators that can
// also render a two-run comparison.
type ComparisonChartGenerator interface {
	GenerateComparison(w io.Writer, a, b Summary) error
}

// Registry holds report and chart generators. It is populated by explicit
// registration calls at startup; there is no runtime plugin discovery.
type Registry struct {
	mu      sync.RWMutex
	reports map[string]ReportGenerator
	charts  map[string]ChartGenerator
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		reports: make(map[string]ReportGenerator),
		charts:  make(map[string]ChartGenerator),
	}
}

// RegisterReport adds a report generator. Duplicate names are a plugin error.
func (r *Registry) RegisterReport(name string, gen ReportGenerator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.reports[name]; exists {
		return errs.Plugin(fmt.Sprintf("report generator %q already registered", name), "report", name)
	}
	r.reports[name] = gen
	return nil
}

// RegisterChart adds a chart generator. Duplicate names are a plugin error.
func (r *Registry) RegisterChart(name string, gen ChartGenerator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.charts[name]; exists {
		return errs.Plugin(fmt.Sprintf("chart generator %q already registered", name), "chart", name)
	}
	r.charts[name] = gen
	return nil
}

// Report looks up a report generator by name.
func (r *Registry) Report(name string) (ReportGenerator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	gen, ok := r.reports[name]
	if !ok {
		return nil, errs.Plugin(fmt.Sprintf("no report generator %q", name), "report", name)
	}
	return gen, nil
}

// Chart looks up a chart generator by name.
func (r *Registry) Chart(name string) (ChartGenerator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	gen, ok := r.charts[name]
	if !ok {
		return nil, errs.Plugin(fmt.Sprintf("no chart generator %q", name), "chart", name)
	}
	return gen, nil
}

// ReportNames lists registered report generators, sorted.
func (r *Registry) ReportNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.reports))
	for name := range r.reports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ChartNames lists registered chart generators, sorted.
func (r *Registry) ChartNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.charts))
	for name := range r.charts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
