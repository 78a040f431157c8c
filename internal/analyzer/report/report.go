// Package report holds the built-in report generators. Each generator
// renders one report type to HTML or CSV; RegisterAll wires them into a
// registry at startup.
package report

import (
	"encoding/csv"
	"fmt"
	"html/template"
	"io"
	"sort"
	"strconv"

	"github.com/minhdang/bpagent/internal/analyzer"
	"github.com/minhdang/bpagent/internal/core/errs"
)

// RegisterAll registers every built-in report generator.
func RegisterAll(r *analyzer.Registry) error {
	gens := map[string]analyzer.ReportGenerator{
		"standard":   &Standard{},
		"executive":  &Executive{},
		"detailed":   &Detailed{},
		"compliance": &Compliance{},
	}
	for name, gen := range gens {
		if err := r.RegisterReport(name, gen); err != nil {
			return err
		}
	}
	return nil
}

// pageData is what the shared HTML skeleton renders.
type pageData struct {
	Title       string
	Summary     analyzer.Summary
	GeneratedAt string
	Sections    []section
}

type section struct {
	Heading string
	Rows    []row
}

type row struct {
	Label string
	Value string
}

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; margin: 2em; color: #222; }
h1 { border-bottom: 2px solid #336; padding-bottom: 0.3em; }
h2 { color: #336; margin-top: 1.5em; }
table { border-collapse: collapse; min-width: 24em; }
td, th { border: 1px solid #ccc; padding: 0.4em 0.8em; text-align: left; }
tr:nth-child(even) { background: #f5f5f8; }
.footer { margin-top: 2em; font-size: 0.8em; color: #888; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p>Test: <strong>{{.Summary.TestName}}</strong> ({{.Summary.TestType}})
&mdash; run {{.Summary.RunID}} of test {{.Summary.TestID}}</p>
{{range .Sections}}
<h2>{{.Heading}}</h2>
<table>
{{range .Rows}}<tr><td>{{.Label}}</td><td>{{.Value}}</td></tr>
{{end}}</table>
{{end}}
<p class="footer">Generated {{.GeneratedAt}}</p>
</body>
</html>
`))

func renderPage(w io.Writer, data pageData) error {
	if err := pageTmpl.Execute(w, data); err != nil {
		return errs.Report(fmt.Sprintf("render html: %v", err), data.Title, "html")
	}
	return nil
}

func renderCSV(w io.Writer, sections []section) error {
	cw := csv.NewWriter(w)
	for _, sec := range sections {
		if err := cw.Write([]string{sec.Heading, ""}); err != nil {
			return err
		}
		for _, r := range sec.Rows {
			if err := cw.Write([]string{r.Label, r.Value}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func f2(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

// overviewSection builds the run facts every report type shares.
func overviewSection(s analyzer.Summary) section {
	return section{
		Heading: "Run Overview",
		Rows: []row{
			{"Test name", s.TestName},
			{"Test type", s.TestType},
			{"Status", s.Status},
			{"Start time", s.StartTime},
			{"End time", s.EndTime},
			{"Duration (s)", f2(s.Duration)},
		},
	}
}

// metricsSection lists whichever metric families the run produced.
func metricsSection(s analyzer.Summary) section {
	sec := section{Heading: "Metrics"}
	if tp := s.Metrics.Throughput; tp != nil {
		sec.Rows = append(sec.Rows,
			row{"Throughput average", f2(tp.Average) + " " + tp.Unit},
			row{"Throughput maximum", f2(tp.Maximum) + " " + tp.Unit},
		)
	}
	if lat := s.Metrics.Latency; lat != nil {
		sec.Rows = append(sec.Rows,
			row{"Latency average", f2(lat.Average) + " " + lat.Unit},
			row{"Latency maximum", f2(lat.Maximum) + " " + lat.Unit},
		)
	}
	if st := s.Metrics.Strikes; st != nil {
		sec.Rows = append(sec.Rows,
			row{"Strikes attempted", strconv.Itoa(st.Attempted)},
			row{"Strikes blocked", strconv.Itoa(st.Blocked)},
			row{"Strikes allowed", strconv.Itoa(st.Allowed)},
			row{"Block rate (%)", f2(st.SuccessRate)},
		)
	}
	if tx := s.Metrics.Transactions; tx != nil {
		sec.Rows = append(sec.Rows,
			row{"Transactions attempted", strconv.Itoa(tx.Attempted)},
			row{"Transactions successful", strconv.Itoa(tx.Successful)},
			row{"Transactions failed", strconv.Itoa(tx.Failed)},
			row{"Success rate (%)", f2(tx.SuccessRate)},
		)
	}
	if len(sec.Rows) == 0 {
		sec.Rows = append(sec.Rows, row{"Metrics", "none reported"})
	}
	return sec
}

// Standard is the default report: overview plus metrics.
type Standard struct{}

func (Standard) Generate(w io.Writer, data analyzer.ReportData, format string) error {
	sections := []section{overviewSection(data.Summary), metricsSection(data.Summary)}
	if format == "csv" {
		return renderCSV(w, sections)
	}
	return renderPage(w, pageData{
		Title:       "Test Report",
		Summary:     data.Summary,
		GeneratedAt: data.GeneratedAt,
		Sections:    sections,
	})
}

// Executive condenses the run to a verdict and headline numbers.
type Executive struct{}

func (Executive) Generate(w io.Writer, data analyzer.ReportData, format string) error {
	s := data.Summary
	sec := section{
		Heading: "Key Findings",
		Rows: []row{
			{"Test", s.TestName},
			{"Outcome", s.Status},
			{"Duration (s)", f2(s.Duration)},
		},
	}
	if tp := s.Metrics.Throughput; tp != nil {
		sec.Rows = append(sec.Rows, row{"Peak throughput", f2(tp.Maximum) + " " + tp.Unit})
	}
	if st := s.Metrics.Strikes; st != nil {
		sec.Rows = append(sec.Rows, row{"Strikes blocked (%)", f2(st.SuccessRate)})
	}
	if tx := s.Metrics.Transactions; tx != nil {
		sec.Rows = append(sec.Rows, row{"Transaction success (%)", f2(tx.SuccessRate)})
	}
	sections := []section{sec}
	if format == "csv" {
		return renderCSV(w, sections)
	}
	return renderPage(w, pageData{
		Title:       "Executive Summary",
		Summary:     s,
		GeneratedAt: data.GeneratedAt,
		Sections:    sections,
	})
}

// Detailed adds the raw result fields after the standard sections.
type Detailed struct{}

func (Detailed) Generate(w io.Writer, data analyzer.ReportData, format string) error {
	sections := []section{overviewSection(data.Summary), metricsSection(data.Summary), rawSection(data.Raw)}
	if format == "csv" {
		return renderCSV(w, sections)
	}
	return renderPage(w, pageData{
		Title:       "Detailed Test Report",
		Summary:     data.Summary,
		GeneratedAt: data.GeneratedAt,
		Sections:    sections,
	})
}

func rawSection(raw map[string]any) section {
	sec := section{Heading: "Raw Result Fields"}
	for _, key := range sortedKeys(raw) {
		if key == "metrics" {
			continue
		}
		sec.Rows = append(sec.Rows, row{key, fmt.Sprintf("%v", raw[key])})
	}
	if len(sec.Rows) == 0 {
		sec.Rows = append(sec.Rows, row{"Raw data", "empty"})
	}
	return sec
}

// Compliance frames security outcomes as pass/fail checks.
type Compliance struct{}

// complianceBlockRate is the minimum strike block rate treated as passing.
const complianceBlockRate = 95.0

func (Compliance) Generate(w io.Writer, data analyzer.ReportData, format string) error {
	s := data.Summary
	sec := section{
		Heading: "Compliance Checks",
		Rows: []row{
			{"Run completed", passFail(s.Status == "completed" || s.Status == "passed")},
		},
	}
	if st := s.Metrics.Strikes; st != nil {
		sec.Rows = append(sec.Rows,
			row{"Strike block rate (%)", f2(st.SuccessRate)},
			row{fmt.Sprintf("Block rate >= %.0f%%", complianceBlockRate), passFail(st.SuccessRate >= complianceBlockRate)},
			row{"Strikes allowed through", strconv.Itoa(st.Allowed)},
		)
	} else {
		sec.Rows = append(sec.Rows, row{"Strike metrics", "not reported for this test type"})
	}
	sections := []section{overviewSection(s), sec}
	if format == "csv" {
		return renderCSV(w, sections)
	}
	return renderPage(w, pageData{
		Title:       "Compliance Report",
		Summary:     s,
		GeneratedAt: data.GeneratedAt,
		Sections:    sections,
	})
}

func passFail(ok bool) string {
	if ok {
		return "PASS"
	}
	return "FAIL"
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
