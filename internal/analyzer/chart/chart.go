// Package chart holds the built-in SVG chart generators. RegisterAll
// wires them into a registry at startup.
package chart

import (
	"fmt"
	"io"
	"text/template"

	"github.com/minhdang/bpagent/internal/analyzer"
	"github.com/minhdang/bpagent/internal/core/errs"
)

// RegisterAll registers every built-in chart generator.
func RegisterAll(r *analyzer.Registry) error {
	gens := map[string]analyzer.ChartGenerator{
		"throughput":   Throughput{},
		"latency":      Latency{},
		"strikes":      Strikes{},
		"transactions": Transactions{},
	}
	for name, gen := range gens {
		if err := r.RegisterChart(name, gen); err != nil {
			return err
		}
	}
	return nil
}

type bar struct {
	Label string
	Value float64
	Color string
}

type barChart struct {
	Title    string
	Subtitle string
	Unit     string
	Bars     []bar
}

// svgBar is a bar with pixel geometry resolved.
type svgBar struct {
	Label string
	Value string
	Color string
	X     int
	Y     int
	W     int
	H     int
}

type svgDoc struct {
	Title    string
	Subtitle string
	Width    int
	Height   int
	Bars     []svgBar
}

const (
	chartWidth   = 640
	barWidth     = 80
	barGap       = 40
	plotTop      = 80
	plotBottom   = 340
	chartHeight  = 380
	minBarHeight = 2
)

var svgTmpl = template.Must(template.New("svg").Parse(`<svg xmlns="http://www.w3.org/2000/svg" width="{{.Width}}" height="{{.Height}}" viewBox="0 0 {{.Width}} {{.Height}}">
<rect width="{{.Width}}" height="{{.Height}}" fill="#ffffff"/>
<text x="20" y="30" font-family="Helvetica" font-size="20" fill="#223">{{.Title}}</text>
<text x="20" y="52" font-family="Helvetica" font-size="13" fill="#667">{{.Subtitle}}</text>
<line x1="20" y1="340" x2="620" y2="340" stroke="#99a" stroke-width="1"/>
{{range .Bars}}<rect x="{{.X}}" y="{{.Y}}" width="{{.W}}" height="{{.H}}" fill="{{.Color}}"/>
<text x="{{.X}}" y="358" font-family="Helvetica" font-size="12" fill="#334">{{.Label}}</text>
<text x="{{.X}}" y="{{.Y}}" dy="-5" font-family="Helvetica" font-size="12" fill="#334">{{.Value}}</text>
{{end}}</svg>
`))

func render(w io.Writer, c barChart) error {
	maxVal := 0.0
	for _, b := range c.Bars {
		if b.Value > maxVal {
			maxVal = b.Value
		}
	}
	if maxVal == 0 {
		maxVal = 1
	}

	doc := svgDoc{
		Title:    c.Title,
		Subtitle: c.Subtitle,
		Width:    chartWidth,
		Height:   chartHeight,
	}
	x := 60
	for _, b := range c.Bars {
		h := int(float64(plotBottom-plotTop) * b.Value / maxVal)
		if h < minBarHeight {
			h = minBarHeight
		}
		doc.Bars = append(doc.Bars, svgBar{
			Label: b.Label,
			Value: fmt.Sprintf("%.2f %s", b.Value, c.Unit),
			Color: b.Color,
			X:     x,
			Y:     plotBottom - h,
			W:     barWidth,
			H:     h,
		})
		x += barWidth + barGap
	}
	return svgTmpl.Execute(w, doc)
}

func subtitle(s analyzer.Summary) string {
	return fmt.Sprintf("%s (test %s, run %s)", s.TestName, s.TestID, s.RunID)
}

// Throughput charts average and peak throughput.
type Throughput struct{}

func (Throughput) Applicable(s analyzer.Summary) bool { return s.Metrics.Throughput != nil }

func (Throughput) Generate(w io.Writer, s analyzer.Summary) error {
	tp := s.Metrics.Throughput
	if tp == nil {
		return errs.Chart("run has no throughput metrics", "throughput")
	}
	return render(w, barChart{
		Title:    "Throughput",
		Subtitle: subtitle(s),
		Unit:     tp.Unit,
		Bars: []bar{
			{"average", tp.Average, "#4878a8"},
			{"maximum", tp.Maximum, "#28486e"},
		},
	})
}

func (Throughput) GenerateComparison(w io.Writer, a, b analyzer.Summary) error {
	if a.Metrics.Throughput == nil || b.Metrics.Throughput == nil {
		return errs.Chart("both runs must have throughput metrics", "throughput")
	}
	return render(w, barChart{
		Title:    "Throughput Comparison",
		Subtitle: fmt.Sprintf("run %s vs run %s", a.RunID, b.RunID),
		Unit:     a.Metrics.Throughput.Unit,
		Bars: []bar{
			{"run " + a.RunID + " avg", a.Metrics.Throughput.Average, "#4878a8"},
			{"run " + b.RunID + " avg", b.Metrics.Throughput.Average, "#a85848"},
			{"run " + a.RunID + " max", a.Metrics.Throughput.Maximum, "#28486e"},
			{"run " + b.RunID + " max", b.Metrics.Throughput.Maximum, "#6e3828"},
		},
	})
}

// Latency charts average and peak latency.
type Latency struct{}

func (Latency) Applicable(s analyzer.Summary) bool { return s.Metrics.Latency != nil }

func (Latency) Generate(w io.Writer, s analyzer.Summary) error {
	lat := s.Metrics.Latency
	if lat == nil {
		return errs.Chart("run has no latency metrics", "latency")
	}
	return render(w, barChart{
		Title:    "Latency",
		Subtitle: subtitle(s),
		Unit:     lat.Unit,
		Bars: []bar{
			{"average", lat.Average, "#58a878"},
			{"maximum", lat.Maximum, "#2e6e48"},
		},
	})
}

func (Latency) GenerateComparison(w io.Writer, a, b analyzer.Summary) error {
	if a.Metrics.Latency == nil || b.Metrics.Latency == nil {
		return errs.Chart("both runs must have latency metrics", "latency")
	}
	return render(w, barChart{
		Title:    "Latency Comparison",
		Subtitle: fmt.Sprintf("run %s vs run %s", a.RunID, b.RunID),
		Unit:     a.Metrics.Latency.Unit,
		Bars: []bar{
			{"run " + a.RunID + " avg", a.Metrics.Latency.Average, "#58a878"},
			{"run " + b.RunID + " avg", b.Metrics.Latency.Average, "#a85848"},
			{"run " + a.RunID + " max", a.Metrics.Latency.Maximum, "#2e6e48"},
			{"run " + b.RunID + " max", b.Metrics.Latency.Maximum, "#6e3828"},
		},
	})
}

// Strikes charts security test outcomes.
type Strikes struct{}

func (Strikes) Applicable(s analyzer.Summary) bool { return s.Metrics.Strikes != nil }

func (Strikes) Generate(w io.Writer, s analyzer.Summary) error {
	st := s.Metrics.Strikes
	if st == nil {
		return errs.Chart("run has no strike metrics", "strikes")
	}
	return render(w, barChart{
		Title:    "Strike Results",
		Subtitle: subtitle(s),
		Unit:     "strikes",
		Bars: []bar{
			{"attempted", float64(st.Attempted), "#888898"},
			{"blocked", float64(st.Blocked), "#58a878"},
			{"allowed", float64(st.Allowed), "#a85848"},
		},
	})
}

// Transactions charts application simulation outcomes.
type Transactions struct{}

func (Transactions) Applicable(s analyzer.Summary) bool { return s.Metrics.Transactions != nil }

func (Transactions) Generate(w io.Writer, s analyzer.Summary) error {
	tx := s.Metrics.Transactions
	if tx == nil {
		return errs.Chart("run has no transaction metrics", "transactions")
	}
	return render(w, barChart{
		Title:    "Transactions",
		Subtitle: subtitle(s),
		Unit:     "tx",
		Bars: []bar{
			{"attempted", float64(tx.Attempted), "#888898"},
			{"successful", float64(tx.Successful), "#58a878"},
			{"failed", float64(tx.Failed), "#a85848"},
		},
	})
}
