package analyzer

// RunRef identifies one side of a comparison.
type RunRef struct {
	TestID   string `json:"testId"`
	RunID    string `json:"runId"`
	TestName string `json:"testName"`
}

// MetricDiff compares one averaged metric between two runs.
type MetricDiff struct {
	Test1      MetricData `json:"test1"`
	Test2      MetricData `json:"test2"`
	Difference float64    `json:"difference"`
	Percentage float64    `json:"percentage"`
}

// RateDiff compares a success rate between two runs.
type RateDiff struct {
	SuccessRate1 float64 `json:"successRate1"`
	SuccessRate2 float64 `json:"successRate2"`
	Difference   float64 `json:"difference"`
}

// Comparison is the result of comparing two summaries. Metric diffs are
// present only when both sides carry the metric family.
type Comparison struct {
	Test1        RunRef      `json:"test1"`
	Test2        RunRef      `json:"test2"`
	Throughput   *MetricDiff `json:"throughput,omitempty"`
	Latency      *MetricDiff `json:"latency,omitempty"`
	Strikes      *RateDiff   `json:"strikes,omitempty"`
	Transactions *RateDiff   `json:"transactions,omitempty"`
}

// Compare diffs two summaries metric by metric.
func Compare(a, b Summary) Comparison {
	cmp := Comparison{
		Test1: RunRef{TestID: a.TestID, RunID: a.RunID, TestName: a.TestName},
		Test2: RunRef{TestID: b.TestID, RunID: b.RunID, TestName: b.TestName},
	}

	cmp.Throughput = diffMetric(a.Metrics.Throughput, b.Metrics.Throughput)
	cmp.Latency = diffMetric(a.Metrics.Latency, b.Metrics.Latency)

	if a.Metrics.Strikes != nil && b.Metrics.Strikes != nil {
		cmp.Strikes = &RateDiff{
			SuccessRate1: a.Metrics.Strikes.SuccessRate,
			SuccessRate2: b.Metrics.Strikes.SuccessRate,
			Difference:   b.Metrics.Strikes.SuccessRate - a.Metrics.Strikes.SuccessRate,
		}
	}
	if a.Metrics.Transactions != nil && b.Metrics.Transactions != nil {
		cmp.Transactions = &RateDiff{
			SuccessRate1: a.Metrics.Transactions.SuccessRate,
			SuccessRate2: b.Metrics.Transactions.SuccessRate,
			Difference:   b.Metrics.Transactions.SuccessRate - a.Metrics.Transactions.SuccessRate,
		}
	}
	return cmp
}

func diffMetric(a, b *MetricData) *MetricDiff {
	if a == nil || b == nil {
		return nil
	}
	diff := b.Average - a.Average
	pct := 0.0
	if a.Average > 0 {
		pct = diff / a.Average * 100
	}
	return &MetricDiff{Test1: *a, Test2: *b, Difference: diff, Percentage: pct}
}
