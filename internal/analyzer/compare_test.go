package analyzer

import (
	"math"
	"testing"
)

func summaryWith(testID, runID string, throughputAvg float64, strikeRate float64) Summary {
	return Summary{
		TestID:   testID,
		RunID:    runID,
		TestName: "name-" + testID,
		Metrics: Metrics{
			Throughput: &MetricData{Average: throughputAvg, Maximum: throughputAvg * 1.1, Unit: "mbps"},
			Strikes:    &StrikeMetrics{SuccessRate: strikeRate},
		},
	}
}

func TestCompareMetricDiffs(t *testing.T) {
	a := summaryWith("t1", "r1", 800, 90)
	b := summaryWith("t2", "r2", 1000, 95)

	cmp := Compare(a, b)

	if cmp.Test1.TestID != "t1" || cmp.Test2.TestID != "t2" {
		t.Errorf("unexpected run refs: %+v %+v", cmp.Test1, cmp.Test2)
	}

	tp := cmp.Throughput
	if tp == nil {
		t.Fatal("expected throughput diff")
	}
	if tp.Difference != 200 {
		t.Errorf("expected diff 200, got %v", tp.Difference)
	}
	if math.Abs(tp.Percentage-25) > 1e-9 {
		t.Errorf("expected 25%%, got %v", tp.Percentage)
	}

	st := cmp.Strikes
	if st == nil {
		t.Fatal("expected strike rate diff")
	}
	if st.Difference != 5 {
		t.Errorf("expected rate diff 5, got %v", st.Difference)
	}
}

func TestCompareSkipsMissingFamilies(t *testing.T) {
	a := Summary{TestID: "t1", RunID: "r1"}
	b := summaryWith("t2", "r2", 1000, 95)

	cmp := Compare(a, b)
	if cmp.Throughput != nil || cmp.Latency != nil || cmp.Strikes != nil || cmp.Transactions != nil {
		t.Errorf("diffs require the family on both sides: %+v", cmp)
	}
}

func TestCompareZeroBaselineAvoidsDivision(t *testing.T) {
	a := Summary{Metrics: Metrics{Throughput: &MetricData{Average: 0}}}
	b := Summary{Metrics: Metrics{Throughput: &MetricData{Average: 100}}}

	cmp := Compare(a, b)
	if cmp.Throughput.Percentage != 0 {
		t.Errorf("zero baseline must yield zero percentage, got %v", cmp.Throughput.Percentage)
	}
	if cmp.Throughput.Difference != 100 {
		t.Errorf("expected diff 100, got %v", cmp.Throughput.Difference)
	}
}
