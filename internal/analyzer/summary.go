// Package analyzer turns raw Breaking Point result documents into typed
// summaries, comparisons, reports and charts.
package analyzer

import "encoding/json"

// MetricData holds one averaged metric.
type MetricData struct {
	Average float64 `json:"average"`
	Maximum float64 `json:"maximum"`
	Unit    string  `json:"unit"`
}

// StrikeMetrics holds security test outcomes.
type StrikeMetrics struct {
	Attempted   int     `json:"attempted"`
	Blocked     int     `json:"blocked"`
	Allowed     int     `json:"allowed"`
	SuccessRate float64 `json:"successRate"`
}

// TransactionMetrics holds application/client simulation outcomes.
type TransactionMetrics struct {
	Attempted   int     `json:"attempted"`
	Successful  int     `json:"successful"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"successRate"`
}

// Metrics groups whatever metric families the test produced. Absent
// families stay nil.
type Metrics struct {
	Throughput   *MetricData         `json:"throughput,omitempty"`
	Latency      *MetricData         `json:"latency,omitempty"`
	Strikes      *StrikeMetrics      `json:"strikes,omitempty"`
	Transactions *TransactionMetrics `json:"transactions,omitempty"`
}

// Summary is the condensed view of one test run.
type Summary struct {
	TestID    string  `json:"testId"`
	RunID     string  `json:"runId"`
	TestName  string  `json:"testName"`
	TestType  string  `json:"testType"`
	StartTime string  `json:"startTime"`
	EndTime   string  `json:"endTime"`
	Duration  float64 `json:"duration"`
	Status    string  `json:"status"`
	Metrics   Metrics `json:"metrics"`
}

// Summarize extracts a Summary from a raw result document. Missing fields
// degrade to "Unknown"/zero; missing metric families are simply absent.
func Summarize(testID, runID string, raw map[string]any) Summary {
	s := Summary{
		TestID:    testID,
		RunID:     runID,
		TestName:  stringField(raw, "testName"),
		TestType:  stringField(raw, "testType"),
		StartTime: stringField(raw, "startTime"),
		EndTime:   stringField(raw, "endTime"),
		Duration:  floatField(raw, "duration"),
		Status:    stringField(raw, "status"),
	}

	metrics, _ := raw["metrics"].(map[string]any)
	if tp, ok := metrics["throughput"].(map[string]any); ok {
		s.Metrics.Throughput = &MetricData{
			Average: floatField(tp, "average"),
			Maximum: floatField(tp, "maximum"),
			Unit:    "mbps",
		}
	}
	if lat, ok := metrics["latency"].(map[string]any); ok {
		s.Metrics.Latency = &MetricData{
			Average: floatField(lat, "average"),
			Maximum: floatField(lat, "maximum"),
			Unit:    "ms",
		}
	}

	switch s.TestType {
	case "strike":
		if st, ok := metrics["strikes"].(map[string]any); ok {
			s.Metrics.Strikes = &StrikeMetrics{
				Attempted:   intField(st, "attempted"),
				Blocked:     intField(st, "blocked"),
				Allowed:     intField(st, "allowed"),
				SuccessRate: floatField(st, "successRate"),
			}
		}
	case "appsim", "clientsim":
		if tx, ok := metrics["transactions"].(map[string]any); ok {
			s.Metrics.Transactions = &TransactionMetrics{
				Attempted:   intField(tx, "attempted"),
				Successful:  intField(tx, "successful"),
				Failed:      intField(tx, "failed"),
				SuccessRate: floatField(tx, "successRate"),
			}
		}
	}
	return s
}

// toDoc converts a summary to a generic document for the result cache.
func (s Summary) toDoc() map[string]any {
	data, err := json.Marshal(s)
	if err != nil {
		return nil
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil
	}
	return doc
}

// summaryFromDoc restores a cached summary document.
func summaryFromDoc(doc map[string]any) (Summary, bool) {
	data, err := json.Marshal(doc)
	if err != nil {
		return Summary{}, false
	}
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return Summary{}, false
	}
	return s, s.TestID != ""
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}
	return "Unknown"
}

func floatField(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	}
	return 0
}

func intField(m map[string]any, key string) int {
	return int(floatField(m, key))
}
