package bps

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"testing"
	"time"
)

// batchHandler serves results and status for any run, sleeping a random
// few milliseconds so completion order differs from request order.
func batchHandler(w http.ResponseWriter, r *http.Request) {
	time.Sleep(time.Duration(rand.Intn(5)) * time.Millisecond)

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/v1/"), "/")
	switch {
	case strings.HasSuffix(r.URL.Path, "/results"):
		if parts[1] == "bad" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status": "completed",
			"testId": parts[1],
		})
	case strings.HasSuffix(r.URL.Path, "/status"):
		json.NewEncoder(w).Encode(map[string]any{"status": "running"})
	case strings.HasSuffix(r.URL.Path, "/operations/start"):
		json.NewEncoder(w).Encode(map[string]any{"runId": "run-" + parts[1]})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestFetchResultsPreservesOrder(t *testing.T) {
	client, _ := newTestClient(t, loginHandler(batchHandler), nil)
	mustLogin(t, client)

	runs := make([]Run, 12)
	for i := range runs {
		runs[i] = Run{TestID: fmt.Sprintf("t%d", i), RunID: fmt.Sprintf("r%d", i)}
	}

	results := client.FetchResults(context.Background(), runs, false)
	if len(results) != len(runs) {
		t.Fatalf("expected %d results, got %d", len(runs), len(results))
	}
	for i, res := range results {
		if res.Run != runs[i] {
			t.Errorf("result %d out of order: got %+v", i, res.Run)
		}
		if res.Err != nil {
			t.Errorf("run %d: unexpected error %v", i, res.Err)
		}
		if res.Payload["testId"] != runs[i].TestID {
			t.Errorf("run %d: payload for wrong test: %v", i, res.Payload)
		}
	}
}

func TestFetchResultsCollectsPerRunErrors(t *testing.T) {
	client, _ := newTestClient(t, loginHandler(batchHandler), nil)
	mustLogin(t, client)

	runs := []Run{
		{TestID: "t1", RunID: "r1"},
		{TestID: "bad", RunID: "r1"},
		{TestID: "t3", RunID: "r1"},
	}
	results := client.FetchResults(context.Background(), runs, false)

	if results[0].Err != nil || results[2].Err != nil {
		t.Errorf("healthy runs should succeed: %v / %v", results[0].Err, results[2].Err)
	}
	if results[1].Err == nil {
		t.Error("expected error for bad run")
	}
}

func TestStatusesPreservesOrder(t *testing.T) {
	client, _ := newTestClient(t, loginHandler(batchHandler), nil)
	mustLogin(t, client)

	runs := []Run{{TestID: "a", RunID: "1"}, {TestID: "b", RunID: "2"}}
	results := client.Statuses(context.Background(), runs)

	for i, res := range results {
		if res.Run != runs[i] {
			t.Errorf("result %d out of order", i)
		}
		if res.Payload["status"] != "running" {
			t.Errorf("unexpected status payload: %v", res.Payload)
		}
	}
}

func TestStartTestsExtractsRunIDs(t *testing.T) {
	client, _ := newTestClient(t, loginHandler(batchHandler), nil)
	mustLogin(t, client)

	results := client.StartTests(context.Background(), []string{"t1", "t2"})
	for i, want := range []string{"run-t1", "run-t2"} {
		if results[i].Err != nil {
			t.Fatalf("start %d: %v", i, results[i].Err)
		}
		if results[i].Run.RunID != want {
			t.Errorf("expected run id %q, got %q", want, results[i].Run.RunID)
		}
	}
}
