package bps

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Run identifies one test run for batch operations.
type Run struct {
	TestID string
	RunID  string
}

// BatchResult pairs a run with its outcome. Exactly one of Payload and
// Err is meaningful.
type BatchResult struct {
	Run     Run
	Payload map[string]any
	Err     error
}

// batchLimit bounds concurrent appliance calls during fan-out.
const batchLimit = 8

// FetchResults fetches result documents for every run concurrently.
// Output order matches input order regardless of completion order, and a
// failed run does not abort its siblings.
func (c *Client) FetchResults(ctx context.Context, runs []Run, useCache bool) []BatchResult {
	out := make([]BatchResult, len(runs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(batchLimit)
	for i, run := range runs {
		i, run := i, run
		g.Go(func() error {
			payload, err := c.GetTestResults(ctx, run.TestID, run.RunID, useCache)
			out[i] = BatchResult{Run: run, Payload: payload, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Statuses fetches the status of every run concurrently, preserving input
// order in the output.
func (c *Client) Statuses(ctx context.Context, runs []Run) []BatchResult {
	out := make([]BatchResult, len(runs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(batchLimit)
	for i, run := range runs {
		i, run := i, run
		g.Go(func() error {
			status, err := c.GetTestStatus(ctx, run.TestID, run.RunID)
			res := BatchResult{Run: run, Err: err}
			if err == nil {
				res.Payload = map[string]any{"status": status}
			}
			out[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// StartTests starts every test concurrently and returns the run documents
// in input order.
func (c *Client) StartTests(ctx context.Context, testIDs []string) []BatchResult {
	out := make([]BatchResult, len(testIDs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(batchLimit)
	for i, testID := range testIDs {
		i, testID := i, testID
		g.Go(func() error {
			payload, err := c.RunTest(ctx, testID)
			res := BatchResult{Run: Run{TestID: testID}, Payload: payload, Err: err}
			if err == nil {
				if runID, ok := payload["runId"].(string); ok {
					res.Run.RunID = runID
				}
			}
			out[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return out
}
