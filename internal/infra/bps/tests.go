package bps

import (
	"context"
	"fmt"
	"net/http"
)

// GetTests lists all available tests.
func (c *Client) GetTests(ctx context.Context) ([]map[string]any, error) {
	result, err := c.call(ctx, http.MethodGet, "tests", nil, nil)
	if err != nil {
		return nil, err
	}
	return asList(result), nil
}

// GetTest fetches one test's details.
func (c *Client) GetTest(ctx context.Context, testID string) (map[string]any, error) {
	result, err := c.call(ctx, http.MethodGet, "tests/"+testID, nil, nil)
	if err != nil {
		return nil, err
	}
	return asObject(result), nil
}

// CreateTest creates a new test from a configuration document.
func (c *Client) CreateTest(ctx context.Context, testConfig map[string]any) (map[string]any, error) {
	result, err := c.call(ctx, http.MethodPost, "tests", testConfig, nil)
	if err != nil {
		return nil, err
	}
	return asObject(result), nil
}

// UpdateTest replaces an existing test's configuration.
func (c *Client) UpdateTest(ctx context.Context, testID string, testConfig map[string]any) (map[string]any, error) {
	result, err := c.call(ctx, http.MethodPut, "tests/"+testID, testConfig, nil)
	if err != nil {
		return nil, err
	}
	return asObject(result), nil
}

// DeleteTest removes a test.
func (c *Client) DeleteTest(ctx context.Context, testID string) error {
	_, err := c.call(ctx, http.MethodDelete, "tests/"+testID, nil, nil)
	return err
}

// RunTest starts a test and returns the run document, including "runId".
func (c *Client) RunTest(ctx context.Context, testID string) (map[string]any, error) {
	result, err := c.call(ctx, http.MethodPost, fmt.Sprintf("tests/%s/operations/start", testID), nil, nil)
	if err != nil {
		return nil, err
	}
	return asObject(result), nil
}

// StopTest stops a running test.
func (c *Client) StopTest(ctx context.Context, testID string) (map[string]any, error) {
	result, err := c.call(ctx, http.MethodPost, fmt.Sprintf("tests/%s/operations/stop", testID), nil, nil)
	if err != nil {
		return nil, err
	}
	return asObject(result), nil
}

// GetTestStatus returns the current status of a run ("running",
// "completed", "stopped"); "unknown" when the appliance omits it.
func (c *Client) GetTestStatus(ctx context.Context, testID, runID string) (string, error) {
	result, err := c.call(ctx, http.MethodGet, fmt.Sprintf("tests/%s/runs/%s/status", testID, runID), nil, nil)
	if err != nil {
		return "", err
	}
	status, ok := asObject(result)["status"].(string)
	if !ok {
		return "unknown", nil
	}
	return status, nil
}

// GetTestResults fetches the result document for a run, consulting the
// cache first and populating it afterwards when useCache is set.
func (c *Client) GetTestResults(ctx context.Context, testID, runID string, useCache bool) (map[string]any, error) {
	if useCache {
		if cached, ok := c.cache.Get(testID, runID); ok {
			c.log.Debug("using cached result", "test_id", testID, "run_id", runID)
			return cached, nil
		}
	}

	result, err := c.call(ctx, http.MethodGet, fmt.Sprintf("tests/%s/runs/%s/results", testID, runID), nil, nil)
	if err != nil {
		return nil, err
	}
	results := asObject(result)

	if useCache {
		c.cache.Set(testID, runID, results)
	}
	return results, nil
}

// InvalidateResults drops any cached result document for a run.
func (c *Client) InvalidateResults(testID, runID string) bool {
	return c.cache.Invalidate(testID, runID)
}
