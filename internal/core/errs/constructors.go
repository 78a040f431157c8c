package errs

import (
	"context"
	"errors"
	"fmt"
)

// New builds a generic taxonomy error.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// API reports a failed remote call at the HTTP layer. Status codes in
// [500,600) and 429 are transiently retryable.
func API(message, endpoint string, statusCode int, response string) *Error {
	e := &Error{
		Kind:          KindAPI,
		Code:          CodeAPI,
		Message:       message,
		StatusCode:    statusCode,
		Response:      response,
		Endpoint:      endpoint,
		RetryPossible: RetryableStatus(statusCode),
	}
	e.Details = map[string]any{
		"status_code": statusCode,
		"endpoint":    endpoint,
	}
	if response != "" {
		e.Details["response"] = response
	}
	return e
}

// Auth reports an authentication failure. Never retryable.
func Auth(message, endpoint string, statusCode int) *Error {
	e := API(message, endpoint, statusCode, "")
	e.Kind = KindAuth
	e.Code = CodeAuth
	e.RetryPossible = false
	return e
}

// Network reports a transport-level failure. Retry is possible while the
// retry count has not reached maxRetries.
func Network(message, endpoint string, isTimeout bool, retryCount, maxRetries int) *Error {
	code := CodeNetwork
	if isTimeout {
		code = CodeTimeout
	}
	return &Error{
		Kind:          KindNetwork,
		Code:          code,
		Message:       message,
		Endpoint:      endpoint,
		IsTimeout:     isTimeout,
		RetryCount:    retryCount,
		MaxRetries:    maxRetries,
		RetryPossible: retryCount < maxRetries,
		Details: map[string]any{
			"endpoint":    endpoint,
			"is_timeout":  isTimeout,
			"retry_count": retryCount,
			"max_retries": maxRetries,
		},
	}
}

// NotFound reports a missing resource. Never retryable.
func NotFound(resourceType, resourceID string) *Error {
	return &Error{
		Kind:         KindNotFound,
		Code:         CodeNotFound,
		Message:      fmt.Sprintf("%s with ID %q not found", resourceType, resourceID),
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details: map[string]any{
			"resource_type": resourceType,
			"resource_id":   resourceID,
		},
	}
}

// Validation reports invalid input. Never retryable.
func Validation(message string, fields map[string]string) *Error {
	return &Error{
		Kind:    KindValidation,
		Code:    CodeValidation,
		Message: message,
		Fields:  fields,
		Details: map[string]any{"validation_errors": fields},
	}
}

// Test reports a generic test-scoped failure.
func Test(kind Kind, code, message, testID, runID string) *Error {
	return &Error{
		Kind:    kind,
		Code:    code,
		Message: message,
		TestID:  testID,
		RunID:   runID,
		Details: map[string]any{
			"test_id": testID,
			"run_id":  runID,
		},
	}
}

// TestExecution reports a failed test run.
func TestExecution(message, testID, runID string) *Error {
	return Test(KindTestExecution, CodeTestExecution, message, testID, runID)
}

// TestResult reports a failure retrieving or processing results.
func TestResult(message, testID, runID string) *Error {
	return Test(KindTestResult, CodeTestResult, message, testID, runID)
}

// Cache reports a cache-layer failure. The cache recovers these locally;
// they exist so Scope conversion inside the store has a kind to target.
func Cache(message, operation, testID, runID string) *Error {
	return &Error{
		Kind:      KindCache,
		Code:      CodeCache,
		Message:   message,
		Operation: operation,
		TestID:    testID,
		RunID:     runID,
		Details: map[string]any{
			"operation": operation,
			"test_id":   testID,
			"run_id":    runID,
		},
	}
}

// Config reports a configuration problem. Never retryable.
func Config(message, section, key string) *Error {
	return &Error{
		Kind:    KindConfig,
		Code:    CodeConfig,
		Message: message,
		Details: map[string]any{
			"config_section": section,
			"config_key":     key,
		},
	}
}

// Report reports a report generation failure.
func Report(message, reportType, format string) *Error {
	return &Error{
		Kind:    KindReport,
		Code:    CodeReport,
		Message: message,
		Details: map[string]any{
			"report_type":   reportType,
			"output_format": format,
		},
	}
}

// Chart reports a chart generation failure.
func Chart(message, chartType string) *Error {
	return &Error{
		Kind:    KindChart,
		Code:    CodeChart,
		Message: message,
		Details: map[string]any{"chart_type": chartType},
	}
}

// Plugin reports a plugin registration or lookup failure. Never retryable.
func Plugin(message, pluginType, pluginName string) *Error {
	return &Error{
		Kind:    KindPlugin,
		Code:    CodePlugin,
		Message: message,
		Details: map[string]any{
			"plugin_type": pluginType,
			"plugin_name": pluginName,
		},
	}
}

// Retryable reports a transient failure that carries its own retry budget.
func Retryable(message string, retryCount, maxRetries int) *Error {
	return &Error{
		Kind:          KindRetryable,
		Message:       message,
		RetryCount:    retryCount,
		MaxRetries:    maxRetries,
		RetryPossible: maxRetries <= 0 || retryCount < maxRetries,
		Details: map[string]any{
			"retry_count": retryCount,
			"max_retries": maxRetries,
		},
	}
}

// Canceled converts a context error into the taxonomy. Never retryable:
// the caller asked to stop.
func Canceled(cause error) *Error {
	return &Error{
		Kind:    KindCanceled,
		Code:    CodeCanceled,
		Message: "operation canceled",
		Cause:   cause,
	}
}

// RetryableStatus reports whether an HTTP status code is treated as
// transiently retryable by the default API error handler.
func RetryableStatus(code int) bool {
	return code == 429 || (code >= 500 && code < 600)
}

// As extracts a taxonomy error from an error chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindGeneric for foreign errors.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}
	return KindGeneric
}

// IsRetryable reports whether err explicitly allows another attempt.
// Foreign errors are not retryable.
func IsRetryable(err error) bool {
	e, ok := As(err)
	return ok && e.RetryPossible
}

// FormatForUser renders any error for end-user display.
func FormatForUser(err error) string {
	if e, ok := As(err); ok {
		return e.UserMessage()
	}
	return err.Error()
}

// FormatForLog renders any error with full detail for logging.
func FormatForLog(err error) string {
	if e, ok := As(err); ok {
		return e.LogMessage()
	}
	return err.Error()
}
