// Package errs defines the structured failure taxonomy used across the
// agent. Every error that crosses the API client boundary is a member of
// this taxonomy; raw transport errors never escape it.
package errs

import (
	"fmt"
	"sort"
	"strings"
)

// Kind discriminates the failure category. It replaces an open class
// hierarchy with a single tagged union dispatched by switching on Kind.
type Kind uint8

const (
	KindGeneric Kind = iota
	KindAPI
	KindAuth
	KindNetwork
	KindNotFound
	KindValidation
	KindTest
	KindTestCreation
	KindTestExecution
	KindTestResult
	KindCache
	KindConfig
	KindReport
	KindChart
	KindPlugin
	KindRetryable
	KindCanceled
)

// String returns the stable name of the kind.
func (k Kind) String() string {
	switch k {
	case KindAPI:
		return "api"
	case KindAuth:
		return "auth"
	case KindNetwork:
		return "network"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindTest:
		return "test"
	case KindTestCreation:
		return "test_creation"
	case KindTestExecution:
		return "test_execution"
	case KindTestResult:
		return "test_result"
	case KindCache:
		return "cache"
	case KindConfig:
		return "config"
	case KindReport:
		return "report"
	case KindChart:
		return "chart"
	case KindPlugin:
		return "plugin"
	case KindRetryable:
		return "retryable"
	case KindCanceled:
		return "canceled"
	default:
		return "generic"
	}
}

// Error codes carried on errors for logs and machine consumption.
const (
	CodeAPI           = "API_ERROR"
	CodeAuth          = "AUTH_ERROR"
	CodeNetwork       = "NETWORK_ERROR"
	CodeTimeout       = "TIMEOUT_ERROR"
	CodeNotFound      = "RESOURCE_NOT_FOUND"
	CodeValidation    = "VALIDATION_ERROR"
	CodeTestCreation  = "TEST_CREATION_ERROR"
	CodeTestExecution = "TEST_EXECUTION_ERROR"
	CodeTestResult    = "TEST_RESULT_ERROR"
	CodeCache         = "CACHE_ERROR"
	CodeConfig        = "CONFIG_ERROR"
	CodeReport        = "REPORT_ERROR"
	CodeChart         = "CHART_ERROR"
	CodePlugin        = "PLUGIN_ERROR"
	CodeCanceled      = "CANCELED"
)

// Error is the single structured error type. Kind selects which of the
// optional fields are meaningful; Details is an open map for anything the
// typed fields do not cover. Errors are not mutated after construction
// except for detail merging performed while unwinding through a Scope.
type Error struct {
	Kind          Kind
	Code          string
	Message       string
	RetryPossible bool
	Details       map[string]any
	Cause         error

	// API / network fields.
	StatusCode int
	Response   string
	Endpoint   string
	IsTimeout  bool
	RetryCount int
	MaxRetries int

	// Resource lookup fields.
	ResourceType string
	ResourceID   string

	// Validation: field name -> problem.
	Fields map[string]string

	// Test and cache scoping.
	TestID    string
	RunID     string
	Operation string
}

// Error implements the error interface. Format: "[CODE] message" with the
// cause appended when present.
func (e *Error) Error() string {
	if e.Code == "" {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches against another *Error by kind, so call sites can write
// errors.Is(err, &errs.Error{Kind: errs.KindAuth}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Detail returns a detail value by key, nil if absent.
func (e *Error) Detail(key string) any {
	if e.Details == nil {
		return nil
	}
	return e.Details[key]
}

// WithDetail attaches a detail key/value and returns the error for chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// UserMessage renders the terse, user-facing form of the error. It hides
// internals and includes only context a user can act on.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindAuth:
		return fmt.Sprintf("Authentication failed: %s. Please check your credentials.", e.Message)
	case KindNetwork:
		var b strings.Builder
		if e.IsTimeout {
			b.WriteString("Connection timed out")
		} else {
			b.WriteString("Network connection error")
		}
		if e.Endpoint != "" {
			fmt.Fprintf(&b, " while connecting to %q", e.Endpoint)
		}
		if e.RetryCount > 0 {
			if e.MaxRetries > 0 && e.RetryCount >= e.MaxRetries {
				fmt.Fprintf(&b, ". Failed after %d retries", e.RetryCount)
			} else {
				fmt.Fprintf(&b, ". Retry %d failed", e.RetryCount)
			}
		}
		fmt.Fprintf(&b, ": %s", e.Message)
		return b.String()
	case KindAPI:
		if e.Endpoint != "" && e.StatusCode != 0 {
			return fmt.Sprintf("API request to %q failed with status %d: %s", e.Endpoint, e.StatusCode, e.Message)
		}
		return fmt.Sprintf("API request failed: %s", e.Message)
	case KindNotFound:
		return fmt.Sprintf("Resource not found: %s with ID %q", e.ResourceType, e.ResourceID)
	case KindValidation:
		if len(e.Fields) > 0 {
			parts := make([]string, 0, len(e.Fields))
			for field, msg := range e.Fields {
				parts = append(parts, field+": "+msg)
			}
			sort.Strings(parts)
			return "Validation errors: " + strings.Join(parts, "; ")
		}
		return "Validation error: " + e.Message
	case KindTest, KindTestExecution, KindTestResult:
		scope := ""
		if e.TestID != "" {
			scope = fmt.Sprintf(" for test %q", e.TestID)
			if e.RunID != "" {
				scope += fmt.Sprintf(", run %q", e.RunID)
			}
		}
		verb := "Test operation failed"
		if e.Kind == KindTestExecution {
			verb = "Failed to execute test"
		} else if e.Kind == KindTestResult {
			verb = "Failed to retrieve test results"
		}
		return fmt.Sprintf("%s%s: %s", verb, scope, e.Message)
	case KindTestCreation:
		return "Failed to create test: " + e.Message
	case KindCache:
		scope := ""
		if e.Operation != "" {
			scope = " during " + e.Operation
		}
		if e.TestID != "" {
			scope += fmt.Sprintf(" for test %q", e.TestID)
			if e.RunID != "" {
				scope += fmt.Sprintf(", run %q", e.RunID)
			}
		}
		return fmt.Sprintf("Cache error%s: %s", scope, e.Message)
	case KindConfig:
		return "Configuration error: " + e.Message
	case KindReport:
		return "Failed to generate report: " + e.Message
	case KindChart:
		return "Failed to generate chart: " + e.Message
	case KindPlugin:
		return "Plugin error: " + e.Message
	case KindCanceled:
		return "Operation canceled: " + e.Message
	default:
		return e.Message
	}
}

// LogMessage renders the verbose form, including every detail key/value,
// for operator logs. Detail keys are sorted for stable output.
func (e *Error) LogMessage() string {
	if len(e.Details) == 0 {
		return e.Error()
	}
	keys := make([]string, 0, len(e.Details))
	for k, v := range e.Details {
		if v == nil {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, e.Details[k]))
	}
	if len(parts) == 0 {
		return e.Error()
	}
	return fmt.Sprintf("%s [%s]", e.Error(), strings.Join(parts, ", "))
}
