package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeWrapNil(t *testing.T) {
	s := Scope{Details: map[string]any{"op": "fetch"}}
	assert.NoError(t, s.Wrap(nil))
}

func TestScopeMergeExistingKeysWin(t *testing.T) {
	s := Scope{Details: map[string]any{
		"endpoint": "scope-endpoint",
		"attempt":  1,
	}}

	err := New(KindAPI, CodeAPI, "boom").WithDetail("endpoint", "error-endpoint")
	wrapped := s.Wrap(err)

	e, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, "error-endpoint", e.Detail("endpoint"))
	assert.Equal(t, 1, e.Detail("attempt"))
}

func TestScopeConvertsForeignError(t *testing.T) {
	s := Scope{
		Kind:    KindCache,
		Code:    CodeCache,
		Details: map[string]any{"operation": "set"},
	}

	cause := errors.New("disk full")
	wrapped := s.Wrap(cause)

	e, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, KindCache, e.Kind)
	assert.Equal(t, CodeCache, e.Code)
	assert.Equal(t, "set", e.Detail("operation"))
	assert.ErrorIs(t, wrapped, cause)
}

func TestScopeConvertsContextErrors(t *testing.T) {
	s := Scope{Kind: KindAPI, Code: CodeAPI}

	for _, cause := range []error{context.Canceled, context.DeadlineExceeded} {
		wrapped := s.Wrap(fmt.Errorf("call: %w", cause))
		e, ok := As(wrapped)
		require.True(t, ok)
		assert.Equal(t, KindCanceled, e.Kind)
		assert.False(t, e.RetryPossible)
	}
}

func TestScopeRecovery(t *testing.T) {
	t.Run("recovery handles the error", func(t *testing.T) {
		recovered := 0
		s := Scope{Recover: func(e *Error) error {
			recovered++
			return nil
		}}
		assert.NoError(t, s.Wrap(API("boom", "tests", 500, "")))
		assert.Equal(t, 1, recovered)
	})

	t.Run("recovery failure keeps the original error", func(t *testing.T) {
		s := Scope{Recover: func(e *Error) error {
			return errors.New("recovery also failed")
		}}
		err := s.Wrap(TestExecution("boom", "t1", "r1"))
		e, ok := As(err)
		require.True(t, ok)
		assert.Equal(t, KindTestExecution, e.Kind)
	})

	t.Run("recovery not attempted for non-recoverable kinds", func(t *testing.T) {
		called := false
		s := Scope{Recover: func(e *Error) error {
			called = true
			return nil
		}}
		err := s.Wrap(Validation("bad", nil))
		assert.Error(t, err)
		assert.False(t, called)
	})
}

func TestScopeRun(t *testing.T) {
	s := Scope{Kind: KindReport, Code: CodeReport}
	err := s.Run(func() error { return errors.New("render failed") })

	e, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, KindReport, e.Kind)
}
