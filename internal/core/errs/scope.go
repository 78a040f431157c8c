package errs

import (
	"context"
	"errors"
	"log/slog"
)

// Scope annotates or converts errors on the way out of a risky operation.
// The usual shape is a deferred wrap over a named return:
//
//	func (c *Client) fetch(...) (err error) {
//		scope := errs.Scope{Details: map[string]any{"endpoint": ep}, Kind: errs.KindAPI, Code: errs.CodeAPI}
//		defer func() { err = scope.Wrap(err) }()
//		...
//	}
//
// so the annotate-or-convert step runs on every exit path, including early
// returns.
type Scope struct {
	// Details are merged into taxonomy errors passing through; keys the
	// error already carries win.
	Details map[string]any

	// Kind and Code select the shape foreign errors are converted to.
	Kind Kind
	Code string

	// Recover, when set, is attempted for API and test kinds. A nil
	// return means the failure was handled and Wrap returns nil.
	Recover func(*Error) error

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Wrap applies the scope to err. nil in, nil out.
func (s Scope) Wrap(err error) error {
	if err == nil {
		return nil
	}
	log := s.Logger
	if log == nil {
		log = slog.Default()
	}

	if e, ok := As(err); ok {
		if s.Recover != nil && recoverableKind(e.Kind) {
			log.Info("attempting recovery", "kind", e.Kind.String(), "error", e.Message)
			if rerr := s.Recover(e); rerr == nil {
				return nil
			} else {
				log.Error("recovery failed", "error", rerr)
			}
		}
		// Existing detail keys win over scope context.
		if len(s.Details) > 0 {
			if e.Details == nil {
				e.Details = make(map[string]any, len(s.Details))
			}
			for k, v := range s.Details {
				if _, exists := e.Details[k]; !exists {
					e.Details[k] = v
				}
			}
		}
		log.Error("error in scope", "error", e.LogMessage())
		return e
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		ce := Canceled(err)
		ce.Details = cloneDetails(s.Details)
		return ce
	}

	kind := s.Kind
	if kind == 0 {
		kind = KindGeneric
	}
	conv := &Error{
		Kind:    kind,
		Code:    s.Code,
		Message: err.Error(),
		Cause:   err,
		Details: cloneDetails(s.Details),
	}
	log.Error("converted foreign error", "error", conv.LogMessage())
	return conv
}

// Run executes fn inside the scope.
func (s Scope) Run(fn func() error) error {
	return s.Wrap(fn())
}

// recoverableKind limits recovery callbacks to API and test failures.
func recoverableKind(k Kind) bool {
	switch k {
	case KindAPI, KindAuth, KindNetwork, KindTest, KindTestCreation, KindTestExecution, KindTestResult:
		return true
	}
	return false
}

func cloneDetails(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
