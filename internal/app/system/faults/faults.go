// Package faults defines the typed failure taxonomy returned by the rule
// engine and surfaced through the API. Every failure carries a Kind so
// callers can distinguish an authorization refusal from a validation
// rejection, a lost race, a missing row, or a backend outage. The engine
// never collapses one into another.
package faults

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	// KindDenied means the access policy refused the operation.
	KindDenied Kind = "denied"
	// KindValidation means a payload failed shape or range rules.
	KindValidation Kind = "validation_failed"
	// KindNotFound means a referenced entity does not exist.
	KindNotFound Kind = "not_found"
	// KindConflict means the operation lost a race or targeted a row in a
	// terminal state (invite already claimed, entry already reverted).
	KindConflict Kind = "conflict"
	// KindInfrastructure means the backing store or identity provider
	// failed independently of any business rule.
	KindInfrastructure Kind = "infrastructure"
)

// Fault is a typed failure. Reason is set only for KindDenied and names the
// policy rule that fired (see accesspolicy reasons).
type Fault struct {
	Kind   Kind
	Reason string
	Detail string
	cause  error
}

func (f *Fault) Error() string {
	if f.Reason != "" {
		return fmt.Sprintf("%s (%s): %s", f.Kind, f.Reason, f.Detail)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Detail)
}

// Unwrap exposes the underlying cause, if any.
func (f *Fault) Unwrap() error { return f.cause }

// Denied builds a policy refusal carrying the rule that fired.
func Denied(reason, detail string) *Fault {
	return &Fault{Kind: KindDenied, Reason: reason, Detail: detail}
}

// Validation builds a payload-rejection failure.
func Validation(format string, args ...any) *Fault {
	return &Fault{Kind: KindValidation, Detail: fmt.Sprintf(format, args...)}
}

// NotFound builds a missing-entity failure.
func NotFound(format string, args ...any) *Fault {
	return &Fault{Kind: KindNotFound, Detail: fmt.Sprintf(format, args...)}
}

// Conflict builds a lost-race / terminal-state failure.
func Conflict(format string, args ...any) *Fault {
	return &Fault{Kind: KindConflict, Detail: fmt.Sprintf(format, args...)}
}

// Infra wraps a backend error. The original error stays reachable through
// errors.Unwrap for logging; the Detail is safe to return to callers.
func Infra(cause error, detail string) *Fault {
	return &Fault{Kind: KindInfrastructure, Detail: detail, cause: cause}
}

// KindOf extracts the Kind from err, or KindInfrastructure when err is not a
// Fault (an unclassified error is by definition not a business refusal).
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindInfrastructure
}

// As returns the Fault inside err, if any.
func As(err error) (*Fault, bool) {
	var f *Fault
	ok := errors.As(err, &f)
	return f, ok
}
