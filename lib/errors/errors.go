// Package errors bundles the per-host preflight failures the dispatcher
// excludes a Host for (spec §7.5 ConfigurationError) into a single error,
// so a caller that wants one combined diagnostic doesn't have to format
// a []preflight.Result itself.
package errors

import "fmt"

// PreflightFailures is a non-empty collection of preflight failures, one
// per Host that did not pass the version probe.
type PreflightFailures struct {
	Errors []error
}

func (e *PreflightFailures) Error() string {
	if e == nil || len(e.Errors) == 0 {
		return "preflight: no host failures"
	}
	return fmt.Sprintf("preflight: %d host(s) failed: %v", len(e.Errors), e.Errors)
}

// AggregatePreflightErrors bundles the non-nil errors in errs into a
// single PreflightFailures, or returns nil if every entry is nil.
func AggregatePreflightErrors(errs []error) error {
	nonNil := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}
	if len(nonNil) == 0 {
		return nil
	}
	return &PreflightFailures{Errors: nonNil}
}
