package validation

import "strings"

// Result accumulates human-readable rule violations. A request is valid iff
// no rule added an error; checks never short-circuit, so one pass can surface
// every problem at once.
type Result struct {
	errs []string
}

// Success returns an empty (valid) result.
func Success() *Result {
	return &Result{}
}

// AddError records one violation.
func (r *Result) AddError(msg string) {
	r.errs = append(r.errs, msg)
}

// Valid reports whether no violations were recorded.
func (r *Result) Valid() bool {
	return len(r.errs) == 0
}

// Errors returns the recorded violations in insertion order.
func (r *Result) Errors() []string {
	return r.errs
}

// Message joins all violations with "; ".
func (r *Result) Message() string {
	return strings.Join(r.errs, "; ")
}

// Merge appends all violations from other.
func (r *Result) Merge(other *Result) {
	r.errs = append(r.errs, other.errs...)
}
