package trade

import (
	"fmt"
	"strings"
)

// ValidationError carries one or more business-rule violations. The joined
// message lists every violation so a caller can fix a request in one pass.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "trade validation failed: " + strings.Join(e.Violations, "; ")
}

// ReferenceDataError means a required lookup did not resolve. It is distinct
// from ValidationError: the request shape was fine, the master data is missing.
type ReferenceDataError struct {
	Kind string
	Name string
}

func (e *ReferenceDataError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s not found or not set", e.Kind)
	}
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// NotFoundError means the trade ID has no active version.
type NotFoundError struct {
	TradeID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("trade not found: %d", e.TradeID)
}

// AuthorizationError means the privilege check denied the operation.
type AuthorizationError struct {
	Operation string
	LoginID   string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("user %q does not have privileges for operation %q", e.LoginID, e.Operation)
}

// InvalidScheduleError means a schedule specifier could not be parsed.
type InvalidScheduleError struct {
	Specifier string
}

func (e *InvalidScheduleError) Error() string {
	return fmt.Sprintf("invalid schedule format: %q (supported: Monthly, Quarterly, Semi-annually, Annually, or 1M, 3M, 6M, 12M)", e.Specifier)
}

// ConflictError means a concurrent mutation won the race on the same trade ID.
type ConflictError struct {
	TradeID int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("concurrent modification of trade %d", e.TradeID)
}
