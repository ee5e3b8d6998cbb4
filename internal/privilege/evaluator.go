// Package privilege maps (operation, acting user, trade's trader-of-record)
// to an allow/deny decision. Evaluation is a pure lookup: any failure
// (unknown user, unknown role, lookup error) denies rather than throws.
package privilege

import (
	"context"
	"strings"

	"SwapDesk/internal/refdata"
)

// Operations understood by the evaluator.
const (
	OpCreate    = "create"
	OpAmend     = "amend"
	OpTerminate = "terminate"
	OpCancel    = "cancel"
	OpView      = "view"
)

// Evaluator decides whether an acting user may perform an operation on a
// trade whose trader-of-record is traderLoginID.
type Evaluator struct {
	lookup refdata.Lookup
}

func NewEvaluator(lookup refdata.Lookup) *Evaluator {
	return &Evaluator{lookup: lookup}
}

// Authorize returns true iff the acting user's role grants the operation.
// Role taxonomy (case-insensitive):
//   - TRADER_SALES: create/amend/terminate/cancel/view, own trades only
//   - MIDDLE_OFFICE (alias MO): amend/view, any trade
//   - SUPPORT: view only
func (e *Evaluator) Authorize(ctx context.Context, operation, actingLoginID, traderLoginID string) bool {
	acting := strings.TrimSpace(actingLoginID)
	if acting == "" {
		return false
	}

	user, found, err := e.lookup.UserByLoginID(ctx, acting)
	if err != nil || !found {
		return false
	}

	op := strings.ToLower(strings.TrimSpace(operation))

	switch strings.ToUpper(strings.TrimSpace(user.Role)) {
	case "TRADER_SALES":
		if !strings.EqualFold(acting, strings.TrimSpace(traderLoginID)) {
			return false
		}
		return op == OpCreate || op == OpAmend || op == OpTerminate || op == OpCancel || op == OpView

	case "MO", "MIDDLE_OFFICE":
		return op == OpAmend || op == OpView

	case "SUPPORT":
		return op == OpView
	}

	return false
}
