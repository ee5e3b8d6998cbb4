// Package validation implements the business-rule gate that every trade
// mutation passes through. Rules are pure with respect to the request plus
// lookup results; they accumulate violations and never mutate their input.
package validation

import (
	"context"
	"strings"
	"time"

	"SwapDesk/internal/refdata"
	"SwapDesk/internal/schedule"
	"SwapDesk/internal/trade"
)

// TradeValidator evaluates business rules against a trade request.
type TradeValidator struct {
	lookup refdata.Lookup

	// Now is injectable so date-window rules are testable against a fixed
	// clock.
	Now func() time.Time
}

func NewTradeValidator(lookup refdata.Lookup) *TradeValidator {
	return &TradeValidator{
		lookup: lookup,
		Now:    time.Now,
	}
}

// ValidateBusinessRules checks date ordering. Every rule runs independently so
// a single pass reports all violations.
func (v *TradeValidator) ValidateBusinessRules(req *trade.Request) *Result {
	result := Success()

	if req.TradeDate != nil {
		cutoff := trade.DateOf(v.Now()).AddDate(0, 0, -30)
		if req.TradeDate.Before(cutoff) {
			result.AddError("Trade date cannot be more than 30 days in the past")
		}
	}

	if req.StartDate != nil && req.TradeDate != nil {
		if req.StartDate.Before(req.TradeDate.Time) {
			result.AddError("Start date cannot be before trade date")
		}
	}

	if req.MaturityDate != nil && req.TradeDate != nil {
		if req.MaturityDate.Before(req.TradeDate.Time) {
			result.AddError("Maturity date cannot be before trade date")
		}
	}

	if req.MaturityDate != nil && req.StartDate != nil {
		if req.MaturityDate.Before(req.StartDate.Time) {
			result.AddError("Maturity date cannot be before start date")
		}
	}

	return result
}

// ValidateLegConsistency checks the two-leg structure: exactly two legs,
// opposite pay/receive flags, aligned final payment dates, and per-leg-type
// field requirements. A wrong leg count skips the remaining leg-level checks.
func (v *TradeValidator) ValidateLegConsistency(req *trade.Request) *Result {
	result := Success()

	if len(req.Legs) != 2 {
		result.AddError("Trade must have exactly 2 legs")
		return result
	}

	leg1 := req.Legs[0]
	leg2 := req.Legs[1]

	flag1 := strings.ToUpper(strings.TrimSpace(leg1.PayReceiveFlag))
	flag2 := strings.ToUpper(strings.TrimSpace(leg2.PayReceiveFlag))

	if flag1 == "" || flag2 == "" {
		result.AddError("Both legs must have a pay/receive flag set")
	} else {
		opposite := (flag1 == "PAY" && flag2 == "RECEIVE") ||
			(flag1 == "RECEIVE" && flag2 == "PAY")
		if !opposite {
			result.AddError("Legs must have opposite pay/receive flags")
		}
	}

	// Both legs must roll to the same final payment date. Schedules that do
	// not parse are reported by the per-leg checks at generation time, not
	// here.
	if req.StartDate != nil && req.MaturityDate != nil {
		final1, ok1 := finalPaymentDate(leg1, *req.StartDate, *req.MaturityDate)
		final2, ok2 := finalPaymentDate(leg2, *req.StartDate, *req.MaturityDate)
		if ok1 && ok2 && !final1.Equal(final2.Time) {
			result.AddError("Trade legs must have identical maturity dates")
		}
	}

	for _, leg := range req.Legs {
		legType := strings.ToUpper(strings.TrimSpace(leg.LegType))

		switch legType {
		case "FLOATING":
			if strings.TrimSpace(leg.IndexName) == "" {
				result.AddError("Floating legs must have an index specified")
			}
		case "FIXED":
			if leg.Rate == nil || leg.Rate.IsNegative() {
				result.AddError("Fixed legs must have a valid rate (>= 0)")
			}
		}
	}

	return result
}

func finalPaymentDate(leg trade.LegRequest, start, maturity trade.Date) (trade.Date, bool) {
	months, err := schedule.Resolve(leg.Schedule)
	if err != nil {
		return trade.Date{}, false
	}
	return schedule.FinalDate(start, maturity, months)
}

// ConfirmReferenceDataActive checks that trader, book and counterparty each
// resolve and are flagged active. Missing name, unresolved name and
// inactive-but-resolved are distinct violations; an unresolvable entry stops
// the remaining groups since their checks would only cascade.
func (v *TradeValidator) ConfirmReferenceDataActive(ctx context.Context, req *trade.Request) *Result {
	result := Success()

	traderLogin := strings.TrimSpace(req.TraderLoginID)
	if traderLogin == "" {
		result.AddError("Trader must be set")
		return result
	}
	user, found, err := v.lookup.UserByLoginID(ctx, traderLogin)
	if err != nil || !found {
		result.AddError("Trader must exist in the system")
		return result
	}
	if !user.Active {
		result.AddError("Trader must be active in the system")
	}

	bookName := strings.TrimSpace(req.BookName)
	if bookName == "" {
		result.AddError("Book must be set")
		return result
	}
	book, found, err := v.lookup.BookByName(ctx, bookName)
	if err != nil || !found {
		result.AddError("Book must exist in the system")
		return result
	}
	if !book.Active {
		result.AddError("Book must be active in the system")
	}

	counterpartyName := strings.TrimSpace(req.Counterparty)
	if counterpartyName == "" {
		result.AddError("Counterparty must be set")
		return result
	}
	counterparty, found, err := v.lookup.CounterpartyByName(ctx, counterpartyName)
	if err != nil || !found {
		result.AddError("Counterparty must exist in the system")
		return result
	}
	if !counterparty.Active {
		result.AddError("Counterparty must be active in the system")
	}

	return result
}
