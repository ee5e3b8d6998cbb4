// Package cashflow derives scheduled payment records from a trade leg.
package cashflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"SwapDesk/internal/schedule"
	"SwapDesk/internal/trade"
)

var twelve = decimal.NewFromInt(12)

// Sink receives generated cashflows for persistence. In the lifecycle service
// the sink is the enclosing transaction, so cashflows commit or roll back
// together with their trade version.
type Sink interface {
	SaveCashflow(ctx context.Context, cf *trade.Cashflow) error
}

// Generator produces one cashflow per scheduled payment date.
type Generator struct {
	log zerolog.Logger
}

func NewGenerator(log zerolog.Logger) *Generator {
	return &Generator{log: log}
}

// Generate resolves the leg's schedule (quarterly when unset), enumerates
// payment dates strictly after start up to and including maturity, and writes
// one cashflow per date through the sink. Fixed legs pay
// notional × rate × months/12; floating legs pay zero pending a reset
// mechanism; an unknown leg type also pays zero.
func (g *Generator) Generate(ctx context.Context, sink Sink, leg *trade.TradeLeg, start, maturity trade.Date) ([]trade.Cashflow, error) {
	months, err := schedule.Resolve(leg.Schedule)
	if err != nil {
		return nil, err
	}

	dates := schedule.EnumerateDates(start, maturity, months)
	value := paymentValue(leg, months)
	now := time.Now()

	flows := make([]trade.Cashflow, 0, len(dates))
	for _, d := range dates {
		cf := trade.Cashflow{
			ID:           uuid.New(),
			LegID:        leg.ID,
			ValueDate:    d,
			Rate:         leg.Rate,
			PaymentValue: value,
			PayReceive:   leg.PayReceive,
			PaymentBDC:   leg.PaymentBDC,
			Active:       true,
			CreatedDate:  now,
		}

		if err := sink.SaveCashflow(ctx, &cf); err != nil {
			return nil, fmt.Errorf("save cashflow for leg %s: %w", leg.ID, err)
		}
		flows = append(flows, cf)
	}

	g.log.Debug().
		Str("leg_id", leg.ID.String()).
		Int("months_interval", months).
		Int("count", len(flows)).
		Msg("generated cashflows")

	return flows, nil
}

func paymentValue(leg *trade.TradeLeg, monthsInterval int) decimal.Decimal {
	if leg.LegRateType != trade.FixedLeg || leg.Rate == nil {
		// Floating legs await a future reset/fixing; anything else has no
		// defined payment.
		return decimal.Zero
	}

	return leg.Notional.
		Mul(*leg.Rate).
		Mul(decimal.NewFromInt(int64(monthsInterval))).
		Div(twelve)
}
