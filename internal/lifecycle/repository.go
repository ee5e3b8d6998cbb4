package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"

	"SwapDesk/internal/trade"
)

// Store is the persistence boundary of the lifecycle service. Each mutation
// runs inside one Tx so trade, legs and cashflows commit or roll back
// together.
type Store interface {
	// NextTradeID reserves the next business trade ID from an atomic
	// sequence.
	NextTradeID(ctx context.Context) (int64, error)

	// FindActiveByTradeID returns the unique active version, if any.
	FindActiveByTradeID(ctx context.Context, tradeID int64) (*trade.Trade, bool, error)

	Begin(ctx context.Context) (Tx, error)
}

// Tx is a single all-or-nothing lifecycle transaction.
type Tx interface {
	SaveTrade(ctx context.Context, t *trade.Trade) error
	SaveLeg(ctx context.Context, leg *trade.TradeLeg) error
	SaveCashflow(ctx context.Context, cf *trade.Cashflow) error

	// LockActiveByTradeID reads the active version under a row lock, so
	// concurrent mutations of the same trade ID serialize.
	LockActiveByTradeID(ctx context.Context, tradeID int64) (*trade.Trade, bool, error)

	// DeactivateTrade flips active off on the given version row. It returns
	// false when the row was no longer active, meaning a concurrent amend won the
	// race.
	DeactivateTrade(ctx context.Context, rowID uuid.UUID, at time.Time) (bool, error)

	// UpdateTradeStatus changes status and last-touch on a version row in
	// place. Used by terminate/cancel, which never create a new version.
	UpdateTradeStatus(ctx context.Context, rowID uuid.UUID, status trade.Status, at time.Time) error

	Commit() error
	Rollback() error
}
