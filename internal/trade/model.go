package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle status of a trade version.
type Status string

const (
	StatusNew        Status = "NEW"
	StatusAmended    Status = "AMENDED"
	StatusTerminated Status = "TERMINATED"
	StatusCancelled  Status = "CANCELLED"
)

// PayReceive marks which way a leg's payments flow.
type PayReceive string

const (
	Pay     PayReceive = "PAY"
	Receive PayReceive = "RECEIVE"
)

// LegRateType discriminates fixed and floating legs.
type LegRateType string

const (
	FixedLeg    LegRateType = "Fixed"
	FloatingLeg LegRateType = "Floating"
)

// Trade is one version of a booked trade. The business key TradeID is stable
// across versions; every amendment produces a new row with its own surrogate ID
// and an incremented Version. At most one version per TradeID is active.
type Trade struct {
	ID      uuid.UUID
	TradeID int64
	Version int
	Active  bool

	TradeDate     *Date
	StartDate     *Date
	MaturityDate  *Date
	ExecutionDate *Date
	UTICode       string

	BookID         int64
	BookName       string
	CounterpartyID int64
	Counterparty   string
	TraderLoginID  string
	InputterLoginID string
	Status         Status
	TradeType      string
	TradeSubType   string

	Legs []TradeLeg

	CreatedDate     time.Time
	DeactivatedDate *time.Time
	LastTouch       time.Time
}

// TradeLeg is one side of a two-sided trade. Legs are owned by exactly one
// trade version and are never shared across versions.
type TradeLeg struct {
	ID         uuid.UUID
	TradeRowID uuid.UUID

	Notional    decimal.Decimal
	Rate        *decimal.Decimal
	LegRateType LegRateType
	PayReceive  PayReceive
	Currency    string
	IndexName   string

	// Schedule is a frequency token ("Quarterly", "1M", ...); empty means the
	// quarterly default applies at cashflow generation time.
	Schedule        string
	PaymentBDC      string
	FixingBDC       string
	HolidayCalendar string

	Active      bool
	CreatedDate time.Time

	Cashflows []Cashflow
}

// Cashflow is one scheduled payment obligation derived from a leg. Cashflows
// are immutable once generated; an amendment attaches a fresh set to the new
// leg version and leaves the old set untouched for audit.
type Cashflow struct {
	ID    uuid.UUID
	LegID uuid.UUID

	ValueDate    Date
	Rate         *decimal.Decimal
	PaymentValue decimal.Decimal
	PayReceive   PayReceive
	PaymentBDC   string

	Active      bool
	CreatedDate time.Time
}
