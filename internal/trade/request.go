package trade

import (
	"github.com/shopspring/decimal"
)

// Request carries the inbound terms for a create or amend. Reference data is
// addressed by name or numeric ID; when both are given the name wins. Trader
// and inputter identity are explicit login IDs; the caller is resolved
// upstream, no free-text name parsing happens here.
type Request struct {
	TradeID *int64 `json:"tradeId,omitempty"`

	TradeDate     *Date `json:"tradeDate,omitempty"`
	StartDate     *Date `json:"tradeStartDate,omitempty"`
	MaturityDate  *Date `json:"tradeMaturityDate,omitempty"`
	ExecutionDate *Date `json:"tradeExecutionDate,omitempty"`

	UTICode string `json:"utiCode,omitempty"`

	BookName       string `json:"bookName,omitempty"`
	BookID         *int64 `json:"bookId,omitempty"`
	Counterparty   string `json:"counterpartyName,omitempty"`
	CounterpartyID *int64 `json:"counterpartyId,omitempty"`

	TraderLoginID   string `json:"traderLoginId,omitempty"`
	InputterLoginID string `json:"inputterLoginId,omitempty"`

	Status       string `json:"tradeStatus,omitempty"`
	TradeType    string `json:"tradeType,omitempty"`
	TradeSubType string `json:"tradeSubType,omitempty"`

	Legs []LegRequest `json:"tradeLegs"`
}

// LegRequest is the inbound terms for one leg.
type LegRequest struct {
	Notional decimal.Decimal  `json:"notional"`
	Rate     *decimal.Decimal `json:"rate,omitempty"`

	LegType        string `json:"legType,omitempty"`
	PayReceiveFlag string `json:"payReceiveFlag,omitempty"`
	Currency       string `json:"currency,omitempty"`
	IndexName      string `json:"indexName,omitempty"`

	Schedule        string `json:"calculationPeriodSchedule,omitempty"`
	PaymentBDC      string `json:"paymentBusinessDayConvention,omitempty"`
	FixingBDC       string `json:"fixingBusinessDayConvention,omitempty"`
	HolidayCalendar string `json:"holidayCalendar,omitempty"`
}
