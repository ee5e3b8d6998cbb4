package server

import (
	"time"

	"github.com/shopspring/decimal"

	"SwapDesk/internal/trade"
)

// tradeResponse is the wire shape of a trade version. Field names mirror the
// inbound request so round-tripping a response body back as an amend works.
type tradeResponse struct {
	ID      string `json:"id"`
	TradeID int64  `json:"tradeId"`
	Version int    `json:"version"`
	Active  bool   `json:"active"`

	TradeDate     *trade.Date `json:"tradeDate,omitempty"`
	StartDate     *trade.Date `json:"tradeStartDate,omitempty"`
	MaturityDate  *trade.Date `json:"tradeMaturityDate,omitempty"`
	ExecutionDate *trade.Date `json:"tradeExecutionDate,omitempty"`
	UTICode       string      `json:"utiCode,omitempty"`

	BookID          int64  `json:"bookId"`
	BookName        string `json:"bookName"`
	CounterpartyID  int64  `json:"counterpartyId"`
	Counterparty    string `json:"counterpartyName"`
	TraderLoginID   string `json:"traderLoginId"`
	InputterLoginID string `json:"inputterLoginId,omitempty"`

	Status       string `json:"tradeStatus"`
	TradeType    string `json:"tradeType,omitempty"`
	TradeSubType string `json:"tradeSubType,omitempty"`

	Legs []legResponse `json:"tradeLegs"`

	CreatedDate time.Time `json:"createdDate"`
	LastTouch   time.Time `json:"lastModifiedDate"`
}

type legResponse struct {
	ID string `json:"id"`

	Notional decimal.Decimal  `json:"notional"`
	Rate     *decimal.Decimal `json:"rate,omitempty"`

	LegType        string `json:"legType"`
	PayReceiveFlag string `json:"payReceiveFlag"`
	Currency       string `json:"currency,omitempty"`
	IndexName      string `json:"indexName,omitempty"`

	Schedule        string `json:"calculationPeriodSchedule,omitempty"`
	PaymentBDC      string `json:"paymentBusinessDayConvention,omitempty"`
	FixingBDC       string `json:"fixingBusinessDayConvention,omitempty"`
	HolidayCalendar string `json:"holidayCalendar,omitempty"`

	Cashflows []cashflowResponse `json:"cashflows"`
}

type cashflowResponse struct {
	ID             string           `json:"id"`
	ValueDate      trade.Date       `json:"valueDate"`
	Rate           *decimal.Decimal `json:"rate,omitempty"`
	PaymentValue   decimal.Decimal  `json:"paymentValue"`
	PayReceiveFlag string           `json:"payReceiveFlag"`
	PaymentBDC     string           `json:"paymentBusinessDayConvention,omitempty"`
}

func toTradeResponse(t *trade.Trade) tradeResponse {
	resp := tradeResponse{
		ID:      t.ID.String(),
		TradeID: t.TradeID,
		Version: t.Version,
		Active:  t.Active,

		TradeDate:     t.TradeDate,
		StartDate:     t.StartDate,
		MaturityDate:  t.MaturityDate,
		ExecutionDate: t.ExecutionDate,
		UTICode:       t.UTICode,

		BookID:          t.BookID,
		BookName:        t.BookName,
		CounterpartyID:  t.CounterpartyID,
		Counterparty:    t.Counterparty,
		TraderLoginID:   t.TraderLoginID,
		InputterLoginID: t.InputterLoginID,

		Status:       string(t.Status),
		TradeType:    t.TradeType,
		TradeSubType: t.TradeSubType,

		CreatedDate: t.CreatedDate,
		LastTouch:   t.LastTouch,
	}

	resp.Legs = make([]legResponse, 0, len(t.Legs))
	for i := range t.Legs {
		resp.Legs = append(resp.Legs, toLegResponse(&t.Legs[i]))
	}
	return resp
}

func toLegResponse(leg *trade.TradeLeg) legResponse {
	lr := legResponse{
		ID:             leg.ID.String(),
		Notional:       leg.Notional,
		Rate:           leg.Rate,
		LegType:        string(leg.LegRateType),
		PayReceiveFlag: string(leg.PayReceive),
		Currency:       leg.Currency,
		IndexName:      leg.IndexName,

		Schedule:        leg.Schedule,
		PaymentBDC:      leg.PaymentBDC,
		FixingBDC:       leg.FixingBDC,
		HolidayCalendar: leg.HolidayCalendar,
	}

	lr.Cashflows = make([]cashflowResponse, 0, len(leg.Cashflows))
	for _, cf := range leg.Cashflows {
		lr.Cashflows = append(lr.Cashflows, cashflowResponse{
			ID:             cf.ID.String(),
			ValueDate:      cf.ValueDate,
			Rate:           cf.Rate,
			PaymentValue:   cf.PaymentValue,
			PayReceiveFlag: string(cf.PayReceive),
			PaymentBDC:     cf.PaymentBDC,
		})
	}
	return lr
}
