// Package lifecycle implements the trade state machine: create, amend,
// terminate, cancel. Every mutation is privilege-checked, validated, and
// committed atomically together with its legs and cashflows.
package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"SwapDesk/internal/cashflow"
	"SwapDesk/internal/observability"
	"SwapDesk/internal/privilege"
	"SwapDesk/internal/refdata"
	"SwapDesk/internal/trade"
	"SwapDesk/internal/validation"
)

// Event describes a committed lifecycle mutation. Events fire after commit,
// so a consumer never sees a trade the database does not have.
type Event struct {
	Action  string       `json:"action"`
	TradeID int64        `json:"tradeId"`
	Version int          `json:"version"`
	Status  trade.Status `json:"status"`
	At      time.Time    `json:"at"`
}

// Notifier receives post-commit lifecycle events. Implementations must not
// block: a slow consumer drops events rather than stalling the trade path.
type Notifier interface {
	NotifyTrade(ev Event)
}

// Service orchestrates the trade lifecycle.
type Service struct {
	store     Store
	lookup    refdata.Lookup
	validator *validation.TradeValidator
	privs     *privilege.Evaluator
	cashflows *cashflow.Generator
	notifier  Notifier
	metrics   *observability.Metrics
	log       zerolog.Logger
}

// NewService creates a lifecycle service. notifier and metrics may be nil.
func NewService(
	store Store,
	lookup refdata.Lookup,
	validator *validation.TradeValidator,
	privs *privilege.Evaluator,
	cashflows *cashflow.Generator,
	notifier Notifier,
	metrics *observability.Metrics,
	log zerolog.Logger,
) *Service {
	return &Service{
		store:     store,
		lookup:    lookup,
		validator: validator,
		privs:     privs,
		cashflows: cashflows,
		notifier:  notifier,
		metrics:   metrics,
		log:       log,
	}
}

// Create books a new trade at version 1. The status comes from the request
// when set (and must resolve to a known status), defaulting to NEW. The
// business trade ID comes from the request when supplied, otherwise from the
// store's sequence. Legs and their cashflows commit in the same transaction
// as the trade row.
func (s *Service) Create(ctx context.Context, req *trade.Request, actingLoginID string) (*trade.Trade, error) {
	start := time.Now()
	defer s.observeDuration(privilege.OpCreate, start)

	if !s.privs.Authorize(ctx, privilege.OpCreate, actingLoginID, req.TraderLoginID) {
		s.reject(privilege.OpCreate, "privilege")
		return nil, &trade.AuthorizationError{Operation: privilege.OpCreate, LoginID: actingLoginID}
	}

	if err := s.validate(ctx, req); err != nil {
		s.reject(privilege.OpCreate, "validation")
		return nil, err
	}

	resolved, err := s.resolveReferenceData(ctx, req)
	if err != nil {
		s.reject(privilege.OpCreate, "refdata")
		return nil, err
	}

	tradeID, err := s.pickTradeID(ctx, req)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	t := s.buildTrade(req, resolved, tradeID, 1, resolved.status, now)

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.persistVersion(ctx, tx, t); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit trade %d: %w", tradeID, err)
	}

	s.count(func(m *observability.Metrics) { m.TradesBooked.Inc() })
	s.notify(Event{Action: "created", TradeID: t.TradeID, Version: t.Version, Status: t.Status, At: now})
	s.log.Info().
		Int64("trade_id", t.TradeID).
		Int("version", t.Version).
		Str("book", t.BookName).
		Str("counterparty", t.Counterparty).
		Msg("trade booked")

	return t, nil
}

// Amend replaces the active version of a trade with a new version carrying
// the amended terms. The superseded version is deactivated but retained, so
// full history survives. Status on the new version is forced to AMENDED.
func (s *Service) Amend(ctx context.Context, tradeID int64, req *trade.Request, actingLoginID string) (*trade.Trade, error) {
	start := time.Now()
	defer s.observeDuration(privilege.OpAmend, start)

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin amend transaction: %w", err)
	}
	defer tx.Rollback()

	current, found, err := tx.LockActiveByTradeID(ctx, tradeID)
	if err != nil {
		return nil, fmt.Errorf("lock trade %d: %w", tradeID, err)
	}
	if !found {
		s.reject(privilege.OpAmend, "not_found")
		return nil, &trade.NotFoundError{TradeID: tradeID}
	}

	if !s.privs.Authorize(ctx, privilege.OpAmend, actingLoginID, current.TraderLoginID) {
		s.reject(privilege.OpAmend, "privilege")
		return nil, &trade.AuthorizationError{Operation: privilege.OpAmend, LoginID: actingLoginID}
	}

	if err := s.validate(ctx, req); err != nil {
		s.reject(privilege.OpAmend, "validation")
		return nil, err
	}

	resolved, err := s.resolveReferenceData(ctx, req)
	if err != nil {
		s.reject(privilege.OpAmend, "refdata")
		return nil, err
	}

	now := time.Now()
	ok, err := tx.DeactivateTrade(ctx, current.ID, now)
	if err != nil {
		return nil, fmt.Errorf("deactivate trade %d version %d: %w", tradeID, current.Version, err)
	}
	if !ok {
		s.reject(privilege.OpAmend, "conflict")
		return nil, &trade.ConflictError{TradeID: tradeID}
	}

	next := s.buildTrade(req, resolved, tradeID, current.Version+1, trade.StatusAmended, now)
	if next.UTICode == "" {
		next.UTICode = current.UTICode
	}

	if err := s.persistVersion(ctx, tx, next); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit amendment of trade %d: %w", tradeID, err)
	}

	s.count(func(m *observability.Metrics) { m.TradesAmended.Inc() })
	s.notify(Event{Action: "amended", TradeID: next.TradeID, Version: next.Version, Status: next.Status, At: now})
	s.log.Info().
		Int64("trade_id", next.TradeID).
		Int("version", next.Version).
		Msg("trade amended")

	return next, nil
}

// Terminate sets the active version's status to TERMINATED in place. No new
// version is created.
func (s *Service) Terminate(ctx context.Context, tradeID int64, actingLoginID string) (*trade.Trade, error) {
	t, err := s.setStatus(ctx, tradeID, actingLoginID, privilege.OpTerminate, trade.StatusTerminated)
	if err != nil {
		return nil, err
	}
	s.count(func(m *observability.Metrics) { m.TradesTerminated.Inc() })
	return t, nil
}

// Cancel sets the active version's status to CANCELLED in place.
func (s *Service) Cancel(ctx context.Context, tradeID int64, actingLoginID string) (*trade.Trade, error) {
	t, err := s.setStatus(ctx, tradeID, actingLoginID, privilege.OpCancel, trade.StatusCancelled)
	if err != nil {
		return nil, err
	}
	s.count(func(m *observability.Metrics) { m.TradesCancelled.Inc() })
	return t, nil
}

// Delete is a soft delete: it cancels. The row and its history remain.
func (s *Service) Delete(ctx context.Context, tradeID int64, actingLoginID string) (*trade.Trade, error) {
	return s.Cancel(ctx, tradeID, actingLoginID)
}

// GetActive returns the single active version of a trade.
func (s *Service) GetActive(ctx context.Context, tradeID int64) (*trade.Trade, error) {
	t, found, err := s.store.FindActiveByTradeID(ctx, tradeID)
	if err != nil {
		return nil, fmt.Errorf("load trade %d: %w", tradeID, err)
	}
	if !found {
		return nil, &trade.NotFoundError{TradeID: tradeID}
	}
	return t, nil
}

func (s *Service) setStatus(ctx context.Context, tradeID int64, actingLoginID, operation string, status trade.Status) (*trade.Trade, error) {
	start := time.Now()
	defer s.observeDuration(operation, start)

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin %s transaction: %w", operation, err)
	}
	defer tx.Rollback()

	current, found, err := tx.LockActiveByTradeID(ctx, tradeID)
	if err != nil {
		return nil, fmt.Errorf("lock trade %d: %w", tradeID, err)
	}
	if !found {
		s.reject(operation, "not_found")
		return nil, &trade.NotFoundError{TradeID: tradeID}
	}

	if !s.privs.Authorize(ctx, operation, actingLoginID, current.TraderLoginID) {
		s.reject(operation, "privilege")
		return nil, &trade.AuthorizationError{Operation: operation, LoginID: actingLoginID}
	}

	now := time.Now()
	if err := tx.UpdateTradeStatus(ctx, current.ID, status, now); err != nil {
		return nil, fmt.Errorf("%s trade %d: %w", operation, tradeID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit %s of trade %d: %w", operation, tradeID, err)
	}

	current.Status = status
	current.LastTouch = now

	action := "terminated"
	if status == trade.StatusCancelled {
		action = "cancelled"
	}
	s.notify(Event{Action: action, TradeID: tradeID, Version: current.Version, Status: status, At: now})
	s.log.Info().
		Int64("trade_id", tradeID).
		Int("version", current.Version).
		Str("status", string(status)).
		Msg("trade status changed")

	return current, nil
}

// validate merges the three rule groups so one response carries every
// violation found.
func (s *Service) validate(ctx context.Context, req *trade.Request) error {
	result := s.validator.ValidateBusinessRules(req)
	result.Merge(s.validator.ValidateLegConsistency(req))
	result.Merge(s.validator.ConfirmReferenceDataActive(ctx, req))

	if !result.Valid() {
		return &trade.ValidationError{Violations: result.Errors()}
	}
	return nil
}

type resolvedRefData struct {
	bookID         int64
	bookName       string
	counterpartyID int64
	counterparty   string
	status         trade.Status
	tradeType      string
	tradeSubType   string
}

// resolveReferenceData maps inbound names (or numeric IDs when the name is
// absent) to canonical reference-data rows. Validation has already checked
// that the mandatory entities exist and are active; resolution failing here
// means optional typing data did not resolve.
func (s *Service) resolveReferenceData(ctx context.Context, req *trade.Request) (*resolvedRefData, error) {
	out := &resolvedRefData{}

	switch {
	case strings.TrimSpace(req.BookName) != "":
		book, found, err := s.lookup.BookByName(ctx, strings.TrimSpace(req.BookName))
		if err != nil || !found {
			return nil, &trade.ReferenceDataError{Kind: "book", Name: req.BookName}
		}
		out.bookID, out.bookName = book.ID, book.Name
	case req.BookID != nil:
		book, found, err := s.lookup.BookByID(ctx, *req.BookID)
		if err != nil || !found {
			return nil, &trade.ReferenceDataError{Kind: "book", Name: fmt.Sprintf("id %d", *req.BookID)}
		}
		out.bookID, out.bookName = book.ID, book.Name
	default:
		return nil, &trade.ReferenceDataError{Kind: "book"}
	}

	switch {
	case strings.TrimSpace(req.Counterparty) != "":
		cp, found, err := s.lookup.CounterpartyByName(ctx, strings.TrimSpace(req.Counterparty))
		if err != nil || !found {
			return nil, &trade.ReferenceDataError{Kind: "counterparty", Name: req.Counterparty}
		}
		out.counterpartyID, out.counterparty = cp.ID, cp.Name
	case req.CounterpartyID != nil:
		cp, found, err := s.lookup.CounterpartyByID(ctx, *req.CounterpartyID)
		if err != nil || !found {
			return nil, &trade.ReferenceDataError{Kind: "counterparty", Name: fmt.Sprintf("id %d", *req.CounterpartyID)}
		}
		out.counterpartyID, out.counterparty = cp.ID, cp.Name
	default:
		return nil, &trade.ReferenceDataError{Kind: "counterparty"}
	}

	// An absent status means NEW; anything present must resolve to a known
	// canonical status.
	out.status = trade.StatusNew
	if st := strings.TrimSpace(req.Status); st != "" {
		name, found, err := s.lookup.StatusByName(ctx, st)
		if err != nil || !found {
			return nil, &trade.ReferenceDataError{Kind: "trade status", Name: st}
		}
		out.status = trade.Status(name)
	}

	if tt := strings.TrimSpace(req.TradeType); tt != "" {
		name, found, err := s.lookup.TradeTypeByName(ctx, tt)
		if err != nil || !found {
			return nil, &trade.ReferenceDataError{Kind: "trade type", Name: tt}
		}
		out.tradeType = name
	}

	if st := strings.TrimSpace(req.TradeSubType); st != "" {
		name, found, err := s.lookup.TradeSubTypeByName(ctx, st)
		if err != nil || !found {
			return nil, &trade.ReferenceDataError{Kind: "trade sub type", Name: st}
		}
		out.tradeSubType = name
	}

	for _, leg := range req.Legs {
		if ccy := strings.TrimSpace(leg.Currency); ccy != "" {
			if _, found, err := s.lookup.CurrencyByCode(ctx, ccy); err != nil || !found {
				return nil, &trade.ReferenceDataError{Kind: "currency", Name: ccy}
			}
		}
	}

	return out, nil
}

func (s *Service) pickTradeID(ctx context.Context, req *trade.Request) (int64, error) {
	if req.TradeID != nil && *req.TradeID > 0 {
		return *req.TradeID, nil
	}
	id, err := s.store.NextTradeID(ctx)
	if err != nil {
		return 0, fmt.Errorf("allocate trade ID: %w", err)
	}
	return id, nil
}

func (s *Service) buildTrade(req *trade.Request, resolved *resolvedRefData, tradeID int64, version int, status trade.Status, now time.Time) *trade.Trade {
	t := &trade.Trade{
		ID:      uuid.New(),
		TradeID: tradeID,
		Version: version,
		Active:  true,

		TradeDate:     req.TradeDate,
		StartDate:     req.StartDate,
		MaturityDate:  req.MaturityDate,
		ExecutionDate: req.ExecutionDate,
		UTICode:       strings.TrimSpace(req.UTICode),

		BookID:          resolved.bookID,
		BookName:        resolved.bookName,
		CounterpartyID:  resolved.counterpartyID,
		Counterparty:    resolved.counterparty,
		TraderLoginID:   strings.TrimSpace(req.TraderLoginID),
		InputterLoginID: strings.TrimSpace(req.InputterLoginID),
		Status:          status,
		TradeType:       resolved.tradeType,
		TradeSubType:    resolved.tradeSubType,

		CreatedDate: now,
		LastTouch:   now,
	}

	if t.UTICode == "" && version == 1 {
		t.UTICode = newUTICode(t.ID)
	}

	t.Legs = make([]trade.TradeLeg, 0, len(req.Legs))
	for _, lr := range req.Legs {
		leg := trade.TradeLeg{
			ID:         uuid.New(),
			TradeRowID: t.ID,

			Notional:    lr.Notional,
			Rate:        lr.Rate,
			LegRateType: normalizeLegType(lr.LegType),
			PayReceive:  trade.PayReceive(strings.ToUpper(strings.TrimSpace(lr.PayReceiveFlag))),
			Currency:    strings.ToUpper(strings.TrimSpace(lr.Currency)),
			IndexName:   strings.TrimSpace(lr.IndexName),

			Schedule:        strings.TrimSpace(lr.Schedule),
			PaymentBDC:      strings.TrimSpace(lr.PaymentBDC),
			FixingBDC:       strings.TrimSpace(lr.FixingBDC),
			HolidayCalendar: strings.TrimSpace(lr.HolidayCalendar),

			Active:      true,
			CreatedDate: now,
		}
		t.Legs = append(t.Legs, leg)
	}

	return t
}

func (s *Service) persistVersion(ctx context.Context, tx Tx, t *trade.Trade) error {
	if err := tx.SaveTrade(ctx, t); err != nil {
		return fmt.Errorf("save trade %d version %d: %w", t.TradeID, t.Version, err)
	}

	for i := range t.Legs {
		leg := &t.Legs[i]
		if err := tx.SaveLeg(ctx, leg); err != nil {
			return fmt.Errorf("save leg for trade %d: %w", t.TradeID, err)
		}

		if t.StartDate == nil || t.MaturityDate == nil {
			continue
		}

		flows, err := s.cashflows.Generate(ctx, tx, leg, *t.StartDate, *t.MaturityDate)
		if err != nil {
			return fmt.Errorf("generate cashflows for trade %d: %w", t.TradeID, err)
		}
		leg.Cashflows = flows
		s.count(func(m *observability.Metrics) { m.CashflowsGenerated.Add(float64(len(flows))) })
	}

	return nil
}

func normalizeLegType(raw string) trade.LegRateType {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "FIXED":
		return trade.FixedLeg
	case "FLOATING":
		return trade.FloatingLeg
	}
	return trade.LegRateType(strings.TrimSpace(raw))
}

func newUTICode(rowID uuid.UUID) string {
	return "SWPD" + strings.ToUpper(strings.ReplaceAll(rowID.String(), "-", ""))[:20]
}

func (s *Service) notify(ev Event) {
	if s.notifier != nil {
		s.notifier.NotifyTrade(ev)
	}
}

func (s *Service) count(fn func(m *observability.Metrics)) {
	if s.metrics != nil {
		fn(s.metrics)
	}
}

func (s *Service) reject(operation, reason string) {
	s.count(func(m *observability.Metrics) {
		m.OperationsRejected.WithLabelValues(operation, reason).Inc()
	})
}

func (s *Service) observeDuration(operation string, start time.Time) {
	s.count(func(m *observability.Metrics) {
		m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	})
}
