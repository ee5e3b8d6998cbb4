package lifecycle_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"SwapDesk/internal/cashflow"
	"SwapDesk/internal/lifecycle"
	"SwapDesk/internal/privilege"
	"SwapDesk/internal/refdata"
	"SwapDesk/internal/trade"
	"SwapDesk/internal/validation"
)

// --- Test helpers ---

// memStore is an in-memory lifecycle.Store. Mutations staged in a memTx are
// applied on Commit and discarded on Rollback, mirroring the database
// transaction boundary.
type memStore struct {
	mu sync.Mutex

	nextID    int64
	trades    []*trade.Trade
	legs      []trade.TradeLeg
	cashflows []trade.Cashflow

	// failDeactivate simulates losing the race against a concurrent amend.
	failDeactivate bool
}

func newMemStore() *memStore {
	return &memStore{nextID: 10000}
}

func (s *memStore) NextTradeID(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	return id, nil
}

func (s *memStore) FindActiveByTradeID(_ context.Context, tradeID int64) (*trade.Trade, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findActiveLocked(tradeID)
}

func (s *memStore) findActiveLocked(tradeID int64) (*trade.Trade, bool, error) {
	for _, t := range s.trades {
		if t.TradeID == tradeID && t.Active {
			cp := *t
			return &cp, true, nil
		}
	}
	return nil, false, nil
}

func (s *memStore) Begin(_ context.Context) (lifecycle.Tx, error) {
	return &memTx{store: s}, nil
}

func (s *memStore) activeCount(tradeID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.trades {
		if t.TradeID == tradeID && t.Active {
			n++
		}
	}
	return n
}

type statusUpdate struct {
	rowID  uuid.UUID
	status trade.Status
	at     time.Time
}

type memTx struct {
	store *memStore

	savedTrades   []*trade.Trade
	savedLegs     []trade.TradeLeg
	savedFlows    []trade.Cashflow
	deactivated   []uuid.UUID
	statusUpdates []statusUpdate
	done          bool
}

func (tx *memTx) SaveTrade(_ context.Context, t *trade.Trade) error {
	cp := *t
	tx.savedTrades = append(tx.savedTrades, &cp)
	return nil
}

func (tx *memTx) SaveLeg(_ context.Context, leg *trade.TradeLeg) error {
	tx.savedLegs = append(tx.savedLegs, *leg)
	return nil
}

func (tx *memTx) SaveCashflow(_ context.Context, cf *trade.Cashflow) error {
	tx.savedFlows = append(tx.savedFlows, *cf)
	return nil
}

func (tx *memTx) LockActiveByTradeID(_ context.Context, tradeID int64) (*trade.Trade, bool, error) {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	return tx.store.findActiveLocked(tradeID)
}

func (tx *memTx) DeactivateTrade(_ context.Context, rowID uuid.UUID, at time.Time) (bool, error) {
	if tx.store.failDeactivate {
		return false, nil
	}
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	for _, t := range tx.store.trades {
		if t.ID == rowID && t.Active {
			tx.deactivated = append(tx.deactivated, rowID)
			return true, nil
		}
	}
	return false, nil
}

func (tx *memTx) UpdateTradeStatus(_ context.Context, rowID uuid.UUID, status trade.Status, at time.Time) error {
	tx.statusUpdates = append(tx.statusUpdates, statusUpdate{rowID: rowID, status: status, at: at})
	return nil
}

func (tx *memTx) Commit() error {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()

	for _, id := range tx.deactivated {
		for _, t := range tx.store.trades {
			if t.ID == id {
				t.Active = false
				now := time.Now()
				t.DeactivatedDate = &now
			}
		}
	}
	for _, u := range tx.statusUpdates {
		for _, t := range tx.store.trades {
			if t.ID == u.rowID {
				t.Status = u.status
				t.LastTouch = u.at
			}
		}
	}
	tx.store.trades = append(tx.store.trades, tx.savedTrades...)
	tx.store.legs = append(tx.store.legs, tx.savedLegs...)
	tx.store.cashflows = append(tx.store.cashflows, tx.savedFlows...)

	tx.done = true
	return nil
}

func (tx *memTx) Rollback() error {
	tx.done = true
	return nil
}

type memNotifier struct {
	mu     sync.Mutex
	events []lifecycle.Event
}

func (n *memNotifier) NotifyTrade(ev lifecycle.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func testLookup() *refdata.StaticLookup {
	lookup := refdata.NewStaticLookup()
	lookup.AddUser(&refdata.AppUser{ID: 1, LoginID: "tjones", Role: "TRADER_SALES", Active: true})
	lookup.AddUser(&refdata.AppUser{ID: 2, LoginID: "mlee", Role: "MIDDLE_OFFICE", Active: true})
	lookup.AddUser(&refdata.AppUser{ID: 3, LoginID: "skhan", Role: "SUPPORT", Active: true})
	lookup.AddBook(&refdata.Book{ID: 100, Name: "RATES-NY", Active: true})
	lookup.AddCounterparty(&refdata.Counterparty{ID: 200, Name: "ACME Corp", Active: true})
	return lookup
}

func newTestService(store *memStore) (*lifecycle.Service, *memNotifier) {
	lookup := testLookup()
	validator := validation.NewTradeValidator(lookup)
	// Pin the clock so the 30-day trade-date window checks against the same
	// date the fixtures use.
	validator.Now = func() time.Time {
		return time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)
	}
	notifier := &memNotifier{}
	svc := lifecycle.NewService(
		store,
		lookup,
		validator,
		privilege.NewEvaluator(lookup),
		cashflow.NewGenerator(zerolog.Nop()),
		notifier,
		nil,
		zerolog.Nop(),
	)
	return svc, notifier
}

func dateOf(year int, month time.Month, day int) *trade.Date {
	d := trade.NewDate(year, month, day)
	return &d
}

func mustRate(s string) *decimal.Decimal {
	r := decimal.RequireFromString(s)
	return &r
}

func validRequest() *trade.Request {
	return &trade.Request{
		TradeDate:     dateOf(2026, time.August, 20),
		StartDate:     dateOf(2026, time.August, 24),
		MaturityDate:  dateOf(2027, time.August, 24),
		BookName:      "RATES-NY",
		Counterparty:  "ACME Corp",
		TraderLoginID: "tjones",
		Legs: []trade.LegRequest{
			{
				Notional:       decimal.NewFromInt(1_000_000),
				Rate:           mustRate("0.05"),
				LegType:        "Fixed",
				PayReceiveFlag: "PAY",
				Currency:       "USD",
				Schedule:       "Quarterly",
			},
			{
				Notional:       decimal.NewFromInt(1_000_000),
				LegType:        "Floating",
				PayReceiveFlag: "RECEIVE",
				Currency:       "USD",
				IndexName:      "SOFR",
				Schedule:       "Quarterly",
			},
		},
	}
}

// ============================================================================
// Test: Create
// ============================================================================

func TestCreate_AssignsTradeIDAndNewStatus(t *testing.T) {
	store := newMemStore()
	svc, notifier := newTestService(store)

	booked, err := svc.Create(context.Background(), validRequest(), "tjones")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if booked.TradeID != 10000 {
		t.Errorf("expected trade ID 10000 from sequence, got %d", booked.TradeID)
	}
	if booked.Version != 1 {
		t.Errorf("expected version 1, got %d", booked.Version)
	}
	if booked.Status != trade.StatusNew {
		t.Errorf("expected status NEW, got %s", booked.Status)
	}
	if !booked.Active {
		t.Error("expected booked trade to be active")
	}
	if booked.UTICode == "" {
		t.Error("expected a generated UTI code")
	}
	if len(booked.Legs) != 2 {
		t.Fatalf("expected 2 legs, got %d", len(booked.Legs))
	}

	// One year quarterly: 4 payment dates per leg.
	if len(store.cashflows) != 8 {
		t.Errorf("expected 8 cashflows committed, got %d", len(store.cashflows))
	}

	if len(notifier.events) != 1 || notifier.events[0].Action != "created" {
		t.Errorf("expected one 'created' event, got %+v", notifier.events)
	}
}

func TestCreate_HonorsRequestedTradeID(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store)

	req := validRequest()
	want := int64(87654)
	req.TradeID = &want

	booked, err := svc.Create(context.Background(), req, "tjones")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if booked.TradeID != want {
		t.Errorf("expected trade ID %d, got %d", want, booked.TradeID)
	}
}

func TestCreate_UsesRequestedStatus(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store)

	req := validRequest()
	req.Status = "terminated"

	booked, err := svc.Create(context.Background(), req, "tjones")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if booked.Status != trade.StatusTerminated {
		t.Errorf("expected status TERMINATED, got %s", booked.Status)
	}
}

func TestCreate_RejectsUnknownStatus(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store)

	req := validRequest()
	req.Status = "PENDING"

	_, err := svc.Create(context.Background(), req, "tjones")

	var rerr *trade.ReferenceDataError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected ReferenceDataError, got %v", err)
	}
	if rerr.Kind != "trade status" {
		t.Errorf("expected a trade status error, got kind %q", rerr.Kind)
	}
	if len(store.trades) != 0 {
		t.Errorf("expected nothing persisted after rejection, found %d trades", len(store.trades))
	}
}

func TestCreate_RejectsEqualPayReceiveFlags(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store)

	req := validRequest()
	req.Legs[1].PayReceiveFlag = "PAY"

	_, err := svc.Create(context.Background(), req, "tjones")

	var verr *trade.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !strings.Contains(verr.Error(), "Legs must have opposite pay/receive flags") {
		t.Errorf("unexpected violations: %v", verr.Violations)
	}
	if len(store.trades) != 0 {
		t.Errorf("expected nothing persisted after rejection, found %d trades", len(store.trades))
	}
}

func TestCreate_RejectsStartBeforeTradeDate(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store)

	req := validRequest()
	req.StartDate = dateOf(2026, time.August, 10)
	req.MaturityDate = dateOf(2027, time.August, 10)

	_, err := svc.Create(context.Background(), req, "tjones")

	var verr *trade.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !strings.Contains(verr.Error(), "Start date cannot be before trade date") {
		t.Errorf("unexpected violations: %v", verr.Violations)
	}
	if len(store.trades) != 0 || len(store.cashflows) != 0 {
		t.Error("expected nothing persisted after rejection")
	}
}

func TestCreate_DeniedForOtherTradersBook(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store)

	// skhan is SUPPORT; view only.
	_, err := svc.Create(context.Background(), validRequest(), "skhan")

	var aerr *trade.AuthorizationError
	if !errors.As(err, &aerr) {
		t.Fatalf("expected AuthorizationError, got %v", err)
	}
	if len(store.trades) != 0 {
		t.Error("expected nothing persisted after privilege denial")
	}
}

// ============================================================================
// Test: Amend
// ============================================================================

func TestAmend_IncrementsVersionAndDeactivatesPrior(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store)

	booked, err := svc.Create(context.Background(), validRequest(), "tjones")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	req := validRequest()
	req.Legs[0].Rate = mustRate("0.055")

	amended, err := svc.Amend(context.Background(), booked.TradeID, req, "tjones")
	if err != nil {
		t.Fatalf("Amend failed: %v", err)
	}

	if amended.Version != 2 {
		t.Errorf("expected version 2, got %d", amended.Version)
	}
	if amended.Status != trade.StatusAmended {
		t.Errorf("expected status AMENDED, got %s", amended.Status)
	}
	if amended.UTICode != booked.UTICode {
		t.Errorf("expected UTI code carried over, got %q want %q", amended.UTICode, booked.UTICode)
	}
	if n := store.activeCount(booked.TradeID); n != 1 {
		t.Errorf("expected exactly 1 active version, got %d", n)
	}

	again, err := svc.Amend(context.Background(), booked.TradeID, validRequest(), "mlee")
	if err != nil {
		t.Fatalf("second Amend failed: %v", err)
	}
	if again.Version != 3 {
		t.Errorf("expected version 3 after two amends, got %d", again.Version)
	}
	if n := store.activeCount(booked.TradeID); n != 1 {
		t.Errorf("expected exactly 1 active version, got %d", n)
	}
}

func TestAmend_SupportRoleDenied(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store)

	booked, err := svc.Create(context.Background(), validRequest(), "tjones")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	_, err = svc.Amend(context.Background(), booked.TradeID, validRequest(), "skhan")

	var aerr *trade.AuthorizationError
	if !errors.As(err, &aerr) {
		t.Fatalf("expected AuthorizationError, got %v", err)
	}

	current, lerr := svc.GetActive(context.Background(), booked.TradeID)
	if lerr != nil {
		t.Fatalf("GetActive failed: %v", lerr)
	}
	if current.Version != 1 || current.Status != trade.StatusNew {
		t.Errorf("expected trade untouched, got version %d status %s", current.Version, current.Status)
	}
}

func TestAmend_UnknownTradeNotFound(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store)

	_, err := svc.Amend(context.Background(), 99999, validRequest(), "tjones")

	var nerr *trade.NotFoundError
	if !errors.As(err, &nerr) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestAmend_ConcurrentModificationConflict(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store)

	booked, err := svc.Create(context.Background(), validRequest(), "tjones")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	store.failDeactivate = true
	_, err = svc.Amend(context.Background(), booked.TradeID, validRequest(), "tjones")

	var cerr *trade.ConflictError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if n := store.activeCount(booked.TradeID); n != 1 {
		t.Errorf("expected the original version still active, got %d active", n)
	}
}

// ============================================================================
// Test: Terminate / Cancel / Delete
// ============================================================================

func TestTerminate_UpdatesStatusInPlace(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store)

	booked, err := svc.Create(context.Background(), validRequest(), "tjones")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	terminated, err := svc.Terminate(context.Background(), booked.TradeID, "tjones")
	if err != nil {
		t.Fatalf("Terminate failed: %v", err)
	}
	if terminated.Status != trade.StatusTerminated {
		t.Errorf("expected status TERMINATED, got %s", terminated.Status)
	}
	if terminated.Version != 1 {
		t.Errorf("expected terminate not to create a new version, got version %d", terminated.Version)
	}

	current, err := svc.GetActive(context.Background(), booked.TradeID)
	if err != nil {
		t.Fatalf("GetActive failed: %v", err)
	}
	if current.Status != trade.StatusTerminated {
		t.Errorf("expected committed status TERMINATED, got %s", current.Status)
	}
}

func TestDelete_IsCancel(t *testing.T) {
	store := newMemStore()
	svc, notifier := newTestService(store)

	booked, err := svc.Create(context.Background(), validRequest(), "tjones")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	deleted, err := svc.Delete(context.Background(), booked.TradeID, "tjones")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if deleted.Status != trade.StatusCancelled {
		t.Errorf("expected status CANCELLED, got %s", deleted.Status)
	}

	current, err := svc.GetActive(context.Background(), booked.TradeID)
	if err != nil {
		t.Fatalf("GetActive failed: %v", err)
	}
	if current.Status != trade.StatusCancelled {
		t.Errorf("expected committed status CANCELLED, got %s", current.Status)
	}

	last := notifier.events[len(notifier.events)-1]
	if last.Action != "cancelled" {
		t.Errorf("expected 'cancelled' event, got %q", last.Action)
	}
}

func TestTerminate_UnknownTradeNotFound(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store)

	_, err := svc.Terminate(context.Background(), 424242, "tjones")

	var nerr *trade.NotFoundError
	if !errors.As(err, &nerr) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}
