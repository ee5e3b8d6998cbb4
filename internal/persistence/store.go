// Package persistence implements the trade store on PostgreSQL. All lifecycle
// writes go through a single transaction; reads of the active version take a
// row lock so concurrent mutations of one trade ID serialize at the database.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"SwapDesk/internal/lifecycle"
	"SwapDesk/internal/trade"
)

// PostgresStore is the production lifecycle.Store.
type PostgresStore struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewPostgresStore(db *sql.DB, log zerolog.Logger) *PostgresStore {
	return &PostgresStore{db: db, log: log}
}

// NextTradeID draws from the trading.trade_id_seq sequence. Gaps from rolled
// back requests are acceptable; uniqueness is what matters.
func (s *PostgresStore) NextTradeID(ctx context.Context) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT nextval('trading.trade_id_seq')`).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("next trade id: %w", err)
	}
	return id, nil
}

// FindActiveByTradeID loads the active version with its legs and cashflows.
func (s *PostgresStore) FindActiveByTradeID(ctx context.Context, tradeID int64) (*trade.Trade, bool, error) {
	return findActive(ctx, s.db, tradeID, false)
}

func (s *PostgresStore) Begin(ctx context.Context) (lifecycle.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &pgTx{tx: tx, ctx: ctx}, nil
}

// querier covers both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

const tradeColumns = `
	id, trade_id, version, active,
	trade_date, start_date, maturity_date, execution_date, uti_code,
	book_id, book_name, counterparty_id, counterparty_name,
	trader_login_id, inputter_login_id,
	status, trade_type, trade_sub_type,
	created_date, deactivated_date, last_touch`

func findActive(ctx context.Context, q querier, tradeID int64, forUpdate bool) (*trade.Trade, bool, error) {
	query := `SELECT` + tradeColumns + `
		FROM trading.trades
		WHERE trade_id = $1 AND active = TRUE`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	t, err := scanTradeRow(q.QueryRowContext(ctx, query, tradeID))
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("find active trade %d: %w", tradeID, err)
	}

	if err := loadLegs(ctx, q, t); err != nil {
		return nil, false, err
	}
	return t, true, nil
}

func scanTradeRow(row *sql.Row) (*trade.Trade, error) {
	var t trade.Trade
	var tradeDate, startDate, maturityDate, executionDate, deactivated sql.NullTime
	var utiCode, tradeType, tradeSubType sql.NullString

	err := row.Scan(
		&t.ID, &t.TradeID, &t.Version, &t.Active,
		&tradeDate, &startDate, &maturityDate, &executionDate, &utiCode,
		&t.BookID, &t.BookName, &t.CounterpartyID, &t.Counterparty,
		&t.TraderLoginID, &t.InputterLoginID,
		&t.Status, &tradeType, &tradeSubType,
		&t.CreatedDate, &deactivated, &t.LastTouch,
	)
	if err != nil {
		return nil, err
	}

	t.TradeDate = toDate(tradeDate)
	t.StartDate = toDate(startDate)
	t.MaturityDate = toDate(maturityDate)
	t.ExecutionDate = toDate(executionDate)
	t.UTICode = utiCode.String
	t.TradeType = tradeType.String
	t.TradeSubType = tradeSubType.String
	if deactivated.Valid {
		at := deactivated.Time
		t.DeactivatedDate = &at
	}
	return &t, nil
}

func loadLegs(ctx context.Context, q querier, t *trade.Trade) error {
	rows, err := q.QueryContext(ctx, `
		SELECT id, trade_row_id, notional, rate, leg_rate_type, pay_receive,
		       currency, index_name, schedule, payment_bdc, fixing_bdc,
		       holiday_calendar, active, created_date
		FROM trading.trade_legs
		WHERE trade_row_id = $1
		ORDER BY created_date, id
	`, t.ID)
	if err != nil {
		return fmt.Errorf("load legs for trade %d: %w", t.TradeID, err)
	}
	defer rows.Close()

	t.Legs = nil
	for rows.Next() {
		var leg trade.TradeLeg
		var rate sql.NullString
		var indexName, schedule, paymentBDC, fixingBDC, holidayCal sql.NullString

		if err := rows.Scan(
			&leg.ID, &leg.TradeRowID, &leg.Notional, &rate, &leg.LegRateType,
			&leg.PayReceive, &leg.Currency, &indexName, &schedule,
			&paymentBDC, &fixingBDC, &holidayCal, &leg.Active, &leg.CreatedDate,
		); err != nil {
			return fmt.Errorf("scan leg: %w", err)
		}

		leg.Rate, err = nullableDecimal(rate)
		if err != nil {
			return err
		}
		leg.IndexName = indexName.String
		leg.Schedule = schedule.String
		leg.PaymentBDC = paymentBDC.String
		leg.FixingBDC = fixingBDC.String
		leg.HolidayCalendar = holidayCal.String

		t.Legs = append(t.Legs, leg)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range t.Legs {
		if err := loadCashflows(ctx, q, &t.Legs[i]); err != nil {
			return err
		}
	}
	return nil
}

func loadCashflows(ctx context.Context, q querier, leg *trade.TradeLeg) error {
	rows, err := q.QueryContext(ctx, `
		SELECT id, leg_id, value_date, rate, payment_value, pay_receive,
		       payment_bdc, active, created_date
		FROM trading.cashflows
		WHERE leg_id = $1
		ORDER BY value_date
	`, leg.ID)
	if err != nil {
		return fmt.Errorf("load cashflows for leg %s: %w", leg.ID, err)
	}
	defer rows.Close()

	leg.Cashflows = nil
	for rows.Next() {
		var cf trade.Cashflow
		var valueDate time.Time
		var rate, paymentBDC sql.NullString

		if err := rows.Scan(
			&cf.ID, &cf.LegID, &valueDate, &rate, &cf.PaymentValue,
			&cf.PayReceive, &paymentBDC, &cf.Active, &cf.CreatedDate,
		); err != nil {
			return fmt.Errorf("scan cashflow: %w", err)
		}

		cf.ValueDate = trade.DateOf(valueDate)
		cf.Rate, err = nullableDecimal(rate)
		if err != nil {
			return err
		}
		cf.PaymentBDC = paymentBDC.String

		leg.Cashflows = append(leg.Cashflows, cf)
	}
	return rows.Err()
}

// pgTx is one lifecycle transaction. Generated cashflows are buffered and
// flushed as multi-row inserts at commit. The begin context is kept so the
// commit-time flush still honors the request's cancellation and deadline.
type pgTx struct {
	tx      *sql.Tx
	ctx     context.Context
	pending []*trade.Cashflow
}

func (t *pgTx) SaveTrade(ctx context.Context, tr *trade.Trade) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO trading.trades (`+strings.TrimSpace(tradeColumns)+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
		        $14, $15, $16, $17, $18, $19, $20, $21)
	`,
		tr.ID, tr.TradeID, tr.Version, tr.Active,
		dateArg(tr.TradeDate), dateArg(tr.StartDate), dateArg(tr.MaturityDate),
		dateArg(tr.ExecutionDate), nullString(tr.UTICode),
		tr.BookID, tr.BookName, tr.CounterpartyID, tr.Counterparty,
		tr.TraderLoginID, tr.InputterLoginID,
		string(tr.Status), nullString(tr.TradeType), nullString(tr.TradeSubType),
		tr.CreatedDate, tr.DeactivatedDate, tr.LastTouch,
	)
	if err != nil {
		return fmt.Errorf("insert trade %d v%d: %w", tr.TradeID, tr.Version, err)
	}
	return nil
}

func (t *pgTx) SaveLeg(ctx context.Context, leg *trade.TradeLeg) error {
	var rate interface{}
	if leg.Rate != nil {
		rate = leg.Rate.String()
	}

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO trading.trade_legs
			(id, trade_row_id, notional, rate, leg_rate_type, pay_receive,
			 currency, index_name, schedule, payment_bdc, fixing_bdc,
			 holiday_calendar, active, created_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		leg.ID, leg.TradeRowID, leg.Notional.String(), rate,
		string(leg.LegRateType), string(leg.PayReceive),
		nullString(leg.Currency), nullString(leg.IndexName),
		nullString(leg.Schedule), nullString(leg.PaymentBDC),
		nullString(leg.FixingBDC), nullString(leg.HolidayCalendar),
		leg.Active, leg.CreatedDate,
	)
	if err != nil {
		return fmt.Errorf("insert leg %s: %w", leg.ID, err)
	}
	return nil
}

// SaveCashflow buffers the row; the batch flushes on Commit as one multi-row
// INSERT.
func (t *pgTx) SaveCashflow(_ context.Context, cf *trade.Cashflow) error {
	t.pending = append(t.pending, cf)
	return nil
}

func (t *pgTx) flushCashflows(ctx context.Context) error {
	if len(t.pending) == 0 {
		return nil
	}

	const cols = 9
	query := `INSERT INTO trading.cashflows
		(id, leg_id, value_date, rate, payment_value, pay_receive,
		 payment_bdc, active, created_date)
	VALUES `

	values := make([]string, 0, len(t.pending))
	args := make([]interface{}, 0, len(t.pending)*cols)

	for i, cf := range t.pending {
		base := i * cols
		values = append(values, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9,
		))

		var rate interface{}
		if cf.Rate != nil {
			rate = cf.Rate.String()
		}
		args = append(args,
			cf.ID, cf.LegID, cf.ValueDate.Time, rate, cf.PaymentValue.String(),
			string(cf.PayReceive), nullString(cf.PaymentBDC), cf.Active, cf.CreatedDate,
		)
	}

	query += strings.Join(values, ", ")
	query += " ON CONFLICT (id) DO NOTHING"

	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert %d cashflows: %w", len(t.pending), err)
	}
	t.pending = nil
	return nil
}

func (t *pgTx) LockActiveByTradeID(ctx context.Context, tradeID int64) (*trade.Trade, bool, error) {
	return findActive(ctx, t.tx, tradeID, true)
}

// DeactivateTrade flips the active flag off. The active guard in the WHERE
// clause makes the update a no-op when a concurrent writer already
// deactivated the row; the caller treats zero rows as a conflict.
func (t *pgTx) DeactivateTrade(ctx context.Context, rowID uuid.UUID, at time.Time) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE trading.trades
		SET active = FALSE, deactivated_date = $2, last_touch = $2
		WHERE id = $1 AND active = TRUE
	`, rowID, at)
	if err != nil {
		return false, fmt.Errorf("deactivate trade row %s: %w", rowID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (t *pgTx) UpdateTradeStatus(ctx context.Context, rowID uuid.UUID, status trade.Status, at time.Time) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE trading.trades
		SET status = $2, last_touch = $3
		WHERE id = $1 AND active = TRUE
	`, rowID, string(status), at)
	if err != nil {
		return fmt.Errorf("update status of trade row %s: %w", rowID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("update status of trade row %s: row no longer active", rowID)
	}
	return nil
}

func (t *pgTx) Commit() error {
	if err := t.flushCashflows(t.ctx); err != nil {
		t.tx.Rollback()
		return err
	}
	return t.tx.Commit()
}

func (t *pgTx) Rollback() error {
	return t.tx.Rollback()
}

func toDate(nt sql.NullTime) *trade.Date {
	if !nt.Valid {
		return nil
	}
	d := trade.DateOf(nt.Time)
	return &d
}

func dateArg(d *trade.Date) interface{} {
	if d == nil {
		return nil
	}
	return d.Time
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableDecimal(ns sql.NullString) (*decimal.Decimal, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(ns.String)
	if err != nil {
		return nil, fmt.Errorf("parse decimal %q: %w", ns.String, err)
	}
	return &d, nil
}
