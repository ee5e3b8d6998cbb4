// Package query serves read-only trade searches. Filters arrive as RSQL-style
// expressions, pass through alias rewriting, and compile to parameterized SQL
// over the trades table. Searches only ever see active versions.
package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"SwapDesk/internal/observability"
	"SwapDesk/internal/trade"
)

// ErrBadFilter wraps every filter the parser or the field whitelist rejects,
// so callers can map it to a client error.
var ErrBadFilter = errors.New("invalid search filter")

// columns maps canonical field paths to trades-table columns. Anything not
// listed here is rejected; field names never reach the SQL text unescaped.
var columns = map[string]string{
	"tradeId":                 "trade_id",
	"version":                 "version",
	"tradeDate":               "trade_date",
	"tradeStartDate":          "start_date",
	"startDate":               "start_date",
	"tradeMaturityDate":       "maturity_date",
	"maturityDate":            "maturity_date",
	"utiCode":                 "uti_code",
	"counterparty.name":       "counterparty_name",
	"book.bookName":           "book_name",
	"traderUser.loginId":      "trader_login_id",
	"inputterUser.loginId":    "inputter_login_id",
	"tradeStatus.tradeStatus": "status",
	"tradeType":               "trade_type",
	"tradeSubType":            "trade_sub_type",
}

var sqlOperators = map[string]string{
	"==":   "=",
	"!=":   "<>",
	"=gt=": ">",
	"=ge=": ">=",
	"=lt=": "<",
	"=le=": "<=",
}

const (
	defaultLimit = 100
	maxLimit     = 500
)

// Service answers trade searches from the database.
type Service struct {
	db      *sql.DB
	metrics *observability.Metrics
	log     zerolog.Logger
}

// NewService creates a query service. metrics may be nil.
func NewService(db *sql.DB, metrics *observability.Metrics, log zerolog.Logger) *Service {
	return &Service{db: db, metrics: metrics, log: log}
}

// Search runs a filter expression against active trades. sortBy is
// "field,asc" or "field,desc" and defaults to "tradeDate,desc". limit and
// offset page the result; a non-positive limit gets the default.
func (s *Service) Search(ctx context.Context, filter, sortBy string, limit, offset int) ([]trade.Trade, error) {
	conds, err := ParseFilter(RewriteAliases(filter))
	if err != nil {
		s.countError()
		return nil, fmt.Errorf("%w: %v", ErrBadFilter, err)
	}

	trades, err := s.run(ctx, conds, sortBy, limit, offset)
	if err != nil {
		return nil, err
	}

	s.countQuery("filter")
	return trades, nil
}

// ByCounterparty returns active trades facing the named counterparty.
func (s *Service) ByCounterparty(ctx context.Context, name string) ([]trade.Trade, error) {
	trades, err := s.run(ctx, []Condition{{Field: "counterparty.name", Operator: "==", Value: name}}, "", 0, 0)
	if err != nil {
		return nil, err
	}
	s.countQuery("counterparty")
	return trades, nil
}

// ByBook returns active trades in the named book.
func (s *Service) ByBook(ctx context.Context, bookName string) ([]trade.Trade, error) {
	trades, err := s.run(ctx, []Condition{{Field: "book.bookName", Operator: "==", Value: bookName}}, "", 0, 0)
	if err != nil {
		return nil, err
	}
	s.countQuery("book")
	return trades, nil
}

// ByTrader returns active trades owned by the trader login.
func (s *Service) ByTrader(ctx context.Context, loginID string) ([]trade.Trade, error) {
	trades, err := s.run(ctx, []Condition{{Field: "traderUser.loginId", Operator: "==", Value: loginID}}, "", 0, 0)
	if err != nil {
		return nil, err
	}
	s.countQuery("trader")
	return trades, nil
}

// ByStatus returns active trades in the given lifecycle status.
func (s *Service) ByStatus(ctx context.Context, status string) ([]trade.Trade, error) {
	trades, err := s.run(ctx, []Condition{{Field: "tradeStatus.tradeStatus", Operator: "==", Value: strings.ToUpper(status)}}, "", 0, 0)
	if err != nil {
		return nil, err
	}
	s.countQuery("status")
	return trades, nil
}

// ByTradeDateRange returns active trades with trade dates in [from, to].
func (s *Service) ByTradeDateRange(ctx context.Context, from, to trade.Date) ([]trade.Trade, error) {
	conds := []Condition{
		{Field: "tradeDate", Operator: "=ge=", Value: from.String()},
		{Field: "tradeDate", Operator: "=le=", Value: to.String()},
	}
	trades, err := s.run(ctx, conds, "", 0, 0)
	if err != nil {
		return nil, err
	}
	s.countQuery("date_range")
	return trades, nil
}

func (s *Service) run(ctx context.Context, conds []Condition, sortBy string, limit, offset int) ([]trade.Trade, error) {
	where := []string{"active = TRUE"}
	var args []interface{}

	for _, c := range conds {
		col, ok := columns[c.Field]
		if !ok {
			s.countError()
			return nil, fmt.Errorf("%w: unknown field %q", ErrBadFilter, c.Field)
		}
		op, ok := sqlOperators[c.Operator]
		if !ok {
			s.countError()
			return nil, fmt.Errorf("%w: unknown operator %q", ErrBadFilter, c.Operator)
		}

		args = append(args, c.Value)
		where = append(where, fmt.Sprintf("%s %s $%d", col, op, len(args)))
	}

	orderBy, err := s.orderClause(sortBy)
	if err != nil {
		s.countError()
		return nil, err
	}

	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}

	q := fmt.Sprintf(`
		SELECT id, trade_id, version, active,
		       trade_date, start_date, maturity_date, execution_date, uti_code,
		       book_id, book_name, counterparty_id, counterparty_name,
		       trader_login_id, inputter_login_id,
		       status, trade_type, trade_sub_type,
		       created_date, deactivated_date, last_touch
		FROM trading.trades
		WHERE %s
		ORDER BY %s
		LIMIT %d OFFSET %d
	`, strings.Join(where, " AND "), orderBy, limit, offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("search trades: %w", err)
	}
	defer rows.Close()

	var trades []trade.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, *t)
	}
	return trades, rows.Err()
}

// orderClause parses "field,asc|desc" through the same alias map and field
// whitelist as filters. Empty input sorts by trade date, newest first.
func (s *Service) orderClause(sortBy string) (string, error) {
	field := "tradeDate"
	dir := "DESC"

	if strings.TrimSpace(sortBy) != "" {
		parts := strings.SplitN(sortBy, ",", 2)
		field = strings.TrimSpace(parts[0])
		if len(parts) == 2 {
			switch strings.ToLower(strings.TrimSpace(parts[1])) {
			case "asc":
				dir = "ASC"
			case "desc":
				dir = "DESC"
			default:
				return "", fmt.Errorf("%w: sort direction %q", ErrBadFilter, parts[1])
			}
		}
	}

	if alias, ok := DefaultAliases[strings.ToLower(field)]; ok {
		field = alias
	}
	col, ok := columns[field]
	if !ok {
		return "", fmt.Errorf("%w: unknown sort field %q", ErrBadFilter, field)
	}

	return col + " " + dir + ", trade_id " + dir, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrade(row rowScanner) (*trade.Trade, error) {
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
		return nil, fmt.Errorf("scan trade row: %w", err)
	}

	t.TradeDate = nullableDate(tradeDate)
	t.StartDate = nullableDate(startDate)
	t.MaturityDate = nullableDate(maturityDate)
	t.ExecutionDate = nullableDate(executionDate)
	t.UTICode = utiCode.String
	t.TradeType = tradeType.String
	t.TradeSubType = tradeSubType.String
	if deactivated.Valid {
		at := deactivated.Time
		t.DeactivatedDate = &at
	}

	return &t, nil
}

func nullableDate(nt sql.NullTime) *trade.Date {
	if !nt.Valid {
		return nil
	}
	d := trade.DateOf(nt.Time)
	return &d
}

func (s *Service) countQuery(kind string) {
	if s.metrics != nil {
		s.metrics.SearchQueries.WithLabelValues(kind).Inc()
	}
}

func (s *Service) countError() {
	if s.metrics != nil {
		s.metrics.SearchErrors.Inc()
	}
}
