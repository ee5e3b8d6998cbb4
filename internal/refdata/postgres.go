package refdata

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PostgresLookup resolves reference data from the trading schema.
type PostgresLookup struct {
	db *sql.DB
}

func NewPostgresLookup(db *sql.DB) *PostgresLookup {
	return &PostgresLookup{db: db}
}

func (l *PostgresLookup) UserByLoginID(ctx context.Context, loginID string) (*AppUser, bool, error) {
	var u AppUser
	var first, last sql.NullString

	err := l.db.QueryRowContext(ctx, `
		SELECT id, login_id, first_name, last_name, role, active
		FROM trading.app_users
		WHERE LOWER(login_id) = LOWER($1)
	`, strings.TrimSpace(loginID)).Scan(&u.ID, &u.LoginID, &first, &last, &u.Role, &u.Active)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup user %q: %w", loginID, err)
	}

	u.FirstName = first.String
	u.LastName = last.String
	return &u, true, nil
}

func (l *PostgresLookup) BookByName(ctx context.Context, name string) (*Book, bool, error) {
	var b Book
	err := l.db.QueryRowContext(ctx, `
		SELECT id, name, active FROM trading.books WHERE name = $1
	`, name).Scan(&b.ID, &b.Name, &b.Active)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup book %q: %w", name, err)
	}
	return &b, true, nil
}

func (l *PostgresLookup) BookByID(ctx context.Context, id int64) (*Book, bool, error) {
	var b Book
	err := l.db.QueryRowContext(ctx, `
		SELECT id, name, active FROM trading.books WHERE id = $1
	`, id).Scan(&b.ID, &b.Name, &b.Active)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup book %d: %w", id, err)
	}
	return &b, true, nil
}

func (l *PostgresLookup) CounterpartyByName(ctx context.Context, name string) (*Counterparty, bool, error) {
	var c Counterparty
	err := l.db.QueryRowContext(ctx, `
		SELECT id, name, active FROM trading.counterparties WHERE name = $1
	`, name).Scan(&c.ID, &c.Name, &c.Active)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup counterparty %q: %w", name, err)
	}
	return &c, true, nil
}

func (l *PostgresLookup) CounterpartyByID(ctx context.Context, id int64) (*Counterparty, bool, error) {
	var c Counterparty
	err := l.db.QueryRowContext(ctx, `
		SELECT id, name, active FROM trading.counterparties WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Active)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup counterparty %d: %w", id, err)
	}
	return &c, true, nil
}

func (l *PostgresLookup) StatusByName(ctx context.Context, name string) (string, bool, error) {
	return l.nameIn(ctx, "trading.trade_statuses", "name", name)
}

func (l *PostgresLookup) TradeTypeByName(ctx context.Context, name string) (string, bool, error) {
	return l.nameIn(ctx, "trading.trade_types", "name", name)
}

func (l *PostgresLookup) TradeSubTypeByName(ctx context.Context, name string) (string, bool, error) {
	return l.nameIn(ctx, "trading.trade_sub_types", "name", name)
}

func (l *PostgresLookup) CurrencyByCode(ctx context.Context, code string) (string, bool, error) {
	return l.nameIn(ctx, "trading.currencies", "code", code)
}

// nameIn resolves a case-insensitive match in a single-column enum table and
// returns the canonical spelling. table and column are compile-time constants
// at every call site, never caller input.
func (l *PostgresLookup) nameIn(ctx context.Context, table, column, value string) (string, bool, error) {
	var canonical string
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE LOWER(%s) = LOWER($1)`, column, table, column)

	err := l.db.QueryRowContext(ctx, q, strings.TrimSpace(value)).Scan(&canonical)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup %s %q: %w", table, value, err)
	}
	return canonical, true, nil
}
