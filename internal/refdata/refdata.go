// Package refdata defines the reference-data lookup contract consumed by the
// trade lifecycle. Lookups resolve by name (or numeric ID) and report
// found/not-found; they never invent entries.
package refdata

import "context"

// Book is a trading book.
type Book struct {
	ID     int64
	Name   string
	Active bool
}

// Counterparty is the other side of a trade.
type Counterparty struct {
	ID     int64
	Name   string
	Active bool
}

// AppUser is an application user. Role drives privilege evaluation.
type AppUser struct {
	ID        int64
	LoginID   string
	FirstName string
	LastName  string
	Role      string
	Active    bool
}

// Lookup resolves reference data. Implementations are read-only.
type Lookup interface {
	UserByLoginID(ctx context.Context, loginID string) (*AppUser, bool, error)

	BookByName(ctx context.Context, name string) (*Book, bool, error)
	BookByID(ctx context.Context, id int64) (*Book, bool, error)

	CounterpartyByName(ctx context.Context, name string) (*Counterparty, bool, error)
	CounterpartyByID(ctx context.Context, id int64) (*Counterparty, bool, error)

	StatusByName(ctx context.Context, name string) (string, bool, error)
	TradeTypeByName(ctx context.Context, name string) (string, bool, error)
	TradeSubTypeByName(ctx context.Context, name string) (string, bool, error)
	CurrencyByCode(ctx context.Context, code string) (string, bool, error)
}
