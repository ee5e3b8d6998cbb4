package refdata

import (
	"context"
	"strings"
)

// StaticLookup is an in-memory Lookup used by tests and local tooling.
type StaticLookup struct {
	Users          map[string]*AppUser
	Books          map[string]*Book
	Counterparties map[string]*Counterparty
	Statuses       []string
	TradeTypes     []string
	TradeSubTypes  []string
	Currencies     []string
}

// NewStaticLookup returns an empty static lookup with the standard trade
// statuses pre-seeded.
func NewStaticLookup() *StaticLookup {
	return &StaticLookup{
		Users:          make(map[string]*AppUser),
		Books:          make(map[string]*Book),
		Counterparties: make(map[string]*Counterparty),
		Statuses:       []string{"NEW", "AMENDED", "TERMINATED", "CANCELLED"},
		Currencies:     []string{"USD", "EUR", "GBP", "JPY"},
	}
}

func (s *StaticLookup) AddUser(u *AppUser) *StaticLookup {
	s.Users[strings.ToLower(u.LoginID)] = u
	return s
}

func (s *StaticLookup) AddBook(b *Book) *StaticLookup {
	s.Books[b.Name] = b
	return s
}

func (s *StaticLookup) AddCounterparty(c *Counterparty) *StaticLookup {
	s.Counterparties[c.Name] = c
	return s
}

func (s *StaticLookup) UserByLoginID(_ context.Context, loginID string) (*AppUser, bool, error) {
	u, ok := s.Users[strings.ToLower(strings.TrimSpace(loginID))]
	return u, ok, nil
}

func (s *StaticLookup) BookByName(_ context.Context, name string) (*Book, bool, error) {
	b, ok := s.Books[name]
	return b, ok, nil
}

func (s *StaticLookup) BookByID(_ context.Context, id int64) (*Book, bool, error) {
	for _, b := range s.Books {
		if b.ID == id {
			return b, true, nil
		}
	}
	return nil, false, nil
}

func (s *StaticLookup) CounterpartyByName(_ context.Context, name string) (*Counterparty, bool, error) {
	c, ok := s.Counterparties[name]
	return c, ok, nil
}

func (s *StaticLookup) CounterpartyByID(_ context.Context, id int64) (*Counterparty, bool, error) {
	for _, c := range s.Counterparties {
		if c.ID == id {
			return c, true, nil
		}
	}
	return nil, false, nil
}

func (s *StaticLookup) StatusByName(_ context.Context, name string) (string, bool, error) {
	return findFold(s.Statuses, name)
}

func (s *StaticLookup) TradeTypeByName(_ context.Context, name string) (string, bool, error) {
	return findFold(s.TradeTypes, name)
}

func (s *StaticLookup) TradeSubTypeByName(_ context.Context, name string) (string, bool, error) {
	return findFold(s.TradeSubTypes, name)
}

func (s *StaticLookup) CurrencyByCode(_ context.Context, code string) (string, bool, error) {
	return findFold(s.Currencies, code)
}

func findFold(values []string, name string) (string, bool, error) {
	for _, v := range values {
		if strings.EqualFold(v, name) {
			return v, true, nil
		}
	}
	return "", false, nil
}
