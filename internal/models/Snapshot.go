package models

// Snapshot is the full state of one account: every collection plus the
// exchange rate. It is the unit of persistence.
type Snapshot struct {
	Users        []User        `json:"users"`
	Products     []Product     `json:"products"`
	Transactions []Transaction `json:"transactions"`
	Workers      []Staff       `json:"workers"`
	Employees    []Staff       `json:"employees"`
	ExchangeRate ExchangeRate  `json:"exchange_rate"`
}

// Clone returns a copy that shares no slices with s. Pointer fields are
// shared; they point at strings that are replaced, never written through.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Users:        append([]User(nil), s.Users...),
		Products:     append([]Product(nil), s.Products...),
		Transactions: make([]Transaction, len(s.Transactions)),
		Workers:      append([]Staff(nil), s.Workers...),
		Employees:    append([]Staff(nil), s.Employees...),
		ExchangeRate: s.ExchangeRate,
	}
	for i, t := range s.Transactions {
		t.Products = append([]LineItem(nil), t.Products...)
		out.Transactions[i] = t
	}
	return out
}

// Normalize replaces nil collections with empty ones so an empty snapshot
// encodes as [] rather than null.
func (s *Snapshot) Normalize() {
	if s.Users == nil {
		s.Users = []User{}
	}
	if s.Products == nil {
		s.Products = []Product{}
	}
	if s.Transactions == nil {
		s.Transactions = []Transaction{}
	}
	if s.Workers == nil {
		s.Workers = []Staff{}
	}
	if s.Employees == nil {
		s.Employees = []Staff{}
	}
}
