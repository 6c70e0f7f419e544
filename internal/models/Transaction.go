package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TxPurchase  TransactionType = "purchase"
	TxDeposit   TransactionType = "deposit"
	TxDeduction TransactionType = "deduction"
	TxTransfer  TransactionType = "transfer"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TxPurchase, TxDeposit, TxDeduction, TxTransfer:
		return true
	}
	return false
}

// LineItem is a product snapshot taken at purchase time.
type LineItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// Total is price times quantity.
func (l LineItem) Total() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Transaction is an immutable ledger entry. Negative amounts are debits.
type Transaction struct {
	ID           string          `json:"id"`
	StudentID    string          `json:"student_id"`
	StudentName  string          `json:"student_name"`
	Type         TransactionType `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description"`
	Products     []LineItem      `json:"products,omitempty"`
	TransferTo   *string         `json:"transfer_to,omitempty"`
	TransferFrom *string         `json:"transfer_from,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	CreatedBy    string          `json:"created_by"`
}

func (t Transaction) DescriptionOrDefault() string {
	if t.Description == "" {
		return NotAvailable
	}
	return t.Description
}

// Counterpart returns the other side of a transfer, if any.
func (t Transaction) Counterpart() (string, bool) {
	switch {
	case t.TransferTo != nil:
		return *t.TransferTo, true
	case t.TransferFrom != nil:
		return *t.TransferFrom, true
	}
	return "", false
}
