package ledger

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"krypto_store/internal/models"
)

// Transfer moves amount from one user to another and records the pair of
// transfer transactions. It returns the debit and the credit, in that order.
func (s *Store) Transfer(fromID, toID string, amount decimal.Decimal, actor string) ([]models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("transfer amount %s: %w", amount, ErrInvalidAmount)
	}
	if fromID == toID {
		return nil, fmt.Errorf("cannot transfer to the same user: %w", ErrInvalidInput)
	}

	var pair []models.Transaction
	err := s.mutate(EventTransfer, actor, func(st *models.Snapshot) ([]string, error) {
		fi := userIndex(st, fromID)
		if fi < 0 {
			return nil, fmt.Errorf("sender %q: %w", fromID, ErrNotFound)
		}
		ti := userIndex(st, toID)
		if ti < 0 {
			return nil, fmt.Errorf("recipient %q: %w", toID, ErrNotFound)
		}
		from, to := &st.Users[fi], &st.Users[ti]
		if from.Balance.LessThan(amount) {
			return nil, fmt.Errorf("%s has %s, needs %s: %w", from.Name, from.Balance, amount, ErrInsufficientFunds)
		}

		from.Balance = from.Balance.Sub(amount)
		to.Balance = to.Balance.Add(amount)

		now := s.now()
		fromRef, toRef := from.ID, to.ID
		debit := models.Transaction{
			ID:          s.ids.NewID(),
			StudentID:   from.ID,
			StudentName: from.Name,
			Type:        models.TxTransfer,
			Amount:      amount.Neg(),
			Description: "Transfer to " + to.Name,
			TransferTo:  &toRef,
			CreatedAt:   now,
			CreatedBy:   actor,
		}
		credit := models.Transaction{
			ID:           s.ids.NewID(),
			StudentID:    to.ID,
			StudentName:  to.Name,
			Type:         models.TxTransfer,
			Amount:       amount,
			Description:  "Transfer from " + from.Name,
			TransferFrom: &fromRef,
			CreatedAt:    now,
			CreatedBy:    actor,
		}
		st.Transactions = append(st.Transactions, debit, credit)
		pair = []models.Transaction{debit, credit}
		return []string{from.ID, to.ID}, nil
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// CartLine is one product and quantity in a checkout.
type CartLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Purchase sells quantity units of one product to a student.
func (s *Store) Purchase(studentID, productID string, quantity int, actor string) (models.Transaction, error) {
	return s.Checkout(studentID, []CartLine{{ProductID: productID, Quantity: quantity}}, actor)
}

// Checkout sells every line of the cart or nothing. Lines naming the same
// product are merged. Prices are taken from the products at this moment.
func (s *Store) Checkout(studentID string, cart []CartLine, actor string) (models.Transaction, error) {
	lines, err := mergeCart(cart)
	if err != nil {
		return models.Transaction{}, err
	}

	var tx models.Transaction
	err = s.mutate(EventPurchase, actor, func(st *models.Snapshot) ([]string, error) {
		ui := userIndex(st, studentID)
		if ui < 0 {
			return nil, fmt.Errorf("student %q: %w", studentID, ErrNotFound)
		}
		student := &st.Users[ui]

		items := make([]models.LineItem, 0, len(lines))
		total := decimal.Zero
		for _, l := range lines {
			pi := productIndex(st, l.ProductID)
			if pi < 0 {
				return nil, fmt.Errorf("product %q: %w", l.ProductID, ErrNotFound)
			}
			p := st.Products[pi]
			if p.Stock < l.Quantity {
				return nil, fmt.Errorf("%s has %d in stock, requested %d: %w", p.Name, p.Stock, l.Quantity, ErrInsufficientStock)
			}
			item := models.LineItem{ProductID: p.ID, ProductName: p.Name, Quantity: l.Quantity, Price: p.Price}
			items = append(items, item)
			total = total.Add(item.Total())
		}
		if student.Balance.LessThan(total) {
			return nil, fmt.Errorf("%s has %s, needs %s: %w", student.Name, student.Balance, total, ErrInsufficientFunds)
		}

		for _, item := range items {
			st.Products[productIndex(st, item.ProductID)].Stock -= item.Quantity
		}
		student.Balance = student.Balance.Sub(total)

		tx = models.Transaction{
			ID:          s.ids.NewID(),
			StudentID:   student.ID,
			StudentName: student.Name,
			Type:        models.TxPurchase,
			Amount:      total.Neg(),
			Description: describePurchase(items),
			Products:    items,
			CreatedAt:   s.now(),
			CreatedBy:   actor,
		}
		st.Transactions = append(st.Transactions, tx)
		return []string{student.ID}, nil
	})
	if err != nil {
		return models.Transaction{}, err
	}
	return tx, nil
}

func mergeCart(cart []CartLine) ([]CartLine, error) {
	if len(cart) == 0 {
		return nil, fmt.Errorf("empty cart: %w", ErrInvalidInput)
	}
	var out []CartLine
	seen := map[string]int{}
	for _, l := range cart {
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("quantity %d: %w", l.Quantity, ErrInvalidAmount)
		}
		if i, ok := seen[l.ProductID]; ok {
			if l.Quantity > math.MaxInt-out[i].Quantity {
				return nil, fmt.Errorf("quantity for %q is too large: %w", l.ProductID, ErrInvalidAmount)
			}
			out[i].Quantity += l.Quantity
			continue
		}
		seen[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out, nil
}

func describePurchase(items []models.LineItem) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = fmt.Sprintf("%s x%d", item.ProductName, item.Quantity)
	}
	return "Purchase: " + strings.Join(parts, ", ")
}

// Deposit credits a user's balance.
func (s *Store) Deposit(userID string, amount decimal.Decimal, description, actor string) (models.Transaction, error) {
	return s.adjust(models.TxDeposit, userID, amount, description, actor)
}

// Deduct debits a user's balance. It refuses to go below zero.
func (s *Store) Deduct(userID string, amount decimal.Decimal, description, actor string) (models.Transaction, error) {
	return s.adjust(models.TxDeduction, userID, amount, description, actor)
}

func (s *Store) adjust(kind models.TransactionType, userID string, amount decimal.Decimal, description, actor string) (models.Transaction, error) {
	if !amount.IsPositive() {
		return models.Transaction{}, fmt.Errorf("%s amount %s: %w", kind, amount, ErrInvalidAmount)
	}
	ev, signed := EventDeposit, amount
	if kind == models.TxDeduction {
		ev, signed = EventDeduction, amount.Neg()
	}
	if description == "" {
		description = strings.ToUpper(string(kind[:1])) + string(kind[1:])
	}

	var tx models.Transaction
	err := s.mutate(ev, actor, func(st *models.Snapshot) ([]string, error) {
		i := userIndex(st, userID)
		if i < 0 {
			return nil, fmt.Errorf("user %q: %w", userID, ErrNotFound)
		}
		u := &st.Users[i]
		if kind == models.TxDeduction && u.Balance.LessThan(amount) {
			return nil, fmt.Errorf("%s has %s, needs %s: %w", u.Name, u.Balance, amount, ErrInsufficientFunds)
		}
		u.Balance = u.Balance.Add(signed)
		tx = models.Transaction{
			ID:          s.ids.NewID(),
			StudentID:   u.ID,
			StudentName: u.Name,
			Type:        kind,
			Amount:      signed,
			Description: description,
			CreatedAt:   s.now(),
			CreatedBy:   actor,
		}
		st.Transactions = append(st.Transactions, tx)
		return []string{u.ID}, nil
	})
	if err != nil {
		return models.Transaction{}, err
	}
	return tx, nil
}

// UpdateExchangeRate replaces the exchange rate.
func (s *Store) UpdateExchangeRate(rate decimal.Decimal, actor string) (models.ExchangeRate, error) {
	if !rate.IsPositive() {
		return models.ExchangeRate{}, fmt.Errorf("exchange rate %s: %w", rate, ErrInvalidAmount)
	}
	var out models.ExchangeRate
	err := s.mutate(EventRateUpdated, actor, func(st *models.Snapshot) ([]string, error) {
		out = models.ExchangeRate{KshToKrypto: rate, LastUpdated: s.now(), UpdatedBy: actor}
		st.ExchangeRate = out
		return nil, nil
	})
	if err != nil {
		return models.ExchangeRate{}, err
	}
	return out, nil
}

// KshToKrypto converts shillings to Krypto Bucks at the current rate.
func (s *Store) KshToKrypto(ksh decimal.Decimal) (decimal.Decimal, error) {
	rate, err := s.ExchangeRate()
	if err != nil {
		return decimal.Zero, err
	}
	return ksh.Div(rate.KshToKrypto).Round(2), nil
}

// KryptoToKsh converts Krypto Bucks to shillings at the current rate.
func (s *Store) KryptoToKsh(k decimal.Decimal) (decimal.Decimal, error) {
	rate, err := s.ExchangeRate()
	if err != nil {
		return decimal.Zero, err
	}
	return k.Mul(rate.KshToKrypto).Round(2), nil
}

// HistoryFilter picks the transactions ClearHistory removes. Exactly one
// field must be set.
type HistoryFilter struct {
	Type      models.TransactionType
	StudentID string
}

// ClearHistory deletes matching transactions and reports how many went.
// Balances and stock are left alone.
func (s *Store) ClearHistory(f HistoryFilter, actor string) (int, error) {
	if (f.Type == "") == (f.StudentID == "") {
		return 0, fmt.Errorf("clear history needs a type or a student: %w", ErrInvalidInput)
	}
	if f.Type != "" && !f.Type.Valid() {
		return 0, fmt.Errorf("transaction type %q: %w", f.Type, ErrInvalidInput)
	}
	removed := 0
	match := TransactionFilter{Type: f.Type, StudentID: f.StudentID}
	err := s.mutate(EventHistoryCleared, actor, func(st *models.Snapshot) ([]string, error) {
		kept := st.Transactions[:0]
		for _, t := range st.Transactions {
			if match.match(t) {
				removed++
				continue
			}
			kept = append(kept, t)
		}
		st.Transactions = kept
		if f.StudentID != "" {
			return []string{f.StudentID}, nil
		}
		return nil, nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// FactoryReset restores the seed users and products and empties the rest.
// confirmation must equal ResetConfirmationPhrase exactly.
func (s *Store) FactoryReset(confirmation, actor string) error {
	if confirmation != ResetConfirmationPhrase {
		return ErrResetNotConfirmed
	}
	return s.mutate(EventFactoryReset, actor, func(st *models.Snapshot) ([]string, error) {
		*st = SeedSnapshot()
		return nil, nil
	})
}

// Restore replaces the whole account with snap, typically a backup taken
// with Export.
func (s *Store) Restore(snap models.Snapshot, actor string) error {
	snap = snap.Clone()
	snap.Normalize()
	if !snap.ExchangeRate.KshToKrypto.IsPositive() {
		return fmt.Errorf("backup exchange rate %s: %w", snap.ExchangeRate.KshToKrypto, ErrInvalidAmount)
	}
	for _, p := range snap.Products {
		if p.Stock < 0 || p.Price.IsNegative() {
			return fmt.Errorf("backup product %q: %w", p.ID, ErrInvalidAmount)
		}
	}
	return s.mutate(EventRestored, actor, func(st *models.Snapshot) ([]string, error) {
		*st = snap
		return nil, nil
	})
}
