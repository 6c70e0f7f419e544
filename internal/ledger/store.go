package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	logrus "github.com/sirupsen/logrus"

	"krypto_store/internal/models"
	"krypto_store/internal/storage"
)

// Options tunes a Store. Zero values fall back to defaults.
type Options struct {
	IDs            IDGenerator
	Clock          func() time.Time
	PersistTimeout time.Duration
}

// Store holds the collections of the active account and is the only code
// allowed to change them. All methods are safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	persist storage.SnapshotStore
	ids     IDGenerator
	now     func() time.Time
	timeout time.Duration

	account string
	loaded  bool
	state   models.Snapshot

	lastSavedAt time.Time
	lastSaveErr error

	listeners []Listener
}

// Status reports which account is loaded and whether the last save worked.
type Status struct {
	Account       string    `json:"account"`
	Loaded        bool      `json:"loaded"`
	LastSavedAt   time.Time `json:"last_saved_at"`
	LastSaveError string    `json:"last_save_error,omitempty"`
}

func New(persist storage.SnapshotStore, opts Options) *Store {
	s := &Store{
		persist: persist,
		ids:     opts.IDs,
		now:     opts.Clock,
		timeout: opts.PersistTimeout,
	}
	if s.ids == nil {
		s.ids = UUIDGenerator{}
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.timeout <= 0 {
		s.timeout = 5 * time.Second
	}
	return s
}

// Subscribe registers l for every committed change.
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// NormalizeAccountKey lowercases and trims an account identifier.
func NormalizeAccountKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// SwitchAccount flushes the current account and loads key in its place.
// A key that was never saved starts with empty collections. A snapshot that
// cannot be read is replaced by an empty one and logged.
func (s *Store) SwitchAccount(key string) error {
	key = NormalizeAccountKey(key)
	if key == "" {
		return fmt.Errorf("account key required: %w", ErrInvalidInput)
	}

	s.mu.Lock()
	if s.loaded && s.account == key {
		s.mu.Unlock()
		return nil
	}
	if s.loaded {
		if err := s.saveLocked(s.account, s.state); err != nil {
			s.mu.Unlock()
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	snap, found, err := s.persist.Load(ctx, key)
	switch {
	case err != nil:
		logrus.WithError(err).WithField("account", key).Warn("Could not load account snapshot, starting with empty collections.")
		snap = EmptySnapshot()
	case !found:
		logrus.WithField("account", key).Info("No snapshot stored for account, starting with empty collections.")
		snap = EmptySnapshot()
	}
	snap.Normalize()
	if !snap.ExchangeRate.KshToKrypto.IsPositive() {
		snap.ExchangeRate = DefaultExchangeRate()
	}

	if err := s.persist.SaveActiveAccount(ctx, key); err != nil {
		logrus.WithError(err).WithField("account", key).Warn("Could not remember active account.")
	}

	s.account = key
	s.state = snap
	s.loaded = true
	s.lastSaveErr = nil
	ev := Event{Account: key, Kind: EventAccountSwitched, At: s.now()}
	listeners := s.listeners
	s.mu.Unlock()

	logrus.WithField("account", key).Info("Active account switched.")
	notify(listeners, ev)
	return nil
}

// ResumeActiveAccount loads the account that was active when the process
// last ran. It returns false when there is nothing to resume.
func (s *Store) ResumeActiveAccount() (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	key, found, err := s.persist.LoadActiveAccount(ctx)
	cancel()
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrPersistenceUnavailable, err)
	}
	if !found || key == "" {
		return false, nil
	}
	if err := s.SwitchAccount(key); err != nil {
		return false, err
	}
	return true, nil
}

// Flush writes the active account to storage.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return nil
	}
	return s.saveLocked(s.account, s.state)
}

// ActiveAccount returns the loaded account key, or "" when none is loaded.
func (s *Store) ActiveAccount() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return ""
	}
	return s.account
}

func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{Account: s.account, Loaded: s.loaded, LastSavedAt: s.lastSavedAt}
	if s.lastSaveErr != nil {
		st.LastSaveError = s.lastSaveErr.Error()
	}
	return st
}

func (s *Store) saveLocked(key string, snap models.Snapshot) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.persist.Save(ctx, key, snap); err != nil {
		s.lastSaveErr = err
		logrus.WithError(err).WithField("account", key).Error("Snapshot not saved.")
		return fmt.Errorf("%w: %w", ErrPersistenceUnavailable, err)
	}
	s.lastSaveErr = nil
	s.lastSavedAt = s.now()
	return nil
}

// mutate runs fn against a copy of the state. The copy replaces the live
// state only when fn succeeds and the copy has been saved.
func (s *Store) mutate(kind EventKind, actor string, fn func(st *models.Snapshot) ([]string, error)) error {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return ErrNoActiveAccount
	}
	next := s.state.Clone()
	touched, err := fn(&next)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.saveLocked(s.account, next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = next
	ev := Event{Account: s.account, Kind: kind, Actor: actor, UserIDs: touched, At: s.now()}
	listeners := s.listeners
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"account":  ev.Account,
		"event":    kind,
		"actor":    actor,
		"user_ids": touched,
	}).Info("Ledger change committed.")
	notify(listeners, ev)
	return nil
}

// read runs fn against the live state under the lock.
func (s *Store) read(fn func(st *models.Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return ErrNoActiveAccount
	}
	return fn(&s.state)
}

func notify(listeners []Listener, ev Event) {
	for _, l := range listeners {
		l(ev)
	}
}

// --- queries ---

func (s *Store) Users() ([]models.User, error) {
	var out []models.User
	err := s.read(func(st *models.Snapshot) error {
		out = append([]models.User{}, st.Users...)
		return nil
	})
	return out, err
}

// Students returns the users with the student role.
func (s *Store) Students() ([]models.User, error) {
	var out []models.User
	err := s.read(func(st *models.Snapshot) error {
		out = []models.User{}
		for _, u := range st.Users {
			if u.Role == models.RoleStudent {
				out = append(out, u)
			}
		}
		return nil
	})
	return out, err
}

func (s *Store) User(id string) (models.User, error) {
	var out models.User
	err := s.read(func(st *models.Snapshot) error {
		i := userIndex(st, id)
		if i < 0 {
			return fmt.Errorf("user %q: %w", id, ErrNotFound)
		}
		out = st.Users[i]
		return nil
	})
	return out, err
}

func (s *Store) FindUserByBarcode(barcode string) (models.User, error) {
	return s.findUser(func(u models.User) bool {
		return u.Barcode != nil && *u.Barcode == barcode
	}, "barcode")
}

func (s *Store) FindUserBySecretCode(code string) (models.User, error) {
	return s.findUser(func(u models.User) bool {
		return u.SecretCode != nil && *u.SecretCode == code
	}, "secret code")
}

func (s *Store) findUser(match func(models.User) bool, what string) (models.User, error) {
	var out models.User
	err := s.read(func(st *models.Snapshot) error {
		for _, u := range st.Users {
			if match(u) {
				out = u
				return nil
			}
		}
		return fmt.Errorf("user with that %s: %w", what, ErrNotFound)
	})
	return out, err
}

// UserName resolves id for display. Deleted or unknown ids give UnknownName.
func (s *Store) UserName(id string) string {
	name := UnknownName
	_ = s.read(func(st *models.Snapshot) error {
		if i := userIndex(st, id); i >= 0 {
			name = st.Users[i].Name
		}
		return nil
	})
	return name
}

// ProductName resolves id for display. Deleted or unknown ids give UnknownName.
func (s *Store) ProductName(id string) string {
	name := UnknownName
	_ = s.read(func(st *models.Snapshot) error {
		if i := productIndex(st, id); i >= 0 {
			name = st.Products[i].Name
		}
		return nil
	})
	return name
}

func (s *Store) Products() ([]models.Product, error) {
	var out []models.Product
	err := s.read(func(st *models.Snapshot) error {
		out = append([]models.Product{}, st.Products...)
		return nil
	})
	return out, err
}

func (s *Store) Product(id string) (models.Product, error) {
	var out models.Product
	err := s.read(func(st *models.Snapshot) error {
		i := productIndex(st, id)
		if i < 0 {
			return fmt.Errorf("product %q: %w", id, ErrNotFound)
		}
		out = st.Products[i]
		return nil
	})
	return out, err
}

// TransactionFilter selects transactions. Empty fields match everything.
type TransactionFilter struct {
	Type      models.TransactionType
	StudentID string
}

func (f TransactionFilter) match(t models.Transaction) bool {
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.StudentID != "" && t.StudentID != f.StudentID {
		return false
	}
	return true
}

// Transactions returns the matching transactions, newest first.
func (s *Store) Transactions(f TransactionFilter) ([]models.Transaction, error) {
	var out []models.Transaction
	err := s.read(func(st *models.Snapshot) error {
		out = []models.Transaction{}
		for _, t := range st.Transactions {
			if f.match(t) {
				out = append(out, t)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, err
}

func (s *Store) TransactionsFor(studentID string) ([]models.Transaction, error) {
	return s.Transactions(TransactionFilter{StudentID: studentID})
}

func (s *Store) ExchangeRate() (models.ExchangeRate, error) {
	var out models.ExchangeRate
	err := s.read(func(st *models.Snapshot) error {
		out = st.ExchangeRate
		return nil
	})
	return out, err
}

// Export returns a copy of the whole account, suitable as a backup.
func (s *Store) Export() (models.Snapshot, error) {
	var out models.Snapshot
	err := s.read(func(st *models.Snapshot) error {
		out = st.Clone()
		out.Normalize()
		return nil
	})
	return out, err
}

// LowStockThreshold is the stock level at or below which a product is
// reported as running low.
const LowStockThreshold = 5

type Stats struct {
	Students          int              `json:"students"`
	Staff             int              `json:"staff"`
	TotalBalance      decimal.Decimal  `json:"total_balance"`
	TotalBalanceInKsh decimal.Decimal  `json:"total_balance_ksh"`
	Products          int              `json:"products"`
	LowStock          []models.Product `json:"low_stock"`
	Transactions      int              `json:"transactions"`
	PurchaseVolume    decimal.Decimal  `json:"purchase_volume"`
	ExchangeRate      decimal.Decimal  `json:"exchange_rate"`
}

func (s *Store) Stats() (Stats, error) {
	var out Stats
	err := s.read(func(st *models.Snapshot) error {
		out.TotalBalance = decimal.Zero
		out.PurchaseVolume = decimal.Zero
		out.LowStock = []models.Product{}
		for _, u := range st.Users {
			if u.Role == models.RoleStudent {
				out.Students++
				out.TotalBalance = out.TotalBalance.Add(u.Balance)
			} else {
				out.Staff++
			}
		}
		out.Products = len(st.Products)
		for _, p := range st.Products {
			if p.Stock <= LowStockThreshold {
				out.LowStock = append(out.LowStock, p)
			}
		}
		out.Transactions = len(st.Transactions)
		for _, t := range st.Transactions {
			if t.Type == models.TxPurchase {
				out.PurchaseVolume = out.PurchaseVolume.Sub(t.Amount)
			}
		}
		out.ExchangeRate = st.ExchangeRate.KshToKrypto
		out.TotalBalanceInKsh = out.TotalBalance.Mul(st.ExchangeRate.KshToKrypto).Round(2)
		return nil
	})
	return out, err
}

func userIndex(st *models.Snapshot, id string) int {
	for i := range st.Users {
		if st.Users[i].ID == id {
			return i
		}
	}
	return -1
}

func productIndex(st *models.Snapshot, id string) int {
	for i := range st.Products {
		if st.Products[i].ID == id {
			return i
		}
	}
	return -1
}
