package ledger

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"krypto_store/internal/models"
)

// memStore is an in-memory SnapshotStore. failSave makes every Save fail
// and failLoad every Load.
type memStore struct {
	mu       sync.Mutex
	snaps    map[string]models.Snapshot
	active   string
	saves    int
	failSave bool
	failLoad bool
}

func newMemStore() *memStore {
	return &memStore{snaps: map[string]models.Snapshot{}}
}

func (m *memStore) Save(_ context.Context, key string, snap models.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errors.New("disk full")
	}
	m.saves++
	m.snaps[key] = snap.Clone()
	return nil
}

func (m *memStore) Load(_ context.Context, key string) (models.Snapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLoad {
		return models.Snapshot{}, false, errors.New("corrupt snapshot")
	}
	snap, ok := m.snaps[key]
	if !ok {
		return models.Snapshot{}, false, nil
	}
	return snap.Clone(), true, nil
}

func (m *memStore) SaveActiveAccount(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = key
	return nil
}

func (m *memStore) LoadActiveAccount(_ context.Context) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active, m.active != "", nil
}

func (m *memStore) setFailSave(v bool) {
	m.mu.Lock()
	m.failSave = v
	m.mu.Unlock()
}

func (m *memStore) setFailLoad(v bool) {
	m.mu.Lock()
	m.failLoad = v
	m.mu.Unlock()
}

// stepClock advances one second on every reading.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestStore(t *testing.T) (*Store, *memStore) {
	t.Helper()
	mem := newMemStore()
	clock := &stepClock{now: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)}
	s := New(mem, Options{IDs: &SequenceGenerator{}, Clock: clock.Now})
	require.NoError(t, s.SwitchAccount("Office@School.Local"))
	return s, mem
}

func amount(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func requireAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, amount(want).Equal(got), "want %s, got %s", want, got)
}

func addStudent(t *testing.T, s *Store, name, balance string) models.User {
	t.Helper()
	u, err := s.AddUser(models.User{Name: name, Role: models.RoleStudent, Balance: amount(balance)}, "tester")
	require.NoError(t, err)
	return u
}

func addProduct(t *testing.T, s *Store, name, price string, stock int) models.Product {
	t.Helper()
	p, err := s.AddProduct(models.Product{Name: name, Category: "Stationery", Price: amount(price), Stock: stock}, "tester")
	require.NoError(t, err)
	return p
}

func TestNoActiveAccount(t *testing.T) {
	s := New(newMemStore(), Options{})

	_, err := s.Users()
	require.ErrorIs(t, err, ErrNoActiveAccount)

	_, err = s.AddUser(models.User{Name: "Ann"}, "tester")
	require.ErrorIs(t, err, ErrNoActiveAccount)
	require.Equal(t, "no_active_account", Kind(err))
	require.Equal(t, "", s.ActiveAccount())
}

func TestSwitchAccountStartsEmptyAndFlushes(t *testing.T) {
	s, mem := newTestStore(t)
	require.Equal(t, "office@school.local", s.ActiveAccount())

	users, err := s.Users()
	require.NoError(t, err)
	require.Empty(t, users)
	rate, err := s.ExchangeRate()
	require.NoError(t, err)
	requireAmount(t, "10", rate.KshToKrypto)

	addStudent(t, s, "Ann", "20")

	require.NoError(t, s.SwitchAccount("other@school.local"))
	users, err = s.Users()
	require.NoError(t, err)
	require.Empty(t, users)
	require.Equal(t, "other@school.local", mem.active)

	require.NoError(t, s.SwitchAccount("office@school.local"))
	users, err = s.Users()
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, "Ann", users[0].Name)
}

func TestSwitchAccountRequiresKey(t *testing.T) {
	s := New(newMemStore(), Options{})
	err := s.SwitchAccount("   ")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestSwitchAccountUnreadableSnapshotStartsEmpty(t *testing.T) {
	s, mem := newTestStore(t)
	addStudent(t, s, "Ann", "20")
	require.NoError(t, s.SwitchAccount("other@school.local"))

	mem.setFailLoad(true)
	require.NoError(t, s.SwitchAccount("office@school.local"))
	require.Equal(t, "office@school.local", s.ActiveAccount())

	users, err := s.Users()
	require.NoError(t, err)
	require.Empty(t, users)
	rate, err := s.ExchangeRate()
	require.NoError(t, err)
	require.Equal(t, DefaultExchangeRate(), rate)
}

func TestSwitchAccountKeepsCurrentWhenFlushFails(t *testing.T) {
	s, mem := newTestStore(t)
	addStudent(t, s, "Ann", "20")

	mem.setFailSave(true)
	err := s.SwitchAccount("other@school.local")
	require.ErrorIs(t, err, ErrPersistenceUnavailable)
	require.Equal(t, "office@school.local", s.ActiveAccount())
	require.Equal(t, "office@school.local", mem.active)

	users, err := s.Users()
	require.NoError(t, err)
	require.Len(t, users, 1)

	mem.setFailSave(false)
	require.NoError(t, s.SwitchAccount("other@school.local"))
	require.Equal(t, "other@school.local", s.ActiveAccount())
}

func TestResumeActiveAccount(t *testing.T) {
	mem := newMemStore()
	s := New(mem, Options{IDs: &SequenceGenerator{}})

	resumed, err := s.ResumeActiveAccount()
	require.NoError(t, err)
	require.False(t, resumed)

	require.NoError(t, s.SwitchAccount("office@school.local"))
	addStudent(t, s, "Ann", "20")

	again := New(mem, Options{IDs: &SequenceGenerator{Prefix: "b-"}})
	resumed, err = again.ResumeActiveAccount()
	require.NoError(t, err)
	require.True(t, resumed)
	require.Equal(t, "office@school.local", again.ActiveAccount())
	users, err := again.Users()
	require.NoError(t, err)
	require.Len(t, users, 1)
}

func TestTransferMovesFundsAndRecordsPair(t *testing.T) {
	s, _ := newTestStore(t)
	a := addStudent(t, s, "Ann", "40")
	b := addStudent(t, s, "Ben", "5")

	pair, err := s.Transfer(a.ID, b.ID, amount("12.5"), "tester")
	require.NoError(t, err)
	require.Len(t, pair, 2)

	debit, credit := pair[0], pair[1]
	requireAmount(t, "-12.5", debit.Amount)
	require.NotNil(t, debit.TransferTo)
	require.Equal(t, b.ID, *debit.TransferTo)
	require.Nil(t, debit.TransferFrom)
	require.Equal(t, "Transfer to Ben", debit.Description)

	requireAmount(t, "12.5", credit.Amount)
	require.NotNil(t, credit.TransferFrom)
	require.Equal(t, a.ID, *credit.TransferFrom)
	require.Equal(t, models.TxTransfer, credit.Type)
	require.Equal(t, debit.CreatedAt, credit.CreatedAt)

	ga, err := s.User(a.ID)
	require.NoError(t, err)
	requireAmount(t, "27.5", ga.Balance)
	gb, err := s.User(b.ID)
	require.NoError(t, err)
	requireAmount(t, "17.5", gb.Balance)

	txs, err := s.Transactions(TransactionFilter{Type: models.TxTransfer})
	require.NoError(t, err)
	require.Len(t, txs, 2)
}

func TestTransferInsufficientFundsChangesNothing(t *testing.T) {
	s, _ := newTestStore(t)
	a := addStudent(t, s, "Ann", "10")
	b := addStudent(t, s, "Ben", "0")

	_, err := s.Transfer(a.ID, b.ID, amount("10.01"), "tester")
	require.ErrorIs(t, err, ErrInsufficientFunds)
	require.Equal(t, "insufficient_funds", Kind(err))

	ga, _ := s.User(a.ID)
	gb, _ := s.User(b.ID)
	requireAmount(t, "10", ga.Balance)
	requireAmount(t, "0", gb.Balance)
	txs, err := s.Transactions(TransactionFilter{})
	require.NoError(t, err)
	require.Empty(t, txs)
}

func TestTransferRejectsBadInput(t *testing.T) {
	s, _ := newTestStore(t)
	a := addStudent(t, s, "Ann", "10")

	_, err := s.Transfer(a.ID, a.ID, amount("1"), "tester")
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.Transfer(a.ID, "missing", amount("1"), "tester")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = s.Transfer(a.ID, "missing", amount("0"), "tester")
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = s.Transfer(a.ID, "missing", amount("-3"), "tester")
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestPurchaseUpdatesStockBalanceAndLog(t *testing.T) {
	s, _ := newTestStore(t)
	st := addStudent(t, s, "Ann", "20")
	p := addProduct(t, s, "Pen", "1.5", 8)

	tx, err := s.Purchase(st.ID, p.ID, 4, "terminal")
	require.NoError(t, err)
	require.Equal(t, models.TxPurchase, tx.Type)
	requireAmount(t, "-6", tx.Amount)
	require.Equal(t, "Purchase: Pen x4", tx.Description)
	require.Len(t, tx.Products, 1)
	require.Equal(t, p.ID, tx.Products[0].ProductID)
	require.Equal(t, 4, tx.Products[0].Quantity)
	requireAmount(t, "1.5", tx.Products[0].Price)
	require.Equal(t, "terminal", tx.CreatedBy)

	gp, err := s.Product(p.ID)
	require.NoError(t, err)
	require.Equal(t, 4, gp.Stock)
	gs, err := s.User(st.ID)
	require.NoError(t, err)
	requireAmount(t, "14", gs.Balance)
}

func TestPurchaseInsufficientStockChangesNothing(t *testing.T) {
	s, _ := newTestStore(t)
	st := addStudent(t, s, "Ann", "100")
	p := addProduct(t, s, "Pen", "1", 3)

	_, err := s.Purchase(st.ID, p.ID, 4, "terminal")
	require.ErrorIs(t, err, ErrInsufficientStock)

	gp, _ := s.Product(p.ID)
	require.Equal(t, 3, gp.Stock)
	gs, _ := s.User(st.ID)
	requireAmount(t, "100", gs.Balance)
	txs, _ := s.Transactions(TransactionFilter{})
	require.Empty(t, txs)
}

func TestPurchaseInsufficientFunds(t *testing.T) {
	s, _ := newTestStore(t)
	st := addStudent(t, s, "Ann", "2")
	p := addProduct(t, s, "Notebook", "5", 3)

	_, err := s.Purchase(st.ID, p.ID, 1, "terminal")
	require.ErrorIs(t, err, ErrInsufficientFunds)
	gp, _ := s.Product(p.ID)
	require.Equal(t, 3, gp.Stock)
}

func TestCheckoutMergesLinesAndIsAllOrNothing(t *testing.T) {
	s, _ := newTestStore(t)
	st := addStudent(t, s, "Ann", "30")
	pen := addProduct(t, s, "Pen", "2", 10)
	juice := addProduct(t, s, "Juice", "3", 1)

	_, err := s.Checkout(st.ID, []CartLine{
		{ProductID: pen.ID, Quantity: 2},
		{ProductID: juice.ID, Quantity: 2},
	}, "terminal")
	require.ErrorIs(t, err, ErrInsufficientStock)
	gp, _ := s.Product(pen.ID)
	require.Equal(t, 10, gp.Stock)

	total, err := s.CartTotal([]CartLine{{ProductID: pen.ID, Quantity: 1}, {ProductID: juice.ID, Quantity: 1}, {ProductID: pen.ID, Quantity: 2}})
	require.NoError(t, err)
	requireAmount(t, "9", total)

	tx, err := s.Checkout(st.ID, []CartLine{
		{ProductID: pen.ID, Quantity: 1},
		{ProductID: juice.ID, Quantity: 1},
		{ProductID: pen.ID, Quantity: 2},
	}, "terminal")
	require.NoError(t, err)
	require.Len(t, tx.Products, 2)
	require.Equal(t, 3, tx.Products[0].Quantity)
	requireAmount(t, "-9", tx.Amount)
	require.Equal(t, "Purchase: Pen x3, Juice x1", tx.Description)

	_, err = s.Checkout(st.ID, nil, "terminal")
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = s.Checkout(st.ID, []CartLine{{ProductID: pen.ID, Quantity: 0}}, "terminal")
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestCheckoutRejectsOverflowingQuantity(t *testing.T) {
	s, _ := newTestStore(t)
	st := addStudent(t, s, "Ann", "100")
	p := addProduct(t, s, "Notebook", "5", 10)

	_, err := s.Checkout(st.ID, []CartLine{
		{ProductID: p.ID, Quantity: math.MaxInt},
		{ProductID: p.ID, Quantity: math.MaxInt},
	}, "terminal")
	require.ErrorIs(t, err, ErrInvalidAmount)

	gs, _ := s.User(st.ID)
	requireAmount(t, "100", gs.Balance)
	gp, _ := s.Product(p.ID)
	require.Equal(t, 10, gp.Stock)
	txs, _ := s.Transactions(TransactionFilter{})
	require.Empty(t, txs)
}

func TestStoreScenario(t *testing.T) {
	s, _ := newTestStore(t)
	student := addStudent(t, s, "Sam", "100")
	other := addStudent(t, s, "Tia", "0")
	p := addProduct(t, s, "Notebook", "5", 10)

	tx, err := s.Purchase(student.ID, p.ID, 3, "terminal")
	require.NoError(t, err)
	requireAmount(t, "15", tx.Amount.Abs())

	gs, _ := s.User(student.ID)
	requireAmount(t, "85", gs.Balance)
	gp, _ := s.Product(p.ID)
	require.Equal(t, 7, gp.Stock)

	pair, err := s.Transfer(student.ID, other.ID, amount("50"), "admin")
	require.NoError(t, err)
	for _, t2 := range pair {
		requireAmount(t, "50", t2.Amount.Abs())
	}
	gs, _ = s.User(student.ID)
	requireAmount(t, "35", gs.Balance)
	gt, _ := s.User(other.ID)
	requireAmount(t, "50", gt.Balance)

	txs, err := s.Transactions(TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txs, 3)
	require.Equal(t, models.TxTransfer, txs[0].Type)
	require.Equal(t, models.TxPurchase, txs[2].Type)
}

func TestDepositAndDeduct(t *testing.T) {
	s, _ := newTestStore(t)
	st := addStudent(t, s, "Ann", "0")

	tx, err := s.Deposit(st.ID, amount("25"), "", "admin")
	require.NoError(t, err)
	require.Equal(t, "Deposit", tx.Description)
	requireAmount(t, "25", tx.Amount)

	tx, err = s.Deduct(st.ID, amount("5"), "Lost library book", "admin")
	require.NoError(t, err)
	require.Equal(t, "Lost library book", tx.Description)
	requireAmount(t, "-5", tx.Amount)

	_, err = s.Deduct(st.ID, amount("20.01"), "", "admin")
	require.ErrorIs(t, err, ErrInsufficientFunds)

	_, err = s.Deposit(st.ID, amount("0"), "", "admin")
	require.ErrorIs(t, err, ErrInvalidAmount)

	gs, _ := s.User(st.ID)
	requireAmount(t, "20", gs.Balance)
}

func TestUpdateExchangeRateTwiceKeepsSecondTimestamp(t *testing.T) {
	s, _ := newTestStore(t)

	first, err := s.UpdateExchangeRate(amount("12"), "admin")
	require.NoError(t, err)
	second, err := s.UpdateExchangeRate(amount("12"), "admin")
	require.NoError(t, err)
	require.True(t, second.LastUpdated.After(first.LastUpdated))

	got, err := s.ExchangeRate()
	require.NoError(t, err)
	requireAmount(t, "12", got.KshToKrypto)
	require.Equal(t, second.LastUpdated, got.LastUpdated)
	require.Equal(t, "admin", got.UpdatedBy)

	_, err = s.UpdateExchangeRate(amount("0"), "admin")
	require.ErrorIs(t, err, ErrInvalidAmount)

	k, err := s.KshToKrypto(amount("100"))
	require.NoError(t, err)
	requireAmount(t, "8.33", k)
	ksh, err := s.KryptoToKsh(amount("3"))
	require.NoError(t, err)
	requireAmount(t, "36", ksh)
}

func TestFactoryReset(t *testing.T) {
	s, _ := newTestStore(t)
	addStudent(t, s, "Ann", "10")
	_, err := s.AddStaff(models.RosterWorkers, models.Staff{Name: "Wes", Email: "wes@school.local", Password: "pw"}, "admin")
	require.NoError(t, err)
	_, err = s.UpdateExchangeRate(amount("15"), "admin")
	require.NoError(t, err)

	err = s.FactoryReset("reset", "admin")
	require.ErrorIs(t, err, ErrResetNotConfirmed)
	users, _ := s.Users()
	require.Len(t, users, 1)

	require.NoError(t, s.FactoryReset(ResetConfirmationPhrase, "admin"))

	seed := SeedSnapshot()
	users, err = s.Users()
	require.NoError(t, err)
	require.Equal(t, seed.Users, users)
	products, err := s.Products()
	require.NoError(t, err)
	require.Equal(t, seed.Products, products)
	txs, _ := s.Transactions(TransactionFilter{})
	require.Empty(t, txs)
	workers, _ := s.Staff(models.RosterWorkers)
	require.Empty(t, workers)
	employees, _ := s.Staff(models.RosterEmployees)
	require.Empty(t, employees)
	rate, _ := s.ExchangeRate()
	require.Equal(t, DefaultExchangeRate(), rate)
}

func TestDeletedUserResolvesToUnknown(t *testing.T) {
	s, _ := newTestStore(t)
	a := addStudent(t, s, "Ann", "10")
	b := addStudent(t, s, "Ben", "0")
	_, err := s.Transfer(a.ID, b.ID, amount("4"), "admin")
	require.NoError(t, err)

	require.NoError(t, s.DeleteUser(b.ID, "admin"))

	txs, err := s.TransactionsFor(a.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	other, ok := txs[0].Counterpart()
	require.True(t, ok)
	require.Equal(t, b.ID, other)
	require.Equal(t, UnknownName, s.UserName(other))
	require.Equal(t, "Ann", s.UserName(a.ID))

	all, _ := s.Transactions(TransactionFilter{StudentID: b.ID})
	require.Len(t, all, 1)
	require.Equal(t, "Ben", all[0].StudentName)
}

func TestSaveFailureRollsBack(t *testing.T) {
	s, mem := newTestStore(t)
	a := addStudent(t, s, "Ann", "10")
	b := addStudent(t, s, "Ben", "0")

	mem.setFailSave(true)
	_, err := s.Transfer(a.ID, b.ID, amount("4"), "admin")
	require.ErrorIs(t, err, ErrPersistenceUnavailable)
	require.Equal(t, "persistence_unavailable", Kind(err))
	require.Contains(t, s.Status().LastSaveError, "disk full")

	ga, _ := s.User(a.ID)
	requireAmount(t, "10", ga.Balance)
	txs, _ := s.Transactions(TransactionFilter{})
	require.Empty(t, txs)

	mem.setFailSave(false)
	_, err = s.Transfer(a.ID, b.ID, amount("4"), "admin")
	require.NoError(t, err)
	require.Empty(t, s.Status().LastSaveError)
}

func TestMutationsPersistImmediately(t *testing.T) {
	s, mem := newTestStore(t)
	st := addStudent(t, s, "Ann", "10")

	saved, found, err := mem.Load(context.Background(), "office@school.local")
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, saved.Users, 1)
	require.Equal(t, st.ID, saved.Users[0].ID)
}

func TestClearHistory(t *testing.T) {
	s, _ := newTestStore(t)
	a := addStudent(t, s, "Ann", "50")
	b := addStudent(t, s, "Ben", "0")
	p := addProduct(t, s, "Pen", "1", 10)

	_, err := s.Purchase(a.ID, p.ID, 2, "terminal")
	require.NoError(t, err)
	_, err = s.Transfer(a.ID, b.ID, amount("5"), "admin")
	require.NoError(t, err)
	_, err = s.Deposit(b.ID, amount("1"), "", "admin")
	require.NoError(t, err)

	_, err = s.ClearHistory(HistoryFilter{}, "admin")
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = s.ClearHistory(HistoryFilter{Type: "refund"}, "admin")
	require.ErrorIs(t, err, ErrInvalidInput)

	n, err := s.ClearHistory(HistoryFilter{Type: models.TxPurchase}, "admin")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	n, err = s.ClearHistory(HistoryFilter{StudentID: b.ID}, "admin")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	left, _ := s.Transactions(TransactionFilter{})
	require.Len(t, left, 1)
	require.Equal(t, a.ID, left[0].StudentID)

	ga, _ := s.User(a.ID)
	requireAmount(t, "43", ga.Balance)
}

func TestAddUserGeneratesKeysAndRejectsConflicts(t *testing.T) {
	s, _ := newTestStore(t)

	u := addStudent(t, s, "Ann", "0")
	require.NotEmpty(t, u.ID)
	require.NotNil(t, u.Barcode)
	require.NotNil(t, u.SecretCode)

	found, err := s.FindUserByBarcode(*u.Barcode)
	require.NoError(t, err)
	require.Equal(t, u.ID, found.ID)
	found, err = s.FindUserBySecretCode(*u.SecretCode)
	require.NoError(t, err)
	require.Equal(t, u.ID, found.ID)
	_, err = s.FindUserBySecretCode("nope")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = s.AddUser(models.User{Name: "Dup", Barcode: u.Barcode}, "admin")
	require.ErrorIs(t, err, ErrConflict)
	_, err = s.AddUser(models.User{ID: u.ID, Name: "Dup"}, "admin")
	require.ErrorIs(t, err, ErrConflict)
	_, err = s.AddUser(models.User{Name: "  "}, "admin")
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = s.AddUser(models.User{Name: "X", Role: "janitor"}, "admin")
	require.ErrorIs(t, err, ErrInvalidInput)

	w, err := s.AddUser(models.User{Name: "Wes", Role: models.RoleWorker}, "admin")
	require.NoError(t, err)
	require.Nil(t, w.Barcode)
	require.Equal(t, models.NotAvailable, w.BarcodeOrDefault())

	students, err := s.Students()
	require.NoError(t, err)
	require.Len(t, students, 1)
}

func TestUpdateUserMergesFields(t *testing.T) {
	s, _ := newTestStore(t)
	u := addStudent(t, s, "Ann", "7")
	other := addStudent(t, s, "Ben", "0")

	grade := "Grade 6"
	name := "Ann K."
	got, err := s.UpdateUser(u.ID, models.UserPatch{Name: &name, Grade: &grade}, "admin")
	require.NoError(t, err)
	require.Equal(t, "Ann K.", got.Name)
	require.Equal(t, "Grade 6", got.GradeOrDefault())
	require.Equal(t, u.Barcode, got.Barcode)
	requireAmount(t, "7", got.Balance)
	require.Equal(t, u.CreatedAt, got.CreatedAt)

	_, err = s.UpdateUser(u.ID, models.UserPatch{SecretCode: other.SecretCode}, "admin")
	require.ErrorIs(t, err, ErrConflict)

	empty := ""
	got, err = s.UpdateUser(u.ID, models.UserPatch{Grade: &empty}, "admin")
	require.NoError(t, err)
	require.Nil(t, got.Grade)

	_, err = s.UpdateUser("missing", models.UserPatch{Name: &name}, "admin")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestProductLifecycle(t *testing.T) {
	s, _ := newTestStore(t)
	p := addProduct(t, s, "Pen", "1", 2)

	price := amount("1.25")
	got, err := s.UpdateProduct(p.ID, models.ProductPatch{Price: &price}, "admin")
	require.NoError(t, err)
	requireAmount(t, "1.25", got.Price)

	neg := -1
	_, err = s.UpdateProduct(p.ID, models.ProductPatch{Stock: &neg}, "admin")
	require.ErrorIs(t, err, ErrInvalidAmount)

	got, err = s.Restock(p.ID, 8, "admin")
	require.NoError(t, err)
	require.Equal(t, 10, got.Stock)
	_, err = s.Restock(p.ID, 0, "admin")
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = s.Restock(p.ID, math.MaxInt, "admin")
	require.ErrorIs(t, err, ErrInvalidAmount)
	gp, _ := s.Product(p.ID)
	require.Equal(t, 10, gp.Stock)

	_, err = s.AddProduct(models.Product{Name: "Bad", Price: amount("-1")}, "admin")
	require.ErrorIs(t, err, ErrInvalidAmount)

	require.NoError(t, s.DeleteProduct(p.ID, "admin"))
	require.Equal(t, UnknownName, s.ProductName(p.ID))
	require.ErrorIs(t, s.DeleteProduct(p.ID, "admin"), ErrNotFound)
}

func TestStaffRostersAndWorkerLogin(t *testing.T) {
	s, _ := newTestStore(t)

	w, err := s.AddStaff(models.RosterWorkers, models.Staff{Name: "Wes", Email: "wes@school.local", Password: "pw1"}, "admin")
	require.NoError(t, err)
	_, err = s.AddStaff(models.RosterWorkers, models.Staff{Name: "Wes 2", Email: "WES@school.local", Password: "x"}, "admin")
	require.ErrorIs(t, err, ErrConflict)

	// The same email may appear once in each roster.
	_, err = s.AddStaff(models.RosterEmployees, models.Staff{Name: "Wes", Email: "wes@school.local", Password: "pw1"}, "admin")
	require.NoError(t, err)

	_, err = s.AddStaff("cooks", models.Staff{Name: "C", Email: "c@x"}, "admin")
	require.ErrorIs(t, err, ErrInvalidInput)

	got, account, err := s.AuthenticateWorker(" WES@school.local", "pw1")
	require.NoError(t, err)
	require.Equal(t, w.ID, got.ID)
	require.Equal(t, "office@school.local", account)
	_, _, err = s.AuthenticateWorker("wes@school.local", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	pw := "pw2"
	_, err = s.UpdateStaff(models.RosterWorkers, w.ID, models.StaffPatch{Password: &pw}, "admin")
	require.NoError(t, err)
	_, _, err = s.AuthenticateWorker("wes@school.local", "pw2")
	require.NoError(t, err)

	require.NoError(t, s.DeleteStaff(models.RosterWorkers, w.ID, "admin"))
	workers, _ := s.Staff(models.RosterWorkers)
	require.Empty(t, workers)
	employees, _ := s.Staff(models.RosterEmployees)
	require.Len(t, employees, 1)
}

func TestStudentLogin(t *testing.T) {
	s, _ := newTestStore(t)
	ann := addStudent(t, s, "Ann", "5")
	code := "W-CODE"
	_, err := s.AddUser(models.User{Name: "Wes", Role: models.RoleWorker, SecretCode: &code}, "admin")
	require.NoError(t, err)

	got, account, err := s.AuthenticateStudent(*ann.SecretCode)
	require.NoError(t, err)
	require.Equal(t, ann.ID, got.ID)
	require.Equal(t, "office@school.local", account)

	_, _, err = s.AuthenticateStudent("NOPE")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = s.AuthenticateStudent(code)
	require.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, s.SwitchAccount("other@school.local"))
	_, _, err = s.AuthenticateStudent(*ann.SecretCode)
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestExportRestore(t *testing.T) {
	s, _ := newTestStore(t)
	a := addStudent(t, s, "Ann", "10")
	addProduct(t, s, "Pen", "1", 5)

	backup, err := s.Export()
	require.NoError(t, err)

	require.NoError(t, s.DeleteUser(a.ID, "admin"))
	require.NoError(t, s.Restore(backup, "admin"))

	users, _ := s.Users()
	require.Len(t, users, 1)
	require.Equal(t, a.ID, users[0].ID)

	bad := backup.Clone()
	bad.ExchangeRate.KshToKrypto = decimal.Zero
	require.ErrorIs(t, s.Restore(bad, "admin"), ErrInvalidAmount)
}

func TestStats(t *testing.T) {
	s, _ := newTestStore(t)
	a := addStudent(t, s, "Ann", "30")
	addStudent(t, s, "Ben", "20")
	_, err := s.AddUser(models.User{Name: "Boss", Role: models.RoleAdmin}, "admin")
	require.NoError(t, err)
	p := addProduct(t, s, "Pen", "2", 6)
	addProduct(t, s, "Ink", "4", 20)

	_, err = s.Purchase(a.ID, p.ID, 2, "terminal")
	require.NoError(t, err)

	stats, err := s.Stats()
	require.NoError(t, err)
	require.Equal(t, 2, stats.Students)
	require.Equal(t, 1, stats.Staff)
	requireAmount(t, "46", stats.TotalBalance)
	requireAmount(t, "460", stats.TotalBalanceInKsh)
	require.Equal(t, 2, stats.Products)
	require.Len(t, stats.LowStock, 1)
	require.Equal(t, p.ID, stats.LowStock[0].ID)
	require.Equal(t, 1, stats.Transactions)
	requireAmount(t, "4", stats.PurchaseVolume)
}

func TestListenersSeeCommittedChanges(t *testing.T) {
	s, mem := newTestStore(t)
	var events []Event
	s.Subscribe(func(ev Event) { events = append(events, ev) })

	a := addStudent(t, s, "Ann", "10")
	b := addStudent(t, s, "Ben", "0")
	_, err := s.Transfer(a.ID, b.ID, amount("1"), "admin")
	require.NoError(t, err)

	mem.setFailSave(true)
	_, err = s.Transfer(a.ID, b.ID, amount("1"), "admin")
	require.Error(t, err)

	require.Len(t, events, 3)
	last := events[2]
	require.Equal(t, EventTransfer, last.Kind)
	require.Equal(t, "office@school.local", last.Account)
	require.ElementsMatch(t, []string{a.ID, b.ID}, last.UserIDs)
}

func TestConcurrentTransfersKeepTotal(t *testing.T) {
	s, _ := newTestStore(t)
	a := addStudent(t, s, "Ann", "100")
	b := addStudent(t, s, "Ben", "100")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			from, to := a.ID, b.ID
			if i%2 == 1 {
				from, to = to, from
			}
			_, _ = s.Transfer(from, to, amount("3"), "admin")
		}()
	}
	wg.Wait()

	ga, _ := s.User(a.ID)
	gb, _ := s.User(b.ID)
	requireAmount(t, "200", ga.Balance.Add(gb.Balance))
	txs, _ := s.Transactions(TransactionFilter{})
	require.Len(t, txs, 100)
}
