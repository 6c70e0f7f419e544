package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestUserDefaults(t *testing.T) {
	u := User{Name: "Ann", Grade: StringPtr("")}
	require.Nil(t, u.Grade)
	require.Equal(t, NotAvailable, u.BarcodeOrDefault())
	require.Equal(t, NotAvailable, u.GradeOrDefault())
	require.Equal(t, NotAvailable, u.SecretCodeOrDefault())

	u.Barcode = StringPtr("123")
	require.Equal(t, "123", u.BarcodeOrDefault())
}

func TestUserPatchApply(t *testing.T) {
	u := User{ID: "u-1", Name: "Ann", Role: RoleStudent, Balance: decimal.NewFromInt(5), Grade: StringPtr("Grade 5")}

	name := "Annie"
	none := ""
	UserPatch{Name: &name, Grade: &none}.Apply(&u)

	require.Equal(t, "Annie", u.Name)
	require.Nil(t, u.Grade)
	require.Equal(t, RoleStudent, u.Role)
	require.True(t, decimal.NewFromInt(5).Equal(u.Balance))
}

func TestProductPatchApply(t *testing.T) {
	p := Product{Name: "Pen", Price: decimal.NewFromInt(1), Stock: 3}
	price := decimal.RequireFromString("1.75")
	ProductPatch{Price: &price}.Apply(&p)
	require.Equal(t, "Pen", p.Name)
	require.Equal(t, 3, p.Stock)
	require.True(t, price.Equal(p.Price))
}

func TestTransactionHelpers(t *testing.T) {
	to := "u-2"
	tx := Transaction{TransferTo: &to}
	other, ok := tx.Counterpart()
	require.True(t, ok)
	require.Equal(t, "u-2", other)
	require.Equal(t, NotAvailable, tx.DescriptionOrDefault())

	_, ok = Transaction{}.Counterpart()
	require.False(t, ok)

	line := LineItem{Quantity: 3, Price: decimal.RequireFromString("2.5")}
	require.True(t, decimal.RequireFromString("7.5").Equal(line.Total()))

	require.True(t, TxDeposit.Valid())
	require.False(t, TransactionType("refund").Valid())
}

func TestSnapshotCloneIsIndependent(t *testing.T) {
	s := Snapshot{
		Users:        []User{{ID: "u-1", Name: "Ann"}},
		Transactions: []Transaction{{ID: "t-1", Products: []LineItem{{ProductID: "p-1", Quantity: 1}}}},
	}
	c := s.Clone()
	c.Users[0].Name = "Changed"
	c.Transactions[0].Products[0].Quantity = 9

	require.Equal(t, "Ann", s.Users[0].Name)
	require.Equal(t, 1, s.Transactions[0].Products[0].Quantity)

	var empty Snapshot
	empty.Normalize()
	require.NotNil(t, empty.Users)
	require.NotNil(t, empty.Employees)
}
