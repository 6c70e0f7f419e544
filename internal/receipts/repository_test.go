package receipts

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"krypto_store/internal/models"
)

func TestFromTransaction(t *testing.T) {
	at := time.Date(2025, 4, 2, 9, 30, 0, 0, time.UTC)
	tx := models.Transaction{
		ID:          "t-1",
		StudentID:   "u-1",
		StudentName: "Ann",
		Type:        models.TxPurchase,
		Amount:      decimal.RequireFromString("-6"),
		Description: "Purchase: Pen x4",
		Products:    []models.LineItem{{ProductID: "p-1", ProductName: "Pen", Quantity: 4, Price: decimal.RequireFromString("1.5")}},
		CreatedAt:   at,
		CreatedBy:   "terminal",
	}

	rec, err := FromTransaction("office@school.local", tx, decimal.RequireFromString("14"))
	require.NoError(t, err)
	require.Equal(t, "office@school.local", rec.Account)
	require.Equal(t, "t-1", rec.TransactionID)
	require.Equal(t, "u-1", rec.StudentID)
	require.Equal(t, at, rec.CreatedAt)

	var body struct {
		Store        string             `json:"store"`
		Transaction  models.Transaction `json:"transaction"`
		BalanceAfter string             `json:"balance_after"`
	}
	require.NoError(t, json.Unmarshal(rec.ReceiptData, &body))
	require.Equal(t, "office@school.local", body.Store)
	require.Equal(t, "Purchase: Pen x4", body.Transaction.Description)
	require.Len(t, body.Transaction.Products, 1)
	require.Equal(t, "14", body.BalanceAfter)
}

func setupRepository(t *testing.T) *PostgresRepository {
	t.Helper()
	url := os.Getenv("RECEIPTS_DATABASE_URL")
	if url == "" {
		t.Skip("RECEIPTS_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	repo, err := Open(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestPostgresRepository_Integration(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()
	suffix := time.Now().UnixNano()
	student := fmt.Sprintf("student-%d", suffix)
	account := fmt.Sprintf("office-%d@school.local", suffix)
	other := fmt.Sprintf("other-%d@school.local", suffix)

	older, err := repo.Create(ctx, models.Receipt{
		Account:       account,
		TransactionID: fmt.Sprintf("tx-a-%d", suffix),
		StudentID:     student,
		ReceiptData:   json.RawMessage(`{"n":1}`),
		CreatedAt:     time.Now().UTC().Add(-time.Hour),
	})
	require.NoError(t, err)
	require.NotEmpty(t, older.ID)

	newer, err := repo.Create(ctx, models.Receipt{
		Account:       account,
		TransactionID: fmt.Sprintf("tx-b-%d", suffix),
		StudentID:     student,
		ReceiptData:   json.RawMessage(`{"n":2}`),
	})
	require.NoError(t, err)

	_, err = repo.Create(ctx, models.Receipt{
		Account:       account,
		TransactionID: newer.TransactionID,
		StudentID:     student,
		ReceiptData:   json.RawMessage(`{}`),
	})
	require.ErrorIs(t, err, ErrDuplicate)

	// Another account may reuse the same student and transaction ids.
	foreign, err := repo.Create(ctx, models.Receipt{
		Account:       other,
		TransactionID: newer.TransactionID,
		StudentID:     student,
		ReceiptData:   json.RawMessage(`{"n":3}`),
	})
	require.NoError(t, err)

	list, err := repo.ListByStudent(ctx, account, student)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, newer.ID, list[0].ID)
	require.Equal(t, account, list[0].Account)
	require.JSONEq(t, `{"n":1}`, string(list[1].ReceiptData))

	require.ErrorIs(t, repo.Delete(ctx, other, older.ID), ErrNotFound)
	require.NoError(t, repo.Delete(ctx, account, older.ID))
	require.ErrorIs(t, repo.Delete(ctx, account, older.ID), ErrNotFound)
	require.NoError(t, repo.Delete(ctx, account, newer.ID))

	list, err = repo.ListByStudent(ctx, account, student)
	require.NoError(t, err)
	require.Empty(t, list)

	list, err = repo.ListByStudent(ctx, other, student)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NoError(t, repo.Delete(ctx, other, foreign.ID))
}
