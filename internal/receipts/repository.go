package receipts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"krypto_store/internal/models"
)

var (
	ErrNotFound  = errors.New("receipt not found")
	ErrDuplicate = errors.New("receipt already stored for transaction")
)

// Repository is the remote receipt history. Receipts belong to a store
// account; reads and deletes only see the receipts of the account given.
type Repository interface {
	Create(ctx context.Context, r models.Receipt) (models.Receipt, error)
	// ListByStudent returns the student's receipts in account, newest first.
	ListByStudent(ctx context.Context, account, studentID string) ([]models.Receipt, error)
	Delete(ctx context.Context, account, id string) error
}

const schema = `
CREATE TABLE IF NOT EXISTS receipts (
	id             TEXT PRIMARY KEY,
	account        TEXT NOT NULL DEFAULT '',
	transaction_id TEXT NOT NULL,
	student_id     TEXT NOT NULL,
	receipt_data   JSONB NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (account, transaction_id)
);
ALTER TABLE receipts ADD COLUMN IF NOT EXISTS account TEXT NOT NULL DEFAULT '';
CREATE INDEX IF NOT EXISTS receipts_account_student_created_idx ON receipts (account, student_id, created_at DESC);
`

// PostgresRepository stores receipts in a postgres table through lib/pq.
type PostgresRepository struct {
	db *sql.DB
}

// Open connects to url, pings it and creates the receipts table if needed.
func Open(ctx context.Context, url string) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open receipts database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping receipts database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create receipts table: %w", err)
	}
	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) Close() error { return r.db.Close() }

func (r *PostgresRepository) Create(ctx context.Context, rec models.Receipt) (models.Receipt, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO receipts (id, account, transaction_id, student_id, receipt_data, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.Account, rec.TransactionID, rec.StudentID, []byte(rec.ReceiptData), rec.CreatedAt,
	)
	if err != nil {
		if pgErr, ok := err.(*pq.Error); ok && pgErr.Code == "23505" {
			return models.Receipt{}, ErrDuplicate
		}
		return models.Receipt{}, fmt.Errorf("insert receipt: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) ListByStudent(ctx context.Context, account, studentID string) ([]models.Receipt, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, account, transaction_id, student_id, receipt_data, created_at FROM receipts
		 WHERE account = $1 AND student_id = $2 ORDER BY created_at DESC`,
		account, studentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	defer rows.Close()

	out := []models.Receipt{}
	for rows.Next() {
		var rec models.Receipt
		var data []byte
		if err := rows.Scan(&rec.ID, &rec.Account, &rec.TransactionID, &rec.StudentID, &data, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		rec.ReceiptData = json.RawMessage(data)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Delete(ctx context.Context, account, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM receipts WHERE account = $1 AND id = $2`, account, id)
	if err != nil {
		return fmt.Errorf("delete receipt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete receipt: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// payload is what a receipt stores about a purchase.
type payload struct {
	Store        string             `json:"store"`
	Transaction  models.Transaction `json:"transaction"`
	BalanceAfter decimal.Decimal    `json:"balance_after"`
}

// FromTransaction builds the receipt for a completed purchase.
func FromTransaction(account string, tx models.Transaction, balanceAfter decimal.Decimal) (models.Receipt, error) {
	raw, err := json.Marshal(payload{Store: account, Transaction: tx, BalanceAfter: balanceAfter})
	if err != nil {
		return models.Receipt{}, err
	}
	return models.Receipt{
		Account:       account,
		TransactionID: tx.ID,
		StudentID:     tx.StudentID,
		ReceiptData:   raw,
		CreatedAt:     tx.CreatedAt,
	}, nil
}
