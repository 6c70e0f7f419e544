package models

import (
	"encoding/json"
	"time"
)

// Receipt is a stored copy of a purchase, kept in the remote receipt history.
type Receipt struct {
	ID            string          `json:"id"`
	Account       string          `json:"account"`
	TransactionID string          `json:"transaction_id"`
	StudentID     string          `json:"student_id"`
	ReceiptData   json.RawMessage `json:"receipt_data"`
	CreatedAt     time.Time       `json:"created_at"`
}
