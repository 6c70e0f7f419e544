package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRate is the number of Kenyan shillings per Krypto Buck.
type ExchangeRate struct {
	KshToKrypto decimal.Decimal `json:"ksh_to_krypto"`
	LastUpdated time.Time       `json:"last_updated"`
	UpdatedBy   string          `json:"updated_by"`
}
