package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"krypto_store/internal/models"
)

// ResetConfirmationPhrase must be supplied verbatim to FactoryReset.
const ResetConfirmationPhrase = "RESET KRYPTO STORE"

// SystemActor stamps records the store creates on its own.
const SystemActor = "system"

// UnknownName is shown for ids that no longer resolve to a record.
const UnknownName = "Unknown"

var seedTime = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// DefaultExchangeRate is the rate a new or reset account starts with.
func DefaultExchangeRate() models.ExchangeRate {
	return models.ExchangeRate{
		KshToKrypto: decimal.NewFromInt(10),
		LastUpdated: seedTime,
		UpdatedBy:   SystemActor,
	}
}

// EmptySnapshot is the state of an account that was never saved.
func EmptySnapshot() models.Snapshot {
	s := models.Snapshot{ExchangeRate: DefaultExchangeRate()}
	s.Normalize()
	return s
}

// SeedSnapshot is the fixed state FactoryReset restores.
func SeedSnapshot() models.Snapshot {
	s := EmptySnapshot()
	s.Users = []models.User{
		{
			ID:        "seed-admin",
			Name:      "Store Administrator",
			Email:     "admin@school.local",
			Role:      models.RoleAdmin,
			Balance:   decimal.Zero,
			CreatedAt: seedTime,
		},
		{
			ID:         "seed-student-1",
			Name:       "Amani Otieno",
			Email:      "amani@school.local",
			Role:       models.RoleStudent,
			Balance:    decimal.NewFromInt(100),
			Barcode:    models.StringPtr("100000000001"),
			Grade:      models.StringPtr("Grade 7"),
			SecretCode: models.StringPtr("AMANI1"),
			CreatedAt:  seedTime,
		},
		{
			ID:         "seed-student-2",
			Name:       "Wanjiru Kamau",
			Email:      "wanjiru@school.local",
			Role:       models.RoleStudent,
			Balance:    decimal.NewFromInt(50),
			Barcode:    models.StringPtr("100000000002"),
			Grade:      models.StringPtr("Grade 8"),
			SecretCode: models.StringPtr("WANJI2"),
			CreatedAt:  seedTime,
		},
	}
	s.Products = []models.Product{
		{ID: "seed-pencil", Name: "Pencil", Category: "Stationery", Price: decimal.NewFromInt(2), Stock: 100, CreatedAt: seedTime},
		{ID: "seed-notebook", Name: "Notebook", Category: "Stationery", Price: decimal.NewFromInt(5), Stock: 50, CreatedAt: seedTime},
		{ID: "seed-eraser", Name: "Eraser", Category: "Stationery", Price: decimal.NewFromInt(1), Stock: 80, CreatedAt: seedTime},
		{ID: "seed-juice", Name: "Juice Box", Category: "Snacks", Price: decimal.NewFromInt(3), Stock: 40, CreatedAt: seedTime},
	}
	return s
}
