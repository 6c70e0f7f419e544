package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"krypto_store/internal/models"
)

var ErrDuplicate = errors.New("already exists")

// OperatorRepository stores account logins.
type OperatorRepository struct {
	db *gorm.DB
}

func NewOperatorRepository(db *gorm.DB) *OperatorRepository {
	return &OperatorRepository{db: db}
}

func (r *OperatorRepository) Create(ctx context.Context, email, passwordHash string) (models.Operator, error) {
	op := models.Operator{Email: email, PasswordHash: passwordHash}
	if err := r.db.WithContext(ctx).Create(&op).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.Operator{}, fmt.Errorf("operator %q: %w", email, ErrDuplicate)
		}
		return models.Operator{}, err
	}
	return op, nil
}

func (r *OperatorRepository) FindByEmail(ctx context.Context, email string) (models.Operator, error) {
	var op models.Operator
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&op).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Operator{}, fmt.Errorf("operator %q: %w", email, ErrNotFound)
	}
	if err != nil {
		return models.Operator{}, err
	}
	return op, nil
}
