package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"krypto_store/internal/models"
)

// GormStore keeps snapshots in the account_snapshots table of a postgres or
// sqlite database.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (g *GormStore) Save(ctx context.Context, key string, snap models.Snapshot) error {
	snap.Normalize()
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	rec := models.AccountSnapshot{
		AccountKey: key,
		Payload:    datatypes.JSON(raw),
		SavedAt:    time.Now().UTC(),
	}
	err = g.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "saved_at"}),
		}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save snapshot %q: %w", key, err)
	}
	return nil
}

func (g *GormStore) Load(ctx context.Context, key string) (models.Snapshot, bool, error) {
	var rec models.AccountSnapshot
	err := g.db.WithContext(ctx).Where("account_key = ?", key).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Snapshot{}, false, nil
	}
	if err != nil {
		return models.Snapshot{}, false, fmt.Errorf("load snapshot %q: %w", key, err)
	}
	var snap models.Snapshot
	if err := json.Unmarshal(rec.Payload, &snap); err != nil {
		return models.Snapshot{}, false, fmt.Errorf("decode snapshot %q: %w", key, err)
	}
	snap.Normalize()
	return snap, true, nil
}

func (g *GormStore) SaveActiveAccount(ctx context.Context, key string) error {
	rec := models.Setting{Name: activeAccountSetting, Value: key, UpdatedAt: time.Now().UTC()}
	return g.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&rec).Error
}

func (g *GormStore) LoadActiveAccount(ctx context.Context) (string, bool, error) {
	var rec models.Setting
	err := g.db.WithContext(ctx).Where("name = ?", activeAccountSetting).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return rec.Value, rec.Value != "", nil
}
