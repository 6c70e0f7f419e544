package storage

import (
	"context"
	"errors"

	"krypto_store/internal/models"
)

var ErrNotFound = errors.New("not found")

// SnapshotStore keeps one serialized Snapshot per account plus the key of
// the account that was active last.
type SnapshotStore interface {
	// Save overwrites the snapshot stored under key.
	Save(ctx context.Context, key string, snap models.Snapshot) error
	// Load returns found=false, and no error, when nothing is stored under key.
	Load(ctx context.Context, key string) (snap models.Snapshot, found bool, err error)
	SaveActiveAccount(ctx context.Context, key string) error
	LoadActiveAccount(ctx context.Context) (key string, found bool, err error)
}

const activeAccountSetting = "active_account"
