package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/sellerhub/backend/internal/domain/account"
	"github.com/sellerhub/backend/internal/pkg/errors"
	"github.com/sellerhub/backend/internal/storage"
)

// snapshotKeyPrefix namespaces snapshot blobs, one per account
const snapshotKeyPrefix = "snapshot:"

// SnapshotStore implements account.SnapshotStore over the blob store
type SnapshotStore struct {
	blobs storage.BlobStore
}

// NewSnapshotStore creates a snapshot store
func NewSnapshotStore(blobs storage.BlobStore) account.SnapshotStore {
	return &SnapshotStore{blobs: blobs}
}

func snapshotKey(accountID string) string { return snapshotKeyPrefix + accountID }

// Save overwrites the snapshot for the account wholesale
func (s *SnapshotStore) Save(ctx context.Context, snap *account.Snapshot) error {
	if snap == nil || snap.AccountID == "" {
		return errors.Validation("snapshot account id is required", nil)
	}
	blob, err := json.Marshal(snap)
	if err != nil {
		return errors.Internal("failed to encode snapshot", err)
	}
	if err := s.blobs.Put(ctx, snapshotKey(snap.AccountID), blob); err != nil {
		return errors.Storage("failed to write snapshot", err)
	}
	return nil
}

// Get retrieves the snapshot for an account, or nil if absent
func (s *SnapshotStore) Get(ctx context.Context, accountID string) (*account.Snapshot, error) {
	blob, err := s.blobs.Get(ctx, snapshotKey(accountID))
	if err != nil {
		return nil, errors.Storage("failed to read snapshot", err)
	}
	if blob == nil {
		return nil, nil
	}
	var snap account.Snapshot
	if err := json.Unmarshal(blob, &snap); err != nil {
		return nil, errors.Storage("snapshot blob is corrupted", err)
	}
	return &snap, nil
}

// List retrieves all persisted snapshots
func (s *SnapshotStore) List(ctx context.Context) ([]*account.Snapshot, error) {
	keys, err := s.blobs.Keys(ctx, snapshotKeyPrefix)
	if err != nil {
		return nil, errors.Storage("failed to list snapshots", err)
	}

	snaps := make([]*account.Snapshot, 0, len(keys))
	for _, key := range keys {
		snap, err := s.Get(ctx, strings.TrimPrefix(key, snapshotKeyPrefix))
		if err != nil {
			return nil, err
		}
		if snap != nil {
			snaps = append(snaps, snap)
		}
	}
	return snaps, nil
}

// Delete removes the snapshot for an account
func (s *SnapshotStore) Delete(ctx context.Context, accountID string) error {
	if err := s.blobs.Delete(ctx, snapshotKey(accountID)); err != nil {
		return errors.Storage("failed to delete snapshot", err)
	}
	return nil
}
