package account

import "context"

// SnapshotStore persists one snapshot blob per account
type SnapshotStore interface {
	// Save overwrites the snapshot for the account
	Save(ctx context.Context, snap *Snapshot) error

	// Get retrieves the snapshot for an account, or nil if absent
	Get(ctx context.Context, accountID string) (*Snapshot, error)

	// List retrieves all persisted snapshots
	List(ctx context.Context) ([]*Snapshot, error)

	// Delete removes the snapshot for an account
	Delete(ctx context.Context, accountID string) error
}
