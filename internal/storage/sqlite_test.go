package storage

import (
	"bytes"
	"context"
	"testing"
)

func TestSQLiteStore_PutGetDelete(t *testing.T) {
	store, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	// Absent key
	got, err := store.Get(ctx, "missing")
	if err != nil {
		t.Fatalf("Get(missing) error = %v", err)
	}
	if got != nil {
		t.Errorf("Get(missing) = %q, want nil", got)
	}

	// Put then Get
	if err := store.Put(ctx, "accounts", []byte(`[{"account_id":"1"}]`)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, err = store.Get(ctx, "accounts")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !bytes.Equal(got, []byte(`[{"account_id":"1"}]`)) {
		t.Errorf("Get() = %q", got)
	}

	// Replace-on-write
	if err := store.Put(ctx, "accounts", []byte(`[]`)); err != nil {
		t.Fatalf("Put() replace error = %v", err)
	}
	got, _ = store.Get(ctx, "accounts")
	if !bytes.Equal(got, []byte(`[]`)) {
		t.Errorf("Get() after replace = %q, want []", got)
	}

	// Delete, including an absent key
	if err := store.Delete(ctx, "accounts"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(ctx, "accounts"); err != nil {
		t.Fatalf("Delete(absent) error = %v", err)
	}
	got, _ = store.Get(ctx, "accounts")
	if got != nil {
		t.Error("blob still present after delete")
	}
}

func TestSQLiteStore_Keys(t *testing.T) {
	store, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	for _, key := range []string{"snapshot:a", "snapshot:b", "accounts"} {
		if err := store.Put(ctx, key, []byte("{}")); err != nil {
			t.Fatalf("Put(%s) error = %v", key, err)
		}
	}

	keys, err := store.Keys(ctx, "snapshot:")
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	if len(keys) != 2 || keys[0] != "snapshot:a" || keys[1] != "snapshot:b" {
		t.Errorf("Keys(snapshot:) = %v", keys)
	}
}
