package badger

import (
	"context"
	"errors"
	"testing"

	"github.com/galeria-market/galeria-client/internal/common"
	"github.com/galeria-market/galeria-client/internal/config"
	"github.com/galeria-market/galeria-client/internal/interfaces"
)

func setupTestDB(t *testing.T) (*BadgerDB, func()) {
	t.Helper()

	dir := t.TempDir()
	logger := common.NewSilentLogger()

	cfg := &config.BadgerConfig{Path: dir}
	db, err := NewBadgerDB(logger, cfg)
	if err != nil {
		t.Fatalf("failed to create test DB: %v", err)
	}

	cleanup := func() {
		db.Close()
	}

	return db, cleanup
}

func TestKVStorage_SetAndGet(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	kv := NewKVStorage(db, common.NewSilentLogger())
	ctx := context.Background()

	if err := kv.Set(ctx, "session.token", "tok-1"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, err := kv.Get(ctx, "session.token")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != "tok-1" {
		t.Errorf("expected tok-1, got %s", val)
	}
}

func TestKVStorage_GetNotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	kv := NewKVStorage(db, common.NewSilentLogger())

	_, err := kv.Get(context.Background(), "nonexistent-key")
	if !errors.Is(err, interfaces.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestKVStorage_Upsert(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	kv := NewKVStorage(db, common.NewSilentLogger())
	ctx := context.Background()

	if err := kv.Set(ctx, "cart.id", "c-1"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Overwrite
	if err := kv.Set(ctx, "cart.id", "c-2"); err != nil {
		t.Fatalf("Set (upsert) failed: %v", err)
	}

	val, err := kv.Get(ctx, "cart.id")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != "c-2" {
		t.Errorf("expected c-2, got %s", val)
	}
}

func TestKVStorage_Delete(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	kv := NewKVStorage(db, common.NewSilentLogger())
	ctx := context.Background()

	kv.Set(ctx, "session.token", "tok-1")
	if err := kv.Delete(ctx, "session.token"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := kv.Get(ctx, "session.token"); !errors.Is(err, interfaces.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	// Deleting a missing key is not an error
	if err := kv.Delete(ctx, "session.token"); err != nil {
		t.Errorf("expected idempotent delete, got %v", err)
	}
}

func TestKVStorage_GetAll(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	kv := NewKVStorage(db, common.NewSilentLogger())
	ctx := context.Background()

	kv.Set(ctx, "session.token", "tok-1")
	kv.Set(ctx, "cart.id", "c-1")

	all, err := kv.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 2 || all["session.token"] != "tok-1" || all["cart.id"] != "c-1" {
		t.Errorf("unexpected entries: %v", all)
	}
}
