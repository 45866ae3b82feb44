package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"gatewayctl/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteTargetStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "targets.db")
	store, err := NewSQLiteTargetStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteTargetStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteTargetStore_CRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	target := &domain.Target{
		Name:   "prod",
		Host:   "gw.example.com",
		Port:   8090,
		Token:  "secret",
		Role:   "operator",
		Scopes: []string{"config", "cron"},
	}
	if err := store.Create(ctx, target); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := store.Get(ctx, "prod")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Host != "gw.example.com" {
		t.Errorf("Host = %q", got.Host)
	}
	if got.Port != 8090 {
		t.Errorf("Port = %d", got.Port)
	}
	if got.Token != "secret" {
		t.Errorf("Token = %q", got.Token)
	}
	if len(got.Scopes) != 2 || got.Scopes[0] != "config" {
		t.Errorf("Scopes = %v", got.Scopes)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt should not be zero")
	}
	if got.URL() != "ws://gw.example.com:8090/ws" {
		t.Errorf("URL = %q", got.URL())
	}

	got.Host = "gw2.example.com"
	if err := store.Update(ctx, got); err != nil {
		t.Fatalf("Update: %v", err)
	}
	updated, err := store.Get(ctx, "prod")
	if err != nil {
		t.Fatalf("Get after update: %v", err)
	}
	if updated.Host != "gw2.example.com" {
		t.Errorf("Host after update = %q", updated.Host)
	}

	if err := store.Delete(ctx, "prod"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, "prod"); !errors.Is(err, domain.ErrTargetNotFound) {
		t.Errorf("Get after delete = %v, want ErrTargetNotFound", err)
	}
}

func TestSQLiteTargetStore_GetMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), "nope")
	if !errors.Is(err, domain.ErrTargetNotFound) {
		t.Errorf("err = %v, want ErrTargetNotFound", err)
	}
}

func TestSQLiteTargetStore_DuplicateName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	target := &domain.Target{Name: "dup", Host: "h", Port: 1, Token: "t"}
	if err := store.Create(ctx, target); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := store.Create(ctx, &domain.Target{Name: "dup", Host: "h2", Port: 2, Token: "t2"})
	if !errors.Is(err, domain.ErrTargetDuplicate) {
		t.Errorf("err = %v, want ErrTargetDuplicate", err)
	}
}

func TestSQLiteTargetStore_CreateValidates(t *testing.T) {
	store := newTestStore(t)

	err := store.Create(context.Background(), &domain.Target{Name: "bad", Host: "h", Port: 1})
	if err == nil {
		t.Fatal("expected validation error for missing token")
	}
}

func TestSQLiteTargetStore_UpdateMissing(t *testing.T) {
	store := newTestStore(t)

	err := store.Update(context.Background(), &domain.Target{Name: "ghost", Host: "h", Port: 1, Token: "t"})
	if !errors.Is(err, domain.ErrTargetNotFound) {
		t.Errorf("err = %v, want ErrTargetNotFound", err)
	}
}

func TestSQLiteTargetStore_DeleteMissing(t *testing.T) {
	store := newTestStore(t)

	err := store.Delete(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrTargetNotFound) {
		t.Errorf("err = %v, want ErrTargetNotFound", err)
	}
}

func TestSQLiteTargetStore_List(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		if err := store.Create(ctx, &domain.Target{Name: name, Host: "h", Port: 1, Token: "t"}); err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
	}

	targets, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(targets) != 3 {
		t.Errorf("len = %d, want 3", len(targets))
	}
}

func TestSQLiteTargetStore_NilScopesStoredAsEmpty(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, &domain.Target{Name: "s", Host: "h", Port: 1, Token: "t"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := store.Get(ctx, "s")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Scopes == nil {
		t.Error("Scopes should round-trip as an empty slice, not nil")
	}
}
