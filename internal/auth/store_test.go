package auth

import (
	"context"
	"path/filepath"
	"slices"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := OpenStore(context.Background(), filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)

	for _, token := range []string{"b-token", "a-token", "b-token"} {
		if err := store.Add(ctx, token); err != nil {
			t.Fatalf("add %s: %v", token, err)
		}
	}

	ok, err := store.Has(ctx, "a-token")
	if err != nil || !ok {
		t.Fatalf("expected a-token to be stored: %v", err)
	}

	tokens, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !slices.Equal(tokens, []string{"a-token", "b-token"}) {
		t.Fatalf("unexpected tokens %v", tokens)
	}

	removed, err := store.Remove(ctx, "a-token")
	if err != nil || !removed {
		t.Fatalf("expected a-token to be removed: %v", err)
	}
	removed, err = store.Remove(ctx, "a-token")
	if err != nil || removed {
		t.Fatalf("expected second removal to report false: %v", err)
	}
	if ok, _ := store.Has(ctx, "a-token"); ok {
		t.Fatalf("expected a-token to be gone")
	}
}

func TestStorePersistsAcrossOpens(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "auth.db")

	store, err := OpenStore(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Add(ctx, "kept"); err != nil {
		t.Fatalf("add: %v", err)
	}
	_ = store.Close()

	again, err := OpenStore(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer again.Close()
	if ok, err := again.Has(ctx, "kept"); err != nil || !ok {
		t.Fatalf("expected token to persist: %v", err)
	}
}

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	a, err := GenerateToken()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := GenerateToken()
	if a == b {
		t.Fatalf("expected unique tokens")
	}
	if len(a) != len(tokenPrefix)+tokenLength || a[:len(tokenPrefix)] != tokenPrefix {
		t.Fatalf("unexpected token shape %q", a)
	}
}
