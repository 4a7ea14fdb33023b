package session

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
)

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "session.json"))

	if _, err := store.Get(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession before Set, got %v", err)
	}

	if err := store.Set(ctx, "x.y.z"); err != nil {
		t.Fatalf("set: %v", err)
	}
	tok, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if tok != "x.y.z" {
		t.Fatalf("expected x.y.z, got %q", tok)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := store.Get(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession after Clear, got %v", err)
	}
}

func TestFileStore_LastWriteWins(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "session.json"))

	if err := store.Set(ctx, "first"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, "second"); err != nil {
		t.Fatalf("set: %v", err)
	}
	tok, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if tok != "second" {
		t.Fatalf("expected second, got %q", tok)
	}
}

func TestFileStore_ClearWithoutSessionIsNoop(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	if err := store.Clear(context.Background()); err != nil {
		t.Fatalf("clear on empty store: %v", err)
	}
}

func TestFileStore_ConcurrentReadersNeverSeeTornToken(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	if err := store.Set(ctx, "aaaa"); err != nil {
		t.Fatalf("set: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				tok, err := store.Get(ctx)
				if err != nil {
					t.Errorf("get: %v", err)
					return
				}
				if tok != "aaaa" && tok != "bbbb" {
					t.Errorf("torn read: %q", tok)
					return
				}
			}
		}()
	}
	for j := 0; j < 50; j++ {
		val := "aaaa"
		if j%2 == 1 {
			val = "bbbb"
		}
		if err := store.Set(ctx, val); err != nil {
			t.Fatalf("set: %v", err)
		}
	}
	wg.Wait()
}

func TestMemStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	if _, err := store.Get(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if err := store.Set(ctx, "tok"); err != nil {
		t.Fatalf("set: %v", err)
	}
	tok, err := store.Get(ctx)
	if err != nil || tok != "tok" {
		t.Fatalf("expected tok, got %q err=%v", tok, err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := store.Get(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession after clear, got %v", err)
	}
}
