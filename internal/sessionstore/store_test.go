package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	s, err := NewRedisStore(context.Background(), fmt.Sprintf("redis://%s/0", mr.Addr()), time.Hour)
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()
	if _, err := s.Load(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	snap := &Snapshot{SessionID: "s1", Mode: "pve", HumanSide: "black", MovesUCI: []string{"e2e4", "e7e5"}, StartedAt: time.Now().UTC()}
	if err := s.Save(ctx, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}
	snap.MovesUCI[0] = "mutated"
	got, err := s.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Mode != "pve" || got.HumanSide != "black" || len(got.MovesUCI) != 2 || got.MovesUCI[0] != "e2e4" {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
	if err := s.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Load(ctx, "s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRedisStore(t *testing.T) {
	s, _ := newRedisStore(t)
	exerciseStore(t, s)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreTTL(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStoreWithTTL(time.Hour, func() time.Time { return now })
	ctx := context.Background()
	if err := s.Save(ctx, &Snapshot{SessionID: "old"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	now = now.Add(59 * time.Minute)
	if _, err := s.Load(ctx, "old"); err != nil {
		t.Fatalf("Load before expiry: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := s.Load(ctx, "old"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}
	if err := s.Save(ctx, &Snapshot{SessionID: "new"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	s.mu.RLock()
	_, kept := s.items["old"]
	s.mu.RUnlock()
	if kept {
		t.Fatalf("expired snapshot should be swept on save")
	}
}

func TestRedisStoreTTL(t *testing.T) {
	s, mr := newRedisStore(t)
	if err := s.Save(context.Background(), &Snapshot{SessionID: "ttl"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if ttl := mr.TTL(sessionKey("ttl")); ttl != time.Hour {
		t.Fatalf("ttl = %v", ttl)
	}
	mr.FastForward(2 * time.Hour)
	if _, err := s.Load(context.Background(), "ttl"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestParseRedisURL(t *testing.T) {
	opts, err := ParseRedisURL("redis://:pw@localhost:6379/3")
	if err != nil {
		t.Fatalf("ParseRedisURL: %v", err)
	}
	if opts.Addr != "localhost:6379" || opts.Password != "pw" || opts.DB != 3 {
		t.Fatalf("unexpected options: %+v", opts)
	}
	if _, err := ParseRedisURL("http://localhost"); err == nil {
		t.Fatalf("expected scheme error")
	}
	if _, err := ParseRedisURL("redis://localhost/x"); err == nil {
		t.Fatalf("expected db error")
	}
}
