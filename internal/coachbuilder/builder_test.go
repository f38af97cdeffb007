package coachbuilder

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/park285/chess-coach/internal/archive"
	"github.com/park285/chess-coach/internal/config"
	"github.com/park285/chess-coach/internal/sessionstore"
)

func TestNew_FallsBackToMemory(t *testing.T) {
	deps, err := New(context.Background(), &config.AppConfig{HTTPAddr: ":0", AdvisorModel: "m", BoardSquarePx: 32}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := deps.Store.(*sessionstore.MemoryStore); !ok {
		t.Fatalf("expected memory store, got %T", deps.Store)
	}
	if _, ok := deps.Archive.(*archive.MemoryRepository); !ok {
		t.Fatalf("expected memory archive, got %T", deps.Archive)
	}
	if deps.API == nil || deps.Manager == nil {
		t.Fatalf("incomplete deps: %+v", deps)
	}
	if err := deps.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestNew_UsesRedisWhenConfigured(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.AppConfig{HTTPAddr: ":0", RedisURL: "redis://" + mr.Addr() + "/0", SessionTTLSec: 60}
	deps, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = deps.Close(context.Background()) }()
	if _, ok := deps.Store.(*sessionstore.RedisStore); !ok {
		t.Fatalf("expected redis store, got %T", deps.Store)
	}
}

func TestNew_RejectsNilConfig(t *testing.T) {
	if _, err := New(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}
