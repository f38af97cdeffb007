package archive

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/park285/chess-coach/internal/domain"
)

// MemoryRepository is the in-process archive used when DATABASE_URL is unset.
type MemoryRepository struct {
	mu    sync.RWMutex
	games map[string]*domain.GameRecord
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{games: make(map[string]*domain.GameRecord)}
}

func (m *MemoryRepository) Save(ctx context.Context, g *domain.GameRecord) error {
	if g == nil {
		return nil
	}
	cp := clone(g)
	m.mu.Lock()
	m.games[strings.TrimSpace(g.ID)] = cp
	m.mu.Unlock()
	return nil
}

func (m *MemoryRepository) Get(ctx context.Context, id string) (*domain.GameRecord, error) {
	m.mu.RLock()
	g, ok := m.games[strings.TrimSpace(id)]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return clone(g), nil
}

func (m *MemoryRepository) Recent(ctx context.Context, limit int) ([]*domain.GameRecord, error) {
	limit = clampLimit(limit)
	m.mu.RLock()
	out := make([]*domain.GameRecord, 0, len(m.games))
	for _, g := range m.games {
		out = append(out, clone(g))
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].EndedAt.Equal(out[j].EndedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].EndedAt.After(out[j].EndedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryRepository) Close() error { return nil }

func clone(g *domain.GameRecord) *domain.GameRecord {
	cp := *g
	cp.MovesUCI = append([]string(nil), g.MovesUCI...)
	cp.MovesSAN = append([]string(nil), g.MovesSAN...)
	return &cp
}
