package archive

import (
	"context"
	"errors"

	"github.com/park285/chess-coach/internal/domain"
)

var ErrNotFound = errors.New("archived game not found")

// Repository stores finished games.
type Repository interface {
	Save(ctx context.Context, game *domain.GameRecord) error
	Get(ctx context.Context, id string) (*domain.GameRecord, error)
	Recent(ctx context.Context, limit int) ([]*domain.GameRecord, error)
	Close() error
}

const defaultRecentLimit = 20

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultRecentLimit
	}
	if limit > 200 {
		return 200
	}
	return limit
}
