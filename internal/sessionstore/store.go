package sessionstore

import (
	"context"
	"errors"
	"strings"
	"time"
)

var ErrNotFound = errors.New("session snapshot not found")

// Snapshot is the replayable state of one session's match.
// The position is rebuilt from MovesUCI; conversation is not persisted.
type Snapshot struct {
	SessionID string    `json:"session_id"`
	MatchID   string    `json:"match_id"`
	Mode      string    `json:"mode"`
	HumanSide string    `json:"human_side"`
	MovesUCI  []string  `json:"moves_uci"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists snapshots by session id.
type Store interface {
	Save(ctx context.Context, snap *Snapshot) error
	Load(ctx context.Context, sessionID string) (*Snapshot, error)
	Delete(ctx context.Context, sessionID string) error
	Close() error
}

func sessionKey(id string) string { return "coach:session:" + strings.TrimSpace(id) }
