package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/chess-coach/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS coach_games (
	game_id       TEXT PRIMARY KEY,
	session_id    TEXT NOT NULL,
	mode          TEXT NOT NULL,
	human_side    TEXT NOT NULL,
	result        TEXT NOT NULL,
	result_method TEXT NOT NULL DEFAULT '',
	moves_uci     JSONB NOT NULL,
	moves_san     JSONB NOT NULL,
	pgn           TEXT NOT NULL,
	started_at    TIMESTAMPTZ NOT NULL,
	ended_at      TIMESTAMPTZ NOT NULL,
	duration_ms   BIGINT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS coach_games_ended_at_idx ON coach_games (ended_at DESC);`

type PostgresRepository struct {
	db *sql.DB
}

// OpenPostgres connects to DATABASE_URL, pings, and creates the table if needed.
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure coach_games: %w", err)
	}
	return &PostgresRepository{db: db}, nil
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Save upserts the finished game keyed by its id.
func (r *PostgresRepository) Save(ctx context.Context, g *domain.GameRecord) error {
	if r == nil || r.db == nil || g == nil {
		return nil
	}
	movesUCI, err := json.Marshal(nonNil(g.MovesUCI))
	if err != nil {
		return fmt.Errorf("marshal moves_uci: %w", err)
	}
	movesSAN, err := json.Marshal(nonNil(g.MovesSAN))
	if err != nil {
		return fmt.Errorf("marshal moves_san: %w", err)
	}
	duration := g.Duration.Milliseconds()
	if duration < 0 {
		duration = 0
	}

	const q = `INSERT INTO coach_games (
		game_id, session_id, mode, human_side,
		result, result_method, moves_uci, moves_san, pgn,
		started_at, ended_at, duration_ms
	) VALUES (
		$1,$2,$3,$4,$5,$6,$7::jsonb,$8::jsonb,$9,$10,$11,$12
	) ON CONFLICT (game_id) DO UPDATE SET
		session_id=EXCLUDED.session_id,
		mode=EXCLUDED.mode,
		human_side=EXCLUDED.human_side,
		result=EXCLUDED.result,
		result_method=EXCLUDED.result_method,
		moves_uci=EXCLUDED.moves_uci,
		moves_san=EXCLUDED.moves_san,
		pgn=EXCLUDED.pgn,
		started_at=EXCLUDED.started_at,
		ended_at=EXCLUDED.ended_at,
		duration_ms=EXCLUDED.duration_ms`

	if _, err := r.db.ExecContext(ctx, q,
		g.ID, g.SessionID, g.Mode, g.HumanSide,
		g.Result, strings.TrimSpace(g.ResultMethod), string(movesUCI), string(movesSAN), g.PGN,
		g.StartedAt, g.EndedAt, duration,
	); err != nil {
		return fmt.Errorf("upsert coach game: %w", err)
	}
	return nil
}

const selectColumns = `
	game_id, session_id, mode, human_side, result, result_method,
	moves_uci, moves_san, pgn, started_at, ended_at, duration_ms`

func (r *PostgresRepository) Get(ctx context.Context, id string) (*domain.GameRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT`+selectColumns+` FROM coach_games WHERE game_id = $1`, id)
	g, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (r *PostgresRepository) Recent(ctx context.Context, limit int) ([]*domain.GameRecord, error) {
	limit = clampLimit(limit)
	rows, err := r.db.QueryContext(ctx, `SELECT`+selectColumns+` FROM coach_games ORDER BY ended_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("select coach games: %w", err)
	}
	defer rows.Close()

	games := make([]*domain.GameRecord, 0, limit)
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (*domain.GameRecord, error) {
	var (
		g            domain.GameRecord
		movesUCIJSON []byte
		movesSANJSON []byte
		durationMS   sql.NullInt64
	)
	if err := row.Scan(
		&g.ID, &g.SessionID, &g.Mode, &g.HumanSide, &g.Result, &g.ResultMethod,
		&movesUCIJSON, &movesSANJSON, &g.PGN, &g.StartedAt, &g.EndedAt, &durationMS,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan coach game: %w", err)
	}
	if durationMS.Valid {
		g.Duration = time.Duration(durationMS.Int64) * time.Millisecond
	}
	if err := json.Unmarshal(movesUCIJSON, &g.MovesUCI); err != nil {
		return nil, fmt.Errorf("unmarshal moves_uci: %w", err)
	}
	if err := json.Unmarshal(movesSANJSON, &g.MovesSAN); err != nil {
		return nil, fmt.Errorf("unmarshal moves_san: %w", err)
	}
	return &g, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
