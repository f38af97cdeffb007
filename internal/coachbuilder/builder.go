package coachbuilder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/park285/chess-coach/internal/advisor"
	"github.com/park285/chess-coach/internal/archive"
	"github.com/park285/chess-coach/internal/coach"
	"github.com/park285/chess-coach/internal/config"
	"github.com/park285/chess-coach/internal/httpapi"
	"github.com/park285/chess-coach/internal/msgcat"
	"github.com/park285/chess-coach/internal/render"
	"github.com/park285/chess-coach/internal/rules"
	"github.com/park285/chess-coach/internal/sessionstore"
)

// Deps is the wired process graph.
type Deps struct {
	Manager *coach.Manager
	API     *httpapi.Server
	Store   sessionstore.Store
	Archive archive.Repository
	Advisor *advisor.Client
}

// New wires the coach from configuration. Redis and Postgres are optional;
// without them sessions and games live in memory.
func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	// Advisor
	client := advisor.NewClient(cfg.APIKey,
		advisor.WithBaseURL(cfg.AdvisorBaseURL),
		advisor.WithModel(cfg.AdvisorModel),
		advisor.WithTimeout(cfg.AdvisorTimeout()),
		advisor.WithRetry(cfg.AdvisorRetry),
		advisor.WithLogger(logger.Named("advisor")),
	)

	// Session snapshots (Redis optional)
	var store sessionstore.Store
	if strings.TrimSpace(cfg.RedisURL) != "" {
		rctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		store, err = sessionstore.NewRedisStore(rctx, cfg.RedisURL, cfg.SessionTTL())
		cancel()
		if err != nil {
			return nil, fmt.Errorf("init session store: %w", err)
		}
	} else {
		logger.Info("session_store_memory", zap.String("reason", "REDIS_URL not set"))
		store = sessionstore.NewMemoryStoreWithTTL(cfg.SessionTTL(), nil)
	}

	// Game archive (Postgres optional)
	var games archive.Repository
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		games, err = archive.OpenPostgres(pctx, cfg.DatabaseURL)
		cancel()
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("init archive: %w", err)
		}
	} else {
		logger.Info("archive_memory", zap.String("reason", "DATABASE_URL not set"))
		games = archive.NewMemoryRepository()
	}

	manager := coach.NewManager(coach.Deps{
		NewEngine:      rules.New,
		Advisor:        client,
		Catalog:        catalog,
		Store:          store,
		Recorder:       games,
		BotDelay:       cfg.BotMoveDelay(),
		RequestTimeout: cfg.AdvisorTimeout(),
		AdvisorName:    cfg.AdvisorName,
		Logger:         logger.Named("coach"),
		IdleTTL:        cfg.SessionTTL(),
	})

	api := httpapi.New(httpapi.Options{
		Manager:        manager,
		Archive:        games,
		Renderer:       render.NewRenderer(cfg.BoardSquarePx),
		Catalog:        catalog,
		Logger:         logger.Named("http"),
		OriginPatterns: cfg.WSOriginPatterns,
	})

	return &Deps{Manager: manager, API: api, Store: store, Archive: games, Advisor: client}, nil
}

// Close stops sessions first so their last snapshots land before the stores go away.
func (d *Deps) Close(ctx context.Context) error {
	var err error
	err = multierr.Append(err, d.Manager.Close(ctx))
	err = multierr.Append(err, d.Store.Close())
	err = multierr.Append(err, d.Archive.Close())
	return err
}
