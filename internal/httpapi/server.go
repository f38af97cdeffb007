package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/park285/chess-coach/internal/coach"
	"github.com/park285/chess-coach/internal/domain"
	"github.com/park285/chess-coach/internal/msgcat"
	"github.com/park285/chess-coach/internal/render"
)

// GameArchive is the read side of the finished-game archive.
type GameArchive interface {
	Get(ctx context.Context, id string) (*domain.GameRecord, error)
	Recent(ctx context.Context, limit int) ([]*domain.GameRecord, error)
}

type Options struct {
	Manager        *coach.Manager
	Archive        GameArchive
	Renderer       *render.Renderer
	Catalog        *msgcat.Catalog
	Logger         *zap.Logger
	PingInterval   time.Duration
	OriginPatterns []string
}

// Server exposes coach sessions over HTTP and WebSocket.
type Server struct {
	manager  *coach.Manager
	archive  GameArchive
	renderer *render.Renderer
	catalog  *msgcat.Catalog
	log      *zap.Logger

	pingInterval   time.Duration
	originPatterns []string
}

func New(opts Options) *Server {
	s := &Server{
		manager:        opts.Manager,
		archive:        opts.Archive,
		renderer:       opts.Renderer,
		catalog:        opts.Catalog,
		log:            opts.Logger,
		pingInterval:   opts.PingInterval,
		originPatterns: opts.OriginPatterns,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.renderer == nil {
		s.renderer = render.NewRenderer(64)
	}
	if s.catalog == nil {
		s.catalog = msgcat.MustDefault()
	}
	if s.pingInterval <= 0 {
		s.pingInterval = 30 * time.Second
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "sessions": s.manager.Len()})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/match", s.handleStartMatch)
			r.Delete("/match", s.handleEndMatch)
			r.Post("/moves", s.handleMove)
			r.Post("/bot/retry", s.handleRetryBot)
			r.Post("/chat", s.handleChat)
			r.Get("/board.png", s.handleBoard)
			r.Get("/events", s.handleEvents)
		})
		r.Get("/games", s.handleRecentGames)
		r.Get("/games/{id}", s.handleGetGame)
		r.Get("/games/{id}/pgn", s.handleGamePGN)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		level := zap.DebugLevel
		if ww.Status() >= http.StatusInternalServerError {
			level = zap.WarnLevel
		}
		if ce := s.log.Check(level, "http_request"); ce != nil {
			ce.Write(
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		}
	})
}
