package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/park285/chess-coach/internal/coach"
	"github.com/park285/chess-coach/internal/domain"
	"github.com/park285/chess-coach/internal/render"
	"github.com/park285/chess-coach/internal/rules"
	"github.com/park285/chess-coach/pkg/coachdto"
)

// moveResponse tells the board whether to keep the dropped piece.
type moveResponse struct {
	Result string     `json:"result"`
	Reason string     `json:"reason,omitempty"`
	View   coach.View `json:"view"`
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*coach.Session, bool) {
	sess, err := s.manager.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.manager.Create()
	writeJSON(w, http.StatusCreated, sess.View())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.manager.Remove(chi.URLParam(r, "id")) {
		writeError(w, coach.ErrSessionNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStartMatch(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req coachdto.StartMatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	mode, err := coach.ParseMode(req.Mode)
	if err != nil {
		writeError(w, err)
		return
	}
	side := rules.White
	if strings.TrimSpace(req.Side) != "" {
		if side, err = rules.ParseSide(req.Side); err != nil {
			writeError(w, errInvalidSide)
			return
		}
	}
	if err := sess.StartMatch(mode, side); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleEndMatch(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.EndMatch()
	writeJSON(w, http.StatusOK, sess.View())
}

// handleMove answers 200 for both outcomes; a rejected drop snaps back.
func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req coachdto.MoveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := sess.ApplyHumanMove(req.From, req.To)
	if res == coach.MoveApplied {
		writeJSON(w, http.StatusOK, moveResponse{Result: coachdto.MoveApplied, View: sess.View()})
		return
	}
	_, code := classify(err)
	writeJSON(w, http.StatusOK, moveResponse{Result: coachdto.MoveSnapback, Reason: code, View: sess.View()})
}

func (s *Server) handleRetryBot(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.RetryBotTurn(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, sess.View())
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req coachdto.ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := sess.SendFollowUp(req.Message); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, sess.View())
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	v := sess.View()
	orientation := rules.White
	if v.Match != nil {
		orientation = v.Match.HumanSide
	}
	if q := r.URL.Query().Get("orientation"); q != "" {
		side, err := rules.ParseSide(q)
		if err != nil {
			writeError(w, errInvalidSide)
			return
		}
		orientation = side
	}
	header := s.catalog.Text("render.header", map[string]any{"Status": v.Status, "Moves": len(v.Moves)}, v.Status)
	png, err := s.renderer.RenderPNG(r.Context(), render.Options{
		FEN:         v.FEN,
		Orientation: orientation,
		LastMove:    v.LastMove,
		Header:      header,
		Footer:      rules.Movetext(lastN(v.Moves, 8)),
	})
	if err != nil {
		s.log.Warn("board_render_failed", zap.String("session_id", sess.ID()), zap.Error(err))
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// lastN keeps an even-length tail so move numbers stay aligned to white.
func lastN(moves []string, n int) []string {
	if len(moves) <= n {
		return moves
	}
	start := len(moves) - n
	if start%2 != 0 {
		start++
	}
	return moves[start:]
}

func (s *Server) handleRecentGames(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeJSON(w, http.StatusOK, coachdto.HistoryResponse{Games: []coachdto.ArchivedGame{}})
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, errBadRequest)
			return
		}
		limit = n
	}
	games, err := s.archive.Recent(r.Context(), limit)
	if err != nil {
		s.log.Warn("archive_recent_failed", zap.Error(err))
		writeError(w, err)
		return
	}
	out := coachdto.HistoryResponse{Games: make([]coachdto.ArchivedGame, 0, len(games))}
	for _, g := range games {
		out.Games = append(out.Games, toArchivedGame(g, false))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	g, ok := s.game(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toArchivedGame(g, true))
}

func (s *Server) handleGamePGN(w http.ResponseWriter, r *http.Request) {
	g, ok := s.game(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/x-chess-pgn")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(g.PGN))
}

func (s *Server) game(w http.ResponseWriter, r *http.Request) (*domain.GameRecord, bool) {
	if s.archive == nil {
		writeError(w, errGameArchiveDisabled)
		return nil, false
	}
	g, err := s.archive.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return g, true
}

func toArchivedGame(g *domain.GameRecord, withPGN bool) coachdto.ArchivedGame {
	out := coachdto.ArchivedGame{
		ID:           g.ID,
		SessionID:    g.SessionID,
		Mode:         g.Mode,
		HumanSide:    g.HumanSide,
		Result:       g.Result,
		ResultMethod: g.ResultMethod,
		MovesSAN:     g.MovesSAN,
		MovesUCI:     g.MovesUCI,
		StartedAt:    g.StartedAt,
		EndedAt:      g.EndedAt,
		DurationMs:   g.Duration.Milliseconds(),
	}
	if withPGN {
		out.PGN = g.PGN
	}
	return out
}
