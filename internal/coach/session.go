package coach

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/chess-coach/internal/advisor"
	"github.com/park285/chess-coach/internal/domain"
	"github.com/park285/chess-coach/internal/msgcat"
	"github.com/park285/chess-coach/internal/rules"
	"github.com/park285/chess-coach/internal/sessionstore"
)

// SnapshotStore persists the replayable part of a session.
type SnapshotStore interface {
	Save(ctx context.Context, snap *sessionstore.Snapshot) error
	Load(ctx context.Context, sessionID string) (*sessionstore.Snapshot, error)
	Delete(ctx context.Context, sessionID string) error
}

// Recorder receives finished games.
type Recorder interface {
	Save(ctx context.Context, game *domain.GameRecord) error
}

// Deps are the collaborators shared by every session.
type Deps struct {
	NewEngine      rules.Factory
	Advisor        advisor.Generator
	Catalog        *msgcat.Catalog
	Store          SnapshotStore
	Recorder       Recorder
	BotDelay       time.Duration
	RequestTimeout time.Duration
	AdvisorName    string
	Logger         *zap.Logger
	Now            func() time.Time

	// IdleTTL evicts sessions untouched for longer; zero keeps them until removed.
	IdleTTL time.Duration
}

func (d Deps) withDefaults() Deps {
	if d.NewEngine == nil {
		d.NewEngine = rules.New
	}
	if d.Catalog == nil {
		d.Catalog = msgcat.MustDefault()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.AdvisorName == "" {
		d.AdvisorName = "Gemini"
	}
	if d.BotDelay < 0 {
		d.BotDelay = 0
	}
	return d
}

const storeTimeout = 3 * time.Second

// Session is one browser's coach. All state changes happen under mu; network
// completions carry the generation and cycle they were issued for and are
// dropped when either has moved on.
type Session struct {
	id   string
	deps Deps
	gw   *Gateway
	log  *zap.Logger

	mu            sync.Mutex
	gen           uint64
	cycle         uint64
	phase         Phase
	match         *MatchConfig
	matchID       string
	engine        rules.Engine
	startedAt     time.Time
	turns         []Turn
	thread        *Thread
	advice        *AdviceRecord
	adviceLoading bool
	chatLoading   bool
	archived      bool
	botTimer      *time.Timer
	closed        bool

	subs    map[int]chan View
	nextSub int

	inflight sync.WaitGroup
}

// NewSession returns an idle session.
func NewSession(id string, deps Deps) *Session {
	deps = deps.withDefaults()
	return &Session{
		id:     id,
		deps:   deps,
		gw:     NewGateway(deps.Advisor, deps.Catalog, deps.RequestTimeout),
		log:    deps.Logger.With(zap.String("session_id", id)),
		phase:  PhaseIdle,
		engine: deps.NewEngine(),
		subs:   make(map[int]chan View),
	}
}

func (s *Session) ID() string { return s.id }

// StartMatch resets the board and conversation and begins a new match.
func (s *Session) StartMatch(mode Mode, humanSide rules.Side) error {
	if mode != ModeHumanVsAI && mode != ModeHumanVsHuman {
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	if humanSide != rules.White && humanSide != rules.Black {
		return fmt.Errorf("invalid side %q", humanSide)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetLocked()
	s.match = &MatchConfig{Mode: mode, HumanSide: humanSide}
	s.matchID = uuid.NewString()
	s.engine = s.deps.NewEngine()
	s.startedAt = s.deps.Now()
	s.phase = PhaseAwaitingHumanMove

	s.log.Info("match_started",
		zap.String("match_id", s.matchID),
		zap.String("mode", string(mode)),
		zap.String("human_side", string(humanSide)),
	)
	s.persistLocked()
	s.routeLocked(true)
	s.publishLocked()
	return nil
}

// EndMatch discards the match and returns to idle. In-flight responses become stale.
func (s *Session) EndMatch() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.match != nil {
		s.log.Info("match_ended", zap.String("match_id", s.matchID), zap.String("phase", string(s.phase)))
		s.deleteSnapshotLocked()
	}
	s.resetLocked()
	s.engine = s.deps.NewEngine()
	s.phase = PhaseIdle
	s.publishLocked()
}

func (s *Session) resetLocked() {
	s.gen++
	s.cycle++
	s.stopBotTimerLocked()
	s.match = nil
	s.matchID = ""
	s.turns = nil
	s.thread = nil
	s.advice = nil
	s.adviceLoading = false
	s.chatLoading = false
	s.archived = false
}

// ApplyHumanMove tries from→to with queen promotion. A rejected move leaves
// the position untouched; the returned error explains why.
func (s *Session) ApplyHumanMove(from, to string) (MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.match == nil:
		return MoveRejected, ErrNoMatch
	case s.phase == PhaseTerminal || s.engine.IsGameOver():
		return MoveRejected, ErrGameOver
	case s.phase != PhaseAwaitingHumanMove:
		return MoveRejected, ErrBusy
	case s.match.Mode == ModeHumanVsAI && s.engine.SideToMove() != s.match.HumanSide:
		return MoveRejected, ErrNotYourTurn
	}

	mv, err := s.engine.ApplyMove(from, to, rules.PromoteQueen)
	if err != nil {
		s.log.Debug("human_move_rejected", zap.String("from", from), zap.String("to", to), zap.Error(err))
		return MoveRejected, err
	}
	s.log.Info("human_move", zap.String("move", mv.SAN), zap.String("uci", mv.UCI))
	s.persistLocked()
	s.routeLocked(true)
	s.publishLocked()
	return MoveApplied, nil
}

// RetryBotTurn re-runs a failed bot turn. Only valid when the bot is to move
// and nothing is in flight.
func (s *Session) RetryBotTurn() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.match == nil {
		return ErrNoMatch
	}
	if s.phase == PhaseTerminal {
		return ErrGameOver
	}
	if s.phase != PhaseAwaitingHumanMove || s.adviceLoading || !s.botToMoveLocked() {
		return ErrRetryNotAllowed
	}
	s.log.Info("bot_turn_retry")
	s.scheduleBotTurnLocked()
	s.publishLocked()
	return nil
}

// SendFollowUp asks the advisor a question within the current advice context.
// The question is appended immediately; the reply or a warning follows.
func (s *Session) SendFollowUp(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.thread == nil || s.adviceLoading {
		return ErrNoActiveContext
	}
	if s.chatLoading {
		return ErrChatInFlight
	}

	s.turns = append(s.turns, Turn{Speaker: SpeakerHuman, Text: text})
	s.chatLoading = true
	th := s.thread.clone()
	gen, cyc := s.gen, s.cycle
	s.publishLocked()

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		reply, err := s.gw.FollowUp(th, text)
		s.completeFollowUp(gen, cyc, text, reply, err)
	}()
	return nil
}

func (s *Session) completeFollowUp(gen, cyc uint64, question, reply string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.staleLocked(gen, cyc, "follow_up") {
		return
	}
	s.chatLoading = false
	if err != nil {
		s.turns = append(s.turns, s.advisorErrorLocked(err))
	} else {
		s.turns = append(s.turns, Turn{Speaker: SpeakerAdvisor, Text: reply})
		if s.thread != nil {
			s.thread.Turns = append(s.thread.Turns,
				advisor.Turn{Role: advisor.RoleUser, Text: question},
				advisor.Turn{Role: advisor.RoleModel, Text: reply},
			)
		}
	}
	s.publishLocked()
}

// routeLocked decides what follows a position change.
func (s *Session) routeLocked(record bool) {
	switch {
	case s.engine.IsGameOver():
		s.enterTerminalLocked(record)
	case s.botToMoveLocked():
		s.scheduleBotTurnLocked()
	default:
		s.requestAdviceLocked()
	}
}

func (s *Session) botToMoveLocked() bool {
	return s.match != nil && s.match.Mode == ModeHumanVsAI && s.engine.SideToMove() != s.match.HumanSide
}

// beginCycleLocked starts a new analysis cycle and returns its inputs.
func (s *Session) beginCycleLocked() (cyc uint64, fen, movetext, lastMove string) {
	s.cycle++
	s.turns = nil
	s.thread = nil
	s.advice = nil
	s.adviceLoading = true
	s.chatLoading = false

	history := s.engine.History()
	lastMove = "none"
	if n := len(history); n > 0 {
		lastMove = history[n-1].SAN
	}
	return s.cycle, s.engine.FEN(), rules.Movetext(rules.SANList(history)), lastMove
}

func (s *Session) requestAdviceLocked() {
	gen := s.gen
	cyc, fen, movetext, last := s.beginCycleLocked()
	s.phase = PhaseRequestingAdvice
	s.log.Debug("advice_requested", zap.Uint64("cycle", cyc), zap.String("last_move", last))

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		text, err := s.gw.Advise(fen, movetext, last)
		s.completeAdvice(gen, cyc, fen, text, err)
	}()
}

func (s *Session) completeAdvice(gen, cyc uint64, fen, text string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.staleLocked(gen, cyc, "advice") {
		return
	}
	s.adviceLoading = false
	if err != nil {
		s.log.Warn("advice_failed", zap.Error(err))
		s.turns = []Turn{s.advisorErrorLocked(err)}
	} else {
		rec := &AdviceRecord{FEN: fen, Narrative: text, Outcome: ExtractNotFound}
		if tok, ok := ExtractBestMove(text); ok {
			rec.ExtractedMove = tok
			rec.Outcome = ExtractFound
		}
		s.advice = rec
		s.turns = []Turn{{Speaker: SpeakerAdvisor, Text: text}}
		s.thread = s.gw.OpenThread(fen, text)
	}
	if s.botToMoveLocked() {
		s.scheduleBotTurnLocked()
	} else {
		s.phase = PhaseAwaitingHumanMove
	}
	s.publishLocked()
}

func (s *Session) scheduleBotTurnLocked() {
	s.stopBotTimerLocked()
	s.phase = PhaseRequestingBotMove
	gen := s.gen

	s.inflight.Add(1)
	if s.deps.BotDelay <= 0 {
		go func() {
			defer s.inflight.Done()
			s.runBotTurn(gen)
		}()
		return
	}
	s.botTimer = time.AfterFunc(s.deps.BotDelay, func() {
		defer s.inflight.Done()
		s.runBotTurn(gen)
	})
}

func (s *Session) stopBotTimerLocked() {
	if s.botTimer != nil && s.botTimer.Stop() {
		s.inflight.Done()
	}
	s.botTimer = nil
}

func (s *Session) runBotTurn(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.phase != PhaseRequestingBotMove || s.closed {
		s.log.Debug("bot_turn_skipped", zap.Uint64("gen", gen), zap.String("phase", string(s.phase)))
		s.mu.Unlock()
		return
	}
	s.botTimer = nil
	cyc, fen, movetext, last := s.beginCycleLocked()
	s.publishLocked()
	s.mu.Unlock()

	text, err := s.gw.Advise(fen, movetext, last)
	s.completeBotTurn(gen, cyc, fen, text, err)
}

func (s *Session) completeBotTurn(gen, cyc uint64, fen, text string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.staleLocked(gen, cyc, "bot_move") {
		return
	}
	s.adviceLoading = false
	if err != nil {
		s.log.Warn("bot_advice_failed", zap.Error(err))
		s.failBotTurnLocked(s.advisorErrorLocked(err))
		return
	}

	rec := &AdviceRecord{FEN: fen, Narrative: text, ForBot: true}
	s.advice = rec
	tok, ok := ExtractBestMove(text)
	if !ok {
		rec.Outcome = ExtractNotFound
		s.log.Warn("bot_move_not_found")
		s.failBotTurnLocked(s.warningLocked("coach.bot_undecided", nil,
			"⚠️ "+s.deps.AdvisorName+" couldn't decide on a move. It's your turn."))
		return
	}
	rec.ExtractedMove = tok

	mv, err := s.engine.ApplyNotation(tok)
	if err != nil {
		rec.Outcome = ExtractIllegal
		s.log.Warn("bot_move_illegal", zap.String("move", tok))
		s.failBotTurnLocked(s.warningLocked("coach.bot_illegal", map[string]any{"Move": tok},
			"⚠️ "+s.deps.AdvisorName+" suggested an illegal move ("+tok+"). It's still your turn."))
		return
	}
	rec.Outcome = ExtractApplied
	s.log.Info("bot_move", zap.String("move", mv.SAN), zap.String("uci", mv.UCI))
	s.persistLocked()
	s.routeLocked(true)
	s.publishLocked()
}

// failBotTurnLocked hands control back with a single warning entry.
func (s *Session) failBotTurnLocked(w Turn) {
	s.turns = []Turn{w}
	s.thread = nil
	s.phase = PhaseAwaitingHumanMove
	s.publishLocked()
}

func (s *Session) enterTerminalLocked(record bool) {
	s.stopBotTimerLocked()
	s.cycle++
	s.phase = PhaseTerminal
	s.adviceLoading = false
	s.chatLoading = false
	s.thread = nil
	s.advice = nil
	s.turns = []Turn{{
		Speaker: SpeakerAdvisor,
		Text:    s.deps.Catalog.Text("coach.game_over", nil, "The game is over. Start a new game to get more advice!"),
	}}
	result, method := s.engine.Outcome()
	s.log.Info("match_finished", zap.String("match_id", s.matchID), zap.String("result", result), zap.String("method", method))

	if !record || s.archived || s.deps.Recorder == nil {
		return
	}
	s.archived = true
	rec := s.gameRecordLocked()
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := s.deps.Recorder.Save(ctx, rec); err != nil {
			s.log.Error("archive_save_failed", zap.String("match_id", rec.ID), zap.Error(err))
		}
	}()
}

func (s *Session) staleLocked(gen, cyc uint64, kind string) bool {
	if gen == s.gen && cyc == s.cycle && !s.closed {
		return false
	}
	s.log.Debug("stale_response_dropped",
		zap.String("kind", kind),
		zap.Uint64("gen", gen), zap.Uint64("current_gen", s.gen),
		zap.Uint64("cycle", cyc), zap.Uint64("current_cycle", s.cycle),
	)
	return true
}

func (s *Session) warningLocked(key string, data map[string]any, fallback string) Turn {
	if data == nil {
		data = map[string]any{}
	}
	data["Advisor"] = s.deps.AdvisorName
	return Turn{Speaker: SpeakerAdvisor, Text: s.deps.Catalog.Text(key, data, fallback), Warning: true}
}

func (s *Session) advisorErrorLocked(err error) Turn {
	msg := err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "request timed out"
	}
	return s.warningLocked("coach.advisor_error", map[string]any{"Error": msg},
		"⚠️ "+s.deps.AdvisorName+" API Error: "+msg)
}

func (s *Session) persistLocked() {
	if s.deps.Store == nil || s.match == nil {
		return
	}
	snap := &sessionstore.Snapshot{
		SessionID: s.id,
		MatchID:   s.matchID,
		Mode:      string(s.match.Mode),
		HumanSide: string(s.match.HumanSide),
		MovesUCI:  rules.UCIList(s.engine.History()),
		StartedAt: s.startedAt,
		UpdatedAt: s.deps.Now(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := s.deps.Store.Save(ctx, snap); err != nil {
		s.log.Warn("snapshot_save_failed", zap.Error(err))
	}
}

func (s *Session) deleteSnapshotLocked() {
	if s.deps.Store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := s.deps.Store.Delete(ctx, s.id); err != nil {
		s.log.Warn("snapshot_delete_failed", zap.Error(err))
	}
}

// restore rebuilds a match from a snapshot and resumes it.
func (s *Session) restore(snap *sessionstore.Snapshot) error {
	mode, err := ParseMode(snap.Mode)
	if err != nil {
		return err
	}
	side, err := rules.ParseSide(snap.HumanSide)
	if err != nil {
		return err
	}
	eng := s.deps.NewEngine()
	for i, mv := range snap.MovesUCI {
		if _, err := eng.ApplyNotation(mv); err != nil {
			return fmt.Errorf("%w: move %d (%s): %v", ErrSessionCorrupted, i+1, mv, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetLocked()
	s.match = &MatchConfig{Mode: mode, HumanSide: side}
	s.matchID = snap.MatchID
	if s.matchID == "" {
		s.matchID = uuid.NewString()
	}
	s.engine = eng
	s.startedAt = snap.StartedAt
	s.phase = PhaseAwaitingHumanMove
	s.log.Info("match_restored", zap.String("match_id", s.matchID), zap.Int("moves", len(snap.MovesUCI)))
	return nil
}

// resume routes a restored match to its next step. Called once the session is registered,
// so a restore that loses the registration race never reaches the advisor.
func (s *Session) resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.match == nil {
		return
	}
	// a finished game was archived when it ended
	s.routeLocked(false)
	s.publishLocked()
}

// watched reports whether any event stream is subscribed.
func (s *Session) watched() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs) > 0
}

func (s *Session) gameRecordLocked() *domain.GameRecord {
	history := s.engine.History()
	result, method := s.engine.Outcome()
	ended := s.deps.Now()
	return &domain.GameRecord{
		ID:           s.matchID,
		SessionID:    s.id,
		Mode:         string(s.match.Mode),
		HumanSide:    string(s.match.HumanSide),
		Result:       result,
		ResultMethod: method,
		MovesUCI:     rules.UCIList(history),
		MovesSAN:     rules.SANList(history),
		PGN:          s.pgnLocked(),
		StartedAt:    s.startedAt,
		EndedAt:      ended,
		Duration:     ended.Sub(s.startedAt),
	}
}

func (s *Session) pgnLocked() string {
	if s.match == nil {
		return ""
	}
	white, black := "Human", "Human"
	if s.match.Mode == ModeHumanVsAI {
		if s.match.HumanSide == rules.White {
			black = s.deps.AdvisorName
		} else {
			white = s.deps.AdvisorName
		}
	}
	result, method := s.engine.Outcome()
	eco, opening := s.engine.Opening()
	return rules.BuildPGN(rules.PGNHeader{
		Date:        s.startedAt,
		White:       white,
		Black:       black,
		Termination: method,
		ECO:         eco,
		Opening:     opening,
		Result:      result,
	}, rules.SANList(s.engine.History()))
}

// Wait blocks until no advisor call, bot timer or archive write is pending.
func (s *Session) Wait() { s.inflight.Wait() }

// Close stops pending work and closes subscriber channels.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.gen++
	s.stopBotTimerLocked()
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
}
