package coach

import (
	"errors"
	"fmt"
	"strings"

	"github.com/park285/chess-coach/internal/rules"
)

// Mode selects who plays the non-human side.
type Mode string

const (
	ModeHumanVsAI    Mode = "pve"
	ModeHumanVsHuman Mode = "pvp"
)

// ParseMode accepts pve/pvp and the long human-vs-ai/human-vs-human forms.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pve", "human-vs-ai", "ai", "bot":
		return ModeHumanVsAI, nil
	case "pvp", "human-vs-human", "human", "local":
		return ModeHumanVsHuman, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Phase is the turn orchestrator state.
type Phase string

const (
	PhaseIdle              Phase = "idle"
	PhaseAwaitingHumanMove Phase = "awaiting_human_move"
	PhaseRequestingAdvice  Phase = "requesting_advice"
	PhaseRequestingBotMove Phase = "requesting_bot_move"
	PhaseTerminal          Phase = "terminal"
)

// MatchConfig is fixed for the lifetime of one match.
type MatchConfig struct {
	Mode      Mode       `json:"mode"`
	HumanSide rules.Side `json:"human_side"`
}

// BotSide is the side the advisor plays in human-vs-ai.
func (c MatchConfig) BotSide() rules.Side { return c.HumanSide.Opponent() }

type Speaker string

const (
	SpeakerHuman   Speaker = "human"
	SpeakerAdvisor Speaker = "advisor"
)

// Turn is one conversation entry shown to the player.
type Turn struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
	Warning bool    `json:"warning,omitempty"`
}

type ExtractOutcome string

const (
	ExtractNone     ExtractOutcome = ""
	ExtractFound    ExtractOutcome = "found"
	ExtractNotFound ExtractOutcome = "not_found"
	ExtractIllegal  ExtractOutcome = "illegal"
	ExtractApplied  ExtractOutcome = "applied"
)

// AdviceRecord is the result of one analysis cycle.
type AdviceRecord struct {
	FEN           string         `json:"fen"`
	Narrative     string         `json:"narrative"`
	ExtractedMove string         `json:"extracted_move,omitempty"`
	Outcome       ExtractOutcome `json:"outcome,omitempty"`
	ForBot        bool           `json:"for_bot,omitempty"`
}

type MoveResult string

const (
	MoveApplied  MoveResult = "applied"
	MoveRejected MoveResult = "rejected"
)

var (
	ErrInvalidMode      = errors.New("invalid game mode")
	ErrNoMatch          = errors.New("no match in progress")
	ErrGameOver         = errors.New("game is over")
	ErrBusy             = errors.New("waiting for the advisor")
	ErrNotYourTurn      = errors.New("not the human side to move")
	ErrNoActiveContext  = errors.New("no active advice context")
	ErrChatInFlight     = errors.New("a follow-up is already in flight")
	ErrEmptyMessage     = errors.New("message is empty")
	ErrRetryNotAllowed  = errors.New("bot turn cannot be retried now")
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionCorrupted = errors.New("session snapshot cannot be replayed")
)

// View is a read projection of a session sent to clients.
type View struct {
	SessionID     string        `json:"session_id"`
	Phase         Phase         `json:"phase"`
	Match         *MatchConfig  `json:"match,omitempty"`
	FEN           string        `json:"fen"`
	Turn          rules.Side    `json:"turn"`
	Status        string        `json:"status"`
	Moves         []string      `json:"moves"`
	LastMove      string        `json:"last_move,omitempty"`
	ECO           string        `json:"eco,omitempty"`
	Opening       string        `json:"opening,omitempty"`
	PGN           string        `json:"pgn,omitempty"`
	Conversation  []Turn        `json:"conversation"`
	AdviceLoading bool          `json:"advice_loading"`
	ChatLoading   bool          `json:"chat_loading"`
	ChatEnabled   bool          `json:"chat_enabled"`
	CanMove       bool          `json:"can_move"`
	CanRetryBot   bool          `json:"can_retry_bot"`
	Advice        *AdviceRecord `json:"advice,omitempty"`
	Terminal      bool          `json:"terminal"`
	Result        string        `json:"result,omitempty"`
}
