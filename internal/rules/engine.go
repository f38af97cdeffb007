package rules

import (
	"errors"
	"fmt"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"
)

// Side identifies the player to move.
type Side string

const (
	White Side = "white"
	Black Side = "black"
)

// Opponent returns the other side.
func (s Side) Opponent() Side {
	if s == White {
		return Black
	}
	return White
}

// Label is the capitalised side name used in status lines.
func (s Side) Label() string {
	if s == Black {
		return "Black"
	}
	return "White"
}

// ParseSide accepts white/black and the short w/b forms.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return White, nil
	case "black", "b":
		return Black, nil
	default:
		return "", fmt.Errorf("unknown side %q", s)
	}
}

// Promotion piece for pawn moves reaching the last rank.
type Promotion string

const (
	PromoteQueen  Promotion = "q"
	PromoteRook   Promotion = "r"
	PromoteBishop Promotion = "b"
	PromoteKnight Promotion = "n"
)

var ErrIllegalMove = errors.New("illegal chess move")

// Move is the verbose history entry of one applied move.
type Move struct {
	SAN  string
	UCI  string
	From string
	To   string
	Side Side
}

// Engine is the rules capability the coach consumes. Implementations own the
// position; callers only read projections of it.
type Engine interface {
	FEN() string
	ApplyMove(from, to string, promo Promotion) (Move, error)
	ApplyNotation(token string) (Move, error)
	SideToMove() Side
	IsCheckmate() bool
	IsDraw() bool
	IsGameOver() bool
	IsInCheck() bool
	History() []Move
	PGN() string
	Outcome() (result string, method string)
	// Opening names the ECO line the moves so far belong to, if any.
	Opening() (code, title string)
}

// Factory builds a fresh engine at the initial position.
type Factory func() Engine

type chessEngine struct {
	game      *nchess.Game
	history   []Move
	startedAt time.Time
}

// New returns an Engine backed by corentings/chess at the standard start position.
func New() Engine {
	return &chessEngine{game: nchess.NewGame(), startedAt: time.Now()}
}

// Replay builds an engine and applies the given UCI moves in order.
func Replay(moves []string) (Engine, error) {
	e := &chessEngine{game: nchess.NewGame(), startedAt: time.Now()}
	for i, mv := range moves {
		if _, err := e.ApplyNotation(mv); err != nil {
			return nil, fmt.Errorf("replay move %d (%s): %w", i+1, mv, err)
		}
	}
	return e, nil
}

func (e *chessEngine) FEN() string { return e.game.FEN() }

func (e *chessEngine) ApplyMove(from, to string, promo Promotion) (Move, error) {
	from = strings.ToLower(strings.TrimSpace(from))
	to = strings.ToLower(strings.TrimSpace(to))
	if len(from) != 2 || len(to) != 2 {
		return Move{}, ErrIllegalMove
	}
	if promo == "" {
		promo = PromoteQueen
	}
	legal := e.legalUCI()
	// promotion form wins when the pawn reaches the last rank
	candidate := from + to + string(promo)
	if _, ok := legal[candidate]; !ok {
		candidate = from + to
		if _, ok := legal[candidate]; !ok {
			return Move{}, ErrIllegalMove
		}
	}
	return e.push(candidate, nchess.UCINotation{})
}

// ApplyNotation accepts UCI first and SAN as a fallback. SAN written with zeros
// for castling or a lowercase piece letter is tried in its canonical form too.
func (e *chessEngine) ApplyNotation(token string) (Move, error) {
	raw := strings.TrimSpace(token)
	if raw == "" {
		return Move{}, ErrIllegalMove
	}
	uci := strings.ToLower(raw)
	if _, ok := e.legalUCI()[uci]; ok {
		return e.push(uci, nchess.UCINotation{})
	}
	var lastErr error
	for _, san := range sanCandidates(raw) {
		mv, err := e.push(san, nchess.AlgebraicNotation{})
		if err == nil {
			return mv, nil
		}
		lastErr = err
	}
	return Move{}, lastErr
}

// sanCandidates lists raw first, then its canonical spellings.
func sanCandidates(raw string) []string {
	core := strings.TrimRight(raw, "+#!?")
	suffix := raw[len(core):]
	switch strings.ToUpper(core) {
	case "0-0", "O-O":
		return dedupe(raw, "O-O"+suffix)
	case "0-0-0", "O-O-O":
		return dedupe(raw, "O-O-O"+suffix)
	}
	// "b" is also a pawn file, so the uppercased form only follows the raw attempt
	if len(core) > 2 && strings.ContainsRune("nbrqk", rune(core[0])) {
		return dedupe(raw, strings.ToUpper(core[:1])+raw[1:])
	}
	return []string{raw}
}

func dedupe(first, second string) []string {
	if first == second {
		return []string{first}
	}
	return []string{first, second}
}

func (e *chessEngine) push(text string, notation nchess.Notation) (Move, error) {
	before := e.game.Position()
	side := sideFrom(before.Turn())
	if err := e.game.PushNotationMove(text, notation, nil); err != nil {
		return Move{}, fmt.Errorf("%w: %s", ErrIllegalMove, text)
	}
	last := lastMove(e.game)
	if last == nil {
		return Move{}, fmt.Errorf("%w: %s", ErrIllegalMove, text)
	}
	mv := Move{
		SAN:  nchess.AlgebraicNotation{}.Encode(before, last),
		UCI:  strings.ToLower(nchess.UCINotation{}.Encode(before, last)),
		From: last.S1().String(),
		To:   last.S2().String(),
		Side: side,
	}
	e.history = append(e.history, mv)
	return mv, nil
}

func (e *chessEngine) legalUCI() map[string]struct{} {
	out := make(map[string]struct{})
	for _, mv := range e.game.ValidMoves() {
		out[strings.ToLower(mv.String())] = struct{}{}
	}
	return out
}

func (e *chessEngine) SideToMove() Side { return sideFrom(e.game.Position().Turn()) }

func (e *chessEngine) IsCheckmate() bool { return e.game.Method() == nchess.Checkmate }

func (e *chessEngine) IsDraw() bool { return e.game.Outcome() == nchess.Draw }

func (e *chessEngine) IsGameOver() bool { return e.game.Outcome() != nchess.NoOutcome }

func (e *chessEngine) IsInCheck() bool {
	last := lastMove(e.game)
	return last != nil && last.HasTag(nchess.Check)
}

func (e *chessEngine) History() []Move {
	return append([]Move(nil), e.history...)
}

func (e *chessEngine) PGN() string {
	result, _ := e.Outcome()
	code, title := e.Opening()
	return BuildPGN(PGNHeader{Date: e.startedAt, Result: result, ECO: code, Opening: title}, SANList(e.history))
}

func (e *chessEngine) Opening() (string, string) { return classifyOpening(e.game) }

func (e *chessEngine) Outcome() (string, string) {
	method := ""
	if m := e.game.Method(); m != nchess.NoMethod {
		method = m.String()
	}
	switch e.game.Outcome() {
	case nchess.WhiteWon:
		return "white", method
	case nchess.BlackWon:
		return "black", method
	case nchess.Draw:
		return "draw", method
	default:
		return "", method
	}
}

func lastMove(game *nchess.Game) *nchess.Move {
	moves := game.Moves()
	if len(moves) == 0 {
		return nil
	}
	return moves[len(moves)-1]
}

func sideFrom(c nchess.Color) Side {
	if c == nchess.Black {
		return Black
	}
	return White
}

// SANList projects a history into its SAN tokens.
func SANList(moves []Move) []string {
	out := make([]string, 0, len(moves))
	for _, mv := range moves {
		out = append(out, mv.SAN)
	}
	return out
}

// UCIList projects a history into its UCI tokens.
func UCIList(moves []Move) []string {
	out := make([]string, 0, len(moves))
	for _, mv := range moves {
		out = append(out, mv.UCI)
	}
	return out
}
