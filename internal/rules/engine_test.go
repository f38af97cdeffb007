package rules

import (
	"errors"
	"strings"
	"testing"
)

func TestApplyMove_UpdatesPositionAndHistory(t *testing.T) {
	e := New()
	mv, err := e.ApplyMove("e2", "e4", "")
	if err != nil {
		t.Fatalf("ApplyMove: %v", err)
	}
	if mv.SAN != "e4" || mv.UCI != "e2e4" || mv.Side != White {
		t.Fatalf("unexpected move: %+v", mv)
	}
	if e.SideToMove() != Black {
		t.Fatalf("expected black to move, got %s", e.SideToMove())
	}
	if !strings.Contains(e.FEN(), " b ") {
		t.Fatalf("fen does not show black to move: %s", e.FEN())
	}
	if got := len(e.History()); got != 1 {
		t.Fatalf("history len = %d", got)
	}
}

func TestApplyMove_RejectedLeavesStateUntouched(t *testing.T) {
	e := New()
	before := e.FEN()
	for _, tc := range [][2]string{{"e2", "e5"}, {"e7", "e5"}, {"zz", "e4"}, {"", ""}} {
		if _, err := e.ApplyMove(tc[0], tc[1], PromoteQueen); !errors.Is(err, ErrIllegalMove) {
			t.Fatalf("%s%s: expected ErrIllegalMove, got %v", tc[0], tc[1], err)
		}
	}
	if e.FEN() != before {
		t.Fatalf("fen changed after rejected moves: %s", e.FEN())
	}
	if len(e.History()) != 0 {
		t.Fatalf("history grew after rejected moves")
	}
}

func TestApplyNotation_SANAndUCI(t *testing.T) {
	e := New()
	if _, err := e.ApplyNotation("e2e4"); err != nil {
		t.Fatalf("uci: %v", err)
	}
	mv, err := e.ApplyNotation("Nc6")
	if err != nil {
		t.Fatalf("san: %v", err)
	}
	if mv.UCI != "b8c6" {
		t.Fatalf("expected b8c6, got %s", mv.UCI)
	}
	if _, err := e.ApplyNotation("Qxf7"); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("expected illegal SAN to be rejected, got %v", err)
	}
}

func TestApplyNotation_LenientSAN(t *testing.T) {
	e := New()
	for _, mv := range []string{"e2e4", "e7e5", "g1f3", "b8c6", "f1c4"} {
		if _, err := e.ApplyNotation(mv); err != nil {
			t.Fatalf("%s: %v", mv, err)
		}
	}
	cases := []struct {
		token string
		uci   string
	}{
		{"nf6", "g8f6"},
		{"0-0", "e1g1"},
		{"bc5", "f8c5"},
	}
	for _, c := range cases {
		mv, err := e.ApplyNotation(c.token)
		if err != nil {
			t.Fatalf("%s: %v", c.token, err)
		}
		if mv.UCI != c.uci {
			t.Fatalf("%s: expected %s, got %s", c.token, c.uci, mv.UCI)
		}
	}
	if _, err := e.ApplyNotation("0-0-0"); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("expected blocked long castle to be rejected, got %v", err)
	}
}

func TestSANCandidates(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"0-0", []string{"0-0", "O-O"}},
		{"0-0-0+", []string{"0-0-0+", "O-O-O+"}},
		{"O-O", []string{"O-O"}},
		{"o-o", []string{"o-o", "O-O"}},
		{"nf3", []string{"nf3", "Nf3"}},
		{"bxc3", []string{"bxc3", "Bxc3"}},
		{"e4", []string{"e4"}},
		{"Nf3", []string{"Nf3"}},
	}
	for _, c := range cases {
		got := sanCandidates(c.in)
		if strings.Join(got, ",") != strings.Join(c.want, ",") {
			t.Fatalf("sanCandidates(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestFoolsMate_StatusFlags(t *testing.T) {
	e, err := Replay([]string{"f2f3", "e7e5", "g2g4", "d8h4"})
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if !e.IsCheckmate() || !e.IsGameOver() || !e.IsInCheck() {
		t.Fatalf("expected checkmate+game over+check, got mate=%v over=%v check=%v", e.IsCheckmate(), e.IsGameOver(), e.IsInCheck())
	}
	if e.IsDraw() {
		t.Fatalf("checkmate reported as draw")
	}
	result, method := e.Outcome()
	if result != "black" || method == "" {
		t.Fatalf("unexpected outcome %q/%q", result, method)
	}
	if pgn := e.PGN(); !strings.Contains(pgn, "2. g4 Qh4#") || !strings.HasSuffix(pgn, "0-1") {
		t.Fatalf("unexpected pgn:\n%s", pgn)
	}
}

func TestApplyMove_DefaultsToQueenPromotion(t *testing.T) {
	e, err := Replay([]string{"a2a4", "b7b5", "a4b5", "a7a6", "b5a6", "c8b7", "a6b7", "h7h6"})
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	mv, err := e.ApplyMove("b7", "a8", "")
	if err != nil {
		t.Fatalf("promotion: %v", err)
	}
	if mv.UCI != "b7a8q" {
		t.Fatalf("expected queen promotion, got %s", mv.UCI)
	}
}

func TestMovetext(t *testing.T) {
	got := Movetext([]string{"e4", "e5", "Nf3"})
	if got != "1. e4 e5 2. Nf3" {
		t.Fatalf("Movetext = %q", got)
	}
	if Movetext(nil) != "" {
		t.Fatalf("empty movetext expected")
	}
}

func TestParseSide(t *testing.T) {
	if s, err := ParseSide("B"); err != nil || s != Black {
		t.Fatalf("ParseSide(B) = %v, %v", s, err)
	}
	if _, err := ParseSide("green"); err == nil {
		t.Fatalf("expected error for unknown side")
	}
}

func TestOpening_ClassifiesKnownLine(t *testing.T) {
	if code, _ := New().Opening(); code != "" {
		t.Fatalf("start position should have no opening, got %q", code)
	}
	e, err := Replay([]string{"e2e4", "c7c5"})
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	code, title := e.Opening()
	if code == "" || !strings.Contains(title, "Sicilian") {
		t.Fatalf("expected a Sicilian line, got %q %q", code, title)
	}
	if !strings.Contains(e.PGN(), "[ECO \""+code+"\"]") {
		t.Fatalf("pgn lacks ECO tag:\n%s", e.PGN())
	}
}
