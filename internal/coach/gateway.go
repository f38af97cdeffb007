package coach

import (
	"context"
	"time"

	"github.com/park285/chess-coach/internal/advisor"
	"github.com/park285/chess-coach/internal/msgcat"
)

// Thread is the follow-up context opened by one successful advice request.
type Thread struct {
	System string
	Turns  []advisor.Turn
}

func (t *Thread) clone() *Thread {
	if t == nil {
		return nil
	}
	return &Thread{System: t.System, Turns: append([]advisor.Turn(nil), t.Turns...)}
}

// Gateway renders coach prompts and sends them to the advisor.
type Gateway struct {
	llm     advisor.Generator
	cat     *msgcat.Catalog
	timeout time.Duration
}

func NewGateway(llm advisor.Generator, cat *msgcat.Catalog, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Gateway{llm: llm, cat: cat, timeout: timeout}
}

// Advise asks for the best move and reasoning for the given position.
func (g *Gateway) Advise(fen, movetext, lastMove string) (string, error) {
	if lastMove == "" {
		lastMove = "none"
	}
	prompt, err := g.cat.Render("prompt.advice", map[string]any{"FEN": fen, "PGN": movetext, "LastMove": lastMove})
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()
	return g.llm.Generate(ctx, advisor.Request{Turns: []advisor.Turn{{Role: advisor.RoleUser, Text: prompt}}})
}

// OpenThread seeds a follow-up context with the analysed position and the advice.
func (g *Gateway) OpenThread(fen, narrative string) *Thread {
	seed := g.cat.Text("prompt.chat_seed", map[string]any{"FEN": fen}, "Analyze this chess position (FEN): "+fen)
	return &Thread{
		System: g.cat.Text("prompt.chat_system", nil, "You are a world-class chess grandmaster and a friendly, encouraging coach."),
		Turns: []advisor.Turn{
			{Role: advisor.RoleUser, Text: seed},
			{Role: advisor.RoleModel, Text: narrative},
		},
	}
}

// FollowUp sends text within th. th is not modified.
func (g *Gateway) FollowUp(th *Thread, text string) (string, error) {
	turns := append(append([]advisor.Turn(nil), th.Turns...), advisor.Turn{Role: advisor.RoleUser, Text: text})
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()
	return g.llm.Generate(ctx, advisor.Request{System: th.System, Turns: turns})
}
