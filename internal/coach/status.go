package coach

import (
	"github.com/park285/chess-coach/internal/msgcat"
	"github.com/park285/chess-coach/internal/rules"
)

// StatusLabel derives the single status line for the position.
// Precedence: checkmate, draw, other game over, check, side to move.
func StatusLabel(cat *msgcat.Catalog, eng rules.Engine) string {
	if eng == nil {
		return cat.Text("status.idle", nil, "Ready to start a new game.")
	}
	turn := eng.SideToMove()
	switch {
	case eng.IsCheckmate():
		winner := turn.Opponent().Label()
		return cat.Text("status.checkmate", map[string]any{"Winner": winner}, "Checkmate! "+winner+" wins.")
	case eng.IsDraw():
		return cat.Text("status.draw", nil, "Draw!")
	case eng.IsGameOver():
		return cat.Text("status.game_over", nil, "Game over.")
	case eng.IsInCheck():
		return cat.Text("status.check", map[string]any{"Side": turn.Label()}, turn.Label()+" to move - Check!")
	default:
		return cat.Text("status.turn", map[string]any{"Side": turn.Label()}, turn.Label()+" to move")
	}
}
