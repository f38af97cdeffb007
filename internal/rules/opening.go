package rules

import (
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"
)

var (
	ecoOnce sync.Once
	ecoBook *opening.BookECO
)

// classifyOpening returns the deepest ECO entry matching the game's moves.
func classifyOpening(game *nchess.Game) (code, title string) {
	ecoOnce.Do(func() { ecoBook = opening.NewBookECO() })
	if ecoBook == nil || len(game.Moves()) == 0 {
		return "", ""
	}
	if eco := ecoBook.Find(game.Moves()); eco != nil {
		return eco.Code(), eco.Title()
	}
	return "", ""
}
