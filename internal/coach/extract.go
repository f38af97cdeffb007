package coach

import (
	"regexp"
	"strings"
)

// the label may be bolded as "**Best Move:**"; the token may follow on a later line
var bestMoveRe = regexp.MustCompile(`(?i)best move:(?:\*\*)?\s*(\S+)`)

// ExtractBestMove returns the token after the "Best Move:" marker.
// Legality is not checked here.
func ExtractBestMove(text string) (string, bool) {
	m := bestMoveRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	tok := strings.Trim(m[1], "*`_")
	tok = strings.TrimRight(tok, ".,;")
	tok = strings.Trim(tok, "*`_")
	if tok == "" {
		return "", false
	}
	return tok, true
}
