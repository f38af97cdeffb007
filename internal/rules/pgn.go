package rules

import (
	"fmt"
	"strings"
	"time"
)

// PGNHeader carries the tag pairs written ahead of the movetext.
type PGNHeader struct {
	Event       string
	Site        string
	Date        time.Time
	White       string
	Black       string
	Termination string
	ECO         string
	Opening     string
	Result      string // white | black | draw | ""
}

// ResultToken maps a result word to the PGN result token.
func ResultToken(result string) string {
	switch strings.ToLower(strings.TrimSpace(result)) {
	case "white":
		return "1-0"
	case "black":
		return "0-1"
	case "draw":
		return "1/2-1/2"
	default:
		return "*"
	}
}

// BuildPGN renders headers plus numbered SAN movetext.
func BuildPGN(h PGNHeader, san []string) string {
	var b strings.Builder
	date := h.Date
	if date.IsZero() {
		date = time.Now()
	}
	event := h.Event
	if strings.TrimSpace(event) == "" {
		event = "Chess Coach"
	}
	site := h.Site
	if strings.TrimSpace(site) == "" {
		site = "?"
	}
	white, black := h.White, h.Black
	if strings.TrimSpace(white) == "" {
		white = "?"
	}
	if strings.TrimSpace(black) == "" {
		black = "?"
	}
	result := ResultToken(h.Result)

	b.WriteString(fmt.Sprintf("[Event \"%s\"]\n", sanitizePGN(event)))
	b.WriteString(fmt.Sprintf("[Site \"%s\"]\n", sanitizePGN(site)))
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString(fmt.Sprintf("[White \"%s\"]\n", sanitizePGN(white)))
	b.WriteString(fmt.Sprintf("[Black \"%s\"]\n", sanitizePGN(black)))
	if strings.TrimSpace(h.ECO) != "" {
		b.WriteString(fmt.Sprintf("[ECO \"%s\"]\n", sanitizePGN(h.ECO)))
	}
	if strings.TrimSpace(h.Opening) != "" {
		b.WriteString(fmt.Sprintf("[Opening \"%s\"]\n", sanitizePGN(h.Opening)))
	}
	if strings.TrimSpace(h.Termination) != "" {
		b.WriteString(fmt.Sprintf("[Termination \"%s\"]\n", sanitizePGN(strings.ToLower(h.Termination))))
	}
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n\n", result))

	for i := 0; i < len(san); i += 2 {
		b.WriteString(fmt.Sprintf("%d. %s", i/2+1, strings.TrimSpace(san[i])))
		if i+1 < len(san) {
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(san[i+1]))
		}
		b.WriteString(" ")
	}
	b.WriteString(result)
	return b.String()
}

// Movetext is the bare numbered SAN line without headers, as sent to the advisor.
func Movetext(san []string) string {
	var b strings.Builder
	for i := 0; i < len(san); i += 2 {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(fmt.Sprintf("%d. %s", i/2+1, strings.TrimSpace(san[i])))
		if i+1 < len(san) {
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(san[i+1]))
		}
	}
	return b.String()
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
