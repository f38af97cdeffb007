package coachdto

import "time"

// ArchivedGame is the wire form of a finished match.
type ArchivedGame struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	Mode         string    `json:"mode"`
	HumanSide    string    `json:"human_side"`
	Result       string    `json:"result"`
	ResultMethod string    `json:"result_method,omitempty"`
	MovesSAN     []string  `json:"moves_san"`
	MovesUCI     []string  `json:"moves_uci"`
	PGN          string    `json:"pgn,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	EndedAt      time.Time `json:"ended_at"`
	DurationMs   int64     `json:"duration_ms"`
}

type HistoryResponse struct {
	Games []ArchivedGame `json:"games"`
}
