package domain

import "time"

// GameRecord is a finished match as stored in the archive.
type GameRecord struct {
	ID           string
	SessionID    string
	Mode         string
	HumanSide    string
	Result       string // white | black | draw
	ResultMethod string
	MovesUCI     []string
	MovesSAN     []string
	PGN          string
	StartedAt    time.Time
	EndedAt      time.Time
	Duration     time.Duration
}
