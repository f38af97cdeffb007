package coachdto

// StartMatchRequest starts a new match in a session.
type StartMatchRequest struct {
	Mode string `json:"mode"`
	Side string `json:"side"`
}

// MoveRequest is a drag-and-drop move; promotion always resolves to a queen.
type MoveRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type ChatRequest struct {
	Message string `json:"message"`
}

const (
	MoveApplied  = "applied"
	MoveSnapback = "snapback"
)
