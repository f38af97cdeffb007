package advisor

import (
	"context"
	"errors"
	"strconv"
)

// Role is the speaker of a conversation turn on the wire.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one prior message sent as conversation context.
type Turn struct {
	Role Role
	Text string
}

// Request is a single generateContent call: optional system framing plus turns.
type Request struct {
	System string
	Turns  []Turn
}

// Generator is the request/response capability the coach consumes.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

var (
	ErrMissingAPIKey = errors.New("API key is not configured; set API_KEY")
	ErrEmptyResponse = errors.New("advisor returned no text")
	ErrEmptyRequest  = errors.New("advisor request has no turns")
)

// APIError is a non-2xx reply from the advisor service.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return "advisor api error: status=" + strconv.Itoa(e.Status)
	}
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// Retryable reports whether the status is worth another attempt.
func (e *APIError) Retryable() bool {
	switch e.Status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
