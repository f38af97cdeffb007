package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// Client speaks the Gemini generateContent REST API over fasthttp.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *fasthttp.Client
	logger  *zap.Logger

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.defaultTimeout = d
		}
	}
}

func WithModel(model string) Option {
	return func(c *Client) {
		if strings.TrimSpace(model) != "" {
			c.model = strings.TrimSpace(model)
		}
	}
}

func WithBaseURL(base string) Option {
	return func(c *Client) {
		if strings.TrimSpace(base) != "" {
			c.baseURL = strings.TrimRight(strings.TrimSpace(base), "/")
		}
	}
}

// WithRetry sets the attempt count for transient failures. The default is a single attempt.
func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:        "https://generativelanguage.googleapis.com",
		apiKey:         strings.TrimSpace(apiKey),
		model:          "gemini-2.5-pro",
		http:           &fasthttp.Client{ReadTimeout: 90 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 32},
		logger:         zap.NewNop(),
		defaultTimeout: 60 * time.Second,
		retryMax:       1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Model() string { return c.model }

type wirePart struct {
	Text string `json:"text"`
}

type wireContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []wirePart `json:"parts"`
}

type generateRequest struct {
	SystemInstruction *wireContent  `json:"systemInstruction,omitempty"`
	Contents          []wireContent `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content      wireContent `json:"content"`
		FinishReason string      `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

type errorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate sends the turns and returns the concatenated text of the first candidate.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}
	if len(req.Turns) == 0 {
		return "", ErrEmptyRequest
	}
	body := generateRequest{Contents: make([]wireContent, 0, len(req.Turns))}
	if s := strings.TrimSpace(req.System); s != "" {
		body.SystemInstruction = &wireContent{Parts: []wirePart{{Text: s}}}
	}
	for _, t := range req.Turns {
		role := t.Role
		if role == "" {
			role = RoleUser
		}
		body.Contents = append(body.Contents, wireContent{Role: string(role), Parts: []wirePart{{Text: t.Text}}})
	}

	var resp generateResponse
	path := "/v1beta/models/" + url.PathEscape(c.model) + ":generateContent"
	start := time.Now()
	if err := c.doJSON(ctx, fasthttp.MethodPost, path, body, &resp); err != nil {
		c.logger.Warn("advisor_request_failed", zap.String("model", c.model), zap.Duration("took", time.Since(start)), zap.Error(err))
		return "", err
	}
	c.logger.Debug("advisor_request_ok", zap.String("model", c.model), zap.Duration("took", time.Since(start)))

	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w: blocked (%s)", ErrEmptyResponse, resp.PromptFeedback.BlockReason)
		}
		return "", ErrEmptyResponse
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	text := b.String()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := c.retryMax
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		deadline := c.computeDeadline(ctx)
		err := c.http.DoDeadline(req, resp, deadline)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			if attempt == attempts {
				return lastErr
			}
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			apiErr := decodeAPIError(status, resp.Body())
			if attempt == attempts || !apiErr.Retryable() {
				return apiErr
			}
			lastErr = apiErr
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if out != nil {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func decodeAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Message != "" {
		apiErr.Code = env.Error.Status
		apiErr.Message = env.Error.Message
		return apiErr
	}
	if s := strings.TrimSpace(string(body)); s != "" {
		apiErr.Message = fmt.Sprintf("status=%d body=%s", status, truncate(s, 512))
	}
	return apiErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	if dl, ok := ctx.Deadline(); ok {
		clientDL := time.Now().Add(c.defaultTimeout)
		if dl.Before(clientDL) {
			return dl
		}
		return clientDL
	}
	return time.Now().Add(c.defaultTimeout)
}

func (c *Client) sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 250 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
