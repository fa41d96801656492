// Package assistant is the client side of the chat-endpoint contract: it
// turns conversation history into a reply and maps every failure to a fixed,
// user-visible apology so the conversation never breaks.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"vetdesk-backend/internal/types"
)

type ErrorKind string

const (
	ErrRateLimited   ErrorKind = "rate_limited"
	ErrUnauthorized  ErrorKind = "unauthorized"
	ErrServerError   ErrorKind = "server_error"
	ErrNetworkError  ErrorKind = "network_error"
	ErrEmptyResponse ErrorKind = "empty_response"
)

type Error struct {
	Kind   ErrorKind
	Status int
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("assistant gateway: %s: %v", e.Kind, e.cause)
	}
	if e.Status != 0 {
		return fmt.Sprintf("assistant gateway: %s (status %d)", e.Kind, e.Status)
	}
	return fmt.Sprintf("assistant gateway: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.cause }

var apologies = map[ErrorKind]string{
	ErrRateLimited:   "I'm getting a lot of questions right now. Please wait a moment and try again.",
	ErrUnauthorized:  "Sorry, I'm having trouble reaching the assistant service right now. Please try again later.",
	ErrServerError:   "Sorry, something went wrong on my end. Please try again.",
	ErrNetworkError:  "Sorry, I'm having trouble connecting right now. Please try again later.",
	ErrEmptyResponse: "Sorry, I couldn't come up with an answer for that. Could you rephrase your question?",
}

// Apology returns the user-visible substitute reply for a gateway failure.
func Apology(err error) string {
	var ge *Error
	if errors.As(err, &ge) {
		if msg, ok := apologies[ge.Kind]; ok {
			return msg
		}
	}
	return apologies[ErrNetworkError]
}

// Client talks to a chat endpoint speaking the candidates envelope.
type Client struct {
	endpoint     string
	secret       string
	systemPrompt string
	http         *http.Client
	retryOn429   bool
	retryDelay   time.Duration
}

type Option func(*Client)

// WithSystemPrompt sets a system prompt sent with every completion.
func WithSystemPrompt(prompt string) Option {
	return func(c *Client) { c.systemPrompt = prompt }
}

// WithRetryOnRateLimit enables a single bounded retry after an upstream 429.
func WithRetryOnRateLimit(delay time.Duration) Option {
	return func(c *Client) {
		c.retryOn429 = true
		c.retryDelay = delay
	}
}

func NewClient(endpoint, secret string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		secret:   secret,
		http:     &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete sends the history and returns the first candidate's text.
func (c *Client) Complete(ctx context.Context, history []types.ChatMessage) (string, error) {
	reply, err := c.complete(ctx, history)
	if err == nil {
		return reply, nil
	}
	var ge *Error
	if c.retryOn429 && errors.As(err, &ge) && ge.Kind == ErrRateLimited {
		select {
		case <-time.After(c.retryDelay):
		case <-ctx.Done():
			return "", &Error{Kind: ErrNetworkError, cause: ctx.Err()}
		}
		return c.complete(ctx, history)
	}
	return "", err
}

func (c *Client) complete(ctx context.Context, history []types.ChatMessage) (string, error) {
	body, err := json.Marshal(types.ChatProxyRequest{
		ChatHistory:  history,
		SystemPrompt: c.systemPrompt,
	})
	if err != nil {
		return "", &Error{Kind: ErrNetworkError, cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &Error{Kind: ErrNetworkError, cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secret)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &Error{Kind: ErrNetworkError, cause: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return "", &Error{Kind: ErrUnauthorized, Status: resp.StatusCode}
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", &Error{Kind: ErrRateLimited, Status: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return "", &Error{Kind: ErrServerError, Status: resp.StatusCode}
	}

	var out types.ChatProxyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &Error{Kind: ErrServerError, cause: err}
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", &Error{Kind: ErrEmptyResponse, Status: resp.StatusCode}
	}
	reply := strings.TrimSpace(out.Candidates[0].Content.Parts[0].Text)
	if reply == "" {
		return "", &Error{Kind: ErrEmptyResponse, Status: resp.StatusCode}
	}
	return reply, nil
}
