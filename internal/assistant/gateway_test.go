package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetdesk-backend/internal/types"
)

func candidateBody(text string) types.ChatProxyResponse {
	var out types.ChatProxyResponse
	c := types.ChatCandidate{}
	c.Content.Parts = []types.ChatPart{{Text: text}}
	out.Candidates = []types.ChatCandidate{c}
	return out
}

func history(text string) []types.ChatMessage {
	return []types.ChatMessage{{Role: "user", Parts: []types.ChatPart{{Text: text}}}}
}

func TestCompleteSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sekrit", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req types.ChatProxyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.ChatHistory, 1)
		assert.Equal(t, "hello", req.ChatHistory[0].Parts[0].Text)
		assert.Equal(t, "be helpful", req.SystemPrompt)

		_ = json.NewEncoder(w).Encode(candidateBody("hi from the assistant"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sekrit", time.Second, WithSystemPrompt("be helpful"))
	reply, err := c.Complete(context.Background(), history("hello"))
	require.NoError(t, err)
	assert.Equal(t, "hi from the assistant", reply)
}

func TestCompleteErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		kind   ErrorKind
	}{
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized},
		{"rate limited", http.StatusTooManyRequests, ErrRateLimited},
		{"server error", http.StatusInternalServerError, ErrServerError},
		{"bad gateway", http.StatusBadGateway, ErrServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "sekrit", time.Second)
			_, err := c.Complete(context.Background(), history("hello"))

			var ge *Error
			require.ErrorAs(t, err, &ge)
			assert.Equal(t, tc.kind, ge.Kind)
			assert.Equal(t, tc.status, ge.Status)
		})
	}
}

func TestCompleteEmptyResponse(t *testing.T) {
	for name, body := range map[string]string{
		"no candidates": `{"candidates": []}`,
		"no parts":      `{"candidates": [{"content": {"parts": []}}]}`,
		"blank text":    `{"candidates": [{"content": {"parts": [{"text": "   "}]}}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "sekrit", time.Second)
			_, err := c.Complete(context.Background(), history("hello"))

			var ge *Error
			require.ErrorAs(t, err, &ge)
			assert.Equal(t, ErrEmptyResponse, ge.Kind)
		})
	}
}

func TestCompleteNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := NewClient(srv.URL, "sekrit", time.Second)
	_, err := c.Complete(context.Background(), history("hello"))

	var ge *Error
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, ErrNetworkError, ge.Kind)
}

func TestRetryOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(candidateBody("second try"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sekrit", time.Second, WithRetryOnRateLimit(time.Millisecond))
	reply, err := c.Complete(context.Background(), history("hello"))
	require.NoError(t, err)
	assert.Equal(t, "second try", reply)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRetryIsBoundedToOne(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sekrit", time.Second, WithRetryOnRateLimit(time.Millisecond))
	_, err := c.Complete(context.Background(), history("hello"))

	var ge *Error
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, ErrRateLimited, ge.Kind)
	assert.Equal(t, int32(2), calls.Load())
}

func TestNoRetryByDefault(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sekrit", time.Second)
	_, err := c.Complete(context.Background(), history("hello"))
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestApology(t *testing.T) {
	for kind, want := range apologies {
		assert.Equal(t, want, Apology(&Error{Kind: kind}))
	}
	// Anything unrecognized gets the connection apology.
	assert.Equal(t, apologies[ErrNetworkError], Apology(errors.New("boom")))
}
