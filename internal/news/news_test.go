package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const upstreamPayload = `{
	"articles": [
		{"title": "VA Announces New Policy Updates", "url": "https://example.com/a",
		 "description": "Streamlined claim processing.", "publishedAt": "2025-07-16T00:00:00Z",
		 "source": {"name": "VA News"}},
		{"title": "", "url": "https://example.com/broken"},
		{"title": "No link article", "url": ""},
		{"title": "GI Bill Window Extended", "url": "https://example.com/b"}
	]
}`

func TestArticlesNormalizesAndSkipsInvalid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		_, _ = w.Write([]byte(upstreamPayload))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", time.Minute, time.Second)
	articles, err := c.Articles(context.Background())
	require.NoError(t, err)
	require.Len(t, articles, 2)

	assert.Equal(t, "VA Announces New Policy Updates", articles[0].Title)
	assert.Equal(t, "VA News", articles[0].Source)
	assert.Equal(t, "Streamlined claim processing.", articles[0].Description)
	assert.Equal(t, "GI Bill Window Extended", articles[1].Title)
}

func TestArticlesServedFromCacheWithinTTL(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(upstreamPayload))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Minute, time.Second)
	_, err := c.Articles(context.Background())
	require.NoError(t, err)
	_, err = c.Articles(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
}

func TestArticlesServesStaleOnUpstreamFailure(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(upstreamPayload))
	}))
	defer srv.Close()

	// TTL of zero forces a refetch on every call.
	c := NewClient(srv.URL, "", 0, time.Second)
	first, err := c.Articles(context.Background())
	require.NoError(t, err)

	fail.Store(true)
	second, err := c.Articles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestArticlesErrorWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Minute, time.Second)
	_, err := c.Articles(context.Background())
	assert.Error(t, err)
}

func TestArticlesUnconfiguredUpstream(t *testing.T) {
	c := NewClient("", "", time.Minute, time.Second)
	_, err := c.Articles(context.Background())
	assert.Error(t, err)
}
