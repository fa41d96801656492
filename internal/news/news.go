// Package news proxies the upstream veteran-news provider and caches the
// normalized article list so the sidebar doesn't hammer the provider.
package news

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"vetdesk-backend/internal/types"
)

// upstreamResponse is the provider's shape; only the fields the widget
// renders are kept.
type upstreamResponse struct {
	Articles []struct {
		Title       string `json:"title"`
		URL         string `json:"url"`
		Description string `json:"description"`
		PublishedAt string `json:"publishedAt"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

type Client struct {
	upstreamURL string
	apiKey      string
	ttl         time.Duration
	http        *http.Client

	mu        sync.Mutex
	cached    []types.NewsArticle
	fetchedAt time.Time
}

func NewClient(upstreamURL, apiKey string, ttl time.Duration, timeout time.Duration) *Client {
	return &Client{
		upstreamURL: upstreamURL,
		apiKey:      apiKey,
		ttl:         ttl,
		http:        &http.Client{Timeout: timeout},
	}
}

// Articles returns the cached list while fresh, refetching otherwise. When
// the upstream fails and a stale copy exists, the stale copy is served.
func (c *Client) Articles(ctx context.Context) ([]types.NewsArticle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil && time.Since(c.fetchedAt) < c.ttl {
		return copyArticles(c.cached), nil
	}

	articles, err := c.fetch(ctx)
	if err != nil {
		if c.cached != nil {
			log.Printf("[news] upstream fetch failed, serving stale cache: %v", err)
			return copyArticles(c.cached), nil
		}
		return nil, err
	}
	c.cached = articles
	c.fetchedAt = time.Now()
	return copyArticles(articles), nil
}

func (c *Client) fetch(ctx context.Context) ([]types.NewsArticle, error) {
	if c.upstreamURL == "" {
		return nil, fmt.Errorf("news upstream not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.upstreamURL, nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("news upstream returned status %d", resp.StatusCode)
	}

	var raw upstreamResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid news payload: %w", err)
	}

	out := make([]types.NewsArticle, 0, len(raw.Articles))
	for _, a := range raw.Articles {
		// Articles without a title or link can't be rendered; skip them.
		if a.Title == "" || a.URL == "" {
			continue
		}
		out = append(out, types.NewsArticle{
			Title:       a.Title,
			URL:         a.URL,
			Description: a.Description,
			PublishedAt: a.PublishedAt,
			Source:      a.Source.Name,
		})
	}
	return out, nil
}

func copyArticles(in []types.NewsArticle) []types.NewsArticle {
	out := make([]types.NewsArticle, len(in))
	copy(out, in)
	return out
}
