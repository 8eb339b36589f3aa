// Package search wraps the Google Custom Search JSON API.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	endpoint = "https://www.googleapis.com/customsearch/v1"

	// maxResults is how many results one search returns to the model.
	maxResults = 5
)

// Client performs web searches against a Custom Search Engine.
type Client struct {
	apiKey string
	cx     string
	http   *http.Client
}

// NewClient creates a search client for the given API key and engine id.
func NewClient(apiKey, cx string) *Client {
	return &Client{
		apiKey: apiKey,
		cx:     cx,
		http:   &http.Client{Timeout: 15 * time.Second},
	}
}

type searchResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Search runs the query and formats results as numbered title/link/snippet
// blocks for the model.
func (c *Client) Search(ctx context.Context, query string) (string, error) {
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("cx", c.cx)
	q.Set("q", query)
	q.Set("num", fmt.Sprint(maxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode search response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("search API error %d: %s", out.Error.Code, out.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search API: status %d", resp.StatusCode)
	}
	if len(out.Items) == 0 {
		return "no results found", nil
	}

	var b strings.Builder
	for i, item := range out.Items {
		fmt.Fprintf(&b, "[%d] %s\n%s\n%s\n\n", i+1, item.Title, item.Link, item.Snippet)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
