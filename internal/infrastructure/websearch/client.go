// Package websearch provides a SearchClient backed by a SearxNG-compatible
// JSON search endpoint.
package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/vigie-publique/vigie-core/internal/domain/ports"
	"github.com/vigie-publique/vigie-core/internal/infrastructure/config"
)

const (
	requestTimeout  = 20 * time.Second
	maxResponseSize = 4 << 20
)

// Client implements the SearchClient interface against a SearxNG-compatible
// endpoint returning JSON.
type Client struct {
	endpoint string
	apiKey   string
	http     *retryablehttp.Client
}

// NewClient creates a new web search client.
func NewClient(cfg config.SearchConfig) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("search endpoint is required")
	}

	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = 3
	httpClient.HTTPClient.Timeout = requestTimeout
	httpClient.Logger = nil

	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		http:     httpClient,
	}, nil
}

type searchResponse struct {
	Results []struct {
		URL     string `json:"url"`
		Title   string `json:"title"`
		Content string `json:"content"`
		Engine  string `json:"engine"`
	} `json:"results"`
}

// Search returns up to limit results for the query, in engine ranking order.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]ports.SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("categories", "news")

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling search endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("reading search response: %w", err)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	results := make([]ports.SearchResult, 0, limit)
	for _, hit := range parsed.Results {
		if hit.URL == "" {
			continue
		}
		results = append(results, ports.SearchResult{
			URL:       hit.URL,
			Title:     hit.Title,
			Publisher: hostOf(hit.URL),
			Snippet:   hit.Content,
		})
		if len(results) >= limit {
			break
		}
	}

	return results, nil
}

// hostOf extracts the host from a URL, stripping a leading www.
func hostOf(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return ""
	}
	host := parsed.Host
	if len(host) > 4 && host[:4] == "www." {
		host = host[4:]
	}
	return host
}
