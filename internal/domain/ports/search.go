package ports

import "context"

// SearchResult is one web search hit, in engine ranking order.
type SearchResult struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Publisher string `json:"publisher,omitempty"`
	Snippet   string `json:"snippet,omitempty"`
}

// SearchClient defines the web search interface used by enrichment.
type SearchClient interface {
	// Search returns up to limit results for the query.
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// ExtractedPage is the readable content pulled from one URL.
type ExtractedPage struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// PageExtractor defines readable-text extraction from a web page.
type PageExtractor interface {
	// Extract fetches the URL and returns its title and main text.
	Extract(ctx context.Context, url string) (*ExtractedPage, error)
}
