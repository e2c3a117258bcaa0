// Package pagefetch provides a PageExtractor that pulls readable text out of
// web pages.
package pagefetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/vigie-publique/vigie-core/internal/domain/ports"
)

const (
	fetchTimeout = 25 * time.Second
	maxPageSize  = 8 << 20
	userAgent    = "vigie-core/1.0 (+https://github.com/vigie-publique/vigie-core)"
)

// Extractor implements the PageExtractor interface using goquery.
type Extractor struct {
	http *retryablehttp.Client
}

// NewExtractor creates a new page extractor.
func NewExtractor() *Extractor {
	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = 2
	httpClient.HTTPClient.Timeout = fetchTimeout
	httpClient.Logger = nil

	return &Extractor{http: httpClient}
}

// Extract fetches the URL and returns its title and main text.
func (e *Extractor) Extract(ctx context.Context, pageURL string) (*ports.ExtractedPage, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building page request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page returned status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "html") {
		return nil, fmt.Errorf("unsupported content type: %s", contentType)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("parsing page HTML: %w", err)
	}

	page := parseDocument(doc)
	page.URL = pageURL
	if page.Text == "" {
		return nil, errors.New("no readable text found")
	}
	return page, nil
}

// parseDocument pulls the title and main text out of a parsed page.
func parseDocument(doc *goquery.Document) *ports.ExtractedPage {
	doc.Find("script, style, nav, header, footer, aside, form, noscript, iframe").Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if ogTitle, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && ogTitle != "" {
		title = strings.TrimSpace(ogTitle)
	}

	// Prefer the article body; fall back to main, then all paragraphs.
	var paragraphs []string
	for _, selector := range []string{"article p", "main p", "p"} {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			text := strings.Join(strings.Fields(s.Text()), " ")
			if len(text) >= 40 {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) > 0 {
			break
		}
	}

	return &ports.ExtractedPage{
		Title: title,
		Text:  strings.Join(paragraphs, "\n\n"),
	}
}
