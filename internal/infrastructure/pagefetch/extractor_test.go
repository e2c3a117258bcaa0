package pagefetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

const longParagraph = "Le tribunal correctionnel de Paris a rendu sa décision jeudi après trois semaines d'audience."

func TestParseDocument_TitleAndArticle(t *testing.T) {
	doc := parseHTML(t, `
		<html><head><title>Titre de la page</title></head>
		<body>
			<nav><p>`+longParagraph+`</p></nav>
			<article><p>`+longParagraph+`</p><p>court</p></article>
		</body></html>`)

	page := parseDocument(doc)

	assert.Equal(t, "Titre de la page", page.Title)
	// The nav paragraph is stripped, the short one filtered out.
	assert.Equal(t, longParagraph, page.Text)
}

func TestParseDocument_OGTitleWins(t *testing.T) {
	doc := parseHTML(t, `
		<html><head>
			<title>Titre générique | Site</title>
			<meta property="og:title" content="Titre précis de l'article">
		</head>
		<body><article><p>`+longParagraph+`</p></article></body></html>`)

	page := parseDocument(doc)
	assert.Equal(t, "Titre précis de l'article", page.Title)
}

func TestParseDocument_ParagraphFallback(t *testing.T) {
	// No article or main element, plain paragraphs still count.
	doc := parseHTML(t, `
		<html><body>
			<script>var x = "`+longParagraph+`";</script>
			<div><p>`+longParagraph+`</p></div>
		</body></html>`)

	page := parseDocument(doc)
	assert.Equal(t, longParagraph, page.Text)
}

func TestParseDocument_WhitespaceCollapsed(t *testing.T) {
	doc := parseHTML(t, `
		<html><body><article><p>
			Le tribunal   correctionnel de Paris a rendu
			sa décision jeudi après trois semaines d'audience.
		</p></article></body></html>`)

	page := parseDocument(doc)
	assert.Equal(t, longParagraph, page.Text)
}

func TestExtract(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><head><title>Un article</title></head>
			<body><article><p>` + longParagraph + `</p></article></body></html>`))
	}))
	defer server.Close()

	extractor := NewExtractor()
	page, err := extractor.Extract(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, server.URL, page.URL)
	assert.Equal(t, "Un article", page.Title)
	assert.Equal(t, longParagraph, page.Text)
}

func TestExtract_NonHTMLContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4"))
	}))
	defer server.Close()

	extractor := NewExtractor()
	_, err := extractor.Extract(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content type")
}

func TestExtract_NoReadableText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><p>court</p></body></html>`))
	}))
	defer server.Close()

	extractor := NewExtractor()
	_, err := extractor.Extract(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no readable text")
}
