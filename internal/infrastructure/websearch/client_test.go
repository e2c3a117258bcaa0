package websearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigie-publique/vigie-core/internal/infrastructure/config"
)

func TestNewClient(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		client, err := NewClient(config.SearchConfig{Endpoint: "https://search.example.org"})
		require.NoError(t, err)
		assert.NotNil(t, client)
	})

	t.Run("error without endpoint", func(t *testing.T) {
		_, err := NewClient(config.SearchConfig{})
		require.Error(t, err)
	})
}

func TestSearch(t *testing.T) {
	var gotQuery, gotFormat, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotFormat = r.URL.Query().Get("format")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"results": [
				{"url": "https://www.lemonde.fr/article-1", "title": "Premier article", "content": "extrait un", "engine": "duckduckgo"},
				{"url": "", "title": "sans url"},
				{"url": "https://liberation.fr/article-2", "title": "Deuxième article", "content": "extrait deux", "engine": "qwant"},
				{"url": "https://figaro.fr/article-3", "title": "Troisième article"}
			]
		}`))
	}))
	defer server.Close()

	client, err := NewClient(config.SearchConfig{Endpoint: server.URL, APIKey: "secret"})
	require.NoError(t, err)

	results, err := client.Search(context.Background(), "fraude fiscale", 2)
	require.NoError(t, err)

	assert.Equal(t, "fraude fiscale", gotQuery)
	assert.Equal(t, "json", gotFormat)
	assert.Equal(t, "Bearer secret", gotAuth)

	// Capped at the limit, the empty-URL hit skipped.
	require.Len(t, results, 2)
	assert.Equal(t, "https://www.lemonde.fr/article-1", results[0].URL)
	assert.Equal(t, "lemonde.fr", results[0].Publisher)
	assert.Equal(t, "extrait un", results[0].Snippet)
	assert.Equal(t, "liberation.fr", results[1].Publisher)
}

func TestSearch_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client, err := NewClient(config.SearchConfig{Endpoint: server.URL})
	require.NoError(t, err)

	_, err = client.Search(context.Background(), "fraude", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestSearch_BadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client, err := NewClient(config.SearchConfig{Endpoint: server.URL})
	require.NoError(t, err)

	_, err = client.Search(context.Background(), "fraude", 5)
	require.Error(t, err)
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "lemonde.fr", hostOf("https://www.lemonde.fr/politique/article.html"))
	assert.Equal(t, "liberation.fr", hostOf("http://liberation.fr/x"))
	assert.Equal(t, "", hostOf("not a url"))
}
