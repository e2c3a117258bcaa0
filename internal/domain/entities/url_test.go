package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "https and http compare equal",
			input:    "http://lemonde.fr/article",
			expected: "lemonde.fr/article",
		},
		{
			name:     "www prefix dropped",
			input:    "https://www.lemonde.fr/article",
			expected: "lemonde.fr/article",
		},
		{
			name:     "trailing slash dropped",
			input:    "https://lemonde.fr/article/",
			expected: "lemonde.fr/article",
		},
		{
			name:     "host lowercased",
			input:    "https://LeMonde.FR/Article",
			expected: "lemonde.fr/Article",
		},
		{
			name:     "query kept",
			input:    "https://lemonde.fr/article?page=2",
			expected: "lemonde.fr/article?page=2",
		},
		{
			name:     "fragment dropped",
			input:    "https://lemonde.fr/article#section",
			expected: "lemonde.fr/article",
		},
		{
			name:     "unparseable input lowercased and trimmed",
			input:    "  Not A URL/ ",
			expected: "not a url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeURL(tt.input))
		})
	}
}

func TestAffairSourceURLs(t *testing.T) {
	affair := &Affair{
		Sources: []Source{
			{URL: "https://www.lemonde.fr/article/"},
			{URL: "https://liberation.fr/autre"},
		},
	}

	set := affair.SourceURLSet()
	assert.Len(t, set, 2)
	assert.Contains(t, set, "lemonde.fr/article")

	assert.True(t, affair.HasSourceURL("http://lemonde.fr/article"))
	assert.False(t, affair.HasSourceURL("https://lefigaro.fr/inconnu"))
}
