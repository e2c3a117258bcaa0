package entities

import (
	"net/url"
	"strings"
)

// NormalizeURL canonicalizes a source URL for set comparison: lowercase
// scheme and host, https/http treated as equal, fragment and trailing slash
// dropped. Unparseable input falls back to a trimmed lowercase string.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.ToLower(strings.TrimRight(raw, "/"))
	}
	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")
	path := strings.TrimRight(u.Path, "/")
	out := host + path
	if u.RawQuery != "" {
		out += "?" + u.RawQuery
	}
	return out
}
