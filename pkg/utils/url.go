package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// HashURL creates a SHA256 hash of a URL string.
// This is useful for creating consistent, safe keys for Redis.
func HashURL(rawURL string) string {
	h := sha256.New()
	h.Write([]byte(rawURL))
	return hex.EncodeToString(h.Sum(nil))
}

// ToAbsoluteURL converts a relative URL to an absolute URL given a base URL.
// Protocol-relative references ("//cdn.example.com/x.jpg") inherit the base scheme.
func ToAbsoluteURL(base *url.URL, relative string) (string, error) {
	relURL, err := url.Parse(strings.TrimSpace(relative))
	if err != nil {
		return "", err
	}
	return base.ResolveReference(relURL).String(), nil
}

// LastPathSegment returns the final path segment of rawURL with any query
// string or fragment removed.
func LastPathSegment(rawURL string) string {
	s := rawURL
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimRight(s, "/")
	if s == "" {
		return ""
	}
	return path.Base(s)
}

var slugWord = regexp.MustCompile(`\b[a-zA-Z0-9]+\b`)

// Slugify turns a product title into a URL-safe handle.
func Slugify(title string) string {
	words := slugWord.FindAllString(strings.ToLower(strings.TrimSpace(title)), -1)
	return strings.Join(words, "-")
}

// WithQueryParam appends key=value to rawURL. The existing query is kept
// verbatim, in its original order and encoding; only earlier values of key
// are dropped.
func WithQueryParam(rawURL, key, value string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	var parts []string
	if u.RawQuery != "" {
		for _, part := range strings.Split(u.RawQuery, "&") {
			k, _, _ := strings.Cut(part, "=")
			if name, err := url.QueryUnescape(k); err == nil && name == key {
				continue
			}
			parts = append(parts, part)
		}
	}
	parts = append(parts, url.QueryEscape(key)+"="+url.QueryEscape(value))
	u.RawQuery = strings.Join(parts, "&")
	return u.String(), nil
}
