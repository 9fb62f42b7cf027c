// Package dedup computes content fingerprints for records without a natural id.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

var trackingParams = map[string]struct{}{
	"utm_source": {}, "utm_medium": {}, "utm_campaign": {}, "utm_term": {}, "utm_content": {},
	"fbclid": {}, "gclid": {}, "ocid": {}, "cmpid": {}, "ref": {},
}

// Fingerprint hashes the normalized parts into a 64-char hex key. Parts that
// parse as http(s) URLs are canonicalized first so trivially different links
// to the same article collapse.
func Fingerprint(parts ...string) string {
	norm := make([]string, 0, len(parts))
	for _, p := range parts {
		norm = append(norm, normalizePart(p))
	}
	sum := sha256.Sum256([]byte(strings.Join(norm, "\x1f")))
	return hex.EncodeToString(sum[:])
}

func normalizePart(raw string) string {
	s := strings.TrimSpace(raw)
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return CanonicalURL(s)
	}
	return strings.Join(strings.Fields(lower), " ")
}

// CanonicalURL drops the scheme, a leading "www.", tracking query params,
// the fragment and any trailing slash.
func CanonicalURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return strings.ToLower(strings.TrimSpace(raw))
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	q := u.Query()
	for key := range q {
		if _, ok := trackingParams[strings.ToLower(key)]; ok {
			q.Del(key)
		}
	}
	out := host + strings.TrimRight(u.EscapedPath(), "/")
	if enc := q.Encode(); enc != "" {
		out += "?" + enc
	}
	return out
}

// ByKey keeps the first item for every non-empty key, preserving order.
func ByKey[T any](items []T, key func(T) string) []T {
	seen := make(map[string]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		k := key(item)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, item)
	}
	return out
}
