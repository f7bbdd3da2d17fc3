// Package cache defines cached response entries and canonical request keys.
package cache

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Entry is a stored response. The cache is a write-through shadow of the
// network: the most recent successful network response for a key always
// supersedes the stored one.
type Entry struct {
	Key        string      `json:"key"`
	Status     int         `json:"status"`
	Header     http.Header `json:"header"`
	Body       []byte      `json:"body"`
	CapturedAt time.Time   `json:"captured_at"`
}

// Key canonicalizes a request identity: upper-cased method plus the URL
// with its query parameters sorted. Fragments never reach the origin and
// are dropped.
func Key(method, rawURL string) string {
	return strings.ToUpper(method) + " " + canonicalURL(rawURL)
}

// ScopedKey extends Key with tenant and locale scope for API entries, so
// responses negotiated per tenant or language never collide.
func ScopedKey(method, rawURL, tenant, locale string) string {
	key := Key(method, rawURL)
	if tenant != "" {
		key += "|tenant=" + tenant
	}
	if locale != "" {
		key += "|locale=" + locale
	}
	return key
}

func canonicalURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Fragment = ""
	if u.RawQuery != "" {
		values, err := url.ParseQuery(u.RawQuery)
		if err == nil {
			keys := make([]string, 0, len(values))
			for k := range values {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			var b strings.Builder
			for _, k := range keys {
				vs := values[k]
				sort.Strings(vs)
				for _, v := range vs {
					if b.Len() > 0 {
						b.WriteByte('&')
					}
					b.WriteString(url.QueryEscape(k))
					b.WriteByte('=')
					b.WriteString(url.QueryEscape(v))
				}
			}
			u.RawQuery = b.String()
		}
	}
	return u.String()
}
