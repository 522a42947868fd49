// Package storage keeps session cookies across process restarts.
package storage

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Store persists cookies handed out by the backend.
type Store interface {
	Close() error
	LoadCookies() ([]StoredCookie, error)
	SaveCookies(u *url.URL, cookies []*http.Cookie) error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	// SessionTTL bounds how long a cookie without its own expiry is kept.
	SessionTTL      time.Duration
	CleanupInterval time.Duration
}

const (
	defaultSessionTTL      = 14 * 24 * time.Hour
	defaultCleanupInterval = 6 * time.Hour
)

// StoredCookie is a persisted cookie together with the URL it was set for.
type StoredCookie struct {
	URL       string        `json:"url"`
	Name      string        `json:"name"`
	Value     string        `json:"value"`
	Path      string        `json:"path"`
	Domain    string        `json:"domain,omitempty"`
	Secure    bool          `json:"secure,omitempty"`
	HttpOnly  bool          `json:"http_only,omitempty"`
	SameSite  http.SameSite `json:"same_site,omitempty"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// Cookie rebuilds the http.Cookie to hand back to a jar.
func (s StoredCookie) Cookie() *http.Cookie {
	return &http.Cookie{
		Name:     s.Name,
		Value:    s.Value,
		Path:     s.Path,
		Domain:   s.Domain,
		Secure:   s.Secure,
		HttpOnly: s.HttpOnly,
		SameSite: s.SameSite,
		Expires:  s.ExpiresAt,
	}
}

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled", "memory":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = defaultSessionTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

// toStored converts a Set-Cookie for u. The second result is false when the
// cookie is a deletion (MaxAge < 0 or an expiry in the past).
func toStored(u *url.URL, c *http.Cookie, now time.Time, sessionTTL time.Duration) (StoredCookie, bool) {
	path := c.Path
	if path == "" || path[0] != '/' {
		path = "/"
	}

	var expires time.Time
	switch {
	case c.MaxAge < 0:
		return StoredCookie{}, false
	case c.MaxAge > 0:
		expires = now.Add(time.Duration(c.MaxAge) * time.Second)
	case !c.Expires.IsZero():
		expires = c.Expires
	default:
		expires = now.Add(sessionTTL)
	}
	if !expires.After(now) {
		return StoredCookie{}, false
	}

	return StoredCookie{
		URL:       u.Scheme + "://" + u.Host + path,
		Name:      c.Name,
		Value:     c.Value,
		Path:      path,
		Domain:    strings.TrimPrefix(c.Domain, "."),
		Secure:    c.Secure,
		HttpOnly:  c.HttpOnly,
		SameSite:  c.SameSite,
		ExpiresAt: expires.UTC(),
	}, true
}

// cookieKey identifies a cookie the way a jar does: host or domain, path and name.
func cookieKey(u *url.URL, c *http.Cookie) string {
	scope := strings.TrimPrefix(c.Domain, ".")
	if scope == "" {
		scope = u.Hostname()
	}
	path := c.Path
	if path == "" || path[0] != '/' {
		path = "/"
	}
	return strings.ToLower(scope) + "|" + path + "|" + c.Name
}

type noopStore struct{}

func (noopStore) Close() error                               { return nil }
func (noopStore) LoadCookies() ([]StoredCookie, error)       { return nil, nil }
func (noopStore) SaveCookies(*url.URL, []*http.Cookie) error { return nil }
