package storage

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"github.com/starnight-hq/starnight-client/internal/logger"
	"golang.org/x/net/publicsuffix"
)

// Jar is an http.CookieJar that writes every cookie through to a Store and
// starts out with whatever the store still holds.
type Jar struct {
	mem   *cookiejar.Jar
	store Store
}

var _ http.CookieJar = (*Jar)(nil)

// NewJar builds a jar seeded from store.
func NewJar(store Store) (*Jar, error) {
	if store == nil {
		store = noopStore{}
	}
	mem, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	stored, err := store.LoadCookies()
	if err != nil {
		return nil, fmt.Errorf("load stored cookies: %w", err)
	}
	for _, rec := range stored {
		u, err := url.Parse(rec.URL)
		if err != nil {
			continue
		}
		mem.SetCookies(u, []*http.Cookie{rec.Cookie()})
	}

	return &Jar{mem: mem, store: store}, nil
}

func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mem.SetCookies(u, cookies)
	if err := j.store.SaveCookies(u, cookies); err != nil {
		logger.WarnObj("persist session cookies failed", "session_store_error", map[string]any{
			"host":  u.Host,
			"count": len(cookies),
			"error": err.Error(),
		})
	}
}

func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	return j.mem.Cookies(u)
}
