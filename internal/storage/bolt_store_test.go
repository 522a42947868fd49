package storage

import (
	"net/http"
	"net/url"
	"testing"
	"time"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	return u
}

func TestBoltStoreSavesAndExpiresCookies(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		SessionTTL:      time.Hour,
		CleanupInterval: time.Second,
	}

	storeRaw, err := openBolt(dir+"/session.db", opts)
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	defer store.Close()

	now := time.Now()
	store.now = func() time.Time { return now }
	u := mustURL(t, "https://starnight.example/api/auth/token/refresh")

	err = store.SaveCookies(u, []*http.Cookie{
		{Name: "access_token", Value: "a1", Path: "/", MaxAge: 60},
		{Name: "refresh_token", Value: "r1", Path: "/api/auth"},
	})
	if err != nil {
		t.Fatalf("SaveCookies: %v", err)
	}

	cookies, err := store.LoadCookies()
	if err != nil {
		t.Fatalf("LoadCookies: %v", err)
	}
	if len(cookies) != 2 {
		t.Fatalf("expected 2 cookies, got %d", len(cookies))
	}
	byName := map[string]StoredCookie{}
	for _, c := range cookies {
		byName[c.Name] = c
	}
	if got := byName["refresh_token"]; got.URL != "https://starnight.example/api/auth" || !got.ExpiresAt.Equal(now.Add(time.Hour).UTC()) {
		t.Fatalf("unexpected session cookie record %+v", got)
	}

	// Fast-forward past the access token lifetime.
	now = now.Add(2 * time.Minute)
	cookies, err = store.LoadCookies()
	if err != nil {
		t.Fatalf("LoadCookies after expiry: %v", err)
	}
	if len(cookies) != 1 || cookies[0].Name != "refresh_token" {
		t.Fatalf("expected only refresh_token to survive, got %+v", cookies)
	}
}

func TestBoltStoreDeletesOnMaxAgeNegative(t *testing.T) {
	storeRaw, err := openBolt(t.TempDir()+"/session.db", normalizeOptions(Options{}))
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	defer storeRaw.Close()
	u := mustURL(t, "https://starnight.example/api/auth/logout")

	if err := storeRaw.SaveCookies(u, []*http.Cookie{{Name: "access_token", Value: "a1", Path: "/"}}); err != nil {
		t.Fatalf("SaveCookies: %v", err)
	}
	if err := storeRaw.SaveCookies(u, []*http.Cookie{{Name: "access_token", Path: "/", MaxAge: -1}}); err != nil {
		t.Fatalf("SaveCookies delete: %v", err)
	}

	cookies, err := storeRaw.LoadCookies()
	if err != nil {
		t.Fatalf("LoadCookies: %v", err)
	}
	if len(cookies) != 0 {
		t.Fatalf("expected cookie to be removed, got %+v", cookies)
	}
}

func TestBoltStoreCleanupCadence(t *testing.T) {
	storeRaw, err := openBolt(t.TempDir()+"/session.db", Options{SessionTTL: time.Minute, CleanupInterval: time.Hour})
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	defer store.Close()

	now := time.Now()
	store.now = func() time.Time { return now }
	u := mustURL(t, "https://starnight.example/")
	if err := store.SaveCookies(u, []*http.Cookie{{Name: "a", Value: "1", MaxAge: 1}}); err != nil {
		t.Fatalf("SaveCookies: %v", err)
	}

	now = now.Add(2 * time.Hour)
	if err := store.maybeCleanupExpired(now); err != nil {
		t.Fatalf("maybeCleanupExpired: %v", err)
	}
	if got := time.Unix(store.lastCleanup.Load(), 0); got.Before(now.Add(-time.Second)) {
		t.Fatalf("cleanup did not run, last=%s", got)
	}
}

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore("none", "", Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.SaveCookies(mustURL(t, "https://x.example"), []*http.Cookie{{Name: "x"}}); err != nil {
		t.Fatalf("noop store SaveCookies: %v", err)
	}
	if _, err := NewStore("redis", "", Options{}); err == nil {
		t.Fatalf("expected unsupported storage type error")
	}
	if _, err := NewStore("bbolt", " ", Options{}); err == nil {
		t.Fatalf("expected error for bbolt without path")
	}
}
