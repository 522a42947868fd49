package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/starnight-hq/starnight-client/internal/config"
	"github.com/starnight-hq/starnight-client/pkg/httpclient"
	"github.com/starnight-hq/starnight-client/pkg/publishers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, backend, origin string) *config.Config {
	t.Helper()
	return &config.Config{
		AppName:                "starnight-client",
		Env:                    "test",
		AppOrigin:              origin,
		BaseURL:                backend,
		RequestTimeout:         2 * time.Second,
		ProbeTimeout:           time.Second,
		RefreshPath:            "/auth/token/refresh",
		ProbePath:              "/public/posts/hot?size=1",
		MaintenancePath:        "/maintenance.html",
		PublicPaths:            httpclient.DefaultPublicPaths,
		SessionStoreType:       "bbolt",
		SessionStorePath:       filepath.Join(t.TempDir(), "session.db"),
		SessionTTL:             time.Hour,
		SessionCleanupInterval: time.Hour,
	}
}

func TestRuntimeEscalatesOutageAndPublishes(t *testing.T) {
	backend := chi.NewRouter()
	backend.Get("/member/me", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	backend.Head("/public/posts/hot", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	backendSrv := httptest.NewServer(backend)
	defer backendSrv.Close()

	originSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p id="maintenance-message">점검 중</p></body></html>`))
	}))
	defer originSrv.Close()

	var (
		mu     sync.Mutex
		events []publishers.Event
	)
	sinkSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var evt publishers.Event
		if err := json.NewDecoder(r.Body).Decode(&evt); err == nil {
			mu.Lock()
			events = append(events, evt)
			mu.Unlock()
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer sinkSrv.Close()

	pubFile := filepath.Join(t.TempDir(), "publishers.yaml")
	require.NoError(t, os.WriteFile(pubFile, []byte(`
publishers:
  - id: webhook
    type: http
    kinds: [maintenance.entered]
    http:
      url: `+sinkSrv.URL+`
`), 0o644))

	cfg := testConfig(t, backendSrv.URL, originSrv.URL)
	cfg.PublishersFile = pubFile

	rt, err := NewRuntime(context.Background(), cfg, nil)
	require.NoError(t, err)

	_, err = rt.Client().Get(context.Background(), "/member/me")
	require.Error(t, err)
	assert.True(t, errors.Is(err, httpclient.ErrUnderMaintenance))

	notice, ok := rt.Navigator().LastNotice()
	require.True(t, ok)
	assert.Equal(t, "점검 중", notice.Message)

	require.NoError(t, rt.Close())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	assert.Equal(t, "starnight-client", events[0].Source)
	assert.Equal(t, "/member/me", events[0].Session.URL)
}

func TestRuntimePersistsSessionCookies(t *testing.T) {
	backend := chi.NewRouter()
	backend.Post("/auth/login", func(w http.ResponseWriter, _ *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "access_token", Value: "issued", Path: "/", HttpOnly: true})
		_, _ = w.Write([]byte(`{"success":true}`))
	})
	backend.Get("/member/me", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("access_token"); err != nil || c.Value != "issued" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"nickname":"byeol"}`))
	})
	srv := httptest.NewServer(backend)
	defer srv.Close()

	cfg := testConfig(t, srv.URL, "http://localhost:3000")

	rt, err := NewRuntime(context.Background(), cfg, nil)
	require.NoError(t, err)
	_, err = rt.Client().Post(context.Background(), "/auth/login", map[string]string{"email": "a@b.c"})
	require.NoError(t, err)
	require.NoError(t, rt.Close())

	rt, err = NewRuntime(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer rt.Close()

	resp, err := rt.Client().Get(context.Background(), "/member/me")
	require.NoError(t, err)
	assert.JSONEq(t, `{"nickname":"byeol"}`, string(resp.Body()))
}

func TestNewRuntimeRejectsNilConfig(t *testing.T) {
	_, err := NewRuntime(context.Background(), nil, nil)
	assert.Error(t, err)
}
