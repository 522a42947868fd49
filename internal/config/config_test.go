package config

import (
	"testing"
	"time"
)

func TestResolveBaseURL(t *testing.T) {
	cases := []struct {
		name     string
		override string
		origin   string
		local    string
		want     string
	}{
		{name: "override verbatim", override: "https://api.example.com/v2", origin: "https://starnight.example", want: "https://api.example.com/v2"},
		{name: "localhost origin", origin: "http://localhost:3000", want: DefaultLocalBackendURL},
		{name: "loopback ip origin", origin: "http://127.0.0.1:5173", local: "http://127.0.0.1:9000/", want: "http://127.0.0.1:9000"},
		{name: "deployed origin", origin: "https://starnight.example", want: "https://starnight.example/api"},
		{name: "deployed origin with port", origin: "https://starnight.example:8443/board", want: "https://starnight.example:8443/api"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ResolveBaseURL(tc.override, tc.origin, tc.local)
			if err != nil {
				t.Fatalf("ResolveBaseURL: %v", err)
			}
			if got != tc.want {
				t.Fatalf("ResolveBaseURL = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestResolveBaseURLRequiresOrigin(t *testing.T) {
	if _, err := ResolveBaseURL("", "", ""); err == nil {
		t.Fatalf("expected error without override or origin")
	}
	if _, err := ResolveBaseURL("", "not a url", ""); err == nil {
		t.Fatalf("expected error for origin without host")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "")
	t.Setenv("APP_ORIGIN", "https://starnight.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL != "https://starnight.example/api" {
		t.Fatalf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Fatalf("RequestTimeout = %s", cfg.RequestTimeout)
	}
	if cfg.ProbeTimeout != 3*time.Second {
		t.Fatalf("ProbeTimeout = %s", cfg.ProbeTimeout)
	}
	if len(cfg.PublicPaths) == 0 || cfg.PublicPaths[0] != "/auth/login" {
		t.Fatalf("unexpected public paths %v", cfg.PublicPaths)
	}
}

func TestLoadRejectsNonPositiveTimeout(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT_MS", "0")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for zero request timeout")
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" /auth/login, ,/public/ ,")
	if len(got) != 2 || got[0] != "/auth/login" || got[1] != "/public/" {
		t.Fatalf("SplitList = %v", got)
	}
}
