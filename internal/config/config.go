package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultLocalBackendURL = "http://localhost:8080"
	defaultAPIPrefix       = "/api"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	APIBaseURL      string `mapstructure:"api_base_url"`
	AppOrigin       string `mapstructure:"app_origin"`
	LocalBackendURL string `mapstructure:"local_backend_url"`
	BaseURL         string `mapstructure:"-"`

	RequestTimeoutMs int64         `mapstructure:"request_timeout_ms"`
	ProbeTimeoutMs   int64         `mapstructure:"probe_timeout_ms"`
	RequestTimeout   time.Duration `mapstructure:"-"`
	ProbeTimeout     time.Duration `mapstructure:"-"`

	RefreshPath     string   `mapstructure:"refresh_path"`
	ProbePath       string   `mapstructure:"probe_path"`
	MaintenancePath string   `mapstructure:"maintenance_path"`
	PublicPathsRaw  string   `mapstructure:"public_paths"`
	PublicPaths     []string `mapstructure:"-"`

	SessionStoreType       string        `mapstructure:"session_store_type"`
	SessionStorePath       string        `mapstructure:"session_store_path"`
	SessionTTLSeconds      int64         `mapstructure:"session_ttl_seconds"`
	SessionCleanupSeconds  int64         `mapstructure:"session_cleanup_interval_seconds"`
	SessionTTL             time.Duration `mapstructure:"-"`
	SessionCleanupInterval time.Duration `mapstructure:"-"`

	PublishersFile string `mapstructure:"publishers_file"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "starnight-client")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("api_base_url", "")
	v.SetDefault("app_origin", "http://localhost:3000")
	v.SetDefault("local_backend_url", DefaultLocalBackendURL)
	v.SetDefault("request_timeout_ms", 30000)
	v.SetDefault("probe_timeout_ms", 3000)
	v.SetDefault("refresh_path", "/auth/token/refresh")
	v.SetDefault("probe_path", "/public/posts/hot?size=1")
	v.SetDefault("maintenance_path", "/maintenance.html")
	v.SetDefault("public_paths", "/auth/login,/auth/signup,/auth/token/refresh,/auth/logout,/auth/email,/auth/password,/public/")
	v.SetDefault("session_store_type", "bbolt")
	v.SetDefault("session_store_path", "./data/session.db")
	v.SetDefault("session_ttl_seconds", int64((14*24*time.Hour)/time.Second))
	v.SetDefault("session_cleanup_interval_seconds", int64((6*time.Hour)/time.Second))
	v.SetDefault("publishers_file", "")

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// finalize validates raw values and derives durations, the base URL and the allowlist.
func (c *Config) finalize() error {
	if c.RequestTimeoutMs <= 0 {
		return fmt.Errorf("invalid request_timeout_ms (must be positive milliseconds)")
	}
	if c.ProbeTimeoutMs <= 0 {
		return fmt.Errorf("invalid probe_timeout_ms (must be positive milliseconds)")
	}
	c.RequestTimeout = time.Duration(c.RequestTimeoutMs) * time.Millisecond
	c.ProbeTimeout = time.Duration(c.ProbeTimeoutMs) * time.Millisecond

	if c.SessionTTLSeconds <= 0 {
		return fmt.Errorf("invalid session_ttl_seconds (must be positive seconds)")
	}
	if c.SessionCleanupSeconds <= 0 {
		return fmt.Errorf("invalid session_cleanup_interval_seconds (must be positive seconds)")
	}
	c.SessionTTL = time.Duration(c.SessionTTLSeconds) * time.Second
	c.SessionCleanupInterval = time.Duration(c.SessionCleanupSeconds) * time.Second

	baseURL, err := ResolveBaseURL(c.APIBaseURL, c.AppOrigin, c.LocalBackendURL)
	if err != nil {
		return err
	}
	c.BaseURL = baseURL
	c.PublicPaths = SplitList(c.PublicPathsRaw)
	return nil
}

// ResolveBaseURL picks the backend base URL. A non-empty override is used
// verbatim. Otherwise a local-development origin maps to localBackend and any
// other origin gets the relative /api prefix appended.
func ResolveBaseURL(override, origin, localBackend string) (string, error) {
	if o := strings.TrimSpace(override); o != "" {
		return o, nil
	}

	origin = strings.TrimSpace(origin)
	if origin == "" {
		return "", fmt.Errorf("app_origin is required when api_base_url is not set")
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid app_origin %q", origin)
	}

	if IsLocalHost(u.Hostname()) {
		if strings.TrimSpace(localBackend) == "" {
			localBackend = DefaultLocalBackendURL
		}
		return strings.TrimRight(localBackend, "/"), nil
	}
	return u.Scheme + "://" + u.Host + defaultAPIPrefix, nil
}

// IsLocalHost reports whether host names the local development machine.
func IsLocalHost(host string) bool {
	switch strings.ToLower(host) {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}

// SplitList splits a comma separated value, dropping blanks.
func SplitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
