package httpclient

import "strings"

// DefaultPublicPaths lists endpoints whose 401 responses are expected and must
// never start a session renewal.
var DefaultPublicPaths = []string{
	"/auth/login",
	"/auth/signup",
	"/auth/token/refresh",
	"/auth/logout",
	"/auth/email",
	"/auth/password",
	"/public/",
}

// Allowlist matches request URLs against literal substrings.
//
// Matching is a plain substring test anywhere in the URL, not a path prefix
// test, so "/v2/public/x" and "/member?from=/public/" are exempt as well.
// TODO: tighten to prefix matching once the backend routes are audited for
// accidental matches.
type Allowlist struct {
	fragments []string
}

// NewAllowlist builds an allowlist, skipping blank fragments.
func NewAllowlist(fragments []string) Allowlist {
	out := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return Allowlist{fragments: out}
}

// Matches reports whether url contains any allowlisted fragment.
func (a Allowlist) Matches(url string) bool {
	for _, f := range a.fragments {
		if strings.Contains(url, f) {
			return true
		}
	}
	return false
}
