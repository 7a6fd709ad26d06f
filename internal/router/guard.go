package router

import (
	"net/url"
	"strings"
)

// Outcome is the result of a guard check.
type Outcome int

const (
	Allowed Outcome = iota
	RedirectedToLogin
	RedirectedToHome
)

func (o Outcome) String() string {
	switch o {
	case RedirectedToLogin:
		return "redirected-to-login"
	case RedirectedToHome:
		return "redirected-to-home"
	default:
		return "allowed"
	}
}

// Decision is a guard verdict; Location is set for redirects.
type Decision struct {
	Outcome  Outcome
	Location string
}

// Guard decides whether a navigation to m may proceed. It only checks that
// a session is present; token validity is enforced by the API client.
func Guard(m Match, authenticated bool) Decision {
	switch {
	case m.RequiresAuth() && !authenticated:
		return Decision{Outcome: RedirectedToLogin, Location: LoginRedirect(m.FullPath)}
	case m.GuestOnly() && authenticated:
		return Decision{Outcome: RedirectedToHome, Location: PathHome}
	default:
		return Decision{Outcome: Allowed}
	}
}

// LoginRedirect returns the login location that returns to target after a
// successful sign-in.
func LoginRedirect(target string) string {
	if target == "" {
		return PathLogin
	}
	return PathLogin + "?redirect=" + escapeQueryValue(target)
}

// escapeQueryValue escapes v for a query string but keeps path separators
// readable.
func escapeQueryValue(v string) string {
	return strings.ReplaceAll(url.QueryEscape(v), "%2F", "/")
}

// SafeRedirect returns target when it is a local absolute path, else home.
func SafeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return PathHome
	}
	return target
}
