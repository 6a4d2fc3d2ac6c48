// Package identity carries per-request session credentials and tab identity.
package identity

import (
	"context"
	"net"
	"net/http"
	"regexp"
	"strings"
)

const (
	SessionHeaderName     = "X-Tutor-Session-ID"
	DefaultSessionIDValue = "default"
)

type contextKey int

const (
	credentialsKey contextKey = iota
	sessionIDKey
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// CredentialsFromContext returns the cookies to forward to the tutor backend.
func CredentialsFromContext(ctx context.Context) []*http.Cookie {
	if v, ok := ctx.Value(credentialsKey).([]*http.Cookie); ok {
		return v
	}
	return nil
}

// SessionIDFromContext extracts the tab session ID from the request context.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return DefaultSessionIDValue
}

func sanitizeSessionID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || !sessionIDPattern.MatchString(id) {
		return DefaultSessionIDValue
	}
	return id
}

func sessionIDFromRequest(r *http.Request) string {
	sid := r.Header.Get(SessionHeaderName)
	if sid == "" {
		sid = r.URL.Query().Get("session_id")
	}
	return sanitizeSessionID(sid)
}

// credentialsFromRequest copies the browser's cookies. They are treated as
// opaque and only ever forwarded to the backend.
func credentialsFromRequest(r *http.Request) []*http.Cookie {
	cookies := r.Cookies()
	out := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	return out
}

// ParseCookieHeader parses a raw Cookie header value such as "a=1; b=2".
func ParseCookieHeader(raw string) []*http.Cookie {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	r := &http.Request{Header: http.Header{"Cookie": []string{raw}}}
	return credentialsFromRequest(r)
}

// Middleware injects the forwarded credentials and per-tab session ID.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), credentialsKey, credentialsFromRequest(r))
			ctx = context.WithValue(ctx, sessionIDKey, sessionIDFromRequest(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IPFromRequest returns a normalized remote IP for optional request tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
