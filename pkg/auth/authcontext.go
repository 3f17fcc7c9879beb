package auth

import (
	"net/http"
	"strings"
)

// AuthContext is the opaque authorization bag attached to every outbound
// request for a run. It is built once from a captured session credential
// and never mutated afterwards, so it is safe to share across download
// workers.
type AuthContext struct {
	headers map[string]string
}

// NewAuthContext builds an AuthContext from a captured cookie header and
// an optional explicit access token. When no token is given, the
// gp_access_token cookie is used for the Authorization header if present.
func NewAuthContext(cookieHeader, accessToken string) AuthContext {
	headers := make(map[string]string)

	if cookieHeader != "" {
		headers["Cookie"] = cookieHeader
	}

	if accessToken == "" {
		accessToken = TokenFromCookieHeader(cookieHeader)
	}
	if accessToken != "" {
		headers["Authorization"] = "Bearer " + accessToken
	}

	return AuthContext{headers: headers}
}

// TokenFromCookieHeader extracts the gp_access_token cookie value from a
// "name=value; name=value" cookie header, or returns "" if absent.
func TokenFromCookieHeader(cookieHeader string) string {
	for _, part := range strings.Split(cookieHeader, ";") {
		part = strings.TrimSpace(part)
		name, value, ok := strings.Cut(part, "=")
		if ok && name == "gp_access_token" {
			return value
		}
	}
	return ""
}

// Apply sets the authorization headers on an outbound request
func (a AuthContext) Apply(req *http.Request) {
	for key, value := range a.headers {
		req.Header.Set(key, value)
	}
}

// Headers returns a copy of the authorization headers
func (a AuthContext) Headers() map[string]string {
	out := make(map[string]string, len(a.headers))
	for k, v := range a.headers {
		out[k] = v
	}
	return out
}

// IsZero reports whether the context carries no credential at all
func (a AuthContext) IsZero() bool {
	return len(a.headers) == 0
}
