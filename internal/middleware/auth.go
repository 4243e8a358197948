package middleware

import (
	"net/http"
	"strings"

	"github.com/guille1999utp/bemaster-part-2/internal/auth"
	"github.com/guille1999utp/bemaster-part-2/internal/logging"
)

// DefaultTokenHeader carries the access token when no header is configured.
const DefaultTokenHeader = "x-token"

// TokenVerifier resolves an access token to the user id it was issued for.
type TokenVerifier interface {
	Verify(token string) (userID string, ok bool)
}

// Authenticator turns the token header into a caller identity on the request context.
type Authenticator struct {
	Verifier TokenVerifier
	Header   string
}

func (a Authenticator) header() string {
	if a.Header == "" {
		return DefaultTokenHeader
	}
	return a.Header
}

func (a Authenticator) identify(r *http.Request) (string, bool) {
	if a.Verifier == nil {
		return "", false
	}
	token := strings.TrimSpace(r.Header.Get(a.header()))
	if token == "" {
		return "", false
	}
	return a.Verifier.Verify(token)
}

// RequireUser rejects requests without a valid token with 401.
func (a Authenticator) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := a.identify(r)
		if !ok {
			logging.FromContext(r.Context()).Debug().Str("header", a.header()).Msg("rejecting unauthenticated request")
			writeError(w, http.StatusUnauthorized, "invalid or missing token")
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
	})
}

// OptionalUser attaches the caller identity when the token is valid and lets
// every request through.
func (a Authenticator) OptionalUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID, ok := a.identify(r); ok {
			r = r.WithContext(auth.WithUserID(r.Context(), userID))
		}
		next.ServeHTTP(w, r)
	})
}
