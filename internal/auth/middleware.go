package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sundayezeilo/shortlinks/internal/httpx"
)

// CookieName is checked when no Authorization header is sent.
const CookieName = "auth_token"

type contextKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IdentityFromContext returns the identity stored by Require or Optional.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok && id.OwnerID != ""
}

// OwnerID returns the authenticated owner, or "" for anonymous requests.
func OwnerID(ctx context.Context) string {
	id, _ := IdentityFromContext(ctx)
	return id.OwnerID
}

// Credential extracts the bearer token or auth cookie from r.
func Credential(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return "", false
		}
		token = strings.TrimSpace(token)
		return token, token != ""
	}
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}
	return "", false
}

// Require rejects requests without a valid credential with 401.
func Require(a Authenticator, logger *slog.Logger) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := authenticate(r, a)
			if err != nil {
				logger.InfoContext(r.Context(), "request not authenticated",
					"request_id", httpx.GetRequestID(r.Context()),
					"path", r.URL.Path,
					"error", err,
				)
				w.Header().Set("WWW-Authenticate", `Bearer realm="shortlinks"`)
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// Optional attaches an identity when the credential is valid and otherwise lets
// the request through as anonymous.
func Optional(a Authenticator, logger *slog.Logger) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := authenticate(r, a)
			if err != nil {
				if !errors.Is(err, errNoCredential) {
					logger.DebugContext(r.Context(), "ignoring invalid credential",
						"request_id", httpx.GetRequestID(r.Context()),
						"error", err,
					)
				}
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

var errNoCredential = errors.New("no credential")

func authenticate(r *http.Request, a Authenticator) (Identity, error) {
	credential, ok := Credential(r)
	if !ok {
		return Identity{}, errNoCredential
	}
	return a.Authenticate(r.Context(), credential)
}
