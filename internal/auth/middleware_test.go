package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// stubAuthenticator accepts exactly one credential.
type stubAuthenticator struct {
	valid   string
	ownerID string
}

func (s stubAuthenticator) Authenticate(_ context.Context, credential string) (Identity, error) {
	if credential != s.valid {
		return Identity{}, ErrUnauthenticated
	}
	return Identity{OwnerID: s.ownerID}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCredential(t *testing.T) {
	tests := []struct {
		name   string
		header string
		cookie string
		want   string
		wantOK bool
	}{
		{"bearer", "Bearer abc", "", "abc", true},
		{"lowercase scheme", "bearer abc", "", "abc", true},
		{"basic scheme", "Basic dXNlcjpwYXNz", "", "", false},
		{"empty bearer", "Bearer ", "", "", false},
		{"cookie", "", "tok", "tok", true},
		{"header wins over cookie", "Bearer abc", "tok", "abc", true},
		{"nothing", "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: CookieName, Value: tt.cookie})
			}

			got, ok := Credential(req)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Credential() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestRequire(t *testing.T) {
	a := stubAuthenticator{valid: "good", ownerID: "alice"}

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantOwner  string
	}{
		{"valid", "Bearer good", http.StatusOK, "alice"},
		{"invalid", "Bearer bad", http.StatusUnauthorized, ""},
		{"missing", "", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var owner string
			h := Require(a, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				owner = OwnerID(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/history", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if owner != tt.wantOwner {
				t.Errorf("owner = %q, want %q", owner, tt.wantOwner)
			}
			if tt.wantStatus == http.StatusUnauthorized && rr.Header().Get("WWW-Authenticate") == "" {
				t.Error("WWW-Authenticate header not set")
			}
		})
	}
}

func TestOptional(t *testing.T) {
	a := stubAuthenticator{valid: "good", ownerID: "alice"}

	tests := []struct {
		name      string
		header    string
		wantOwner string
	}{
		{"valid", "Bearer good", "alice"},
		{"invalid is anonymous", "Bearer bad", ""},
		{"missing is anonymous", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			var owner string
			h := Optional(a, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				owner = OwnerID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodPost, "/shorten", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if !called {
				t.Fatal("handler was not called")
			}
			if owner != tt.wantOwner {
				t.Errorf("owner = %q, want %q", owner, tt.wantOwner)
			}
		})
	}
}

func TestRequire_WithJWT(t *testing.T) {
	token, err := NewIssuer(testSecret, "", time.Minute).Issue("dave")
	if err != nil {
		t.Fatal(err)
	}

	var owner string
	h := Require(NewJWTAuthenticator(testSecret, ""), discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner = OwnerID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/history", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	h.ServeHTTP(httptest.NewRecorder(), req)

	if owner != "dave" {
		t.Errorf("owner = %q, want dave", owner)
	}
}

func TestIdentityFromContext(t *testing.T) {
	if _, ok := IdentityFromContext(context.Background()); ok {
		t.Error("expected no identity in empty context")
	}
	if _, ok := IdentityFromContext(WithIdentity(context.Background(), Identity{})); ok {
		t.Error("empty owner should not count as an identity")
	}
	id, ok := IdentityFromContext(WithIdentity(context.Background(), Identity{OwnerID: "eve"}))
	if !ok || id.OwnerID != "eve" {
		t.Errorf("IdentityFromContext() = (%+v, %v)", id, ok)
	}
}
