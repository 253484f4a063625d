package tenant

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmarkovic/hostwise/libs/auth"
)

func identityEcho(t *testing.T, got *Identity) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := FromContext(r.Context())
		if !ok {
			t.Fatal("identity missing from context")
		}
		*got = id
	})
}

func TestMiddlewareRejectsAnonymous(t *testing.T) {
	var got Identity
	h := Middleware("secret")(identityEcho(t, &got))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestMiddlewareAcceptsTenantHeader(t *testing.T) {
	var got Identity
	h := Middleware("secret")(identityEcho(t, &got))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Tenant-Id", "t42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got.TenantID != "t42" {
		t.Fatalf("tenant = %q, want t42", got.TenantID)
	}
}

func TestMiddlewareAcceptsSignedToken(t *testing.T) {
	now := time.Now().UTC()
	token, err := auth.SignHS256(auth.Claims{
		Sub:      "u1",
		TenantID: "t1",
		Role:     "staff",
		Iat:      now.Unix(),
		Exp:      now.Add(time.Hour).Unix(),
	}, "secret")
	if err != nil {
		t.Fatalf("SignHS256: %v", err)
	}

	var got Identity
	h := Middleware("secret")(identityEcho(t, &got))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got.TenantID != "t1" || got.UserID != "u1" || got.Role != "staff" {
		t.Fatalf("unexpected identity: %+v", got)
	}
}

// A bearer token that fails verification must not fall through to the
// header; that would let a forged token pick any tenant.
func TestMiddlewareBadTokenDoesNotFallBack(t *testing.T) {
	var got Identity
	h := Middleware("secret")(identityEcho(t, &got))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	req.Header.Set("X-Tenant-Id", "t42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
