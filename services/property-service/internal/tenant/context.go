package tenant

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmarkovic/hostwise/libs/auth"
	"github.com/dmarkovic/hostwise/libs/httpx"
)

// Identity is who is making the request and for which tenant. Every storage
// call downstream is scoped by TenantID; there is no implicit row-level
// isolation in the database.
type Identity struct {
	UserID   string
	TenantID string
	Role     string
}

type ctxKey int

const identityKey ctxKey = 0

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// Middleware resolves the caller's tenant. A bearer token signed with the
// shared HS256 secret wins; the X-Tenant-Id header is accepted as a fallback
// for internal callers behind the gateway. Requests without either get 401.
func Middleware(secret string) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := resolve(r, secret)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func resolve(r *http.Request, secret string) (Identity, bool) {
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	if token, ok := strings.CutPrefix(authz, "Bearer "); ok && secret != "" {
		claims, err := auth.ParseAndVerifyHS256(strings.TrimSpace(token), secret)
		if err == nil && claims.TenantID != "" {
			return Identity{UserID: claims.Sub, TenantID: claims.TenantID, Role: claims.Role}, true
		}
		return Identity{}, false
	}

	if tenantID := strings.TrimSpace(r.Header.Get("X-Tenant-Id")); tenantID != "" {
		return Identity{TenantID: tenantID}, true
	}
	return Identity{}, false
}
