package auth

import (
	"net/http"
	"strings"

	"github.com/landbook/landbook/internal/platform/httpx"
	"github.com/landbook/landbook/internal/shared"
)

// Middleware rejects requests without a valid bearer token and stores the
// principal in the request context.
func Middleware(v *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				httpx.RespondError(w, shared.ErrUnauthenticated)
				return
			}
			principal, err := v.Parse(raw)
			if err != nil {
				httpx.RespondError(w, err)
				return
			}
			ctx := shared.ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRoles allows the request through only when the principal holds one
// of roles.
func RequireRoles(roles ...shared.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := httpx.Principal(r)
			if err != nil {
				httpx.RespondError(w, err)
				return
			}
			if !shared.Allowed(principal.Role, roles...) {
				httpx.RespondError(w, shared.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
