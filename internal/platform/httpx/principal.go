package httpx

import (
	"net/http"

	"github.com/landbook/landbook/internal/shared"
)

// Principal returns the authenticated caller or an Unauthenticated error.
func Principal(r *http.Request) (shared.Principal, error) {
	p, ok := shared.PrincipalFromContext(r.Context())
	if !ok || p.UserID == 0 {
		return shared.Principal{}, shared.ErrUnauthenticated
	}
	return p, nil
}
