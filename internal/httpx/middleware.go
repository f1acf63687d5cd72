package httpx

import (
	"context"
	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/auth"
	"net/http"
)

var errAdminOnly = apperr.Forbidden("admin access required")

type profileKey struct{}

// Auth guards routes with the access token from the Authorization header
// or the access_token cookie.
type Auth struct{ Tokens *auth.Tokens }

func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := a.Tokens.ParseAccess(auth.AccessToken(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), profileKey{}, p)))
	})
}

// Optional attaches the profile when the token is valid and lets
// anonymous requests through untouched.
func (a *Auth) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, err := a.Tokens.ParseAccess(auth.AccessToken(r)); err == nil {
			r = r.WithContext(context.WithValue(r.Context(), profileKey{}, p))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin must run after Authenticate.
func (a *Auth) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := ProfileFrom(r.Context())
		if !ok {
			writeError(w, r, auth.ErrMissingToken)
			return
		}
		if !p.IsAdmin() {
			writeError(w, r, errAdminOnly)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Admin is Authenticate followed by RequireAdmin.
func (a *Auth) Admin(next http.Handler) http.Handler {
	return a.Authenticate(a.RequireAdmin(next))
}

func ProfileFrom(ctx context.Context) (*auth.Profile, bool) {
	p, ok := ctx.Value(profileKey{}).(*auth.Profile)
	return p, ok
}
