package httpx

import (
	"context"
	"github.com/ariefcatur/go-storefront/internal/auth"
	"github.com/ariefcatur/go-storefront/internal/users"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"net/http"
)

type UserService interface {
	Register(ctx context.Context, in users.RegisterInput) (*users.User, error)
	Login(ctx context.Context, in users.LoginInput) (*users.Session, error)
	AuthURL(provider, state string) (string, error)
	ProviderLogin(ctx context.Context, provider, code string, cookieCart *uuid.UUID) (*users.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*users.Session, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, id uuid.UUID) (*users.User, error)
	All(ctx context.Context) ([]users.User, error)
}

type AuthHandler struct {
	Users   UserService
	Cookies auth.Cookies
	Auth    *Auth
}

func (h *AuthHandler) Register(r chi.Router) {
	r.Post("/auth/register", h.register)
	r.Post("/auth/login", h.login)
	r.Get("/auth/login/{provider}", h.redirect)
	r.Get("/auth/login/{provider}/callback", h.callback)
	r.Get("/auth/refresh-token", h.refresh)
	r.Get("/auth/logout", h.logout)

	r.With(h.Auth.Authenticate).Get("/users/me", h.me)
	r.With(h.Auth.Admin).Get("/users/all", h.all)
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var in users.RegisterInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	in.CartID = auth.CartFromRequest(r)
	u, err := h.Users.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if u.CartID != nil {
		h.Cookies.SetCart(w, *u.CartID)
	}
	writeOK(w, http.StatusCreated, "User registered successfully", "user", u)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var in users.LoginInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	in.CartID = auth.CartFromRequest(r)
	sess, err := h.Users.Login(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.startSession(w, sess)
	writeOK(w, http.StatusOK, "Logged in", "user", sess.User)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, s *users.Session) {
	h.Cookies.SetSession(w, s.AccessToken, s.RefreshToken)
	if s.CartID != uuid.Nil {
		h.Cookies.SetCart(w, s.CartID)
	}
}

// redirect sends the browser to the provider with a one-time state that
// the callback checks against the cookie.
func (h *AuthHandler) redirect(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	url, err := h.Users.AuthURL(chi.URLParam(r, "provider"), state)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.Cookies.SetState(w, state)
	http.Redirect(w, r, url, http.StatusFound)
}

func (h *AuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	if state == "" || state != auth.State(r) {
		writeError(w, r, auth.ErrStateMismatch)
		return
	}
	h.Cookies.ClearState(w)

	sess, err := h.Users.ProviderLogin(r.Context(), chi.URLParam(r, "provider"), r.URL.Query().Get("code"), auth.CartFromRequest(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.startSession(w, sess)
	writeOK(w, http.StatusOK, "Logged in", "user", sess.User)
}

func (h *AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Users.Refresh(r.Context(), auth.RefreshToken(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.startSession(w, sess)
	writeOK(w, http.StatusOK, "Refreshed tokens", "", nil)
}

// logout never fails: a token that cannot be removed is reported in the
// body with status 200.
func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	err := h.Users.Logout(r.Context(), auth.RefreshToken(r))
	h.Cookies.Clear(w)
	if err != nil {
		log.WithError(err).Debug("logout token removal failed")
		writeJSON(w, http.StatusOK, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (h *AuthHandler) me(w http.ResponseWriter, r *http.Request) {
	p, _ := ProfileFrom(r.Context())
	u, err := h.Users.Me(r.Context(), p.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": u})
}

func (h *AuthHandler) all(w http.ResponseWriter, r *http.Request) {
	us, err := h.Users.All(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "users": us})
}
