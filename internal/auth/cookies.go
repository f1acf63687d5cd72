package auth

import (
	"github.com/google/uuid"
	"net/http"
	"strings"
	"time"
)

const (
	CookieAccess  = "access_token"
	CookieRefresh = "refresh_token"
	CookieCart    = "cart_id"
	CookieState   = "oauth_state"

	CartTTL  = 365 * 24 * time.Hour
	stateTTL = 10 * time.Minute
)

// Cookies writes the session cookies. Secure is off only for local http.
type Cookies struct{ Secure bool }

func (c Cookies) set(w http.ResponseWriter, name, value string, ttl time.Duration) {
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
	}
	if c.Secure {
		// frontend lives on another origin
		ck.SameSite = http.SameSiteNoneMode
	}
	if ttl < 0 {
		ck.MaxAge = -1
		ck.Expires = time.Unix(0, 0)
	}
	http.SetCookie(w, ck)
}

func (c Cookies) SetSession(w http.ResponseWriter, access, refresh string) {
	c.set(w, CookieAccess, access, AccessTTL)
	c.set(w, CookieRefresh, refresh, RefreshTTL)
}

func (c Cookies) SetCart(w http.ResponseWriter, cartID uuid.UUID) {
	c.set(w, CookieCart, cartID.String(), CartTTL)
}

func (c Cookies) SetState(w http.ResponseWriter, state string) {
	c.set(w, CookieState, state, stateTTL)
}

// Clear drops every session cookie, the cart included.
func (c Cookies) Clear(w http.ResponseWriter) {
	for _, name := range []string{CookieAccess, CookieRefresh, CookieCart} {
		c.set(w, name, "", -1)
	}
}

func (c Cookies) ClearState(w http.ResponseWriter) { c.set(w, CookieState, "", -1) }

func (c Cookies) ClearCart(w http.ResponseWriter) { c.set(w, CookieCart, "", -1) }

// AccessToken prefers the Authorization header over the cookie.
func AccessToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
	}
	return cookieValue(r, CookieAccess)
}

func RefreshToken(r *http.Request) string { return cookieValue(r, CookieRefresh) }

func State(r *http.Request) string { return cookieValue(r, CookieState) }

// CartFromRequest returns nil when the cookie is missing or malformed.
func CartFromRequest(r *http.Request) *uuid.UUID {
	id, err := uuid.Parse(cookieValue(r, CookieCart))
	if err != nil {
		return nil
	}
	return &id
}

func cookieValue(r *http.Request, name string) string {
	ck, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}
