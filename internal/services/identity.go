package services

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// HeaderIdentity identifies users by a header set by a trusted authenticating proxy in front of the UI.
type HeaderIdentity struct {
	Header string
}

// UserID returns the value of the configured header.
func (h HeaderIdentity) UserID(r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.Header.Get(h.Header))
	return id, id != ""
}

// CookieIdentity identifies anonymous browsers by a random id kept in a cookie.
type CookieIdentity struct {
	Name   string
	Secure bool
}

const cookieMaxAge = 365 * 24 * time.Hour

// UserID returns the id stored in the cookie.
func (c CookieIdentity) UserID(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(c.Name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// Middleware issues a new id cookie to browsers that have none, and makes it visible to the wrapped
// handler within the same request.
func (c CookieIdentity) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := c.UserID(r); !ok {
			cookie := &http.Cookie{
				Name:     c.Name,
				Value:    uuid.New().String(),
				Path:     "/",
				MaxAge:   int(cookieMaxAge.Seconds()),
				HttpOnly: true,
				Secure:   c.Secure,
				SameSite: http.SameSiteLaxMode,
			}
			http.SetCookie(w, cookie)
			r.AddCookie(cookie)
		}
		next.ServeHTTP(w, r)
	})
}
