package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "auth_token"

// CookieWriter issues and clears the session cookie with consistent
// attributes. Secure is off in development so plain-HTTP local setups work.
type CookieWriter struct {
	secure bool
	ttl    time.Duration
}

// NewCookieWriter builds a writer whose cookie lifetime matches the token
// expiry window.
func NewCookieWriter(secure bool, ttl time.Duration) *CookieWriter {
	return &CookieWriter{secure: secure, ttl: ttl}
}

// Set attaches the session cookie to the response.
func (w *CookieWriter) Set(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(w.ttl),
		MaxAge:   int(w.ttl.Seconds()),
		HTTPOnly: true,
		Secure:   w.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// Clear instructs the client to discard the session cookie. The token itself
// stays cryptographically valid until its natural expiry; there is no
// server-side revocation.
func (w *CookieWriter) Clear(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   w.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
