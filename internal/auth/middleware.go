package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/chat-gateway/pkg/util"
)

const userIDKey = "auth_user_id"

// Middleware validates the session cookie and stashes the token's subject for
// downstream handlers. Token expiry is discovered lazily here, on the next
// authenticated request.
type Middleware struct {
	tokens  *TokenManager
	cookies *CookieWriter
}

// NewMiddleware constructs middleware.
func NewMiddleware(tokens *TokenManager, cookies *CookieWriter) *Middleware {
	return &Middleware{tokens: tokens, cookies: cookies}
}

// Handle enforces authentication for protected routes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	token := c.Cookies(SessionCookieName)
	if token == "" {
		return apperrors.NewUnauthorized("authentication required")
	}

	userID, err := m.tokens.VerifyToken(token)
	if err != nil {
		// A dead cookie gets cleared so clients drop back to anonymous.
		m.cookies.Clear(c)
		return apperrors.NewUnauthorized("invalid or expired token")
	}

	c.Locals(userIDKey, userID)
	return c.Next()
}

// UserIDFromContext retrieves the authenticated user id.
func UserIDFromContext(c *fiber.Ctx) (string, bool) {
	val := c.Locals(userIDKey)
	if val == nil {
		return "", false
	}
	id, ok := val.(string)
	return id, ok && id != ""
}
