package handlers

import (
	"net/http"
	"regexp"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/chat-gateway/internal/api/dto"
	"github.com/spec-kit/chat-gateway/internal/auth"
	"github.com/spec-kit/chat-gateway/internal/domain"
	"github.com/spec-kit/chat-gateway/internal/service"
	apperrors "github.com/spec-kit/chat-gateway/pkg/util"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPasswordLength = 8

// AuthHandler exposes the session lifecycle endpoints.
type AuthHandler struct {
	auth    *service.AuthService
	cookies *auth.CookieWriter
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, cookies *auth.CookieWriter) *AuthHandler {
	return &AuthHandler{auth: authService, cookies: cookies}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password are required", nil)
	}
	if !emailPattern.MatchString(service.NormalizeEmail(req.Email)) {
		return apperrors.NewValidationError("invalid email format", nil)
	}
	if len(req.Password) < minPasswordLength {
		return apperrors.NewValidationError("password must be at least 8 characters long", nil)
	}

	user, token, _, err := h.auth.Register(c.Context(), req.Email, req.Password, req.AvatarURL)
	if err != nil {
		return err
	}

	h.cookies.Set(c, token)
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"user":    userResponse(user),
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password are required", nil)
	}

	user, token, _, err := h.auth.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	h.cookies.Set(c, token)
	return c.JSON(fiber.Map{
		"message": "Login successful",
		"user":    userResponse(user),
	})
}

// Logout handles POST /auth/logout. Stateless: only the cookie is cleared.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.auth.Logout(c.Context()); err != nil {
		return err
	}
	h.cookies.Clear(c)
	return c.JSON(fiber.Map{
		"message": "Logout successful",
	})
}

// Me handles GET /auth/me behind the auth middleware.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	user, err := h.auth.GetCurrentUser(c.Context(), userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"user": userResponse(user),
	})
}

func userResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		AvatarURL: user.AvatarURL,
	}
}
