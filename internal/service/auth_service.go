package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/chat-gateway/internal/auth"
	"github.com/spec-kit/chat-gateway/internal/config"
	"github.com/spec-kit/chat-gateway/internal/domain"
	"github.com/spec-kit/chat-gateway/internal/repository"
	apperrors "github.com/spec-kit/chat-gateway/pkg/util"
)

// AuthService coordinates the session lifecycle: register, login, logout, and
// identity checks. Outcomes are typed domain errors; the HTTP boundary owns
// the single translation to status codes.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// NewAuthService builds the service. The signing secret comes in through
// config rather than being read ambiently.
func NewAuthService(cfg config.AuthConfig, users repository.UserRepository) *AuthService {
	return &AuthService{
		users:      users,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL()),
		bcryptCost: cfg.BcryptCost,
	}
}

// Register creates a new account and issues its first session token.
func (s *AuthService) Register(ctx context.Context, email, password string, avatarURL *string) (*domain.User, string, time.Time, error) {
	email = NormalizeEmail(email)

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, apperrors.NewDuplicateUser()
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", time.Time{}, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: hash,
		AvatarURL:    avatarURL,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// Two registrations racing on the same email: the unique constraint
		// decides, and the loser reports the same duplicate outcome as the
		// pre-check.
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, "", time.Time{}, apperrors.NewDuplicateUser()
		}
		return nil, "", time.Time{}, err
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// Login authenticates an account and issues a fresh session token. Unknown
// email and wrong password produce the identical outcome.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewInvalidCredentials()
		}
		return nil, "", time.Time{}, err
	}

	ok, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if !ok {
		return nil, "", time.Time{}, apperrors.NewInvalidCredentials()
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// Logout is stateless: the issued token stays valid until its natural expiry
// and the caller clears the cookie. There is no revocation list.
func (s *AuthService) Logout(_ context.Context) error {
	return nil
}

// GetCurrentUser resolves the subject of a previously verified token. A
// missing record means the account vanished after issuance; the caller must
// treat the session as invalid.
func (s *AuthService) GetCurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUserNotFound()
		}
		return nil, err
	}
	return user, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// NormalizeEmail trims whitespace and lowercases so accounts differing only
// by case or padding collide on the uniqueness check.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
