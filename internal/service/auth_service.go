package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/yourorg/staffdesk/internal/domain"
	"github.com/yourorg/staffdesk/internal/observability/metrics"
	"github.com/yourorg/staffdesk/internal/security/auth"
	"golang.org/x/crypto/bcrypt"
)

const tokenLifetime = 24 * time.Hour

// AuthService handles registration, login and logout. Tokens are stateless
// JWTs; logout pushes the token onto a revocation list until it would have
// expired on its own.
type AuthService struct {
	userRepo     domain.UserRepository
	tokenManager *auth.TokenManager
	revoker      domain.TokenRevoker
	logger       *slog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo domain.UserRepository,
	tokenManager *auth.TokenManager,
	revoker domain.TokenRevoker,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		userRepo:     userRepo,
		tokenManager: tokenManager,
		revoker:      revoker,
		logger:       logger,
	}
}

// SessionResult is returned by Register and Login: the account identity plus
// a bearer token the client presents on every tenant-scoped request.
type SessionResult struct {
	UserID    int64     `json:"userId"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Register creates a new account and signs the user in.
func (s *AuthService) Register(username, email, firstName, lastName, password string) (*SessionResult, error) {
	if username == "" || email == "" || password == "" {
		return nil, errors.New("username, email, and password are required")
	}
	if len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}

	if existing, err := s.userRepo.GetByUsername(username); err == nil && existing != nil {
		return nil, errors.New("username already taken")
	}
	if existing, err := s.userRepo.GetByEmail(email); err == nil && existing != nil {
		return nil, errors.New("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, errors.New("failed to register user")
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: string(hash),
	}

	if err := s.userRepo.Create(user); err != nil {
		s.logger.Error("failed to create user", slog.String("error", err.Error()))
		return nil, errors.New("failed to register user")
	}

	s.logger.Info("user registered",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return s.startSession(user)
}

// Login authenticates by username and password. Failures are reported with a
// single generic error so the response never confirms which part was wrong.
func (s *AuthService) Login(username, password string) (*SessionResult, error) {
	if username == "" || password == "" {
		return nil, errors.New("username and password are required")
	}

	user, err := s.userRepo.GetByUsername(username)
	if err != nil {
		s.logger.Info("login attempt for unknown username", slog.String("username", username))
		metrics.ObserveLogin("failure")
		return nil, errors.New("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("login failed with wrong password", slog.String("username", username))
		metrics.ObserveLogin("failure")
		return nil, errors.New("invalid credentials")
	}

	s.logger.Info("user logged in",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username),
	)
	metrics.ObserveLogin("success")

	return s.startSession(user)
}

// Logout revokes the presented token. The revocation entry lives only as
// long as the token itself would have.
func (s *AuthService) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.tokenManager.ValidateToken(tokenString)
	if err != nil {
		return errors.New("invalid token")
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil // already expired, nothing to revoke
	}

	if err := s.revoker.Revoke(ctx, tokenString, ttl); err != nil {
		s.logger.Error("failed to revoke token", slog.String("error", err.Error()))
		return errors.New("failed to log out")
	}

	s.logger.Info("user logged out", slog.String("username", claims.Username))
	return nil
}

func (s *AuthService) startSession(user *domain.User) (*SessionResult, error) {
	token, err := s.tokenManager.GenerateToken(user.Username, user.ID, user.Email, tokenLifetime)
	if err != nil {
		s.logger.Error("failed to sign token",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, errors.New("failed to generate token")
	}

	return &SessionResult{
		UserID:    user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Token:     token,
		ExpiresAt: time.Now().Add(tokenLifetime),
	}, nil
}
