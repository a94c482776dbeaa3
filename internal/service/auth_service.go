package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/aryan0dhankhar/teamspace/internal/domain"
	"github.com/aryan0dhankhar/teamspace/internal/security/auth"
)

const minPasswordLength = 8

// AuthService handles authentication operations
type AuthService struct {
	userRepo domain.UserRepository
	tokens   *auth.TokenManager
	logger   *slog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo domain.UserRepository,
	tokens *auth.TokenManager,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
		logger:   logger,
	}
}

// AuthResult is returned by Register and Login
type AuthResult struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Nickname  string `json:"nickname"`
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"` // seconds
	TokenType string `json:"token_type"`
}

// Register creates a new user account
func (s *AuthService) Register(ctx context.Context, email, nickname, password string) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	nickname = strings.TrimSpace(nickname)

	if email == "" || password == "" || nickname == "" {
		return nil, domain.NewError(domain.KindInvalidArgument, "email, nickname, and password are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, domain.NewError(domain.KindInvalidArgument, "Invalid email address: %s!", email)
	}
	if len(password) < minPasswordLength {
		return nil, domain.NewError(domain.KindInvalidArgument, "password must be at least %d characters", minPasswordLength)
	}

	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, domain.NewError(domain.KindAlreadyMember, "Email: %s has already registered!", email)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, domain.StoreFailure(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, domain.StoreFailure(err)
	}

	user := &domain.User{
		Email:    email,
		Nickname: nickname,
		Password: string(hash),
		Status:   domain.StatusValid,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, domain.NewError(domain.KindAlreadyMember, "Email: %s has already registered!", email)
		}
		s.logger.Error("failed to create user", slog.String("error", err.Error()))
		return nil, domain.StoreFailure(err)
	}

	s.logger.Info("user registered", slog.String("user_id", user.ID))
	return s.issue(user)
}

// Login authenticates a user and returns a JWT token
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, domain.NewError(domain.KindInvalidArgument, "email and password are required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, domain.StoreFailure(err)
		}
		s.logger.Info("login attempt with non-existent email", slog.String("email", email))
		return nil, domain.NewError(domain.KindUnauthenticated, "Email and password do not match!")
	}

	if !s.VerifyCredential(user, password) {
		s.logger.Info("login failed with wrong password", slog.String("email", email))
		return nil, domain.NewError(domain.KindUnauthenticated, "Email and password do not match!")
	}

	s.logger.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)
	return s.issue(user)
}

// VerifyCredential checks plaintext against the user's stored hash
func (s *AuthService) VerifyCredential(user *domain.User, plaintext string) bool {
	if user == nil || !user.IsActive() || user.Password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(plaintext)) == nil
}

// VerifyToken verifies and parses a JWT token
func (s *AuthService) VerifyToken(tokenString string) (*auth.Claims, error) {
	claims, err := s.tokens.ValidateToken(tokenString)
	if err != nil {
		return nil, &domain.Error{Kind: domain.KindUnauthenticated, Message: "invalid token", Err: err}
	}
	return claims, nil
}

// ChangePassword changes a user's password
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return domain.NewError(domain.KindInvalidArgument, "new password must be at least %d characters", minPasswordLength)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NewError(domain.KindNotFound, "user not found")
		}
		return domain.StoreFailure(err)
	}

	if !s.VerifyCredential(user, oldPassword) {
		return domain.NewError(domain.KindUnauthenticated, "current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash new password", slog.String("error", err.Error()))
		return domain.StoreFailure(err)
	}

	if err := s.userRepo.Update(ctx, userID, map[string]any{"password": string(hash)}); err != nil {
		s.logger.Error("failed to update user password", slog.String("error", err.Error()))
		return domain.StoreFailure(err)
	}

	s.logger.Info("user changed password", slog.String("user_id", userID))
	return nil
}

// Profile returns the caller's account
func (s *AuthService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewError(domain.KindNotFound, "user not found")
		}
		return nil, domain.StoreFailure(err)
	}
	return user, nil
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	token, err := s.tokens.GenerateToken(user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		return nil, domain.StoreFailure(err)
	}
	return &AuthResult{
		UserID:    user.ID,
		Email:     user.Email,
		Nickname:  user.Nickname,
		Token:     token,
		ExpiresIn: int(s.tokens.TTL().Seconds()),
		TokenType: "Bearer",
	}, nil
}
