package auth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/drumtrack/drumtrack/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	tokens *TokenManager
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *TokenManager) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// LoginResult is returned after successful authentication.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Principal Principal `json:"principal"`
}

// Login validates login/password credentials and issues a token.
func (s *Service) Login(ctx context.Context, login, password string) (LoginResult, error) {
	user, err := s.repo.FindByLogin(ctx, login)
	if err != nil {
		return LoginResult{}, shared.ErrInvalidCredentials
	}
	if !user.IsActive || !user.Role.IsValid() {
		return LoginResult{}, shared.ErrInvalidCredentials
	}
	if user.Role == RoleClient && user.CompanyTaxID == "" {
		return LoginResult{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return LoginResult{}, shared.ErrInvalidCredentials
	}
	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		Principal: Principal{UserID: user.ID, CompanyTaxID: user.CompanyTaxID, Role: user.Role},
	}, nil
}

// Logout revokes the presented token.
func (s *Service) Logout(ctx context.Context, credential string) error {
	return s.tokens.Revoke(ctx, credential)
}
