package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/drumtrack/drumtrack/internal/shared"
)

// Guard verifies an opaque credential and yields the principal behind it.
type Guard interface {
	Authenticate(ctx context.Context, credential string) (Principal, error)
}

// RevocationStore remembers token ids that were logged out before expiry.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Claims is the JWT payload issued on login.
type Claims struct {
	UserID       int64  `json:"uid"`
	Role         Role   `json:"role"`
	CompanyTaxID string `json:"nip,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 tokens.
type TokenManager struct {
	secret  []byte
	ttl     time.Duration
	revoked RevocationStore
	now     func() time.Time
}

// NewTokenManager constructs a TokenManager. revoked may be nil.
func NewTokenManager(secret string, ttl time.Duration, revoked RevocationStore) *TokenManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, revoked: revoked, now: time.Now}
}

// Issue signs a token for user.
func (m *TokenManager) Issue(user *User) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)
	claims := &Claims{
		UserID:       user.ID,
		Role:         user.Role,
		CompanyTaxID: user.CompanyTaxID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Authenticate implements Guard.
func (m *TokenManager) Authenticate(ctx context.Context, credential string) (Principal, error) {
	claims, err := m.parse(credential)
	if err != nil {
		return Principal{}, err
	}
	if m.revoked != nil {
		revoked, err := m.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return Principal{}, fmt.Errorf("auth: revocation lookup: %w", err)
		}
		if revoked {
			return Principal{}, shared.Unauthenticated("token has been revoked")
		}
	}
	return Principal{
		UserID:       claims.UserID,
		CompanyTaxID: claims.CompanyTaxID,
		Role:         claims.Role,
		TokenID:      claims.ID,
	}, nil
}

// Revoke invalidates the token until it would have expired anyway.
func (m *TokenManager) Revoke(ctx context.Context, credential string) error {
	claims, err := m.parse(credential)
	if err != nil {
		return err
	}
	if m.revoked == nil {
		return nil
	}
	return m.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

func (m *TokenManager) parse(credential string) (*Claims, error) {
	if credential == "" {
		return nil, shared.Unauthenticated("missing credential")
	}
	token, err := jwt.ParseWithClaims(credential, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, shared.Unauthenticated("token expired")
		}
		return nil, shared.Unauthenticated("invalid token")
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, shared.Unauthenticated("invalid token")
	}
	if !claims.Role.IsValid() || claims.ID == "" {
		return nil, shared.Unauthenticated("invalid token claims")
	}
	if claims.Role == RoleClient && claims.CompanyTaxID == "" {
		return nil, shared.Unauthenticated("client token without company")
	}
	return claims, nil
}

var _ Guard = (*TokenManager)(nil)
