package ports

import (
	"context"
	"time"

	"github.com/vncsmyrnk/accounts/internal/core/domain"
)

// PasswordHasher derives and checks one-way password hashes.
// Verify returns (false, nil) on mismatch and an error wrapping
// domain.ErrVerification only when the stored hash is malformed.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) (bool, error)
}

// TokenCodec issues and verifies signed, expiring tokens.
// Parse returns domain.ErrTokenExpired or an error wrapping domain.ErrTokenInvalid.
type TokenCodec interface {
	Issue(subject domain.Subject, class domain.TokenClass, ttl time.Duration) (*domain.IssuedToken, error)
	Parse(token string) (*domain.Claims, error)
}

type RevocationRepository interface {
	// Revoke records the token as revoked. It reports whether this call created
	// the record; revoking an already revoked token is a successful no-op.
	Revoke(ctx context.Context, token *domain.RevokedToken) (bool, error)
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// LoginThrottler bounds failed login attempts per email and client address.
type LoginThrottler interface {
	Check(ctx context.Context, email, clientIP string) error
	RegisterFailure(ctx context.Context, email, clientIP string) error
	Reset(ctx context.Context, email, clientIP string) error
}

type AuthService interface {
	Login(ctx context.Context, email, password, clientIP string) (*domain.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutAll(ctx context.Context, userID int64) error
}

type SweepService interface {
	Sweep(ctx context.Context) (int64, error)
}
