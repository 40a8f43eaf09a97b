// Package jwt implements the token codec as HS256-signed JWTs.
package jwt

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vncsmyrnk/accounts/internal/core/domain"
	"github.com/vncsmyrnk/accounts/internal/core/ports"
)

// MinSecretLength is the shortest accepted HMAC key.
const MinSecretLength = 32

type tokenClaims struct {
	Class   string `json:"typ"`
	Admin   bool   `json:"adm,omitempty"`
	Version int64  `json:"ver,omitempty"`
	jwt.RegisteredClaims
}

type Codec struct {
	secret []byte
	issuer string
	now    func() time.Time
	parser *jwt.Parser
}

type Option func(*Codec)

// WithClock replaces time.Now for issuing and verifying tokens.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

func NewCodec(secret []byte, issuer string, opts ...Option) (ports.TokenCodec, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes", MinSecretLength)
	}
	c := &Codec{
		secret: secret,
		issuer: issuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	// Registered claims are checked by validate against the codec clock.
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	return c, nil
}

func (c *Codec) Issue(subject domain.Subject, class domain.TokenClass, ttl time.Duration) (*domain.IssuedToken, error) {
	if !class.Valid() {
		return nil, fmt.Errorf("unknown token class %q", class)
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}

	now := c.now().Truncate(time.Second)
	claims := tokenClaims{
		Class: string(class),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(subject.UserID, 10),
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	switch class {
	case domain.TokenClassRefresh:
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate token id: %w", err)
		}
		claims.ID = id.String()
		claims.Version = subject.SessionVersion
	case domain.TokenClassAccess:
		claims.Admin = subject.IsAdmin
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &domain.IssuedToken{
		Value:     signed,
		ID:        claims.ID,
		IssuedAt:  now,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (c *Codec) Parse(tokenString string) (*domain.Claims, error) {
	claims := &tokenClaims{}
	_, err := c.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}

	return c.validate(claims)
}

func (c *Codec) validate(claims *tokenClaims) (*domain.Claims, error) {
	class := domain.TokenClass(claims.Class)
	if !class.Valid() {
		return nil, fmt.Errorf("%w: unknown token class %q", domain.ErrTokenInvalid, claims.Class)
	}
	if claims.Issuer != c.issuer {
		return nil, fmt.Errorf("%w: unexpected issuer %q", domain.ErrTokenInvalid, claims.Issuer)
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return nil, fmt.Errorf("%w: missing exp or iat", domain.ErrTokenInvalid)
	}
	subject, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || subject <= 0 {
		return nil, fmt.Errorf("%w: malformed subject", domain.ErrTokenInvalid)
	}
	if class == domain.TokenClassRefresh {
		if _, err := uuid.Parse(claims.ID); err != nil {
			return nil, fmt.Errorf("%w: malformed token id", domain.ErrTokenInvalid)
		}
		if claims.Version < 0 {
			return nil, fmt.Errorf("%w: malformed session version", domain.ErrTokenInvalid)
		}
	}

	now := c.now()
	if claims.IssuedAt.After(now) {
		return nil, fmt.Errorf("%w: issued in the future", domain.ErrTokenInvalid)
	}
	if now.After(claims.ExpiresAt.Time) {
		return nil, domain.ErrTokenExpired
	}

	return &domain.Claims{
		Subject:        subject,
		IsAdmin:        class == domain.TokenClassAccess && claims.Admin,
		Class:          class,
		TokenID:        claims.ID,
		SessionVersion: claims.Version,
		IssuedAt:       claims.IssuedAt.Time,
		ExpiresAt:      claims.ExpiresAt.Time,
	}, nil
}
