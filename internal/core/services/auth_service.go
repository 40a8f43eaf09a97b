package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vncsmyrnk/accounts/internal/core/domain"
	"github.com/vncsmyrnk/accounts/internal/core/ports"
	"github.com/vncsmyrnk/accounts/internal/metrics"
)

type AuthServiceConfig struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type AuthService struct {
	userRepo       ports.UserRepository
	revocationRepo ports.RevocationRepository
	hasher         ports.PasswordHasher
	codec          ports.TokenCodec
	throttler      ports.LoginThrottler
	logger         *zap.Logger
	config         AuthServiceConfig

	dummyHashOnce sync.Once
	dummyHash     string
}

func NewAuthService(
	userRepo ports.UserRepository,
	revocationRepo ports.RevocationRepository,
	hasher ports.PasswordHasher,
	codec ports.TokenCodec,
	throttler ports.LoginThrottler,
	logger *zap.Logger,
	config AuthServiceConfig,
) *AuthService {
	return &AuthService{
		userRepo:       userRepo,
		revocationRepo: revocationRepo,
		hasher:         hasher,
		codec:          codec,
		throttler:      throttler,
		logger:         logger,
		config:         config,
	}
}

func (s *AuthService) Login(ctx context.Context, email, password, clientIP string) (*domain.TokenPair, error) {
	pair, err := s.login(ctx, normalizeEmail(email), password, clientIP)
	observe("login", err)
	return pair, err
}

func (s *AuthService) login(ctx context.Context, email, password, clientIP string) (*domain.TokenPair, error) {
	if err := s.throttler.Check(ctx, email, clientIP); err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			return nil, err
		}
		s.logger.Warn("login throttle unavailable", zap.Error(err))
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("failed to get user: %w", err)
		}
		// Spend the same hashing work as a real comparison.
		_, _ = s.hasher.Verify(password, s.getDummyHash())
		s.registerFailure(ctx, email, clientIP)
		return nil, domain.ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		s.logger.Error("stored password hash is unusable", zap.Int64("user_id", user.ID), zap.Error(err))
	}
	if !ok {
		s.registerFailure(ctx, email, clientIP)
		return nil, domain.ErrInvalidCredentials
	}

	if err := s.throttler.Reset(ctx, email, clientIP); err != nil {
		s.logger.Warn("failed to reset login throttle", zap.Error(err))
	}

	return s.issuePair(user)
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	pair, err := s.refresh(ctx, refreshToken)
	observe("refresh", err)
	return pair, err
}

func (s *AuthService) refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.parseRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	revoked, err := s.revocationRepo.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to check revocation: %w", err)
	}
	if revoked {
		return nil, s.reuseDetected(ctx, claims)
	}

	user, err := s.userRepo.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: subject no longer exists", domain.ErrTokenInvalid)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if claims.SessionVersion != user.SessionVersion {
		return nil, fmt.Errorf("%w: session revoked", domain.ErrTokenInvalid)
	}

	created, err := s.revocationRepo.Revoke(ctx, &domain.RevokedToken{
		TokenID:   claims.TokenID,
		UserID:    claims.Subject,
		ExpiresAt: claims.ExpiresAt,
		Reason:    domain.RevocationReasonRotation,
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: subject no longer exists", domain.ErrTokenInvalid)
		}
		return nil, fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	if !created {
		// A concurrent refresh with the same token won the insert.
		return nil, s.reuseDetected(ctx, claims)
	}

	return s.issuePair(user)
}

// Logout revokes the refresh token. Expired and already revoked tokens are accepted.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	err := s.logout(ctx, refreshToken)
	observe("logout", err)
	return err
}

func (s *AuthService) logout(ctx context.Context, refreshToken string) error {
	claims, err := s.parseRefresh(refreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			return nil
		}
		return err
	}

	_, err = s.revocationRepo.Revoke(ctx, &domain.RevokedToken{
		TokenID:   claims.TokenID,
		UserID:    claims.Subject,
		ExpiresAt: claims.ExpiresAt,
		Reason:    domain.RevocationReasonLogout,
	})
	if err != nil {
		// The user was deleted; the token cannot be refreshed anyway.
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// LogoutAll invalidates every refresh token of the user. Access tokens already
// issued stay valid until they expire.
func (s *AuthService) LogoutAll(ctx context.Context, userID int64) error {
	if err := s.userRepo.RevokeSessions(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	s.logger.Info("sessions revoked", zap.Int64("user_id", userID))
	return nil
}

func (s *AuthService) parseRefresh(token string) (*domain.Claims, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", domain.ErrTokenInvalid)
	}
	claims, err := s.codec.Parse(token)
	if err != nil {
		return nil, err
	}
	if claims.Class != domain.TokenClassRefresh {
		return nil, fmt.Errorf("%w: not a refresh token", domain.ErrTokenInvalid)
	}
	return claims, nil
}

func (s *AuthService) reuseDetected(ctx context.Context, claims *domain.Claims) error {
	metrics.TokenReuseDetectedTotal.Inc()
	s.logger.Warn("refresh token reuse detected",
		zap.Int64("user_id", claims.Subject),
		zap.String("token_id", claims.TokenID),
	)
	if err := s.userRepo.RevokeSessions(ctx, claims.Subject); err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.Error("failed to revoke sessions after token reuse", zap.Int64("user_id", claims.Subject), zap.Error(err))
	}
	return domain.ErrTokenReused
}

func (s *AuthService) issuePair(user *domain.User) (*domain.TokenPair, error) {
	subject := domain.Subject{
		UserID:         user.ID,
		IsAdmin:        user.IsAdmin,
		SessionVersion: user.SessionVersion,
	}

	access, err := s.codec.Issue(subject, domain.TokenClassAccess, s.config.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}
	refresh, err := s.codec.Issue(subject, domain.TokenClassRefresh, s.config.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}
	return &domain.TokenPair{Access: *access, Refresh: *refresh}, nil
}

func (s *AuthService) registerFailure(ctx context.Context, email, clientIP string) {
	if err := s.throttler.RegisterFailure(ctx, email, clientIP); err != nil {
		s.logger.Warn("failed to record login failure", zap.Error(err))
	}
}

func (s *AuthService) getDummyHash() string {
	s.dummyHashOnce.Do(func() {
		h, err := s.hasher.Hash("accounts-dummy-password")
		if err != nil {
			s.logger.Error("failed to build dummy password hash", zap.Error(err))
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func observe(operation string, err error) {
	metrics.AuthOperationsTotal.WithLabelValues(operation, resultOf(err)).Inc()
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, domain.ErrTokenReused):
		return metrics.ResultReused
	case errors.Is(err, domain.ErrTokenExpired):
		return metrics.ResultExpired
	case errors.Is(err, domain.ErrRateLimited):
		return metrics.ResultRateLimited
	case domain.IsAuthError(err):
		return metrics.ResultInvalid
	default:
		return metrics.ResultError
	}
}
