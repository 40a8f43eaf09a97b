package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/vncsmyrnk/accounts/internal/core/domain"
	"github.com/vncsmyrnk/accounts/internal/core/ports"
)

// MaxPasswordLength is the longest password the hasher accepts.
const MaxPasswordLength = 72

type UserService struct {
	repo   ports.UserRepository
	hasher ports.PasswordHasher
	logger *zap.Logger
}

func NewUserService(repo ports.UserRepository, hasher ports.PasswordHasher, logger *zap.Logger) *UserService {
	return &UserService{
		repo:   repo,
		hasher: hasher,
		logger: logger,
	}
}

func (s *UserService) Register(ctx context.Context, input ports.RegisterUserInput) (*domain.User, error) {
	name := strings.TrimSpace(input.Name)
	email := normalizeEmail(input.Email)
	if name == "" || email == "" || input.Password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", domain.ErrValidation)
	}
	if len(input.Password) > MaxPasswordLength {
		return nil, fmt.Errorf("%w: password is too long", domain.ErrValidation)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.Int64("user_id", user.ID))
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, actor domain.AuthContext, id int64) (*domain.User, error) {
	if !actor.CanAccess(id) {
		return nil, domain.ErrForbidden
	}
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) List(ctx context.Context, page int) ([]*domain.User, int, error) {
	users, err := s.repo.List(ctx, PageSize, pageOffset(page))
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Update applies a partial update. Changing the password requires the current
// password unless the actor is an admin, and revokes every refresh token of the user.
func (s *UserService) Update(ctx context.Context, actor domain.AuthContext, id int64, input ports.UpdateUserInput) (*domain.User, error) {
	if !actor.CanAccess(id) {
		return nil, domain.ErrForbidden
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name must not be empty", domain.ErrValidation)
		}
		user.Name = name
	}
	if input.Email != nil {
		email := normalizeEmail(*input.Email)
		if email == "" {
			return nil, fmt.Errorf("%w: email must not be empty", domain.ErrValidation)
		}
		user.Email = email
	}

	passwordChanged := false
	if input.NewPassword != nil {
		if *input.NewPassword == "" || len(*input.NewPassword) > MaxPasswordLength {
			return nil, fmt.Errorf("%w: invalid new password", domain.ErrValidation)
		}
		if !actor.IsAdmin {
			if err := s.checkCurrentPassword(user, input.CurrentPassword); err != nil {
				return nil, err
			}
		}
		hash, err := s.hasher.Hash(*input.NewPassword)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = hash
		passwordChanged = true
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	// The repository bumps the session version in the same write when the
	// hash changes, so outstanding refresh tokens die with the old password.
	if passwordChanged {
		s.logger.Info("password changed", zap.Int64("user_id", user.ID), zap.Int64("actor_id", actor.UserID))
	}
	return user, nil
}

func (s *UserService) checkCurrentPassword(user *domain.User, current string) error {
	if current == "" {
		return fmt.Errorf("%w: current password is required", domain.ErrForbidden)
	}
	ok, err := s.hasher.Verify(current, user.PasswordHash)
	if err != nil {
		if errors.Is(err, domain.ErrVerification) {
			s.logger.Error("stored password hash is unusable", zap.Int64("user_id", user.ID), zap.Error(err))
			return fmt.Errorf("%w: current password is incorrect", domain.ErrForbidden)
		}
		return err
	}
	if !ok {
		return fmt.Errorf("%w: current password is incorrect", domain.ErrForbidden)
	}
	return nil
}

func (s *UserService) Delete(ctx context.Context, actor domain.AuthContext, id int64) error {
	if !actor.CanAccess(id) {
		return domain.ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", zap.Int64("user_id", id), zap.Int64("actor_id", actor.UserID))
	return nil
}
