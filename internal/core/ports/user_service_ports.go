package ports

import (
	"context"

	"github.com/vncsmyrnk/accounts/internal/core/domain"
)

type RegisterUserInput struct {
	Name     string
	Email    string
	Password string
}

// UpdateUserInput carries a partial update; nil fields are left unchanged.
type UpdateUserInput struct {
	Name            *string
	Email           *string
	CurrentPassword string
	NewPassword     *string
}

type UserService interface {
	Register(ctx context.Context, input RegisterUserInput) (*domain.User, error)
	GetByID(ctx context.Context, actor domain.AuthContext, id int64) (*domain.User, error)
	List(ctx context.Context, page int) ([]*domain.User, int, error)
	Update(ctx context.Context, actor domain.AuthContext, id int64, input UpdateUserInput) (*domain.User, error)
	Delete(ctx context.Context, actor domain.AuthContext, id int64) error
}
