package ports

import (
	"context"

	"github.com/vncsmyrnk/accounts/internal/core/domain"
)

type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	List(ctx context.Context, limit, offset int) ([]*domain.User, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, user *domain.User) error
	// Update persists name, email and password hash. A changed hash bumps the
	// session version atomically; the stored admin flag is never written.
	Update(ctx context.Context, user *domain.User) error
	// SetAdmin changes the admin flag and bumps the session version.
	SetAdmin(ctx context.Context, id int64, isAdmin bool) error
	Delete(ctx context.Context, id int64) error
	// RevokeSessions increments the session version, invalidating every refresh
	// token issued under an earlier one.
	RevokeSessions(ctx context.Context, id int64) error
}
