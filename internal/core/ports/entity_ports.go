package ports

import (
	"context"

	"github.com/vncsmyrnk/accounts/internal/core/domain"
)

type EntityRepository interface {
	Create(ctx context.Context, entity *domain.Entity) error
	GetByID(ctx context.Context, id int64) (*domain.Entity, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Entity, error)
	Count(ctx context.Context) (int, error)
	Update(ctx context.Context, entity *domain.Entity) error
	Delete(ctx context.Context, id int64) error
}

type EntityService interface {
	Create(ctx context.Context, name string) (*domain.Entity, error)
	GetByID(ctx context.Context, id int64) (*domain.Entity, error)
	List(ctx context.Context, page int) ([]*domain.Entity, int, error)
	Update(ctx context.Context, id int64, name string) (*domain.Entity, error)
	Delete(ctx context.Context, id int64) error
}
