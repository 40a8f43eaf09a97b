package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/vncsmyrnk/accounts/internal/core/domain"
	"github.com/vncsmyrnk/accounts/internal/core/ports"
)

type entityRepository struct {
	db *sqlx.DB
}

func NewEntityRepository(db *sqlx.DB) ports.EntityRepository {
	return &entityRepository{
		db: db,
	}
}

func (r *entityRepository) Create(ctx context.Context, entity *domain.Entity) error {
	query := `
		INSERT INTO entities (name)
		VALUES ($1)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query, entity.Name).Scan(&entity.ID, &entity.CreatedAt, &entity.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert entity: %w", err)
	}
	return nil
}

func (r *entityRepository) GetByID(ctx context.Context, id int64) (*domain.Entity, error) {
	query := `
		SELECT id, name, created_at, updated_at
		FROM entities
		WHERE id = $1
	`
	var entity domain.Entity
	if err := r.db.GetContext(ctx, &entity, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}
	return &entity, nil
}

func (r *entityRepository) List(ctx context.Context, limit, offset int) ([]*domain.Entity, error) {
	query := `
		SELECT id, name, created_at, updated_at
		FROM entities
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	entities := []*domain.Entity{}
	if err := r.db.SelectContext(ctx, &entities, query, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}
	return entities, nil
}

func (r *entityRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM entities`); err != nil {
		return 0, fmt.Errorf("failed to count entities: %w", err)
	}
	return n, nil
}

func (r *entityRepository) Update(ctx context.Context, entity *domain.Entity) error {
	query := `
		UPDATE entities
		SET name = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query, entity.Name, entity.ID).Scan(&entity.CreatedAt, &entity.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to update entity: %w", err)
	}
	return nil
}

func (r *entityRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM entities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete entity: %w", err)
	}
	return requireAffected(res)
}
