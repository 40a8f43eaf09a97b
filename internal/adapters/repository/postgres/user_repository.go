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

const userColumns = `id, name, email, password_hash, is_admin, session_version, created_at, updated_at`

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) ports.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.get(ctx, query, email)
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.get(ctx, query, id)
}

func (r *UserRepository) get(ctx context.Context, query string, arg any) (*domain.User, error) {
	user := &domain.User{}
	if err := r.db.GetContext(ctx, user, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id LIMIT $1 OFFSET $2`
	users := []*domain.User{}
	if err := r.db.SelectContext(ctx, &users, query, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (name, email, password_hash, is_admin)
		VALUES ($1, $2, $3, $4)
		RETURNING id, session_version, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query, user.Name, user.Email, user.PasswordHash, user.IsAdmin).
		Scan(&user.ID, &user.SessionVersion, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// Update writes name, email and password hash. A changed hash bumps the
// session version in the same statement. The admin flag is left to SetAdmin.
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET name = $1, email = $2, password_hash = $3, updated_at = NOW(),
			session_version = session_version + CASE WHEN password_hash <> $3 THEN 1 ELSE 0 END
		WHERE id = $4
		RETURNING is_admin, session_version, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query, user.Name, user.Email, user.PasswordHash, user.ID).
		Scan(&user.IsAdmin, &user.SessionVersion, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		if isUniqueViolation(err) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// SetAdmin changes the admin flag and bumps the session version so refresh
// tokens minted under the old role stop working.
func (r *UserRepository) SetAdmin(ctx context.Context, id int64, isAdmin bool) error {
	query := `
		UPDATE users
		SET is_admin = $1, session_version = session_version + 1, updated_at = NOW()
		WHERE id = $2
	`
	res, err := r.db.ExecContext(ctx, query, isAdmin, id)
	if err != nil {
		return fmt.Errorf("failed to set admin flag: %w", err)
	}
	return requireAffected(res)
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return requireAffected(res)
}

func (r *UserRepository) RevokeSessions(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET session_version = session_version + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
