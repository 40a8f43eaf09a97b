package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vncsmyrnk/accounts/internal/core/domain"
	"github.com/vncsmyrnk/accounts/internal/core/ports"
)

type RevocationRepository struct {
	db *sqlx.DB
}

func NewRevocationRepository(db *sqlx.DB) ports.RevocationRepository {
	return &RevocationRepository{db: db}
}

// Revoke inserts the ledger row. The primary key on token_id makes concurrent
// revocations of the same token race safely: exactly one caller gets true.
func (r *RevocationRepository) Revoke(ctx context.Context, token *domain.RevokedToken) (bool, error) {
	query := `
		INSERT INTO revoked_tokens (token_id, user_id, expires_at, reason)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token_id) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query, token.TokenID, token.UserID, token.ExpiresAt, token.Reason)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, domain.ErrNotFound
		}
		return false, fmt.Errorf("failed to revoke token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}

func (r *RevocationRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	var revoked bool
	query := `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE token_id = $1)`
	if err := r.db.GetContext(ctx, &revoked, query, tokenID); err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
	return revoked, nil
}

// PurgeExpired deletes rows whose token expiry is at or before now. Such tokens
// fail verification on expiry alone, so the row is no longer needed.
func (r *RevocationRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to purge revoked tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}
