package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/accounts/internal/core/domain"
)

func TestEntityRepository_CreateAndGet(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEntityRepository(db)
	now := time.Now()

	mock.ExpectQuery(`(?s)INSERT INTO entities \(name\).*RETURNING id, created_at, updated_at`).
		WithArgs("widget").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(1), now, now))
	mock.ExpectQuery(`(?s)SELECT id, name, created_at, updated_at.*FROM entities.*WHERE id = \$1`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at", "updated_at"}).AddRow(int64(1), "widget", now, now))

	entity := &domain.Entity{Name: "widget"}
	require.NoError(t, repo.Create(context.Background(), entity))
	assert.Equal(t, int64(1), entity.ID)

	got, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "widget", got.Name)
}

func TestEntityRepository_GetByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEntityRepository(db)

	mock.ExpectQuery(`(?s)FROM entities`).WithArgs(int64(2)).WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 2)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEntityRepository_ListAndCount(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEntityRepository(db)

	mock.ExpectQuery(`(?s)FROM entities.*ORDER BY created_at DESC, id DESC.*LIMIT \$1 OFFSET \$2`).
		WithArgs(10, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at", "updated_at"}))
	mock.ExpectQuery(`^SELECT COUNT\(\*\) FROM entities$`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	entities, err := repo.List(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.NotNil(t, entities)
	assert.Empty(t, entities)

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEntityRepository_UpdateAndDelete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEntityRepository(db)
	now := time.Now()

	mock.ExpectQuery(`(?s)UPDATE entities.*SET name = \$1.*WHERE id = \$2`).
		WithArgs("gadget", int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectQuery(`(?s)UPDATE entities`).
		WithArgs("gadget", int64(2)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`^DELETE FROM entities WHERE id = \$1$`).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Update(context.Background(), &domain.Entity{ID: 1, Name: "gadget"}))
	assert.ErrorIs(t, repo.Update(context.Background(), &domain.Entity{ID: 2, Name: "gadget"}), domain.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(context.Background(), 1), domain.ErrNotFound)
}
