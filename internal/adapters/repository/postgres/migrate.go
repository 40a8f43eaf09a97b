package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/vncsmyrnk/accounts/internal/adapters/repository/postgres/migrations"
)

var (
	gooseUpContext      = goose.UpContext
	gooseDownContext    = goose.DownContext
	gooseStatusContext  = goose.StatusContext
	gooseVersionContext = goose.VersionContext
)

func setupGoose() error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	return nil
}

// Migrate applies every pending migration.
func Migrate(ctx context.Context, db *sql.DB) error {
	if err := setupGoose(); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// RunMigrationCommand runs a goose command against the embedded migrations.
// Supported commands are up, down, status and version.
func RunMigrationCommand(ctx context.Context, db *sql.DB, command string) error {
	if err := setupGoose(); err != nil {
		return err
	}

	var err error
	switch command {
	case "up":
		err = gooseUpContext(ctx, db, ".")
	case "down":
		err = gooseDownContext(ctx, db, ".")
	case "status":
		err = gooseStatusContext(ctx, db, ".")
	case "version":
		err = gooseVersionContext(ctx, db, ".")
	default:
		return fmt.Errorf("unknown migration command %q", command)
	}
	if err != nil {
		return fmt.Errorf("migration %s failed: %w", command, err)
	}
	return nil
}
