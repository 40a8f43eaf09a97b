package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/vncsmyrnk/accounts/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/accounts/internal/config"
)

const usage = "usage: migrations <up|down|status|version>"

func main() {
	if len(os.Args) < 2 {
		log.Fatal(usage)
	}
	command := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := postgres.Open(ctx, cfg.DSN(), postgres.DefaultPoolConfig())
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := postgres.RunMigrationCommand(ctx, db.DB, command); err != nil {
		log.Fatalf("migration %q failed: %v", command, err)
	}

	log.Printf("Migration command %q executed successfully.", command)
}
