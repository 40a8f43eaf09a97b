package main

import (
	"context"
	"flag"
	"log"
	"strings"
	"time"

	"github.com/vncsmyrnk/accounts/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/accounts/internal/config"
)

// Grants or removes the admin flag of an existing account. There is no HTTP
// route that can create the first administrator.
func main() {
	var email string
	var revoke bool
	flag.StringVar(&email, "email", "", "email of the account to update")
	flag.BoolVar(&revoke, "revoke", false, "remove the admin flag instead of granting it")
	flag.Parse()

	if strings.TrimSpace(email) == "" {
		log.Fatal("an -email is required.")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := postgres.Open(ctx, cfg.DSN(), postgres.DefaultPoolConfig())
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	users := postgres.NewUserRepository(db)
	user, err := users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		log.Fatalf("failed to find user %s: %v", email, err)
	}

	// Outstanding access tokens still carry the old flag until they expire;
	// refresh tokens are cut off by the version bump.
	if err := users.SetAdmin(ctx, user.ID, !revoke); err != nil {
		log.Fatalf("failed to update user %s: %v", email, err)
	}

	log.Printf("User %s (id %d) admin=%t.", user.Email, user.ID, !revoke)
}
