// Seed tool for loading demo data into a Kestrel store.
//
// Usage:
//
//	go run cmd/seed/main.go -subjects 50 -shops 10 -transactions 200
//
// The generated population includes deliberate duplicates, multiple
// active cards, and income mismatches so the screening rules and the
// anomaly model have realistic material to work with.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/opensource-welfare/kestrel/internal/auth"
	"github.com/opensource-welfare/kestrel/internal/domain"
	"github.com/opensource-welfare/kestrel/internal/repository"
	"github.com/opensource-welfare/kestrel/internal/seed"
)

func main() {
	opts := seed.DefaultOptions()

	flag.IntVar(&opts.Subjects, "subjects", opts.Subjects, "number of beneficiaries to create")
	flag.IntVar(&opts.Shops, "shops", opts.Shops, "number of fair price shops to create")
	flag.IntVar(&opts.Transactions, "transactions", opts.Transactions, "number of distributions to create")
	flag.StringVar(&opts.AdminEmail, "admin-email", opts.AdminEmail, "operator account email")
	flag.StringVar(&opts.AdminPassword, "admin-password", opts.AdminPassword, "operator account password")
	flag.Int64Var(&opts.Seed, "seed", opts.Seed, "random seed")
	sqlitePath := flag.String("db", "./kestrel.db", "SQLite database path")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg := domain.DefaultConfig()
	if os.Getenv("KESTREL_TIER") == "pro" {
		cfg = domain.ProConfig()
	}
	cfg.Repository.SQLitePath = *sqlitePath

	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to open repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	cfg.Auth.JWTSecret = "seed" // only password hashing is used here
	authSvc, err := auth.NewService(cfg.Auth)
	if err != nil {
		slog.Error("failed to create auth service", "error", err)
		os.Exit(1)
	}

	summary, err := seed.Run(context.Background(), repo, authSvc, opts)
	if err != nil {
		slog.Error("seeding failed", "error", err)
		os.Exit(1)
	}

	fmt.Println("Seeding completed:")
	fmt.Printf("  Subjects:     %d\n", summary.Subjects)
	fmt.Printf("  Cards:        %d\n", summary.Cards)
	fmt.Printf("  Shops:        %d\n", summary.Shops)
	fmt.Printf("  Transactions: %d\n", summary.Transactions)
	if summary.AdminCreated {
		fmt.Printf("  Admin:        %s\n", opts.AdminEmail)
	}
}
