// Package main provides a dev tool that seeds user and inventory projections
// and prints ready-to-use access tokens. The production deployment receives
// these rows from the platform directory; local development fakes them here.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/cellarclub/cellar-server/internal/auth"
	"github.com/cellarclub/cellar-server/internal/config"
	"github.com/cellarclub/cellar-server/internal/domain"
	"github.com/cellarclub/cellar-server/internal/id"
	"github.com/cellarclub/cellar-server/internal/logger"
	"github.com/cellarclub/cellar-server/internal/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Environment: cfg.App.Environment,
	})

	key, err := auth.LoadOrGenerateKey(cfg.Database.BasePath)
	if err != nil {
		return err
	}

	tokens, err := auth.NewTokenService(hex.EncodeToString(key), cfg.Auth.AccessTokenDuration)
	if err != nil {
		return err
	}

	db, err := sqlite.Open(cfg.DatabasePath(), log)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	users := []*domain.User{
		{ID: id.MustGenerate("user"), Email: "admin@cellar.local", DisplayName: "Admin", IsAdmin: true, CreatedAt: now},
		{ID: id.MustGenerate("user"), Email: "alice@cellar.local", DisplayName: "Alice", CreatedAt: now},
		{ID: id.MustGenerate("user"), Email: "bob@cellar.local", DisplayName: "Bob", CreatedAt: now},
	}

	for _, u := range users {
		if err := db.CreateUser(ctx, u); err != nil {
			// Re-running the seed against an existing database is fine.
			existing, getErr := db.GetUserByEmail(ctx, u.Email)
			if getErr != nil {
				return fmt.Errorf("create user %s: %w", u.Email, err)
			}
			*u = *existing
		}

		token, err := tokens.GenerateAccessToken(u)
		if err != nil {
			return fmt.Errorf("mint token for %s: %w", u.Email, err)
		}
		fmt.Printf("%s\n  id:    %s\n  token: %s\n", u.Email, u.ID, token)
	}

	// A couple of bottles for the non-admin users to link tags against.
	items := []*domain.InventoryItem{
		{ID: id.MustGenerate("inv"), UserID: users[1].ID, BottleName: "Margaux 2015", Vintage: 2015, CreatedAt: now},
		{ID: id.MustGenerate("inv"), UserID: users[2].ID, BottleName: "Barolo 2018", Vintage: 2018, CreatedAt: now},
	}
	for _, item := range items {
		if err := db.CreateInventoryItem(ctx, item); err != nil {
			return fmt.Errorf("create inventory item %s: %w", item.BottleName, err)
		}
		fmt.Printf("inventory %s (%s) -> user %s\n", item.ID, item.BottleName, item.UserID)
	}

	return nil
}
