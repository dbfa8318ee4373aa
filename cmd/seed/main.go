// Command seed prepares a fresh database: it migrates the schema, creates the
// store configuration and the first ADMIN account.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"vitrine/internal/db"
	"vitrine/internal/domain/storage"
	"vitrine/internal/domain/team"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	logger := zap.Must(zap.NewProduction()).Sugar()
	defer logger.Sync()

	email := team.NormalizeEmail(os.Getenv("SEED_ADMIN_EMAIL"))
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if email == "" || len(password) < 6 {
		logger.Fatal("SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD (min 6 chars) are required")
	}

	gdb, err := db.New(os.Getenv("DB_ADDR"), 3, 3, "1m")
	if err != nil {
		logger.Fatal(err)
	}
	defer db.Close(gdb)

	if err := storage.Migrate(gdb); err != nil {
		logger.Fatal(err)
	}
	store := storage.NewContainer(gdb)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := store.Settings.GetOrCreate(ctx)
	if err != nil {
		logger.Fatal(err)
	}
	logger.Infow("store configuration ready", "store", cfg.StoreName)

	_, err = store.Team.GetByEmail(ctx, email)
	if err == nil {
		logger.Infow("admin already exists", "email", email)
		return
	}
	if !errors.Is(err, team.ErrNotFound) {
		logger.Fatal(err)
	}

	admin := &team.Member{
		Name:     envOr("SEED_ADMIN_NAME", "Administrador"),
		Email:    email,
		Role:     team.RoleAdmin,
		IsActive: true,
	}
	if err := admin.SetPassword(password); err != nil {
		logger.Fatal(err)
	}
	if err := store.Team.Members().Create(ctx, admin); err != nil {
		logger.Fatal(err)
	}
	logger.Infow("admin created", "email", email, "id", admin.ID)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
