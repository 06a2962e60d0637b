// Package main provides a CLI tool for seeding the initial superadmin
// account. All other accounts are created through the API by the
// hierarchy above them.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"visualeyes/internal/core/apperror"
	"visualeyes/internal/domain/identity"
	"visualeyes/internal/infrastructure/storage/postgres"
	"visualeyes/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	poolCfg := postgres.DefaultPoolConfig(dbURL)
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	if err := seedSuperAdmin(ctx, pool, log); err != nil {
		log.Fatalw("failed to seed superadmin", "error", err)
	}

	log.Info("seeding completed successfully")
}

func seedSuperAdmin(ctx context.Context, pool *postgres.Pool, log *logger.Logger) error {
	username := envOr("SUPERADMIN_USERNAME", "superadmin")
	email := envOr("SUPERADMIN_EMAIL", "admin@visualeyes.local")
	password := envOr("SUPERADMIN_PASSWORD", "ChangeMe123!")

	txManager := postgres.NewTxManager(pool)
	repo := postgres.NewEmployeeRepo(txManager)

	existing, err := repo.GetByIdentifier(ctx, username)
	if err == nil {
		log.Infow("superadmin already exists", "username", username, "id", existing.ID)
		return nil
	}
	if !apperror.IsNotFound(err) {
		return fmt.Errorf("check superadmin exists: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	admin := identity.NewEmployee(username, email, string(hash), identity.TierSuperAdmin)
	admin.FirstName = envOr("SUPERADMIN_FIRST_NAME", "Super")
	admin.LastName = envOr("SUPERADMIN_LAST_NAME", "Admin")

	if err := admin.Validate(ctx); err != nil {
		return err
	}

	err = txManager.RunInTransaction(ctx, func(txCtx context.Context) error {
		year := time.Now().Year()
		seq, err := repo.NextCodeSequence(txCtx, year)
		if err != nil {
			return err
		}
		admin.EmployeeCode = fmt.Sprintf("SA-%d-%04d", year, seq)
		return repo.Create(txCtx, admin)
	})
	if err != nil {
		return err
	}

	log.Infow("superadmin created",
		"username", username,
		"email", email,
		"id", admin.ID,
		"code", admin.EmployeeCode,
	)
	return nil
}

func envOr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
