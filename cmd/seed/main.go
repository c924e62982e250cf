package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"userauth/internal/auth"
	"userauth/internal/config"
	"userauth/internal/db"
	"userauth/internal/logging"
	"userauth/internal/repository"
	"userauth/internal/service"
)

// SeedUserData is one entry of the seed document.
type SeedUserData struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func main() {
	source := flag.String("source", "users.json", "path or http(s) URL of a JSON array of {email, password}")
	flag.Parse()

	cfg := config.Load()
	logger := logging.New(os.Stdout, cfg.LogLevel)
	ctx := context.Background()

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		logger.Error(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := db.Migrate(gormDB); err != nil {
		logger.Error(ctx, "failed to run migrations", "error", err)
		os.Exit(1)
	}

	users, err := loadUsers(*source)
	if err != nil {
		logger.Error(ctx, "failed to load users", "source", *source, "error", err)
		os.Exit(1)
	}
	logger.Info(ctx, "loaded seed users", "count", len(users))

	authService := service.NewAuthService(
		repository.NewUserRepository(gormDB),
		auth.NewBcryptHasher(cfg.BcryptCost),
		auth.UUIDGenerator{},
		logger,
		service.Options{RevokeSessionOnReset: cfg.ResetRevokesSession},
	)

	created, skipped, err := seedUsers(ctx, authService, users)
	if err != nil {
		logger.Error(ctx, "failed to seed users", "error", err)
		os.Exit(1)
	}
	logger.Info(ctx, "seed completed", "created", created, "skipped", skipped)
}

// loadUsers reads the seed document from a local file or an http(s) URL.
func loadUsers(source string) ([]SeedUserData, error) {
	var r io.ReadCloser
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		resp, err := http.Get(source)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch seed data: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("seed source returned status code: %d", resp.StatusCode)
		}
		r = resp.Body
	} else {
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("failed to open seed file: %w", err)
		}
		r = f
	}
	defer r.Close()

	return decodeUsers(r)
}

func decodeUsers(r io.Reader) ([]SeedUserData, error) {
	var users []SeedUserData
	if err := json.NewDecoder(r).Decode(&users); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return users, nil
}

// seedUsers registers every user, skipping emails that already exist and entries missing a field.
func seedUsers(ctx context.Context, svc service.AuthService, users []SeedUserData) (created int, skipped int, err error) {
	for _, u := range users {
		if u.Email == "" || u.Password == "" {
			skipped++
			continue
		}
		if _, err := svc.Register(ctx, u.Email, u.Password); err != nil {
			if errors.Is(err, service.ErrAlreadyRegistered) {
				skipped++
				continue
			}
			return created, skipped, fmt.Errorf("register %s: %w", u.Email, err)
		}
		created++
	}
	return created, skipped, nil
}
