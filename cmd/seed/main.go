package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/auth"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
)

const defaultTimeout = 30 * time.Second

// Демонстрационные данные: пара товаров и два аккаунта для ручной проверки API.
func main() {
	var (
		dsn           string
		adminPassword string
	)

	flag.StringVar(&dsn, "dsn", "", "PostgreSQL DSN (fallback: STOREFRONT_POSTGRES_DSN)")
	flag.StringVar(&adminPassword, "admin-password", "", "password for seeded accounts (fallback: STOREFRONT_SEED_PASSWORD)")
	flag.Parse()

	if strings.TrimSpace(dsn) == "" {
		dsn = strings.TrimSpace(os.Getenv("STOREFRONT_POSTGRES_DSN"))
	}
	if dsn == "" {
		fail("STOREFRONT_POSTGRES_DSN (or -dsn) is required")
	}
	if strings.TrimSpace(adminPassword) == "" {
		adminPassword = strings.TrimSpace(os.Getenv("STOREFRONT_SEED_PASSWORD"))
	}
	if adminPassword == "" {
		fail("STOREFRONT_SEED_PASSWORD (or -admin-password) is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		fail("open postgres store: %v", err)
	}
	defer store.Close()

	if err := store.MigrateUp(ctx, 0); err != nil {
		fail("apply migrations: %v", err)
	}

	now := time.Now().UTC()
	products := []domain.Product{
		{
			ID:          uuid.NewString(),
			Name:        "Brinjals",
			Slug:        "brinjals",
			Description: "Fresh brinjals, sold per kg.",
			Price:       decimal.RequireFromString("11.99"),
			Quantity:    10,
			Categories:  []string{"Vegetables"},
			Returnable:  true,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		{
			ID:          uuid.NewString(),
			Name:        "Cabbage",
			Slug:        "cabbage",
			Description: "Green cabbage, sold per head.",
			Price:       decimal.RequireFromString("7.99"),
			Quantity:    10,
			Categories:  []string{"Vegetables"},
			Returnable:  true,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}

	for _, product := range products {
		if err := store.CreateProduct(ctx, product); err != nil {
			if errors.Is(err, domain.ErrSlugTaken) {
				fmt.Printf("product %s already seeded, skipping\n", product.Slug)
				continue
			}
			fail("seed product %s: %v", product.Slug, err)
		}
		fmt.Printf("seeded product %s (%s)\n", product.Name, product.Price)
	}

	hash, err := auth.HashPassword(adminPassword)
	if err != nil {
		fail("hash seed password: %v", err)
	}

	users := []domain.User{
		{
			ID:           uuid.NewString(),
			Name:         "John Doe",
			Email:        "john@example.com",
			PasswordHash: hash,
			Role:         domain.RoleCustomer,
			Address:      "1 Main St",
			CreatedAt:    now,
			UpdatedAt:    now,
		},
		{
			ID:           uuid.NewString(),
			Name:         "Roxanna",
			Email:        "roxanna@example.com",
			PasswordHash: hash,
			Role:         domain.RoleAdmin,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	}

	for _, user := range users {
		if err := store.CreateUser(ctx, user); err != nil {
			if errors.Is(err, domain.ErrEmailTaken) {
				fmt.Printf("user %s already seeded, skipping\n", user.Email)
				continue
			}
			fail("seed user %s: %v", user.Email, err)
		}
		fmt.Printf("seeded %s account %s\n", user.Role, user.Email)
	}
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
