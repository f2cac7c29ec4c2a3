// Command seed-db provisions a database for local development: it runs
// migrations, upserts a demo coupon of each type, grants them to a demo
// user, and installs a hashed API key.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/oakmart/pricing-engine/internal/auth"
	"github.com/oakmart/pricing-engine/internal/coupon"
	"github.com/oakmart/pricing-engine/internal/handler"
	"github.com/oakmart/pricing-engine/internal/storage/postgres"
)

const demoUserID = "demo-user"

func main() {
	var (
		databaseURL  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or PRICING_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or PRICING_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("PRICING_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or PRICING_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("PRICING_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	coupons := postgres.NewCouponRepository(pool)

	if err := seedCoupons(ctx, coupons); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	if err := seedAPIKey(ctx, postgres.NewAPIKeyRepository(pool), apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedCoupons(ctx context.Context, repo *postgres.CouponRepository) error {
	slog.Info("seeding demo coupons")

	now := time.Now().UTC()
	window := func(c coupon.Coupon) coupon.Coupon {
		c.StartDate = now
		c.EndDate = now.AddDate(1, 0, 0)
		c.IsActive = true
		return c
	}

	coupons := []coupon.Coupon{
		window(coupon.Coupon{
			ID:    "seed-welcome10",
			Code:  "WELCOME10",
			Name:  "Welcome: 10% off",
			Type:  coupon.TypePercentage,
			Value: decimal.NewFromInt(10),
		}),
		window(coupon.Coupon{
			ID:        "seed-save20",
			Code:      "SAVE20",
			Name:      "$20 off orders over $100",
			Type:      coupon.TypeFixedAmount,
			Value:     decimal.NewFromInt(20),
			MinAmount: decimal.NewFromInt(100),
		}),
		window(coupon.Coupon{
			ID:          "seed-freeship",
			Code:        "FREESHIP",
			Name:        "Free shipping",
			Type:        coupon.TypeFreeShipping,
			Value:       decimal.Zero,
			UsageLimit:  1000,
			Description: "Waives the shipping fee",
		}),
	}

	for _, c := range coupons {
		if err := repo.Upsert(ctx, c); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.Code)
		}
		if err := repo.Grant(ctx, demoUserID, c.ID); err != nil {
			return errors.Wrapf(err, "grant coupon %s", c.Code)
		}

		slog.Info("upserted coupon", slog.String("code", c.Code), slog.String("name", c.Name))
	}

	return nil
}

func seedAPIKey(ctx context.Context, repo *postgres.APIKeyRepository, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	info := auth.APIKeyInfo{
		ID:      "default",
		KeyHash: handler.HashAPIKey(apiKey, []byte(pepper)),
		Name:    "Default test key",
		Scopes:  []string{"pricing"},
	}

	if err := repo.Upsert(ctx, info, true); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("id", info.ID), slog.String("name", info.Name))

	return nil
}
