// Command seed-db loads demo coupons, accounts, and order history into the
// database so the restriction flows can be exercised end to end.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storelane/coupon-gate/internal/repository"
)

type seedCoupon struct {
	code                string
	customerRestriction string
	locationEnabled     bool
	addressType         string
	allowedCountries    []string
	allowedPostcodes    string
}

var seedCoupons = []seedCoupon{
	{code: "WELCOME10", customerRestriction: "new"},
	{code: "LOYAL5", customerRestriction: "existing"},
	{code: "SHIP5", locationEnabled: true, addressType: "shipping", allowedCountries: []string{"CA"}},
	{code: "LOCAL15", locationEnabled: true, addressType: "billing", allowedPostcodes: "90210, 10001"},
	{code: "CANEWBIE", customerRestriction: "new", locationEnabled: true, addressType: "shipping", allowedCountries: []string{"CA"}},
}

type seedAccount struct {
	email  string
	paying bool
}

var seedAccounts = []seedAccount{
	{email: "returning@example.com", paying: true},
	{email: "registered.window.shopper@example.com", paying: false},
}

// guest shoppers with order history but no account
var seedOrderEmails = []string{"guest.buyer@example.com"}

func main() {
	var databaseURL string
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL); err != nil {
		slog.Error("seed failed", "error", err)
		os.Exit(1)
	}
	slog.Info("seed complete",
		"coupons", len(seedCoupons),
		"accounts", len(seedAccounts),
		"orders", len(seedOrderEmails),
	)
}

func run(ctx context.Context, databaseURL string) error {
	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	for _, c := range seedCoupons {
		_, err := pool.Exec(ctx, `
			INSERT INTO coupons (code, customer_restriction, location_enabled, address_type, allowed_countries, allowed_postcodes)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (code) DO UPDATE SET
				customer_restriction = EXCLUDED.customer_restriction,
				location_enabled = EXCLUDED.location_enabled,
				address_type = EXCLUDED.address_type,
				allowed_countries = EXCLUDED.allowed_countries,
				allowed_postcodes = EXCLUDED.allowed_postcodes`,
			c.code, restrictionOrDefault(c.customerRestriction), c.locationEnabled,
			addressOrDefault(c.addressType), countriesOrEmpty(c.allowedCountries), c.allowedPostcodes,
		)
		if err != nil {
			return errors.Wrapf(err, "seed coupon %q", c.code)
		}
	}

	for _, a := range seedAccounts {
		_, err := pool.Exec(ctx, `
			INSERT INTO accounts (email, paying_customer) VALUES ($1, $2)
			ON CONFLICT (email) DO UPDATE SET paying_customer = EXCLUDED.paying_customer`,
			a.email, a.paying,
		)
		if err != nil {
			return errors.Wrapf(err, "seed account %q", a.email)
		}
	}

	for _, email := range seedOrderEmails {
		_, err := pool.Exec(ctx, `
			INSERT INTO orders (id, cart_id, email, status, total, coupon_codes)
			VALUES ($1, $2, $3, 'completed', $4, '{}')
			ON CONFLICT (id) DO NOTHING`,
			uuid.New().String(), uuid.New().String(), email, decimal.NewFromInt(42),
		)
		if err != nil {
			return errors.Wrapf(err, "seed order for %q", email)
		}
	}

	return nil
}

func restrictionOrDefault(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func addressOrDefault(s string) string {
	if s == "" {
		return "shipping"
	}
	return s
}

func countriesOrEmpty(c []string) []string {
	if c == nil {
		return []string{}
	}
	return c
}
