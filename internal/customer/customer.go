package customer

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrAccountNotFound is returned by Store implementations when no account
// exists for an email.
var ErrAccountNotFound = errors.New("account not found")

// Account is a registered shopper account.
type Account struct {
	Email string
	// PayingCustomer records whether the account has ever completed a paid
	// order. When an account exists, this flag alone decides the returning
	// verdict.
	PayingCustomer bool
}

// Store provides the persistence lookups the resolver needs.
type Store interface {
	// FindByEmail returns the account registered under email, or
	// ErrAccountNotFound.
	FindByEmail(ctx context.Context, email string) (*Account, error)
	// HasPaidOrders reports whether at least one completed or processing
	// order exists for email. Implementations should limit the query to a
	// single row.
	HasPaidOrders(ctx context.Context, email string) (bool, error)
}
