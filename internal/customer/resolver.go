package customer

import (
	"context"
	"strings"

	"github.com/go-faster/errors"

	"github.com/storelane/coupon-gate/internal/restriction"
)

var _ restriction.HistoryResolver = (*Resolver)(nil)

// Resolver determines whether an email belongs to a returning customer.
//
// The verdict is resolved fresh on every call: an account lookup first, and
// only when no account exists a fallback to order history. An account's
// paying flag is authoritative even when false: a registered shopper with no
// paid orders is still a new customer, regardless of guest orders that might
// share the email.
type Resolver struct {
	store Store
}

// NewResolver creates a Resolver backed by the given store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// IsReturning reports whether email belongs to a returning customer. The
// email is lowercased before lookup; absence of both account and orders
// yields false.
func (r *Resolver) IsReturning(ctx context.Context, email string) (bool, error) {
	email = strings.ToLower(email)

	acc, err := r.store.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return acc.PayingCustomer, nil
	case !errors.Is(err, ErrAccountNotFound):
		return false, errors.Wrap(err, "find account")
	}

	paid, err := r.store.HasPaidOrders(ctx, email)
	if err != nil {
		return false, errors.Wrap(err, "check order history")
	}
	return paid, nil
}
