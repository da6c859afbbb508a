package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/storelane/coupon-gate/internal/customer"
)

const (
	findAccountByEmailSQL = `SELECT email, paying_customer
		FROM accounts WHERE lower(email) = lower($1)`

	hasPaidOrdersSQL = `SELECT EXISTS (
		SELECT 1 FROM orders
		WHERE lower(email) = lower($1) AND status IN ('completed', 'processing')
		LIMIT 1
	)`
)

var _ customer.Store = (*CustomerRepository)(nil)

// CustomerRepository implements customer.Store backed by PostgreSQL.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a CustomerRepository that uses the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// FindByEmail returns the account registered under email, or
// customer.ErrAccountNotFound.
func (r *CustomerRepository) FindByEmail(ctx context.Context, email string) (*customer.Account, error) {
	rows, err := r.pool.Query(ctx, findAccountByEmailSQL, email)
	if err != nil {
		return nil, errors.Wrapf(err, "find account %q", email)
	}

	acc, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[customer.Account])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrAccountNotFound
		}
		return nil, errors.Wrapf(err, "find account %q", email)
	}
	return &acc, nil
}

// HasPaidOrders reports whether at least one completed or processing order
// exists for email.
func (r *CustomerRepository) HasPaidOrders(ctx context.Context, email string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, hasPaidOrdersSQL, email).Scan(&exists); err != nil {
		return false, errors.Wrapf(err, "check orders for %q", email)
	}
	return exists, nil
}
