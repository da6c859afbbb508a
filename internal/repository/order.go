package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/storelane/coupon-gate/internal/checkout"
)

const createOrderSQL = `INSERT INTO orders (id, cart_id, email, status, total, coupon_codes, created_at)
	VALUES ($1, $2, $3, 'processing', $4, $5, $6)`

var _ checkout.OrderStore = (*OrderRepository)(nil)

// OrderRepository implements checkout.OrderStore backed by PostgreSQL.
// Orders are created in the processing status, which already counts toward
// the returning-customer history.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order.
func (r *OrderRepository) Create(ctx context.Context, o *checkout.Order) error {
	_, err := r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.CartID, o.Email, o.Total, o.CouponCodes, o.CreatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "create order %q", o.ID)
	}
	return nil
}
