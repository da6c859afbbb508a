package repository

import (
	"context"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/storelane/coupon-gate/internal/checkout"
	"github.com/storelane/coupon-gate/internal/restriction"
)

const (
	getCouponByCodeSQL = `SELECT code, customer_restriction, location_enabled,
		address_type, allowed_countries, allowed_postcodes
		FROM coupons WHERE code = $1 AND active = TRUE`

	listCouponCodesSQL = `SELECT code FROM coupons WHERE active = TRUE`

	countCouponsSQL = `SELECT COUNT(*) FROM coupons WHERE active = TRUE`
)

// bloomFPR keeps the pre-filter's false positive rate low enough that almost
// every short-circuited miss saves a round trip.
const bloomFPR = 0.001

var _ checkout.CouponStore = (*CouponRepository)(nil)

// CouponRepository implements checkout.CouponStore backed by PostgreSQL.
//
// An optional Bloom filter of known codes, built by LoadCodeFilter, rejects
// definitely-unknown codes without touching the database. Codes inserted
// after the filter was built are invisible until the next LoadCodeFilter
// call, so a process serving freshly ingested coupons must reload the filter
// or run without one.
type CouponRepository struct {
	pool *pgxpool.Pool

	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// LoadCodeFilter builds the negative-lookup Bloom filter from the active
// coupon codes currently in the database.
func (r *CouponRepository) LoadCodeFilter(ctx context.Context) error {
	var total int64
	if err := r.pool.QueryRow(ctx, countCouponsSQL).Scan(&total); err != nil {
		return errors.Wrap(err, "count coupons")
	}
	if total == 0 {
		total = 1
	}
	filter := bloom.NewWithEstimates(uint(total), bloomFPR)

	rows, err := r.pool.Query(ctx, listCouponCodesSQL)
	if err != nil {
		return errors.Wrap(err, "list coupon codes")
	}
	codes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return errors.Wrap(err, "collect coupon codes")
	}
	for _, code := range codes {
		filter.AddString(code)
	}

	r.mu.Lock()
	r.filter = filter
	r.mu.Unlock()
	return nil
}

// FindByCode looks up an active coupon by its exact, case-sensitive code.
// Returns checkout.ErrCouponNotFound when no matching active coupon exists.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*restriction.Coupon, error) {
	r.mu.RLock()
	filter := r.filter
	r.mu.RUnlock()
	if filter != nil && !filter.TestString(code) {
		return nil, checkout.ErrCouponNotFound
	}

	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, errors.Wrapf(err, "find coupon %q", code)
	}

	coupon, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, checkout.ErrCouponNotFound
		}
		return nil, errors.Wrapf(err, "find coupon %q", code)
	}
	return &coupon, nil
}

func scanCoupon(row pgx.CollectableRow) (restriction.Coupon, error) {
	var (
		coupon              restriction.Coupon
		customerRestriction string
		addressType         string
		postcodes           string
	)
	err := row.Scan(
		&coupon.Code,
		&customerRestriction,
		&coupon.Rules.LocationEnabled,
		&addressType,
		&coupon.Rules.AllowedCountries,
		&postcodes,
	)
	// Enum parsing happens here, at the storage boundary, so the evaluators
	// only ever see well-formed rules.
	coupon.Rules.CustomerRestriction = restriction.ParseCustomerRestriction(customerRestriction)
	coupon.Rules.AddressType = restriction.ParseAddressType(addressType)
	coupon.Rules.AllowedPostcodes = restriction.SplitPostcodes(postcodes)
	return coupon, err
}
