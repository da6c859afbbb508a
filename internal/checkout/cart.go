package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/storelane/coupon-gate/internal/restriction"
)

var (
	// ErrCartNotFound is returned when no cart session exists for an ID.
	ErrCartNotFound = errors.New("cart not found")
	// ErrCouponNotFound is returned when a coupon code does not resolve.
	ErrCouponNotFound = errors.New("coupon not found")
)

// Cart is the request-scoped session state for one shopper: the partial
// address snapshot gathered so far, the applied coupon codes, and a flag
// telling the storefront its displayed totals are stale.
type Cart struct {
	ID               string          `json:"id"`
	Email            string          `json:"email,omitempty"`
	BillingCountry   string          `json:"billing_country,omitempty"`
	BillingPostcode  string          `json:"billing_postcode,omitempty"`
	ShippingCountry  string          `json:"shipping_country,omitempty"`
	ShippingPostcode string          `json:"shipping_postcode,omitempty"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	AppliedCoupons   []string        `json:"applied_coupons,omitempty"`
	TotalsStale      bool            `json:"totals_stale,omitempty"`
}

// SessionSnapshot builds the partial, best-effort snapshot from whatever the
// cart knows so far. Fields the shopper has not entered stay unknown.
func (c *Cart) SessionSnapshot() restriction.Snapshot {
	return restriction.SessionSnapshot(restriction.SessionFields{
		Email:            c.Email,
		BillingCountry:   c.BillingCountry,
		BillingPostcode:  c.BillingPostcode,
		ShippingCountry:  c.ShippingCountry,
		ShippingPostcode: c.ShippingPostcode,
	})
}

// HasCoupon reports whether code is already applied to the cart.
func (c *Cart) HasCoupon(code string) bool {
	for _, applied := range c.AppliedCoupons {
		if applied == code {
			return true
		}
	}
	return false
}

// Order is the record created when a checkout submission passes validation.
// Discount math is out of scope here, so the total mirrors the subtotal the
// storefront reported.
type Order struct {
	ID          string
	CartID      string
	Email       string
	Total       decimal.Decimal
	CouponCodes []string
	CreatedAt   time.Time
}

// CouponStore resolves coupon codes to their restriction rules.
type CouponStore interface {
	// FindByCode returns the coupon for code, or ErrCouponNotFound.
	FindByCode(ctx context.Context, code string) (*restriction.Coupon, error)
}

// CartStore persists cart sessions.
type CartStore interface {
	// Get returns the cart for id, or ErrCartNotFound.
	Get(ctx context.Context, id string) (*Cart, error)
	Save(ctx context.Context, cart *Cart) error
}

// OrderStore persists orders created by successful checkout submissions.
type OrderStore interface {
	Create(ctx context.Context, order *Order) error
}

// Notifier receives the blocking, shopper-facing notices raised when an
// applied coupon is removed during checkout validation.
type Notifier interface {
	Notice(ctx context.Context, message string)
}

// NopNotifier discards notices. Useful when the transport layer surfaces the
// messages itself.
type NopNotifier struct{}

// Notice implements Notifier.
func (NopNotifier) Notice(context.Context, string) {}

// RestrictionError reports a coupon rejected by its restriction rules. It
// carries the rendered shopper-facing message; it is a policy verdict, not a
// system failure.
type RestrictionError struct {
	Coupon  restriction.Coupon
	Outcome restriction.Outcome
	Message string
}

func (e *RestrictionError) Error() string {
	return e.Message
}
