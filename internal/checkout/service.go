package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/storelane/coupon-gate/internal/restriction"
)

// CouponIssue is an advisory finding from the session-phase review: an
// applied coupon that would be rejected with the data known so far.
type CouponIssue struct {
	Code    string
	Reason  restriction.Reason
	Message string
}

// RemovedCoupon records a coupon stripped from the cart by the authoritative
// checkout-phase validation.
type RemovedCoupon struct {
	Code    string
	Reason  restriction.Reason
	Message string
}

// Submission carries the posted checkout form fields. Every field counts as
// supplied: absent inputs participate in restriction matching as empty
// strings.
type Submission struct {
	Email            string
	BillingCountry   string
	BillingPostcode  string
	ShippingCountry  string
	ShippingPostcode string
}

// Result is the outcome of a checkout submission. When Blocked is true the
// attempt is terminal: the listed coupons were removed, one notice each was
// raised, and the shopper must resubmit.
type Result struct {
	Blocked bool
	Removed []RemovedCoupon
	Order   *Order
}

// Config holds the non-store collaborators of the Service. Zero values get
// sensible defaults: a fresh English catalog, a discarding notifier, and the
// global OpenTelemetry providers.
type Config struct {
	Catalog        *restriction.Catalog
	Notifier       Notifier
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Service is the two-phase coupon validation orchestrator. Phase 1 evaluates
// restrictions leniently against the cart session; phase 2 re-evaluates every
// applied coupon against the posted checkout form and removes failures before
// an order is created.
type Service struct {
	coupons  CouponStore
	carts    CartStore
	orders   OrderStore
	policy   *restriction.Policy
	catalog  *restriction.Catalog
	notifier Notifier

	tracer  trace.Tracer
	removed metric.Int64Counter
}

// NewService creates the orchestrator with its stores and the history
// resolver backing the customer restriction.
func NewService(
	cfg Config,
	coupons CouponStore,
	carts CartStore,
	orders OrderStore,
	hist restriction.HistoryResolver,
) (*Service, error) {
	if cfg.Catalog == nil {
		cfg.Catalog = restriction.NewCatalog()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = NopNotifier{}
	}
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = otel.GetMeterProvider()
	}

	meter := cfg.MeterProvider.Meter("coupon-gate/checkout")
	removed, err := meter.Int64Counter("checkout.coupons_removed",
		metric.WithDescription("Coupons removed by checkout-phase restriction validation"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create coupons_removed counter")
	}

	return &Service{
		coupons:  coupons,
		carts:    carts,
		orders:   orders,
		policy:   restriction.NewPolicy(hist),
		catalog:  cfg.Catalog,
		notifier: cfg.Notifier,
		tracer:   cfg.TracerProvider.Tracer("coupon-gate/checkout"),
		removed:  removed,
	}, nil
}

// CreateCart starts a new cart session.
func (s *Service) CreateCart(ctx context.Context, email string, subtotal decimal.Decimal) (*Cart, error) {
	cart := &Cart{
		ID:       uuid.New().String(),
		Email:    email,
		Subtotal: subtotal,
	}
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return cart, nil
}

// Cart returns the cart session for id.
func (s *Service) Cart(ctx context.Context, id string) (*Cart, error) {
	return s.carts.Get(ctx, id)
}

// ApplyCoupon is the phase-1 entry point: it validates the coupon against the
// partial session snapshot and applies it on success. A cart with no usable
// session data passes provisionally: the coupon is never rejected solely for
// lack of data; the checkout pass settles it.
//
// On rejection the coupon is not applied and a *RestrictionError carrying the
// rendered message is returned.
func (s *Service) ApplyCoupon(ctx context.Context, cartID, code string) (*Cart, error) {
	cart, err := s.carts.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if cart.HasCoupon(code) {
		return cart, nil
	}

	coupon, err := s.coupons.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	out := s.evaluate(ctx, coupon, cart.SessionSnapshot())
	if !out.Valid {
		return nil, &RestrictionError{
			Coupon:  *coupon,
			Outcome: out,
			Message: s.catalog.Render(*coupon, out),
		}
	}

	cart.AppliedCoupons = append(cart.AppliedCoupons, code)
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return cart, nil
}

// RemoveCoupon detaches a coupon the shopper no longer wants. Removing an
// unapplied code is a no-op.
func (s *Service) RemoveCoupon(ctx context.Context, cartID, code string) (*Cart, error) {
	cart, err := s.carts.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if !cart.HasCoupon(code) {
		return cart, nil
	}

	kept := cart.AppliedCoupons[:0]
	for _, applied := range cart.AppliedCoupons {
		if applied != code {
			kept = append(kept, applied)
		}
	}
	cart.AppliedCoupons = kept
	cart.TotalsStale = true

	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return cart, nil
}

// UpdateAddress merges new session fields into the cart and re-runs the
// phase-1 review over the applied coupons. The review is advisory: failing
// coupons stay applied and are reported as issues for the storefront to
// surface.
func (s *Service) UpdateAddress(ctx context.Context, cartID string, fields restriction.SessionFields) (*Cart, []CouponIssue, error) {
	cart, err := s.carts.Get(ctx, cartID)
	if err != nil {
		return nil, nil, err
	}

	if fields.Email != "" {
		cart.Email = fields.Email
	}
	if fields.BillingCountry != "" {
		cart.BillingCountry = fields.BillingCountry
	}
	if fields.BillingPostcode != "" {
		cart.BillingPostcode = fields.BillingPostcode
	}
	if fields.ShippingCountry != "" {
		cart.ShippingCountry = fields.ShippingCountry
	}
	if fields.ShippingPostcode != "" {
		cart.ShippingPostcode = fields.ShippingPostcode
	}

	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, nil, errors.Wrap(err, "save cart")
	}

	issues, err := s.reviewCoupons(ctx, cart)
	if err != nil {
		return nil, nil, err
	}
	return cart, issues, nil
}

// ReviewCart re-runs the phase-1 check over every applied coupon with the
// current session snapshot and reports the failures without removing
// anything.
func (s *Service) ReviewCart(ctx context.Context, cartID string) ([]CouponIssue, error) {
	cart, err := s.carts.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	return s.reviewCoupons(ctx, cart)
}

func (s *Service) reviewCoupons(ctx context.Context, cart *Cart) ([]CouponIssue, error) {
	snap := cart.SessionSnapshot()

	var issues []CouponIssue
	for _, code := range cart.AppliedCoupons {
		coupon, err := s.coupons.FindByCode(ctx, code)
		if err != nil {
			if errors.Is(err, ErrCouponNotFound) {
				continue
			}
			return nil, err
		}
		if out := s.evaluate(ctx, coupon, snap); !out.Valid {
			issues = append(issues, CouponIssue{
				Code:    code,
				Reason:  out.Reason,
				Message: s.catalog.Render(*coupon, out),
			})
		}
	}
	return issues, nil
}

// Submit is the phase-2 entry point, run once per checkout attempt. It
// re-evaluates every applied coupon against the authoritative submitted
// snapshot. Each failing coupon is removed from the cart, one blocking
// notice is raised per removal, and the displayed totals are flagged stale.
// A submission that removed any coupon is blocked; the shopper restarts from
// phase 1 on the next cart evaluation. A clean submission creates the order.
func (s *Service) Submit(ctx context.Context, cartID string, sub Submission) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.Submit",
		trace.WithAttributes(attribute.String("cart.id", cartID)),
	)
	defer span.End()

	cart, err := s.carts.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}

	snap := restriction.SubmittedSnapshot(restriction.SubmittedFields{
		Email:            sub.Email,
		BillingCountry:   sub.BillingCountry,
		BillingPostcode:  sub.BillingPostcode,
		ShippingCountry:  sub.ShippingCountry,
		ShippingPostcode: sub.ShippingPostcode,
	})

	var removed []RemovedCoupon
	kept := make([]string, 0, len(cart.AppliedCoupons))
	for _, code := range cart.AppliedCoupons {
		coupon, err := s.coupons.FindByCode(ctx, code)
		if err != nil {
			if errors.Is(err, ErrCouponNotFound) {
				// No longer resolvable; not ours to re-validate.
				kept = append(kept, code)
				continue
			}
			return nil, err
		}

		out := s.evaluate(ctx, coupon, snap)
		if out.Valid {
			kept = append(kept, code)
			continue
		}

		msg := s.catalog.RenderRemoved(*coupon, out)
		s.notifier.Notice(ctx, msg)
		removed = append(removed, RemovedCoupon{Code: code, Reason: out.Reason, Message: msg})
		s.removed.Add(ctx, 1, metric.WithAttributes(
			attribute.String("reason", string(out.Reason)),
		))
	}

	if len(removed) > 0 {
		cart.AppliedCoupons = kept
		cart.TotalsStale = true
		if err := s.carts.Save(ctx, cart); err != nil {
			return nil, errors.Wrap(err, "save cart")
		}
		span.SetAttributes(attribute.Int("coupons.removed", len(removed)))
		return &Result{Blocked: true, Removed: removed}, nil
	}

	order := &Order{
		ID:          uuid.New().String(),
		CartID:      cart.ID,
		Email:       sub.Email,
		Total:       cart.Subtotal,
		CouponCodes: kept,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	return &Result{Order: order}, nil
}

// evaluate runs the policy and logs a history-resolver failure. Lookup
// failures fail open, so the outcome is already usable when err is non-nil.
func (s *Service) evaluate(ctx context.Context, coupon *restriction.Coupon, snap restriction.Snapshot) restriction.Outcome {
	out, err := s.policy.Evaluate(ctx, coupon.Rules, snap)
	if err != nil {
		zctx.From(ctx).Warn("customer history unresolved, failing open",
			zap.String("coupon", coupon.Code),
			zap.Error(err),
		)
	}
	return out
}
