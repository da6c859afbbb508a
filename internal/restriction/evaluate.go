package restriction

import (
	"context"
	"net/mail"
	"strings"

	"github.com/go-faster/errors"
)

// Reason identifies which restriction rejected a coupon.
type Reason string

const (
	// ReasonNone means the coupon passed every configured restriction.
	ReasonNone Reason = ""
	// ReasonNewCustomer means a returning shopper used a new-customer coupon.
	ReasonNewCustomer Reason = "new_customer"
	// ReasonExistingCustomer means a new shopper used an existing-customer coupon.
	ReasonExistingCustomer Reason = "existing_customer"
	// ReasonCountry means the address country is not in the allow-list.
	ReasonCountry Reason = "country"
	// ReasonPostcode means the address postcode is not in the allow-list.
	ReasonPostcode Reason = "postcode"
)

// Outcome is the structured result of a restriction evaluation. Policy
// rejections are values, never errors.
type Outcome struct {
	Valid  bool
	Reason Reason
}

// Pass is the outcome of a coupon that cleared every check.
var Pass = Outcome{Valid: true}

// HistoryResolver answers whether an email belongs to a returning customer.
type HistoryResolver interface {
	IsReturning(ctx context.Context, email string) (bool, error)
}

// EvaluateCustomer applies the customer-history restriction for the given
// email. A syntactically invalid email skips the check entirely: validation
// is deferred to a later phase when a well-formed address is available.
//
// A resolver failure fails open: the coupon is not rejected on the strength
// of an unanswerable lookup, and the error is returned alongside the passing
// outcome so the caller can log it.
func EvaluateCustomer(ctx context.Context, rules Rules, email string, hist HistoryResolver) (Outcome, error) {
	if rules.CustomerRestriction == CustomerAny {
		return Pass, nil
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return Pass, nil
	}

	returning, err := hist.IsReturning(ctx, strings.ToLower(email))
	if err != nil {
		return Pass, errors.Wrap(err, "resolve customer history")
	}

	switch rules.CustomerRestriction {
	case CustomerNew:
		if returning {
			return Outcome{Reason: ReasonNewCustomer}, nil
		}
	case CustomerExisting:
		if !returning {
			return Outcome{Reason: ReasonExistingCustomer}, nil
		}
	}
	return Pass, nil
}

// EvaluateLocation applies the country and postcode restrictions against the
// snapshot. Fields the snapshot does not know yet cannot be validated and
// never cause rejection. An empty allow-list skips its check on both the
// session and the checkout pass.
//
// The checks run sequentially and the postcode verdict overwrites the country
// verdict, so when both fail the reported reason is ReasonPostcode. That
// tie-break is deliberate and load-bearing for message selection.
func EvaluateLocation(rules Rules, snap Snapshot) Outcome {
	if !rules.LocationEnabled {
		return Pass
	}

	out := Pass
	addr := rules.AddressType

	if country := snap.Country(addr); country.Known && len(rules.AllowedCountries) > 0 {
		if !containsCountry(rules.AllowedCountries, country.Value) {
			out = Outcome{Reason: ReasonCountry}
		}
	}
	if postcode := snap.Postcode(addr); postcode.Known && len(rules.AllowedPostcodes) > 0 {
		if !containsPostcode(rules.AllowedPostcodes, postcode.Value) {
			out = Outcome{Reason: ReasonPostcode}
		}
	}
	return out
}

// Policy composes the customer and location restrictions into a single
// decision. The customer check runs first and fails fast; the location
// outcome is only consulted when the customer check passes. Keep this order:
// it determines which message the shopper sees when several restrictions
// fail at once.
type Policy struct {
	hist HistoryResolver
}

// NewPolicy creates a Policy backed by the given history resolver.
func NewPolicy(hist HistoryResolver) *Policy {
	return &Policy{hist: hist}
}

// Evaluate runs the full restriction policy for one coupon against one
// snapshot. The returned error never accompanies a rejection; it reports a
// failed history lookup that was resolved by failing open.
func (p *Policy) Evaluate(ctx context.Context, rules Rules, snap Snapshot) (Outcome, error) {
	out, err := EvaluateCustomer(ctx, rules, snap.Email.Value, p.hist)
	if !out.Valid {
		return out, nil
	}
	return EvaluateLocation(rules, snap), err
}

func containsCountry(allowed []string, country string) bool {
	// ISO codes match exactly, case-sensitive as stored.
	for _, c := range allowed {
		if c == country {
			return true
		}
	}
	return false
}

func containsPostcode(allowed []string, postcode string) bool {
	needle := normalizePostcode(postcode)
	for _, p := range allowed {
		if normalizePostcode(p) == needle {
			return true
		}
	}
	return false
}

func normalizePostcode(p string) string {
	return strings.ToUpper(strings.TrimSpace(p))
}
