package restriction

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	returning map[string]bool
	err       error
	calls     int
}

func (f *fakeResolver) IsReturning(_ context.Context, email string) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.returning[email], nil
}

func TestEvaluateCustomer(t *testing.T) {
	returning := &fakeResolver{returning: map[string]bool{"buyer@example.com": true}}

	tests := []struct {
		name        string
		restriction CustomerRestriction
		email       string
		wantValid   bool
		wantReason  Reason
	}{
		{
			name:        "no restriction always passes",
			restriction: CustomerAny,
			email:       "buyer@example.com",
			wantValid:   true,
		},
		{
			name:        "new-customer coupon rejects returning shopper",
			restriction: CustomerNew,
			email:       "buyer@example.com",
			wantValid:   false,
			wantReason:  ReasonNewCustomer,
		},
		{
			name:        "new-customer coupon passes fresh shopper",
			restriction: CustomerNew,
			email:       "fresh@example.com",
			wantValid:   true,
		},
		{
			name:        "existing-customer coupon rejects fresh shopper",
			restriction: CustomerExisting,
			email:       "fresh@example.com",
			wantValid:   false,
			wantReason:  ReasonExistingCustomer,
		},
		{
			name:        "existing-customer coupon passes returning shopper",
			restriction: CustomerExisting,
			email:       "buyer@example.com",
			wantValid:   true,
		},
		{
			name:        "malformed email defers the check",
			restriction: CustomerNew,
			email:       "not-an-email",
			wantValid:   true,
		},
		{
			name:        "empty email defers the check",
			restriction: CustomerExisting,
			email:       "",
			wantValid:   true,
		},
		{
			name:        "uppercase email matches its lowercase history",
			restriction: CustomerNew,
			email:       "Buyer@Example.com",
			wantValid:   false,
			wantReason:  ReasonNewCustomer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := EvaluateCustomer(context.Background(), Rules{CustomerRestriction: tt.restriction}, tt.email, returning)

			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, out.Valid)
			assert.Equal(t, tt.wantReason, out.Reason)
		})
	}
}

func TestEvaluateCustomerSkipsResolverWhenUnrestricted(t *testing.T) {
	resolver := &fakeResolver{}

	out, err := EvaluateCustomer(context.Background(), Rules{CustomerRestriction: CustomerAny}, "buyer@example.com", resolver)

	require.NoError(t, err)
	assert.True(t, out.Valid)
	assert.Zero(t, resolver.calls)
}

func TestEvaluateCustomerFailsOpenOnResolverError(t *testing.T) {
	resolver := &fakeResolver{err: errors.New("db down")}

	out, err := EvaluateCustomer(context.Background(), Rules{CustomerRestriction: CustomerNew}, "buyer@example.com", resolver)

	require.Error(t, err)
	assert.True(t, out.Valid, "lookup failure must not reject the coupon")
}

func TestEvaluateLocation(t *testing.T) {
	shippingRules := func(countries, postcodes []string) Rules {
		return Rules{
			LocationEnabled:  true,
			AddressType:      AddressShipping,
			AllowedCountries: countries,
			AllowedPostcodes: postcodes,
		}
	}

	tests := []struct {
		name       string
		rules      Rules
		snap       Snapshot
		wantValid  bool
		wantReason Reason
	}{
		{
			name:      "disabled restriction short-circuits",
			rules:     Rules{LocationEnabled: false, AddressType: AddressShipping, AllowedCountries: []string{"CA"}},
			snap:      SubmittedSnapshot(SubmittedFields{ShippingCountry: "US"}),
			wantValid: true,
		},
		{
			name:       "country not in allow-list rejects",
			rules:      shippingRules([]string{"CA"}, nil),
			snap:       SubmittedSnapshot(SubmittedFields{ShippingCountry: "US"}),
			wantValid:  false,
			wantReason: ReasonCountry,
		},
		{
			name:      "country in allow-list passes",
			rules:     shippingRules([]string{"CA", "US"}, nil),
			snap:      SubmittedSnapshot(SubmittedFields{ShippingCountry: "US"}),
			wantValid: true,
		},
		{
			name:       "country match is case-sensitive",
			rules:      shippingRules([]string{"US"}, nil),
			snap:       SubmittedSnapshot(SubmittedFields{ShippingCountry: "us"}),
			wantValid:  false,
			wantReason: ReasonCountry,
		},
		{
			name:      "postcode match is trimmed and case-insensitive",
			rules:     shippingRules(nil, []string{" ab1 2cd "}),
			snap:      SubmittedSnapshot(SubmittedFields{ShippingPostcode: "AB1 2CD"}),
			wantValid: true,
		},
		{
			name:       "postcode not in allow-list rejects",
			rules:      shippingRules(nil, []string{"90210", "10001"}),
			snap:       SubmittedSnapshot(SubmittedFields{ShippingPostcode: "60601"}),
			wantValid:  false,
			wantReason: ReasonPostcode,
		},
		{
			name:       "postcode failure wins over country failure",
			rules:      shippingRules([]string{"CA"}, []string{"90210"}),
			snap:       SubmittedSnapshot(SubmittedFields{ShippingCountry: "US", ShippingPostcode: "60601"}),
			wantValid:  false,
			wantReason: ReasonPostcode,
		},
		{
			name:       "country failure reported when postcode passes",
			rules:      shippingRules([]string{"CA"}, []string{"90210"}),
			snap:       SubmittedSnapshot(SubmittedFields{ShippingCountry: "US", ShippingPostcode: "90210"}),
			wantValid:  false,
			wantReason: ReasonCountry,
		},
		{
			name:      "unknown session fields defer instead of rejecting",
			rules:     shippingRules([]string{"CA"}, []string{"90210"}),
			snap:      SessionSnapshot(SessionFields{Email: "x@example.com"}),
			wantValid: true,
		},
		{
			name:       "submitted empty fields participate and reject",
			rules:      shippingRules([]string{"CA"}, nil),
			snap:       SubmittedSnapshot(SubmittedFields{}),
			wantValid:  false,
			wantReason: ReasonCountry,
		},
		{
			name:      "empty allow-lists skip both checks",
			rules:     shippingRules(nil, nil),
			snap:      SubmittedSnapshot(SubmittedFields{ShippingCountry: "US", ShippingPostcode: "60601"}),
			wantValid: true,
		},
		{
			name: "billing address type reads billing fields",
			rules: Rules{
				LocationEnabled:  true,
				AddressType:      AddressBilling,
				AllowedCountries: []string{"CA"},
			},
			snap:       SubmittedSnapshot(SubmittedFields{BillingCountry: "US", ShippingCountry: "CA"}),
			wantValid:  false,
			wantReason: ReasonCountry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := EvaluateLocation(tt.rules, tt.snap)

			assert.Equal(t, tt.wantValid, out.Valid)
			assert.Equal(t, tt.wantReason, out.Reason)
		})
	}
}

func TestPolicyCustomerCheckWinsOverLocation(t *testing.T) {
	// Both restrictions fail; the customer reason must be reported because
	// the customer check runs first and fails fast.
	policy := NewPolicy(&fakeResolver{returning: map[string]bool{"buyer@example.com": true}})
	rules := Rules{
		CustomerRestriction: CustomerNew,
		LocationEnabled:     true,
		AddressType:         AddressShipping,
		AllowedCountries:    []string{"CA"},
	}
	snap := SubmittedSnapshot(SubmittedFields{Email: "buyer@example.com", ShippingCountry: "US"})

	out, err := policy.Evaluate(context.Background(), rules, snap)

	require.NoError(t, err)
	assert.False(t, out.Valid)
	assert.Equal(t, ReasonNewCustomer, out.Reason)
}

func TestPolicyEvaluateIsIdempotent(t *testing.T) {
	policy := NewPolicy(&fakeResolver{returning: map[string]bool{"buyer@example.com": true}})
	rules := Rules{CustomerRestriction: CustomerNew}
	snap := SubmittedSnapshot(SubmittedFields{Email: "buyer@example.com"})

	first, err := policy.Evaluate(context.Background(), rules, snap)
	require.NoError(t, err)
	second, err := policy.Evaluate(context.Background(), rules, snap)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
