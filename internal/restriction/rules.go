package restriction

import "strings"

// CustomerRestriction enumerates the supported customer-history policies.
type CustomerRestriction string

const (
	// CustomerAny places no restriction on who may redeem the coupon.
	CustomerAny CustomerRestriction = "none"
	// CustomerNew limits redemption to shoppers with no purchase history.
	CustomerNew CustomerRestriction = "new"
	// CustomerExisting limits redemption to shoppers with purchase history.
	CustomerExisting CustomerRestriction = "existing"
)

// AddressType selects which checkout address a location restriction inspects.
type AddressType string

const (
	// AddressBilling checks the billing address.
	AddressBilling AddressType = "billing"
	// AddressShipping checks the shipping address. This is the default.
	AddressShipping AddressType = "shipping"
)

// Label returns the human-readable label used in shopper-facing messages.
func (a AddressType) Label() string {
	return string(a)
}

// ParseCustomerRestriction maps a stored string to a CustomerRestriction.
// Unknown or empty values fall back to CustomerAny, so loosely-typed rows
// never produce an unenforceable policy.
func ParseCustomerRestriction(s string) CustomerRestriction {
	switch CustomerRestriction(strings.ToLower(strings.TrimSpace(s))) {
	case CustomerNew:
		return CustomerNew
	case CustomerExisting:
		return CustomerExisting
	default:
		return CustomerAny
	}
}

// ParseAddressType maps a stored string to an AddressType, defaulting to
// AddressShipping for unset or unrecognized values.
func ParseAddressType(s string) AddressType {
	if AddressType(strings.ToLower(strings.TrimSpace(s))) == AddressBilling {
		return AddressBilling
	}
	return AddressShipping
}

// Rules holds a coupon's redemption restrictions. The customer and location
// axes are independent: both are evaluated when configured, neither disables
// the other.
type Rules struct {
	// CustomerRestriction selects the customer-history policy.
	CustomerRestriction CustomerRestriction
	// LocationEnabled gates the country and postcode checks entirely.
	LocationEnabled bool
	// AddressType selects the address the location checks read.
	AddressType AddressType
	// AllowedCountries is an allow-list of ISO country codes, matched
	// case-sensitively. Empty means the country check is skipped.
	AllowedCountries []string
	// AllowedPostcodes is an allow-list of postcode patterns, matched after
	// trimming and uppercasing both sides. Empty means the check is skipped.
	AllowedPostcodes []string
}

// Coupon pairs a coupon code with its redemption rules.
type Coupon struct {
	Code  string
	Rules Rules
}

// SplitPostcodes parses the comma-separated storage form of a postcode
// allow-list, dropping empty entries. Normalization of the surviving
// patterns happens at match time.
func SplitPostcodes(stored string) []string {
	if strings.TrimSpace(stored) == "" {
		return nil
	}
	parts := strings.Split(stored, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
