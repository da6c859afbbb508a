package restriction

import "fmt"

// Templates holds the four shopper-facing rejection messages for one locale.
// The customer templates take the coupon code; the location templates take
// the coupon code and the address-type label, in that order.
type Templates struct {
	NewCustomer      string
	ExistingCustomer string
	Country          string
	Postcode         string
}

// englishTemplates is the built-in fallback locale.
var englishTemplates = Templates{
	NewCustomer:      "Sorry, coupon code %q is only valid for new customers.",
	ExistingCustomer: "Sorry, coupon code %q is only valid for existing customers.",
	Country:          "Sorry, coupon code %q is not valid in your %s country.",
	Postcode:         "Sorry, coupon code %q is not valid in your %s postcode.",
}

// Catalog renders localized rejection messages for restriction outcomes.
//
// Two override hooks mirror the extension points integrators expect: Override
// rewrites the final message with full coupon and outcome context, and
// RemovedOverride rewrites the already-rendered coupon-removed notice. Both
// are optional.
type Catalog struct {
	locales map[string]Templates
	locale  string

	// Override, when set, replaces the rendered message. It receives the
	// default rendering, the coupon, and the outcome.
	Override func(rendered string, coupon Coupon, out Outcome) string

	// RemovedOverride, when set, replaces the rendered coupon-removed notice.
	RemovedOverride func(rendered string, code string) string
}

// NewCatalog creates a Catalog with the built-in English locale selected.
func NewCatalog() *Catalog {
	return &Catalog{
		locales: map[string]Templates{"en": englishTemplates},
		locale:  "en",
	}
}

// AddLocale registers (or replaces) the templates for a locale.
func (c *Catalog) AddLocale(locale string, t Templates) {
	c.locales[locale] = t
}

// SetLocale selects the locale used for rendering. Unknown locales fall back
// to English at render time.
func (c *Catalog) SetLocale(locale string) {
	c.locale = locale
}

// Render produces the shopper-facing message for a rejection outcome. It
// returns an empty string for passing outcomes.
func (c *Catalog) Render(coupon Coupon, out Outcome) string {
	if out.Valid {
		return ""
	}

	t, ok := c.locales[c.locale]
	if !ok {
		t = englishTemplates
	}

	var msg string
	switch out.Reason {
	case ReasonNewCustomer:
		msg = fmt.Sprintf(t.NewCustomer, coupon.Code)
	case ReasonExistingCustomer:
		msg = fmt.Sprintf(t.ExistingCustomer, coupon.Code)
	case ReasonCountry:
		msg = fmt.Sprintf(t.Country, coupon.Code, coupon.Rules.AddressType.Label())
	case ReasonPostcode:
		msg = fmt.Sprintf(t.Postcode, coupon.Code, coupon.Rules.AddressType.Label())
	default:
		msg = fmt.Sprintf("Sorry, coupon code %q cannot be applied to this order.", coupon.Code)
	}

	if c.Override != nil {
		msg = c.Override(msg, coupon, out)
	}
	return msg
}

// RenderRemoved produces the blocking notice shown when an applied coupon is
// removed during checkout validation.
func (c *Catalog) RenderRemoved(coupon Coupon, out Outcome) string {
	msg := c.Render(coupon, out)
	if c.RemovedOverride != nil {
		msg = c.RemovedOverride(msg, coupon.Code)
	}
	return msg
}
