package restriction

// Field is a single snapshot value together with whether the source actually
// supplied it. A session snapshot omits fields the shopper has not entered
// yet; a submitted checkout form supplies every field, empty or not.
type Field struct {
	Value string
	Known bool
}

// Snapshot is a point-in-time view of the shopper's identity and addresses,
// taken either from the cart session (partial, advisory) or from the posted
// checkout form (complete, authoritative).
type Snapshot struct {
	Email            Field
	BillingCountry   Field
	BillingPostcode  Field
	ShippingCountry  Field
	ShippingPostcode Field
}

// SessionFields holds the optional values available from the cart session.
// Empty strings mean "not entered yet" and stay unknown in the snapshot.
type SessionFields struct {
	Email            string
	BillingCountry   string
	BillingPostcode  string
	ShippingCountry  string
	ShippingPostcode string
}

// SubmittedFields holds the values posted with the checkout form. All fields
// are considered supplied, so absent inputs participate in matching as empty
// strings.
type SubmittedFields struct {
	Email            string
	BillingCountry   string
	BillingPostcode  string
	ShippingCountry  string
	ShippingPostcode string
}

// SessionSnapshot builds a partial snapshot: only non-empty fields are known.
func SessionSnapshot(f SessionFields) Snapshot {
	return Snapshot{
		Email:            sessionField(f.Email),
		BillingCountry:   sessionField(f.BillingCountry),
		BillingPostcode:  sessionField(f.BillingPostcode),
		ShippingCountry:  sessionField(f.ShippingCountry),
		ShippingPostcode: sessionField(f.ShippingPostcode),
	}
}

// SubmittedSnapshot builds an authoritative snapshot: every field is known,
// including empty ones.
func SubmittedSnapshot(f SubmittedFields) Snapshot {
	return Snapshot{
		Email:            Field{Value: f.Email, Known: true},
		BillingCountry:   Field{Value: f.BillingCountry, Known: true},
		BillingPostcode:  Field{Value: f.BillingPostcode, Known: true},
		ShippingCountry:  Field{Value: f.ShippingCountry, Known: true},
		ShippingPostcode: Field{Value: f.ShippingPostcode, Known: true},
	}
}

// Country returns the country field for the given address type.
func (s Snapshot) Country(addr AddressType) Field {
	if addr == AddressBilling {
		return s.BillingCountry
	}
	return s.ShippingCountry
}

// Postcode returns the postcode field for the given address type.
func (s Snapshot) Postcode(addr AddressType) Field {
	if addr == AddressBilling {
		return s.BillingPostcode
	}
	return s.ShippingPostcode
}

func sessionField(v string) Field {
	return Field{Value: v, Known: v != ""}
}
