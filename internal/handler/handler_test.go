package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storelane/coupon-gate/internal/checkout"
	"github.com/storelane/coupon-gate/internal/restriction"
)

type stubCoupons map[string]restriction.Coupon

func (s stubCoupons) FindByCode(_ context.Context, code string) (*restriction.Coupon, error) {
	c, ok := s[code]
	if !ok {
		return nil, checkout.ErrCouponNotFound
	}
	return &c, nil
}

type stubCarts map[string]checkout.Cart

func (s stubCarts) Get(_ context.Context, id string) (*checkout.Cart, error) {
	c, ok := s[id]
	if !ok {
		return nil, checkout.ErrCartNotFound
	}
	cp := c
	return &cp, nil
}

func (s stubCarts) Save(_ context.Context, cart *checkout.Cart) error {
	s[cart.ID] = *cart
	return nil
}

type stubOrders struct{ created int }

func (s *stubOrders) Create(_ context.Context, _ *checkout.Order) error {
	s.created++
	return nil
}

type stubHistory map[string]bool

func (s stubHistory) IsReturning(_ context.Context, email string) (bool, error) {
	return s[email], nil
}

func newTestServer(t *testing.T, coupons stubCoupons, carts stubCarts, returning stubHistory) *httptest.Server {
	t.Helper()

	svc, err := checkout.NewService(checkout.Config{}, coupons, carts, &stubOrders{}, returning)
	require.NoError(t, err)

	srv := httptest.NewServer(NewHandler(svc).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestApplyCouponEndpoint(t *testing.T) {
	coupons := stubCoupons{
		"SAVE10": {Code: "SAVE10", Rules: restriction.Rules{
			CustomerRestriction: restriction.CustomerNew,
			AddressType:         restriction.AddressShipping,
		}},
	}

	t.Run("applies on empty session", func(t *testing.T) {
		srv := newTestServer(t, coupons, stubCarts{"c1": {ID: "c1"}}, nil)

		resp := doJSON(t, http.MethodPost, srv.URL+"/carts/c1/coupons", map[string]string{"code": "SAVE10"})

		require.Equal(t, http.StatusOK, resp.StatusCode)
		cart := decodeBody[cartResponse](t, resp)
		assert.Equal(t, []string{"SAVE10"}, cart.AppliedCoupons)
	})

	t.Run("rejects returning shopper with 422 and message", func(t *testing.T) {
		srv := newTestServer(t, coupons,
			stubCarts{"c1": {ID: "c1", Email: "buyer@example.com"}},
			stubHistory{"buyer@example.com": true})

		resp := doJSON(t, http.MethodPost, srv.URL+"/carts/c1/coupons", map[string]string{"code": "SAVE10"})

		require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		body := decodeBody[errorResponse](t, resp)
		assert.Equal(t, `Sorry, coupon code "SAVE10" is only valid for new customers.`, body.Message)
		assert.Equal(t, "new_customer", body.Reason)
	})

	t.Run("unknown coupon answers 404", func(t *testing.T) {
		srv := newTestServer(t, coupons, stubCarts{"c1": {ID: "c1"}}, nil)

		resp := doJSON(t, http.MethodPost, srv.URL+"/carts/c1/coupons", map[string]string{"code": "BOGUS"})

		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("missing code answers 400", func(t *testing.T) {
		srv := newTestServer(t, coupons, stubCarts{"c1": {ID: "c1"}}, nil)

		resp := doJSON(t, http.MethodPost, srv.URL+"/carts/c1/coupons", map[string]string{})

		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestSubmitCheckoutEndpoint(t *testing.T) {
	coupons := stubCoupons{
		"SHIP5": {Code: "SHIP5", Rules: restriction.Rules{
			LocationEnabled:  true,
			AddressType:      restriction.AddressShipping,
			AllowedCountries: []string{"CA"},
		}},
	}

	t.Run("blocked submission answers 409 with removed coupons", func(t *testing.T) {
		srv := newTestServer(t, coupons,
			stubCarts{"c1": {ID: "c1", AppliedCoupons: []string{"SHIP5"}}}, nil)

		resp := doJSON(t, http.MethodPost, srv.URL+"/carts/c1/checkout", map[string]string{
			"email":            "fresh@example.com",
			"shipping_country": "US",
		})

		require.Equal(t, http.StatusConflict, resp.StatusCode)
		body := decodeBody[submitBlockedResponse](t, resp)
		assert.True(t, body.Blocked)
		require.Len(t, body.Removed, 1)
		assert.Equal(t, `Sorry, coupon code "SHIP5" is not valid in your shipping country.`, body.Removed[0].Message)
	})

	t.Run("clean submission answers 201 with the order", func(t *testing.T) {
		srv := newTestServer(t, coupons,
			stubCarts{"c1": {ID: "c1", AppliedCoupons: []string{"SHIP5"}}}, nil)

		resp := doJSON(t, http.MethodPost, srv.URL+"/carts/c1/checkout", map[string]string{
			"email":            "fresh@example.com",
			"shipping_country": "CA",
		})

		require.Equal(t, http.StatusCreated, resp.StatusCode)
		order := decodeBody[orderJSON](t, resp)
		assert.NotEmpty(t, order.ID)
		assert.Equal(t, []string{"SHIP5"}, order.CouponCodes)
	})

	t.Run("unknown cart answers 404", func(t *testing.T) {
		srv := newTestServer(t, coupons, stubCarts{}, nil)

		resp := doJSON(t, http.MethodPost, srv.URL+"/carts/missing/checkout", map[string]string{})

		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestUpdateAddressEndpoint(t *testing.T) {
	coupons := stubCoupons{
		"SHIP5": {Code: "SHIP5", Rules: restriction.Rules{
			LocationEnabled:  true,
			AddressType:      restriction.AddressShipping,
			AllowedCountries: []string{"CA"},
		}},
	}
	srv := newTestServer(t, coupons,
		stubCarts{"c1": {ID: "c1", AppliedCoupons: []string{"SHIP5"}}}, nil)

	resp := doJSON(t, http.MethodPut, srv.URL+"/carts/c1/address", map[string]string{
		"shipping_country": "US",
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	cart := decodeBody[cartResponse](t, resp)
	// Advisory: the failing coupon is reported but stays applied.
	assert.Equal(t, []string{"SHIP5"}, cart.AppliedCoupons)
	require.Len(t, cart.Issues, 1)
	assert.Equal(t, "country", cart.Issues[0].Reason)
}
