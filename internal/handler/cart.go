package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/storelane/coupon-gate/internal/checkout"
	"github.com/storelane/coupon-gate/internal/restriction"
)

type cartResponse struct {
	ID               string          `json:"id"`
	Email            string          `json:"email,omitempty"`
	BillingCountry   string          `json:"billing_country,omitempty"`
	BillingPostcode  string          `json:"billing_postcode,omitempty"`
	ShippingCountry  string          `json:"shipping_country,omitempty"`
	ShippingPostcode string          `json:"shipping_postcode,omitempty"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	AppliedCoupons   []string        `json:"applied_coupons"`
	TotalsStale      bool            `json:"totals_stale"`
	Issues           []issueJSON     `json:"issues,omitempty"`
}

type issueJSON struct {
	Code    string `json:"code"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func toCartResponse(cart *checkout.Cart, issues []checkout.CouponIssue) cartResponse {
	resp := cartResponse{
		ID:               cart.ID,
		Email:            cart.Email,
		BillingCountry:   cart.BillingCountry,
		BillingPostcode:  cart.BillingPostcode,
		ShippingCountry:  cart.ShippingCountry,
		ShippingPostcode: cart.ShippingPostcode,
		Subtotal:         cart.Subtotal,
		AppliedCoupons:   cart.AppliedCoupons,
		TotalsStale:      cart.TotalsStale,
	}
	if resp.AppliedCoupons == nil {
		resp.AppliedCoupons = []string{}
	}
	for _, issue := range issues {
		resp.Issues = append(resp.Issues, issueJSON{
			Code:    issue.Code,
			Reason:  string(issue.Reason),
			Message: issue.Message,
		})
	}
	return resp
}

type createCartRequest struct {
	Email    string          `json:"email"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

func (h *Handler) createCart(w http.ResponseWriter, r *http.Request) {
	var req createCartRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	cart, err := h.service.CreateCart(r.Context(), req.Email, req.Subtotal)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, toCartResponse(cart, nil))
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.Cart(r.Context(), chi.URLParam(r, "cartID"))
	if err != nil {
		h.cartError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toCartResponse(cart, nil))
}

type updateAddressRequest struct {
	Email            string `json:"email"`
	BillingCountry   string `json:"billing_country"`
	BillingPostcode  string `json:"billing_postcode"`
	ShippingCountry  string `json:"shipping_country"`
	ShippingPostcode string `json:"shipping_postcode"`
}

// updateAddress merges address fields into the cart session and returns the
// advisory coupon issues found with the new data.
func (h *Handler) updateAddress(w http.ResponseWriter, r *http.Request) {
	var req updateAddressRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	cart, issues, err := h.service.UpdateAddress(r.Context(), chi.URLParam(r, "cartID"), restriction.SessionFields{
		Email:            req.Email,
		BillingCountry:   req.BillingCountry,
		BillingPostcode:  req.BillingPostcode,
		ShippingCountry:  req.ShippingCountry,
		ShippingPostcode: req.ShippingPostcode,
	})
	if err != nil {
		h.cartError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toCartResponse(cart, issues))
}

// cartError maps store errors for cart-scoped endpoints.
func (h *Handler) cartError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, checkout.ErrCartNotFound) {
		writeError(w, r, http.StatusNotFound, "cart not found")
		return
	}
	h.serverError(w, r, err)
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("request failed", zap.Error(err))
	writeError(w, r, http.StatusInternalServerError, "internal error")
}
