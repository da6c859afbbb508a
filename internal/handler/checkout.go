package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/storelane/coupon-gate/internal/checkout"
)

type applyCouponRequest struct {
	Code string `json:"code"`
}

// applyCoupon runs the phase-1 (session) validation and applies the coupon on
// success. Restriction rejections answer 422 with the shopper-facing message.
func (h *Handler) applyCoupon(w http.ResponseWriter, r *http.Request) {
	var req applyCouponRequest
	if err := decode(r, &req); err != nil || req.Code == "" {
		writeError(w, r, http.StatusBadRequest, "coupon code required")
		return
	}

	cart, err := h.service.ApplyCoupon(r.Context(), chi.URLParam(r, "cartID"), req.Code)
	if err != nil {
		var restrictionErr *checkout.RestrictionError
		switch {
		case errors.As(err, &restrictionErr):
			writeJSON(w, r, http.StatusUnprocessableEntity, errorResponse{
				Code:    http.StatusUnprocessableEntity,
				Message: restrictionErr.Message,
				Reason:  string(restrictionErr.Outcome.Reason),
			})
		case errors.Is(err, checkout.ErrCouponNotFound):
			writeError(w, r, http.StatusNotFound, "unknown coupon code")
		default:
			h.cartError(w, r, err)
		}
		return
	}
	writeJSON(w, r, http.StatusOK, toCartResponse(cart, nil))
}

func (h *Handler) removeCoupon(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.RemoveCoupon(r.Context(), chi.URLParam(r, "cartID"), chi.URLParam(r, "code"))
	if err != nil {
		h.cartError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toCartResponse(cart, nil))
}

type submitCheckoutRequest struct {
	Email            string `json:"email"`
	BillingCountry   string `json:"billing_country"`
	BillingPostcode  string `json:"billing_postcode"`
	ShippingCountry  string `json:"shipping_country"`
	ShippingPostcode string `json:"shipping_postcode"`
}

type orderJSON struct {
	ID          string          `json:"id"`
	CartID      string          `json:"cart_id"`
	Email       string          `json:"email"`
	Total       decimal.Decimal `json:"total"`
	CouponCodes []string        `json:"coupon_codes"`
	CreatedAt   time.Time       `json:"created_at"`
}

type submitBlockedResponse struct {
	Blocked bool        `json:"blocked"`
	Removed []issueJSON `json:"removed_coupons"`
}

// submitCheckout runs the phase-2 (authoritative) validation. A submission
// that had coupons removed answers 409 with one notice per removed coupon;
// a clean submission answers 201 with the created order.
func (h *Handler) submitCheckout(w http.ResponseWriter, r *http.Request) {
	var req submitCheckoutRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.service.Submit(r.Context(), chi.URLParam(r, "cartID"), checkout.Submission{
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

	if result.Blocked {
		resp := submitBlockedResponse{Blocked: true}
		for _, rc := range result.Removed {
			resp.Removed = append(resp.Removed, issueJSON{
				Code:    rc.Code,
				Reason:  string(rc.Reason),
				Message: rc.Message,
			})
		}
		writeJSON(w, r, http.StatusConflict, resp)
		return
	}

	order := result.Order
	writeJSON(w, r, http.StatusCreated, orderJSON{
		ID:          order.ID,
		CartID:      order.CartID,
		Email:       order.Email,
		Total:       order.Total,
		CouponCodes: order.CouponCodes,
		CreatedAt:   order.CreatedAt,
	})
}
