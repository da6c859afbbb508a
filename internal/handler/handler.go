// Package handler exposes the cart and checkout API over HTTP.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/storelane/coupon-gate/internal/checkout"
)

// Handler wires the cart and checkout endpoints to the checkout service.
type Handler struct {
	service *checkout.Service
}

// NewHandler constructs a Handler backed by the given checkout service.
func NewHandler(service *checkout.Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the API router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/carts", func(r chi.Router) {
		r.Post("/", h.createCart)
		r.Route("/{cartID}", func(r chi.Router) {
			r.Get("/", h.getCart)
			r.Put("/address", h.updateAddress)
			r.Post("/coupons", h.applyCoupon)
			r.Delete("/coupons/{code}", h.removeCoupon)
			r.Post("/checkout", h.submitCheckout)
		})
	})
	return r
}

// errorResponse is the wire shape for all error replies.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zctx.From(r.Context()).Error("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, r, status, errorResponse{Code: status, Message: message})
}

// decode reads a JSON request body into v, rejecting unknown fields.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
