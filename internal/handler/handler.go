// Package handler exposes the pricing service over HTTP. Requests and
// responses are JSON, encoded by hand with jx; monetary amounts travel as
// strings with two decimal places, and requests accept both numbers and
// numeric strings for them.
package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/oakmart/pricing-engine/internal/pricing"
)

// Handler serves the pricing HTTP API, delegating business logic to the
// pricing service.
type Handler struct {
	pricing *pricing.Service
}

// NewHandler constructs a Handler.
func NewHandler(pricing *pricing.Service) *Handler {
	return &Handler{pricing: pricing}
}

// Routes registers the API endpoints on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/pricing/quote", h.Quote)
	mux.HandleFunc("POST /api/coupons/validate", h.ValidateCoupon)
	mux.HandleFunc("GET /api/coupons/{code}", h.GetCoupon)
	mux.HandleFunc("POST /api/coupons/{code}/redeem", h.RedeemCoupon)
	mux.HandleFunc("GET /api/users/{userId}/coupons", h.ListUserCoupons)
}

// writeJSON encodes a response object built by fn and writes it with the
// given status code.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, fn func(e *jx.Encoder)) {
	var e jx.Encoder
	fn(&e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(e.Bytes()); err != nil {
		zctx.From(r.Context()).Debug("Write response", zap.Error(err))
	}
}

// writeError writes the common error envelope: {"code": N, "message": "..."}.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, r, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(status)
		e.FieldStart("message")
		e.Str(message)
		e.ObjEnd()
	})
}

// internalError logs err and answers with a generic 500 so storage details
// never leak to clients.
func internalError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	writeError(w, r, http.StatusInternalServerError, "internal server error")
}
