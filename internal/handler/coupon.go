package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/oakmart/pricing-engine/internal/coupon"
)

// ValidateCoupon checks a single code against an order snapshot. Rejections
// are data, not errors: the response carries valid=false plus the reason, and
// only an unknown code produces a 404.
func (h *Handler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	code, octx, err := decodeValidateRequest(w, r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.pricing.Validate(r.Context(), code, octx)
	switch {
	case errors.Is(err, coupon.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	case err != nil:
		internalError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("valid")
		e.Bool(res.Valid)
		if res.Reason != "" {
			e.FieldStart("reason")
			e.Str(res.Reason)
		}
		e.ObjEnd()
	})
}

// GetCoupon returns the coupon definition for a code.
func (h *Handler) GetCoupon(w http.ResponseWriter, r *http.Request) {
	c, err := h.pricing.Lookup(r.Context(), r.PathValue("code"))
	switch {
	case errors.Is(err, coupon.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	case err != nil:
		internalError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		encodeCoupon(e, *c)
	})
}

// RedeemCoupon books one use of a coupon. A coupon at its usage limit
// answers 409.
func (h *Handler) RedeemCoupon(w http.ResponseWriter, r *http.Request) {
	err := h.pricing.Redeem(r.Context(), r.PathValue("code"))
	switch {
	case errors.Is(err, coupon.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, coupon.ErrUsageLimitReached):
		writeError(w, r, http.StatusConflict, err.Error())
		return
	case err != nil:
		internalError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListUserCoupons returns the coupons a user can currently apply.
func (h *Handler) ListUserCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.pricing.UserCoupons(r.Context(), r.PathValue("userId"))
	if err != nil {
		internalError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("coupons")
		e.ArrStart()
		for _, c := range coupons {
			encodeCoupon(e, c)
		}
		e.ArrEnd()
		e.ObjEnd()
	})
}

func decodeValidateRequest(w http.ResponseWriter, r *http.Request) (string, coupon.OrderContext, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return "", coupon.OrderContext{}, errors.New("invalid request body")
	}

	var (
		code string
		octx coupon.OrderContext
	)
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "code":
			code, err = d.Str()
			return err
		case "userId":
			octx.UserID, err = d.Str()
			return err
		case "subtotal":
			octx.Subtotal, err = decodeAmount(d)
			return err
		case "shippingCost":
			octx.ShippingCost, err = decodeAmount(d)
			return err
		default:
			return d.Skip()
		}
	}); err != nil {
		return "", coupon.OrderContext{}, errors.New("invalid request body")
	}

	if code == "" {
		return "", coupon.OrderContext{}, errors.New("code is required")
	}
	if octx.Subtotal.IsNegative() {
		return "", coupon.OrderContext{}, errors.New("subtotal must not be negative")
	}
	return code, octx, nil
}

// encodeCoupon writes the public JSON shape of a coupon. Optional constraints
// that are unset are omitted instead of rendered as zeroes.
func encodeCoupon(e *jx.Encoder, c coupon.Coupon) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(c.ID)
	e.FieldStart("code")
	e.Str(c.Code)
	e.FieldStart("name")
	e.Str(c.Name)
	if c.Description != "" {
		e.FieldStart("description")
		e.Str(c.Description)
	}
	e.FieldStart("type")
	e.Str(string(c.Type))
	e.FieldStart("value")
	e.Str(c.Value.StringFixed(2))
	if c.MinAmount.IsPositive() {
		e.FieldStart("minAmount")
		e.Str(c.MinAmount.StringFixed(2))
	}
	if c.MaxDiscount.IsPositive() {
		e.FieldStart("maxDiscount")
		e.Str(c.MaxDiscount.StringFixed(2))
	}
	if c.UsageLimit > 0 {
		e.FieldStart("usageLimit")
		e.Int(c.UsageLimit)
	}
	e.FieldStart("usedCount")
	e.Int(c.UsedCount)
	e.FieldStart("startDate")
	e.Str(c.StartDate.Format(time.RFC3339))
	e.FieldStart("endDate")
	e.Str(c.EndDate.Format(time.RFC3339))
	e.FieldStart("isActive")
	e.Bool(c.IsActive)
	e.ObjEnd()
}
