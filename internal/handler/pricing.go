package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/oakmart/pricing-engine/internal/coupon"
	"github.com/oakmart/pricing-engine/internal/pricing"
)

// maxBodySize bounds request bodies to keep decode costs predictable.
const maxBodySize = 1 << 20

// Quote prices an order with an ordered batch of coupon codes. Unknown and
// ineligible codes come back as error entries in the response; the quote
// itself still succeeds.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	req, err := decodeQuoteRequest(w, r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.pricing.Quote(r.Context(), *req)
	if err != nil {
		internalError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("totalDiscount")
		e.Str(res.TotalDiscount.StringFixed(2))
		e.FieldStart("finalAmount")
		e.Str(res.FinalAmount.StringFixed(2))
		e.FieldStart("shippingCost")
		e.Str(res.ShippingCost.StringFixed(2))
		e.FieldStart("totalPayable")
		e.Str(res.TotalPayable.StringFixed(2))
		e.FieldStart("appliedCoupons")
		e.ArrStart()
		for _, c := range res.AppliedCoupons {
			encodeCoupon(e, c)
		}
		e.ArrEnd()
		e.FieldStart("errors")
		e.ArrStart()
		for _, msg := range res.Errors {
			e.Str(msg)
		}
		e.ArrEnd()
		e.ObjEnd()
	})
}

func decodeQuoteRequest(w http.ResponseWriter, r *http.Request) (*pricing.QuoteRequest, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return nil, errors.New("invalid request body")
	}

	var req pricing.QuoteRequest
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "userId":
			req.UserID, err = d.Str()
			return err
		case "subtotal":
			req.Subtotal, err = decodeAmount(d)
			return err
		case "shippingCost":
			req.ShippingCost, err = decodeAmount(d)
			return err
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				item, err := decodeOrderItem(d)
				if err != nil {
					return err
				}
				req.Items = append(req.Items, item)
				return nil
			})
		case "couponCodes":
			return d.Arr(func(d *jx.Decoder) error {
				code, err := d.Str()
				if err != nil {
					return err
				}
				req.CouponCodes = append(req.CouponCodes, code)
				return nil
			})
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, errors.New("invalid request body")
	}

	if req.Subtotal.IsNegative() {
		return nil, errors.New("subtotal must not be negative")
	}
	if req.ShippingCost.IsNegative() {
		return nil, errors.New("shippingCost must not be negative")
	}
	return &req, nil
}

func decodeOrderItem(d *jx.Decoder) (coupon.OrderItem, error) {
	var item coupon.OrderItem
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			item.ProductID, err = d.Str()
			return err
		case "quantity":
			item.Quantity, err = d.Int()
			return err
		case "price":
			item.Price, err = decodeAmount(d)
			return err
		default:
			return d.Skip()
		}
	})
	return item, err
}

// decodeAmount reads a monetary amount, accepting both JSON numbers and
// numeric strings so clients are not forced into float arithmetic.
func decodeAmount(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(s)
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(n.String())
	default:
		return decimal.Decimal{}, errors.Errorf("unexpected %v, want number", d.Next())
	}
}
