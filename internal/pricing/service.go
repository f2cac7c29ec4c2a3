// Package pricing hosts the order-pricing use cases on top of the coupon
// engine: quoting an order with a batch of coupon codes, validating a single
// code, listing a user's usable coupons, and redeeming a code.
package pricing

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/oakmart/pricing-engine/internal/coupon"
)

// Repository is the coupon storage surface the pricing service needs.
// It extends the engine's lookup contract with redemption.
type Repository interface {
	coupon.Repository
}

// QuoteRequest describes an order to price together with the coupon codes to
// apply, in the order the caller wants them applied.
type QuoteRequest struct {
	UserID       string
	Subtotal     decimal.Decimal
	ShippingCost decimal.Decimal
	Items        []coupon.OrderItem
	CouponCodes  []string
}

// QuoteResult is a fully priced order.
//
// FinalAmount is the goods total after discounts; ShippingCost is the
// effective fee after any free-shipping coupon, and TotalPayable folds the
// two together. The split exists because the engine reports a free-shipping
// discount without reducing the goods total.
type QuoteResult struct {
	TotalDiscount  decimal.Decimal
	FinalAmount    decimal.Decimal
	ShippingCost   decimal.Decimal
	TotalPayable   decimal.Decimal
	AppliedCoupons []coupon.Coupon
	Errors         []string
}

// Service implements the pricing use cases.
type Service struct {
	coupons Repository
	engine  *coupon.Service
}

// NewService creates a pricing Service.
func NewService(coupons Repository, engine *coupon.Service) *Service {
	return &Service{
		coupons: coupons,
		engine:  engine,
	}
}

// Quote prices the order. Coupon codes are resolved in request order and fed
// to the engine as a batch; codes that do not resolve become error entries
// alongside the engine's own rejections, and the quote still succeeds.
// Only storage failures produce an error return.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (*QuoteResult, error) {
	octx := coupon.OrderContext{
		Subtotal:     req.Subtotal,
		ShippingCost: req.ShippingCost,
		UserID:       req.UserID,
		Items:        req.Items,
	}

	var (
		batch      []coupon.Coupon
		lookupErrs []string
	)
	for _, code := range req.CouponCodes {
		c, err := s.coupons.FindByCode(ctx, code)
		if err != nil {
			if errors.Is(err, coupon.ErrNotFound) {
				lookupErrs = append(lookupErrs, fmt.Sprintf("%s: %s", code, coupon.ErrNotFound))
				continue
			}
			return nil, errors.Wrapf(err, "find coupon %q", code)
		}
		batch = append(batch, *c)
	}

	applied := s.engine.ApplyCoupons(batch, octx)

	shipping := req.ShippingCost
	if hasFreeShipping(applied.AppliedCoupons) {
		shipping = decimal.Zero
	}

	return &QuoteResult{
		TotalDiscount:  applied.TotalDiscount,
		FinalAmount:    applied.FinalAmount,
		ShippingCost:   shipping,
		TotalPayable:   applied.FinalAmount.Add(shipping).Round(2),
		AppliedCoupons: applied.AppliedCoupons,
		Errors:         append(lookupErrs, applied.Errors...),
	}, nil
}

// Validate resolves the code and runs the engine's eligibility checks
// against the given order context.
func (s *Service) Validate(ctx context.Context, code string, octx coupon.OrderContext) (coupon.ValidationResult, error) {
	c, err := s.coupons.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			return coupon.ValidationResult{}, err
		}
		return coupon.ValidationResult{}, errors.Wrapf(err, "find coupon %q", code)
	}
	return s.engine.ValidateCoupon(*c, octx), nil
}

// Lookup returns the coupon definition for a code.
func (s *Service) Lookup(ctx context.Context, code string) (*coupon.Coupon, error) {
	c, err := s.coupons.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "find coupon %q", code)
	}
	return c, nil
}

// UserCoupons lists the coupons the user can currently apply.
func (s *Service) UserCoupons(ctx context.Context, userID string) ([]coupon.Coupon, error) {
	coupons, err := s.coupons.ListUsableByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "list coupons for user %q", userID)
	}
	return coupons, nil
}

// Redeem books one use of the coupon. The storage layer guards the usage
// limit atomically, so concurrent redemptions cannot overshoot it.
func (s *Service) Redeem(ctx context.Context, code string) error {
	if err := s.coupons.Redeem(ctx, code); err != nil {
		if errors.Is(err, coupon.ErrNotFound) || errors.Is(err, coupon.ErrUsageLimitReached) {
			return err
		}
		return errors.Wrapf(err, "redeem coupon %q", code)
	}
	return nil
}

func hasFreeShipping(coupons []coupon.Coupon) bool {
	for _, c := range coupons {
		if c.Type == coupon.TypeFreeShipping {
			return true
		}
	}
	return false
}
