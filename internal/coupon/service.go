package coupon

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Service dispatches coupons to their type's Strategy and sequences batches
// of coupons against a single order. It holds no mutable state; every call
// is a pure function of its arguments and the injected clock.
type Service struct {
	now func() time.Time
}

// NewService creates a Service using the wall clock.
func NewService() *Service {
	return &Service{now: time.Now}
}

// NewServiceWithClock creates a Service with a custom clock, for tests and
// for pricing against a fixed instant.
func NewServiceWithClock(now func() time.Time) *Service {
	return &Service{now: now}
}

// ValidateCoupon checks whether the coupon is usable for the given order.
// An unknown coupon type is reported as a rejection rather than an error;
// the type set is closed, so that branch is defensive only.
func (s *Service) ValidateCoupon(c Coupon, octx OrderContext) ValidationResult {
	strat, ok := strategyFor(c.Type)
	if !ok {
		return ValidationResult{Reason: ReasonUnsupportedType}
	}
	return strat.Validate(c, octx, s.now())
}

// CalculateDiscount validates the coupon and, when it passes, prices it.
// It returns nil for an invalid coupon, discarding the reason; callers that
// need the reason use ValidateCoupon.
func (s *Service) CalculateDiscount(c Coupon, octx OrderContext) *DiscountResult {
	if res := s.ValidateCoupon(c, octx); !res.Valid {
		return nil
	}

	strat, _ := strategyFor(c.Type)
	result := strat.CalculateDiscount(c, octx)
	return &result
}

// ApplyCoupons applies the coupons in the order given, each one priced
// against the subtotal left over by its predecessors. Discounts compound
// rather than stack against the original subtotal, so the input order is
// significant for any batch containing a percentage coupon.
//
// The batch is best-effort: an invalid coupon is skipped and recorded in
// Errors as "CODE: reason", and the remaining coupons still apply.
func (s *Service) ApplyCoupons(coupons []Coupon, octx OrderContext) ApplyResult {
	currentSubtotal := octx.Subtotal
	totalDiscount := decimal.Zero
	applied := make([]Coupon, 0, len(coupons))
	var errs []string

	for _, c := range coupons {
		current := octx
		current.Subtotal = currentSubtotal

		result := s.CalculateDiscount(c, current)
		if result == nil {
			res := s.ValidateCoupon(c, current)
			errs = append(errs, fmt.Sprintf("%s: %s", c.Code, res.Reason))
			continue
		}

		totalDiscount = totalDiscount.Add(result.Discount)
		currentSubtotal = result.FinalAmount
		applied = append(applied, c)
	}

	return ApplyResult{
		TotalDiscount:  totalDiscount,
		FinalAmount:    currentSubtotal,
		AppliedCoupons: applied,
		Errors:         errs,
	}
}
