package coupon

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	zero    = decimal.Zero
)

// Rejection reasons returned by Validate. ApplyCoupons surfaces these
// verbatim in its error entries, so the texts are part of the contract.
const (
	ReasonInactive        = "coupon is inactive"
	ReasonOutsideWindow   = "coupon is outside its validity window"
	ReasonUsageLimit      = "coupon usage limit reached"
	ReasonUnsupportedType = "unsupported coupon type"
)

// Strategy is the validation and pricing rule for one coupon type.
//
// Validate never returns an error value; rejection is communicated through
// the result. CalculateDiscount assumes a passing Validate and is only
// meaningful after one; the Service enforces that ordering for callers.
type Strategy interface {
	Validate(c Coupon, octx OrderContext, now time.Time) ValidationResult
	CalculateDiscount(c Coupon, octx OrderContext) DiscountResult
}

// strategyFor selects the Strategy for a coupon type. The boolean is false
// for types outside the closed set.
func strategyFor(t Type) (Strategy, bool) {
	switch t {
	case TypeFixedAmount:
		return fixedAmountStrategy{}, true
	case TypePercentage:
		return percentageStrategy{}, true
	case TypeFreeShipping:
		return freeShippingStrategy{}, true
	default:
		return nil, false
	}
}

// eligibility runs the checks shared by every strategy, in a fixed order:
// active flag, validity window, usage limit, minimum subtotal. The first
// failing check decides the reason; later checks are not evaluated.
func eligibility(c Coupon, octx OrderContext, now time.Time) ValidationResult {
	if !c.IsActive {
		return ValidationResult{Reason: ReasonInactive}
	}
	if now.Before(c.StartDate) || now.After(c.EndDate) {
		return ValidationResult{Reason: ReasonOutsideWindow}
	}
	if c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit {
		return ValidationResult{Reason: ReasonUsageLimit}
	}
	if c.MinAmount.IsPositive() && octx.Subtotal.LessThan(c.MinAmount) {
		return ValidationResult{Reason: minAmountReason(c.MinAmount)}
	}
	return ValidationResult{Valid: true}
}

// minAmountReason builds the rejection message for the minimum-subtotal gate.
func minAmountReason(minAmount decimal.Decimal) string {
	return fmt.Sprintf("order subtotal below the required minimum of %s", minAmount.StringFixed(2))
}

type fixedAmountStrategy struct{}

func (fixedAmountStrategy) Validate(c Coupon, octx OrderContext, now time.Time) ValidationResult {
	return eligibility(c, octx, now)
}

// CalculateDiscount subtracts the coupon value, never discounting more than
// the order is worth.
func (fixedAmountStrategy) CalculateDiscount(c Coupon, octx OrderContext) DiscountResult {
	discount := decimal.Min(c.Value, octx.Subtotal)
	discount = floorAtZero(discount).Round(2)

	return DiscountResult{
		Discount:      discount,
		FinalAmount:   floorAtZero(octx.Subtotal.Sub(discount)).Round(2),
		AppliedCoupon: c,
	}
}

type percentageStrategy struct{}

func (percentageStrategy) Validate(c Coupon, octx OrderContext, now time.Time) ValidationResult {
	return eligibility(c, octx, now)
}

// CalculateDiscount takes Value percent off the subtotal, clamped to
// MaxDiscount when one is set.
func (percentageStrategy) CalculateDiscount(c Coupon, octx OrderContext) DiscountResult {
	discount := octx.Subtotal.Mul(c.Value).Div(hundred)
	if c.MaxDiscount.IsPositive() {
		discount = decimal.Min(discount, c.MaxDiscount)
	}
	discount = floorAtZero(discount).Round(2)

	return DiscountResult{
		Discount:      discount,
		FinalAmount:   floorAtZero(octx.Subtotal.Sub(discount)).Round(2),
		AppliedCoupon: c,
	}
}

type freeShippingStrategy struct{}

func (freeShippingStrategy) Validate(c Coupon, octx OrderContext, now time.Time) ValidationResult {
	return eligibility(c, octx, now)
}

// CalculateDiscount reports the waived shipping fee as the discount while
// leaving FinalAmount at the unmodified subtotal. The discount is
// shipping-denominated: callers fold shipping into the payable total
// themselves and must skip it when this coupon applies.
func (freeShippingStrategy) CalculateDiscount(c Coupon, octx OrderContext) DiscountResult {
	return DiscountResult{
		Discount:      floorAtZero(octx.ShippingCost).Round(2),
		FinalAmount:   octx.Subtotal.Round(2),
		AppliedCoupon: c,
	}
}

// floorAtZero clamps negative values to zero.
func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return zero
	}
	return d
}
