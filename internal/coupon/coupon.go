package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for Repository implementations. The engine itself never
// returns errors; these belong to the storage contract.
var (
	// ErrNotFound is returned when no coupon matches the given code.
	ErrNotFound = errors.New("coupon not found")
	// ErrUsageLimitReached is returned when a redemption would exceed the
	// coupon's usage limit.
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
)

// Type enumerates the supported coupon discount strategies.
type Type string

const (
	// TypeFixedAmount subtracts a fixed monetary amount, capped at the subtotal.
	TypeFixedAmount Type = "fixed_amount"
	// TypePercentage subtracts a percentage of the subtotal, optionally capped.
	TypePercentage Type = "percentage"
	// TypeFreeShipping waives the shipping fee without touching the subtotal.
	TypeFreeShipping Type = "free_shipping"
)

// Coupon is a reusable discount definition.
//
// Optional numeric constraints use the zero value to mean "unset": a zero
// MinAmount imposes no floor, a zero MaxDiscount imposes no cap, and a zero
// UsageLimit allows unlimited redemptions.
type Coupon struct {
	ID          string
	Code        string
	Name        string
	Description string
	Type        Type

	// Value is an absolute amount for fixed-amount coupons and a 0-100
	// percentage for percentage coupons. Free-shipping coupons ignore it.
	Value       decimal.Decimal
	MinAmount   decimal.Decimal
	MaxDiscount decimal.Decimal

	UsageLimit int
	UsedCount  int

	// StartDate and EndDate bound the validity window, both inclusive.
	StartDate time.Time
	EndDate   time.Time

	// IsActive is an administrative kill switch independent of the window.
	IsActive bool
}

// OrderItem is one line of the order being priced.
type OrderItem struct {
	ProductID string
	Quantity  int
	Price     decimal.Decimal
}

// OrderContext is a caller-constructed snapshot of the order being priced.
// It is never persisted by this package.
//
// Items is carried through the strategy contract for callers that build
// per-line rules on top, but no current strategy reads it.
type OrderContext struct {
	Subtotal     decimal.Decimal
	ShippingCost decimal.Decimal
	UserID       string
	Items        []OrderItem
}

// ValidationResult reports whether a coupon is usable for an order and, when
// it is not, the human-readable reason. Rejections are data, not errors.
type ValidationResult struct {
	Valid  bool
	Reason string
}

// DiscountResult is the outcome of pricing a single coupon.
type DiscountResult struct {
	Discount      decimal.Decimal
	FinalAmount   decimal.Decimal
	AppliedCoupon Coupon
}

// ApplyResult is the outcome of applying a batch of coupons in sequence.
// Coupons that fail validation are skipped and reported in Errors as
// "CODE: reason" entries; the batch itself always completes.
type ApplyResult struct {
	TotalDiscount  decimal.Decimal
	FinalAmount    decimal.Decimal
	AppliedCoupons []Coupon
	Errors         []string
}

// Repository provides coupon lookup and usage accounting. Implementations
// live outside this package; the engine itself performs no I/O.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	ListUsableByUser(ctx context.Context, userID string) ([]Coupon, error)
	Redeem(ctx context.Context, code string) error
}
