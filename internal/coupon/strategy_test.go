package coupon

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

var (
	fixedNow    = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	windowStart = fixedNow.Add(-24 * time.Hour)
	windowEnd   = fixedNow.Add(24 * time.Hour)
)

// usable returns a coupon that passes every eligibility check at fixedNow.
func usable(typ Type, value string) Coupon {
	return Coupon{
		ID:        "c-1",
		Code:      "TESTCODE",
		Name:      "test coupon",
		Type:      typ,
		Value:     d(value),
		StartDate: windowStart,
		EndDate:   windowEnd,
		IsActive:  true,
	}
}

func orderOf(subtotal string) OrderContext {
	return OrderContext{
		Subtotal:     d(subtotal),
		ShippingCost: d("10"),
		UserID:       "u-1",
		Items: []OrderItem{
			{ProductID: "p1", Quantity: 1, Price: d(subtotal)},
		},
	}
}

func TestEligibility(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*Coupon)
		subtotal   string
		wantValid  bool
		wantReason string
	}{
		{
			name:      "all checks pass",
			mutate:    func(*Coupon) {},
			subtotal:  "100",
			wantValid: true,
		},
		{
			name:       "inactive coupon rejected",
			mutate:     func(c *Coupon) { c.IsActive = false },
			subtotal:   "100",
			wantReason: ReasonInactive,
		},
		{
			name: "inactive reported before expiry",
			mutate: func(c *Coupon) {
				c.IsActive = false
				c.EndDate = fixedNow.Add(-time.Hour)
			},
			subtotal:   "100",
			wantReason: ReasonInactive,
		},
		{
			name:       "end date in the past rejected",
			mutate:     func(c *Coupon) { c.EndDate = fixedNow.Add(-time.Hour) },
			subtotal:   "100",
			wantReason: ReasonOutsideWindow,
		},
		{
			name:       "start date in the future rejected",
			mutate:     func(c *Coupon) { c.StartDate = fixedNow.Add(time.Hour) },
			subtotal:   "100",
			wantReason: ReasonOutsideWindow,
		},
		{
			name:      "start date exactly now is inside the window",
			mutate:    func(c *Coupon) { c.StartDate = fixedNow },
			subtotal:  "100",
			wantValid: true,
		},
		{
			name:      "end date exactly now is inside the window",
			mutate:    func(c *Coupon) { c.EndDate = fixedNow },
			subtotal:  "100",
			wantValid: true,
		},
		{
			name: "expiry reported before minimum amount",
			mutate: func(c *Coupon) {
				c.EndDate = fixedNow.Add(-time.Hour)
				c.MinAmount = d("1000")
			},
			subtotal:   "100",
			wantReason: ReasonOutsideWindow,
		},
		{
			name: "usage limit reached",
			mutate: func(c *Coupon) {
				c.UsageLimit = 1
				c.UsedCount = 1
			},
			subtotal:   "100",
			wantReason: ReasonUsageLimit,
		},
		{
			name: "usage under limit passes",
			mutate: func(c *Coupon) {
				c.UsageLimit = 1
				c.UsedCount = 0
			},
			subtotal:  "100",
			wantValid: true,
		},
		{
			name: "unlimited usage ignores used count",
			mutate: func(c *Coupon) {
				c.UsageLimit = 0
				c.UsedCount = 9999
			},
			subtotal:  "100",
			wantValid: true,
		},
		{
			name:       "subtotal below minimum rejected",
			mutate:     func(c *Coupon) { c.MinAmount = d("100") },
			subtotal:   "99",
			wantReason: minAmountReason(d("100")),
		},
		{
			name:      "subtotal exactly at minimum passes",
			mutate:    func(c *Coupon) { c.MinAmount = d("100") },
			subtotal:  "100",
			wantValid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := usable(TypePercentage, "10")
			tt.mutate(&c)

			got := eligibility(c, orderOf(tt.subtotal), fixedNow)

			assert.Equal(t, tt.wantValid, got.Valid)
			assert.Equal(t, tt.wantReason, got.Reason)
		})
	}
}

func TestFixedAmountStrategy_CalculateDiscount(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		subtotal     string
		wantDiscount decimal.Decimal
		wantFinal    decimal.Decimal
	}{
		{
			name:         "value below subtotal",
			value:        "20",
			subtotal:     "200",
			wantDiscount: d("20"),
			wantFinal:    d("180"),
		},
		{
			name:         "value above subtotal capped at subtotal",
			value:        "50",
			subtotal:     "30",
			wantDiscount: d("30"),
			wantFinal:    d("0"),
		},
		{
			name:         "zero subtotal",
			value:        "10",
			subtotal:     "0",
			wantDiscount: d("0"),
			wantFinal:    d("0"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := usable(TypeFixedAmount, tt.value)

			got := fixedAmountStrategy{}.CalculateDiscount(c, orderOf(tt.subtotal))

			assert.True(t, tt.wantDiscount.Equal(got.Discount),
				"expected discount %s, got %s", tt.wantDiscount, got.Discount)
			assert.True(t, tt.wantFinal.Equal(got.FinalAmount),
				"expected final %s, got %s", tt.wantFinal, got.FinalAmount)
			assert.Equal(t, c.Code, got.AppliedCoupon.Code)
		})
	}
}

func TestPercentageStrategy_CalculateDiscount(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		maxDiscount  string
		subtotal     string
		wantDiscount decimal.Decimal
		wantFinal    decimal.Decimal
	}{
		{
			name:         "10 percent of 200",
			value:        "10",
			subtotal:     "200",
			wantDiscount: d("20"),
			wantFinal:    d("180"),
		},
		{
			name:         "raw discount clamped to max discount",
			value:        "20",
			maxDiscount:  "50",
			subtotal:     "1000",
			wantDiscount: d("50"),
			wantFinal:    d("950"),
		},
		{
			name:         "max discount above raw discount has no effect",
			value:        "10",
			maxDiscount:  "100",
			subtotal:     "200",
			wantDiscount: d("20"),
			wantFinal:    d("180"),
		},
		{
			name:         "100 percent empties the order",
			value:        "100",
			subtotal:     "75",
			wantDiscount: d("75"),
			wantFinal:    d("0"),
		},
		{
			name:     "fractional result rounds to 2 dp",
			value:    "33.33",
			subtotal: "10.01",
			// 10.01 * 33.33 / 100 = 3.336333 -> 3.34
			wantDiscount: d("3.34"),
			wantFinal:    d("6.67"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := usable(TypePercentage, tt.value)
			if tt.maxDiscount != "" {
				c.MaxDiscount = d(tt.maxDiscount)
			}

			got := percentageStrategy{}.CalculateDiscount(c, orderOf(tt.subtotal))

			assert.True(t, tt.wantDiscount.Equal(got.Discount),
				"expected discount %s, got %s", tt.wantDiscount, got.Discount)
			assert.True(t, tt.wantFinal.Equal(got.FinalAmount),
				"expected final %s, got %s", tt.wantFinal, got.FinalAmount)
		})
	}
}

func TestFreeShippingStrategy_CalculateDiscount(t *testing.T) {
	c := usable(TypeFreeShipping, "0")
	octx := OrderContext{
		Subtotal:     d("500"),
		ShippingCost: d("15"),
		UserID:       "u-1",
	}

	got := freeShippingStrategy{}.CalculateDiscount(c, octx)

	// The waived shipping fee is reported as the discount, but the subtotal
	// passes through untouched: shipping is folded in by the caller.
	assert.True(t, d("15").Equal(got.Discount), "expected discount 15, got %s", got.Discount)
	assert.True(t, d("500").Equal(got.FinalAmount), "expected final 500, got %s", got.FinalAmount)
}

func TestStrategyFor(t *testing.T) {
	for _, typ := range []Type{TypeFixedAmount, TypePercentage, TypeFreeShipping} {
		strat, ok := strategyFor(typ)
		require.True(t, ok, "no strategy for %q", typ)
		require.NotNil(t, strat)
	}

	_, ok := strategyFor(Type("bogus"))
	assert.False(t, ok)
}
