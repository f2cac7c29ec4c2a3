//go:build integration

package integration

import (
	"net/http"
	"testing"
)

// Seeded by seed-db: WELCOME10 (10% off), SAVE20 ($20 off orders over $100),
// FREESHIP (free shipping), all granted to demo-user.

func TestQuote_SingleCoupon(t *testing.T) {
	resp := doPost(t, "/api/pricing/quote", quoteRequest{
		UserID:      demoUserID,
		Subtotal:    "200.00",
		CouponCodes: []string{"WELCOME10"},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	quote := decodeJSON[quoteResponse](t, resp)
	if quote.TotalDiscount != "20.00" {
		t.Errorf("totalDiscount: got %q, want %q", quote.TotalDiscount, "20.00")
	}
	if quote.FinalAmount != "180.00" {
		t.Errorf("finalAmount: got %q, want %q", quote.FinalAmount, "180.00")
	}
	if len(quote.AppliedCoupons) != 1 {
		t.Fatalf("appliedCoupons: got %d, want 1", len(quote.AppliedCoupons))
	}
	if quote.AppliedCoupons[0].Code != "WELCOME10" {
		t.Errorf("applied code: got %q", quote.AppliedCoupons[0].Code)
	}
}

func TestQuote_CompoundsSequentially(t *testing.T) {
	resp := doPost(t, "/api/pricing/quote", quoteRequest{
		UserID:      demoUserID,
		Subtotal:    "200.00",
		CouponCodes: []string{"WELCOME10", "SAVE20"},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	// 10% off 200 leaves 180; $20 off (min $100 met) leaves 160.
	quote := decodeJSON[quoteResponse](t, resp)
	if quote.TotalDiscount != "40.00" {
		t.Errorf("totalDiscount: got %q, want %q", quote.TotalDiscount, "40.00")
	}
	if quote.FinalAmount != "160.00" {
		t.Errorf("finalAmount: got %q, want %q", quote.FinalAmount, "160.00")
	}
}

func TestQuote_FreeShipping(t *testing.T) {
	resp := doPost(t, "/api/pricing/quote", quoteRequest{
		UserID:       demoUserID,
		Subtotal:     "50.00",
		ShippingCost: "9.99",
		CouponCodes:  []string{"FREESHIP"},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	quote := decodeJSON[quoteResponse](t, resp)
	if quote.ShippingCost != "0.00" {
		t.Errorf("shippingCost: got %q, want %q", quote.ShippingCost, "0.00")
	}
	if quote.TotalPayable != "50.00" {
		t.Errorf("totalPayable: got %q, want %q", quote.TotalPayable, "50.00")
	}
}

func TestQuote_IneligibleCouponReported(t *testing.T) {
	// SAVE20 needs a $100 subtotal; the quote still succeeds without it.
	resp := doPost(t, "/api/pricing/quote", quoteRequest{
		UserID:      demoUserID,
		Subtotal:    "50.00",
		CouponCodes: []string{"SAVE20"},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	quote := decodeJSON[quoteResponse](t, resp)
	if quote.FinalAmount != "50.00" {
		t.Errorf("finalAmount: got %q, want %q", quote.FinalAmount, "50.00")
	}
	if len(quote.Errors) != 1 {
		t.Fatalf("errors: got %v, want one entry", quote.Errors)
	}
}

func TestQuote_UnknownCoupon(t *testing.T) {
	resp := doPost(t, "/api/pricing/quote", quoteRequest{
		Subtotal:    "100.00",
		CouponCodes: []string{"NOSUCHCODE"},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	quote := decodeJSON[quoteResponse](t, resp)
	if len(quote.Errors) != 1 || quote.Errors[0] != "NOSUCHCODE: coupon not found" {
		t.Errorf("errors: got %v", quote.Errors)
	}
}

func TestQuote_BadRequest(t *testing.T) {
	resp := doPost(t, "/api/pricing/quote", quoteRequest{Subtotal: "-5"})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	body := decodeJSON[errorResponse](t, resp)
	if body.Code != http.StatusBadRequest {
		t.Errorf("code: got %d, want 400", body.Code)
	}
}

func TestValidateCoupon(t *testing.T) {
	resp := doPost(t, "/api/coupons/validate", validateRequest{
		Code:     "WELCOME10",
		Subtotal: "100.00",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeJSON[validateResponse](t, resp)
	if !body.Valid {
		t.Errorf("expected valid, got reason %q", body.Reason)
	}
}

func TestValidateCoupon_BelowMinimum(t *testing.T) {
	resp := doPost(t, "/api/coupons/validate", validateRequest{
		Code:     "SAVE20",
		Subtotal: "50.00",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeJSON[validateResponse](t, resp)
	if body.Valid {
		t.Error("expected invalid")
	}
	if body.Reason == "" {
		t.Error("expected a reason")
	}
}

func TestValidateCoupon_NotFound(t *testing.T) {
	resp := doPost(t, "/api/coupons/validate", validateRequest{
		Code:     "NOSUCHCODE",
		Subtotal: "100.00",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestGetCoupon(t *testing.T) {
	resp := doGet(t, "/api/coupons/SAVE20")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	c := decodeJSON[couponResponse](t, resp)
	if c.Code != "SAVE20" {
		t.Errorf("code: got %q", c.Code)
	}
	if c.Type != "fixed_amount" {
		t.Errorf("type: got %q", c.Type)
	}
	if c.MinAmount != "100.00" {
		t.Errorf("minAmount: got %q", c.MinAmount)
	}
}

func TestListUserCoupons(t *testing.T) {
	resp := doGet(t, "/api/users/"+demoUserID+"/coupons")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeJSON[userCouponsResponse](t, resp)
	if len(body.Coupons) != 3 {
		t.Errorf("coupons: got %d, want 3", len(body.Coupons))
	}
}

func TestRedeemCoupon(t *testing.T) {
	before := func() int {
		resp := doGet(t, "/api/coupons/FREESHIP")
		defer resp.Body.Close()
		return decodeJSON[couponResponse](t, resp).UsedCount
	}()

	resp := doPost(t, "/api/coupons/FREESHIP/redeem", struct{}{})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	resp = doGet(t, "/api/coupons/FREESHIP")
	defer resp.Body.Close()
	after := decodeJSON[couponResponse](t, resp).UsedCount
	if after != before+1 {
		t.Errorf("usedCount: got %d, want %d", after, before+1)
	}
}

func TestRedeemCoupon_NotFound(t *testing.T) {
	resp := doPost(t, "/api/coupons/NOSUCHCODE/redeem", struct{}{})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestAPIKey_Required(t *testing.T) {
	resp := doPostWithKey(t, "/api/pricing/quote", quoteRequest{Subtotal: "100.00"}, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestAPIKey_Invalid(t *testing.T) {
	resp := doPostWithKey(t, "/api/pricing/quote", quoteRequest{Subtotal: "100.00"}, "wrong-key")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}
