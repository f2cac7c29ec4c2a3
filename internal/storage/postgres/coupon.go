package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oakmart/pricing-engine/internal/coupon"
)

const couponColumns = `id, code, name, description, coupon_type, value,
	min_amount, max_discount, usage_limit, used_count,
	start_date, end_date, is_active`

const (
	findCouponByCodeSQL = `SELECT ` + couponColumns + `
		FROM coupons WHERE UPPER(code) = UPPER($1)`

	listUsableByUserSQL = `SELECT ` + couponColumns + `
		FROM coupons c
		JOIN coupon_grants g ON g.coupon_id = c.id
		WHERE g.user_id = $1
		  AND g.redeemed_at IS NULL
		  AND c.is_active
		  AND now() BETWEEN c.start_date AND c.end_date
		  AND (c.usage_limit = 0 OR c.used_count < c.usage_limit)
		ORDER BY g.granted_at`

	redeemCouponSQL = `UPDATE coupons
		SET used_count = used_count + 1, updated_at = now()
		WHERE UPPER(code) = UPPER($1)
		  AND (usage_limit = 0 OR used_count < usage_limit)`

	couponExistsSQL = `SELECT EXISTS (SELECT 1 FROM coupons WHERE UPPER(code) = UPPER($1))`

	upsertCouponSQL = `INSERT INTO coupons (
			id, code, name, description, coupon_type, value,
			min_amount, max_discount, usage_limit, used_count,
			start_date, end_date, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (code) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			coupon_type = EXCLUDED.coupon_type,
			value = EXCLUDED.value,
			min_amount = EXCLUDED.min_amount,
			max_discount = EXCLUDED.max_discount,
			usage_limit = EXCLUDED.usage_limit,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			is_active = EXCLUDED.is_active,
			updated_at = now()`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its code, case-insensitively. Inactive and
// expired coupons are still returned: eligibility is the engine's call, not
// the storage layer's. Returns coupon.ErrNotFound when no row matches.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, findCouponByCodeSQL, code)
	if err != nil {
		return nil, errors.Wrapf(err, "find coupon by code %q", code)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, errors.Wrapf(err, "find coupon by code %q", code)
	}
	return &c, nil
}

// ListUsableByUser returns the coupons granted to the user that are still
// unredeemed, active, inside their validity window, and under their usage
// limit, in grant order. The engine re-validates each one at pricing time.
func (r *CouponRepository) ListUsableByUser(ctx context.Context, userID string) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listUsableByUserSQL, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "list usable coupons for user %q", userID)
	}

	coupons, err := pgx.CollectRows(rows, scanCoupon)
	if err != nil {
		return nil, errors.Wrapf(err, "list usable coupons for user %q", userID)
	}
	return coupons, nil
}

// Redeem increments the coupon's usage counter. The guard on usage_limit is
// part of the UPDATE so concurrent redemptions cannot overshoot the cap.
// Returns coupon.ErrUsageLimitReached when the coupon exists but is exhausted, and
// coupon.ErrNotFound when it does not exist.
func (r *CouponRepository) Redeem(ctx context.Context, code string) error {
	tag, err := r.pool.Exec(ctx, redeemCouponSQL, code)
	if err != nil {
		return errors.Wrapf(err, "redeem coupon %q", code)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, couponExistsSQL, code).Scan(&exists); err != nil {
		return errors.Wrapf(err, "redeem coupon %q", code)
	}
	if exists {
		return coupon.ErrUsageLimitReached
	}
	return coupon.ErrNotFound
}

// Upsert inserts or updates a coupon definition by code. The usage counter
// is left untouched on update.
func (r *CouponRepository) Upsert(ctx context.Context, c coupon.Coupon) error {
	_, err := r.pool.Exec(ctx, upsertCouponSQL,
		c.ID, c.Code, c.Name, c.Description, string(c.Type), c.Value,
		c.MinAmount, c.MaxDiscount, c.UsageLimit, c.UsedCount,
		c.StartDate, c.EndDate, c.IsActive,
	)
	if err != nil {
		return errors.Wrapf(err, "upsert coupon %q", c.Code)
	}
	return nil
}

// Grant issues a coupon to a user. Granting the same coupon twice is a no-op.
func (r *CouponRepository) Grant(ctx context.Context, userID, couponID string) error {
	const grantSQL = `INSERT INTO coupon_grants (user_id, coupon_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`

	if _, err := r.pool.Exec(ctx, grantSQL, userID, couponID); err != nil {
		return errors.Wrapf(err, "grant coupon %q to user %q", couponID, userID)
	}
	return nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c          coupon.Coupon
		couponType string
	)
	err := row.Scan(
		&c.ID, &c.Code, &c.Name, &c.Description, &couponType, &c.Value,
		&c.MinAmount, &c.MaxDiscount, &c.UsageLimit, &c.UsedCount,
		&c.StartDate, &c.EndDate, &c.IsActive,
	)
	c.Type = coupon.Type(couponType)
	return c, err
}
