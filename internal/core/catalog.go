package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Catalog is the read contract of the catalog service: prices by id and size,
// promo/coupon definitions by code, and the sale types alternative tenders map to.
// Catalog CRUD lives outside this module.
type Catalog interface {
	// GetItem returns an available catalog item. Missing or unavailable items fail
	// with ErrItemUnavailable.
	GetItem(ctx context.Context, kind ItemKind, id int) (*MenuVariant, error)
	// Variants returns every size of the named item, ordered by price.
	Variants(ctx context.Context, kind ItemKind, name string) ([]MenuVariant, error)
	// ListItems returns available items of kind. Drinks and add-ons are delta priced
	// over their Regular size.
	ListItems(ctx context.Context, kind ItemKind) ([]MenuVariant, error)
	// GetCode returns a promo or coupon definition; unknown codes fail with ErrInvalidCode.
	GetCode(ctx context.Context, code string) (*CodeDefinition, error)
	SaleTypes(ctx context.Context) (map[string]SaleType, error)
}

type catalog struct {
	pool *pgxpool.Pool
}

// NewCatalog constructs a Catalog backed by the menus, coupon_promos and sale_types tables.
func NewCatalog(pool *pgxpool.Pool) Catalog {
	return &catalog{pool: pool}
}

func (c *catalog) GetItem(ctx context.Context, kind ItemKind, id int) (*MenuVariant, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown item kind %q: %w", kind, ErrItemUnavailable)
	}
	var v MenuVariant
	err := c.pool.QueryRow(ctx, `
		SELECT id, kind, name, size, price, is_available
		FROM menus
		WHERE id = $1 AND kind = $2
	`, id, kind).Scan(&v.ID, &v.Kind, &v.Name, &v.Size, &v.Price, &v.IsAvailable)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s %d: %w", kind, id, ErrItemUnavailable)
		}
		return nil, fmt.Errorf("failed to look up %s %d: %w", kind, id, err)
	}
	if !v.IsAvailable {
		return nil, fmt.Errorf("%s %q: %w", kind, v.Name, ErrItemUnavailable)
	}
	return &v, nil
}

func (c *catalog) Variants(ctx context.Context, kind ItemKind, name string) ([]MenuVariant, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT id, kind, name, size, price, is_available
		FROM menus
		WHERE kind = $1 AND name = $2
		ORDER BY price, id
	`, kind, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query variants of %q: %w", name, err)
	}
	return collectVariants(rows)
}

func (c *catalog) ListItems(ctx context.Context, kind ItemKind) ([]MenuVariant, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT id, kind, name, size, price, is_available
		FROM menus
		WHERE kind = $1 AND is_available = true
		ORDER BY name, price, id
	`, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s items: %w", kind, err)
	}
	items, err := collectVariants(rows)
	if err != nil {
		return nil, err
	}
	if kind == KindMenu {
		return items, nil
	}
	return DeltaPrices(items), nil
}

func collectVariants(rows pgx.Rows) ([]MenuVariant, error) {
	defer rows.Close()
	var out []MenuVariant
	for rows.Next() {
		var v MenuVariant
		if err := rows.Scan(&v.ID, &v.Kind, &v.Name, &v.Size, &v.Price, &v.IsAvailable); err != nil {
			return nil, fmt.Errorf("failed to scan menu item: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (c *catalog) GetCode(ctx context.Context, code string) (*CodeDefinition, error) {
	var d CodeDefinition
	err := c.pool.QueryRow(ctx, `
		SELECT cp.id, cp.code, cp.kind, cp.description, cp.promo_percent, cp.coupon_amount,
		       cp.coupon_item_quantity, cp.expires_at, cp.is_available,
		       COALESCE(array_agg(m.menu_id::bigint) FILTER (WHERE m.menu_id IS NOT NULL), '{}')
		FROM coupon_promos cp
		LEFT JOIN coupon_promo_menus m ON m.coupon_promo_id = cp.id
		WHERE upper(cp.code) = upper($1)
		GROUP BY cp.id
	`, strings.TrimSpace(code)).Scan(
		&d.ID, &d.Code, &d.Kind, &d.Description, &d.PromoPercent, &d.CouponAmount,
		&d.CouponItemQuantity, &d.ExpiresAt, &d.IsAvailable, &d.MenuIDs,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("code %q: %w", code, ErrInvalidCode)
		}
		return nil, fmt.Errorf("failed to look up code %q: %w", code, err)
	}
	return &d, nil
}

func (c *catalog) SaleTypes(ctx context.Context) (map[string]SaleType, error) {
	rows, err := c.pool.Query(ctx, "SELECT id, name, account, type FROM sale_types ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query sale types: %w", err)
	}
	defer rows.Close()

	out := map[string]SaleType{}
	for rows.Next() {
		var st SaleType
		if err := rows.Scan(&st.ID, &st.Name, &st.Account, &st.Type); err != nil {
			return nil, fmt.Errorf("failed to scan sale type: %w", err)
		}
		out[st.Name] = st
	}
	return out, rows.Err()
}
