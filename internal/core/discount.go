package core

import (
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// DiscountKind is the persisted tag of the Discount union.
type DiscountKind string

const (
	DiscountNone   DiscountKind = "NONE"
	DiscountPWD    DiscountKind = "PWD"
	DiscountSenior DiscountKind = "SENIOR"
	DiscountOther  DiscountKind = "OTHER"
	DiscountPromo  DiscountKind = "PROMO"
	DiscountCoupon DiscountKind = "COUPON"
)

var (
	statutoryCap      = decimal.NewFromInt(250)
	statutoryRate     = decimal.NewFromFloat(0.20)
	hundred           = decimal.NewFromInt(100)
	validDiscountCode = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)
)

// Discount is a closed union: NoDiscount, StatutoryDiscount, OtherDiscount,
// PromoDiscount or CouponDiscount. At most one is active on an order.
type Discount interface {
	Kind() DiscountKind
	// Label is stored as the order's discount type and drives Z report bucketing.
	Label() string
	isDiscount()
}

type NoDiscount struct{}

// StatutoryDiscount is the PWD / Senior Citizen discount. EntryIDs selects the
// eligible entry groups, one per eligible person; empty means the whole order is
// one eligible group.
type StatutoryDiscount struct {
	Senior   bool
	EntryIDs []string
}

// OtherDiscount is a manager-approved ad hoc reduction. Exactly one of Percent or
// Amount is set.
type OtherDiscount struct {
	Name    string
	Percent decimal.Decimal
	Amount  decimal.Decimal
}

// PromoDiscount is a percentage off the whole subtotal.
type PromoDiscount struct {
	Code    string
	Percent decimal.Decimal
}

// CouponDiscount is a fixed amount off, valid only when the order contains one of
// MenuIDs.
type CouponDiscount struct {
	Code    string
	Amount  decimal.Decimal
	MenuIDs []int64
}

func (NoDiscount) Kind() DiscountKind { return DiscountNone }
func (NoDiscount) Label() string      { return "" }
func (NoDiscount) isDiscount()        {}

func (d StatutoryDiscount) Kind() DiscountKind {
	if d.Senior {
		return DiscountSenior
	}
	return DiscountPWD
}
func (d StatutoryDiscount) Label() string { return string(d.Kind()) }
func (StatutoryDiscount) isDiscount()     {}

func (OtherDiscount) Kind() DiscountKind { return DiscountOther }
func (d OtherDiscount) Label() string    { return d.Name }
func (OtherDiscount) isDiscount()        {}

func (PromoDiscount) Kind() DiscountKind { return DiscountPromo }
func (PromoDiscount) Label() string      { return string(DiscountPromo) }
func (PromoDiscount) isDiscount()        {}

func (CouponDiscount) Kind() DiscountKind { return DiscountCoupon }
func (CouponDiscount) Label() string      { return string(DiscountCoupon) }
func (CouponDiscount) isDiscount()        {}

// IsStatutory reports whether d is a PWD or Senior discount.
func IsStatutory(d Discount) bool {
	_, ok := d.(StatutoryDiscount)
	return ok
}

// IsOtherDisc reports whether d is a manager-approved ad hoc discount.
func IsOtherDisc(d Discount) bool {
	_, ok := d.(OtherDiscount)
	return ok
}

// DiscountResult is the outcome of resolving a discount against an order's lines.
type DiscountResult struct {
	Amount decimal.Decimal
	// EligibleGross is the gross value of statutory-eligible groups (zero otherwise).
	EligibleGross decimal.Decimal
	// PerEntry holds the statutory discount granted to each eligible entry group.
	PerEntry map[string]decimal.Decimal
}

// ResolveDiscount computes the discount for the non-voided lines in items. It never
// reads previous results: removal or replacement always recomputes from scratch.
func ResolveDiscount(items []OrderItem, d Discount) (DiscountResult, error) {
	active := activeOnly(items)
	subtotal := sumSubtotals(active)
	res := DiscountResult{Amount: decimal.Zero, EligibleGross: decimal.Zero}

	switch v := d.(type) {
	case nil, NoDiscount:
		return res, nil
	case StatutoryDiscount:
		return resolveStatutory(active, v)
	case OtherDiscount:
		amt, err := resolveOther(subtotal, v)
		res.Amount = amt
		return res, err
	case PromoDiscount:
		res.Amount = resolvePromo(subtotal, v)
		return res, nil
	case CouponDiscount:
		amt, err := resolveCoupon(active, subtotal, v)
		res.Amount = amt
		return res, err
	default:
		return res, fmt.Errorf("unsupported discount %T", d)
	}
}

// StatutoryAmount applies the flat-cap rule to one eligible group: ₱250 once the
// group reaches ₱250, otherwise 20% of the group.
func StatutoryAmount(groupSubtotal decimal.Decimal) decimal.Decimal {
	if groupSubtotal.GreaterThanOrEqual(statutoryCap) {
		return statutoryCap
	}
	return groupSubtotal.Mul(statutoryRate).Round(2)
}

func resolveStatutory(active []OrderItem, d StatutoryDiscount) (DiscountResult, error) {
	res := DiscountResult{Amount: decimal.Zero, EligibleGross: decimal.Zero, PerEntry: map[string]decimal.Decimal{}}

	groups := GroupEntries(active)
	if len(d.EntryIDs) == 0 {
		whole := sumSubtotals(active)
		res.EligibleGross = whole
		res.Amount = StatutoryAmount(whole)
		if len(groups) > 0 {
			res.PerEntry[groups[0].EntryID] = res.Amount
		}
		return res, nil
	}

	byEntry := make(map[string]decimal.Decimal, len(groups))
	for _, g := range groups {
		byEntry[g.EntryID] = sumSubtotals(g.Items)
	}
	seen := map[string]bool{}
	for _, id := range d.EntryIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		gross, ok := byEntry[id]
		if !ok {
			// entry fully voided since the discount was applied
			continue
		}
		amt := StatutoryAmount(gross)
		res.PerEntry[id] = amt
		res.EligibleGross = res.EligibleGross.Add(gross)
		res.Amount = res.Amount.Add(amt)
	}
	return res, nil
}

func resolveOther(subtotal decimal.Decimal, d OtherDiscount) (decimal.Decimal, error) {
	if d.Percent.IsPositive() {
		if d.Percent.GreaterThan(hundred) {
			return decimal.Zero, fmt.Errorf("discount percent %s exceeds 100: %w", d.Percent, ErrInvalidAmount)
		}
		return percentOf(subtotal, d.Percent), nil
	}
	if !d.Amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return decimal.Min(d.Amount, subtotal).Round(2), nil
}

// resolvePromo clamps the catalog percent into [0, 100] so a misconfigured code
// can never push the total below zero.
func resolvePromo(subtotal decimal.Decimal, d PromoDiscount) decimal.Decimal {
	pct := decimal.Max(decimal.Zero, decimal.Min(d.Percent, hundred))
	return decimal.Min(percentOf(subtotal, pct), subtotal)
}

func resolveCoupon(active []OrderItem, subtotal decimal.Decimal, d CouponDiscount) (decimal.Decimal, error) {
	if !CouponEligible(active, d.MenuIDs) {
		return decimal.Zero, ErrCouponIneligible
	}
	return decimal.Min(d.Amount, subtotal).Round(2), nil
}

// CouponEligible reports whether any active menu line matches one of menuIDs.
func CouponEligible(items []OrderItem, menuIDs []int64) bool {
	for _, it := range items {
		if it.IsVoid || it.Kind != KindMenu {
			continue
		}
		for _, id := range menuIDs {
			if int64(it.CatalogID) == id {
				return true
			}
		}
	}
	return false
}

// ValidateCode rejects empty or non-alphanumeric promo and coupon codes.
func ValidateCode(code string) error {
	if !validDiscountCode.MatchString(code) {
		return fmt.Errorf("%q: %w", code, ErrMalformedCode)
	}
	return nil
}

// CodeDefinition is a promo or coupon as published by the catalog.
type CodeDefinition struct {
	ID                 int
	Code               string
	Kind               DiscountKind // DiscountPromo or DiscountCoupon
	Description        string
	PromoPercent       decimal.Decimal
	CouponAmount       decimal.Decimal
	CouponItemQuantity int
	MenuIDs            []int64
	ExpiresAt          *time.Time
	IsAvailable        bool
}

// Expired reports whether the code is past its expiry at now.
func (c CodeDefinition) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}

// Discount converts a definition into the matching union variant.
func (c CodeDefinition) Discount() Discount {
	if c.Kind == DiscountCoupon {
		return CouponDiscount{Code: c.Code, Amount: c.CouponAmount, MenuIDs: c.MenuIDs}
	}
	return PromoDiscount{Code: c.Code, Percent: c.PromoPercent}
}

func percentOf(base, percent decimal.Decimal) decimal.Decimal {
	return base.Mul(percent).Div(hundred).Round(2)
}

func activeOnly(items []OrderItem) []OrderItem {
	out := make([]OrderItem, 0, len(items))
	for _, it := range items {
		if !it.IsVoid {
			out = append(out, it)
		}
	}
	return out
}

func sumSubtotals(items []OrderItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Subtotal())
	}
	return sum
}
