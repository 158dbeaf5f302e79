package core_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos-core/internal/core"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	if !dec(want).Equal(got) {
		assert.Fail(t, fmt.Sprintf("want %s, got %s", want, got), msgAndArgs...)
	}
}

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func line(id int64, entry string, kind core.ItemKind, catalogID int, price string, qty int, parent *int64, at time.Time) core.OrderItem {
	return core.OrderItem{
		ID:        id,
		Kind:      kind,
		CatalogID: catalogID,
		Name:      "item",
		Quantity:  qty,
		UnitPrice: dec(price),
		EntryID:   entry,
		ParentID:  parent,
		CreatedAt: at,
	}
}

func ptr(v int64) *int64 { return &v }

// twoEntries is a ₱300 meal (burger plus drink upgrade) in entry A and a ₱150
// sandwich in entry B.
func twoEntries() []core.OrderItem {
	return []core.OrderItem{
		line(1, "A", core.KindMenu, 1, "200", 1, nil, t0),
		line(2, "", core.KindDrink, 5, "100", 1, ptr(1), t0.Add(time.Second)),
		line(3, "B", core.KindMenu, 2, "150", 1, nil, t0.Add(2*time.Second)),
	}
}

func TestStatutoryAmount(t *testing.T) {
	cases := map[string]string{
		"1000":   "250",
		"250":    "250",
		"100":    "20.00",
		"249.99": "50.00",
		"0":      "0",
	}
	for gross, want := range cases {
		assertDec(t, want, core.StatutoryAmount(dec(gross)), "gross %s", gross)
	}
}

func TestResolveDiscount_StatutoryPartial(t *testing.T) {
	res, err := core.ResolveDiscount(twoEntries(), core.StatutoryDiscount{EntryIDs: []string{"A"}})
	require.NoError(t, err)
	assertDec(t, "250", res.Amount)
	assertDec(t, "300", res.EligibleGross)
	assertDec(t, "250", res.PerEntry["A"])
	_, ok := res.PerEntry["B"]
	assert.False(t, ok)
}

func TestResolveDiscount_StatutoryPerPerson(t *testing.T) {
	res, err := core.ResolveDiscount(twoEntries(), core.StatutoryDiscount{Senior: true, EntryIDs: []string{"A", "B", "A"}})
	require.NoError(t, err)
	// 250 for the ₱300 meal plus 20% of ₱150; the repeated id counts once
	assertDec(t, "280", res.Amount)
	assertDec(t, "450", res.EligibleGross)
}

func TestResolveDiscount_StatutoryWholeOrder(t *testing.T) {
	res, err := core.ResolveDiscount(twoEntries(), core.StatutoryDiscount{})
	require.NoError(t, err)
	assertDec(t, "250", res.Amount)
	assertDec(t, "450", res.EligibleGross)
}

func TestResolveDiscount_VoidedEntryDropsOut(t *testing.T) {
	items := twoEntries()
	items[2].IsVoid = true
	res, err := core.ResolveDiscount(items, core.StatutoryDiscount{EntryIDs: []string{"B"}})
	require.NoError(t, err)
	assert.True(t, res.Amount.IsZero())
	assert.True(t, res.EligibleGross.IsZero())
}

func TestResolveDiscount_Other(t *testing.T) {
	items := twoEntries()

	res, err := core.ResolveDiscount(items, core.OtherDiscount{Name: "Employee", Percent: dec("10")})
	require.NoError(t, err)
	assertDec(t, "45.00", res.Amount)

	res, err = core.ResolveDiscount(items, core.OtherDiscount{Name: "Goodwill", Amount: dec("1000")})
	require.NoError(t, err)
	assertDec(t, "450", res.Amount, "fixed amount is capped at the subtotal")

	_, err = core.ResolveDiscount(items, core.OtherDiscount{Name: "Too much", Percent: dec("150")})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	_, err = core.ResolveDiscount(items, core.OtherDiscount{Name: "Nothing"})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
}

func TestResolveDiscount_Promo(t *testing.T) {
	res, err := core.ResolveDiscount(twoEntries(), core.PromoDiscount{Code: "SUMMER15", Percent: dec("15")})
	require.NoError(t, err)
	assertDec(t, "67.50", res.Amount)
}

func TestResolveDiscount_Coupon(t *testing.T) {
	items := twoEntries()

	_, err := core.ResolveDiscount(items, core.CouponDiscount{Code: "FREE_CLUB", Amount: dec("50"), MenuIDs: []int64{9}})
	assert.ErrorIs(t, err, core.ErrCouponIneligible)

	// a drink with a matching catalog id does not make the order eligible
	_, err = core.ResolveDiscount(items, core.CouponDiscount{Code: "X", Amount: dec("50"), MenuIDs: []int64{5}})
	assert.ErrorIs(t, err, core.ErrCouponIneligible)

	res, err := core.ResolveDiscount(items, core.CouponDiscount{Code: "BKS_COUPON", Amount: dec("50"), MenuIDs: []int64{2}})
	require.NoError(t, err)
	assertDec(t, "50", res.Amount)

	res, err = core.ResolveDiscount(items, core.CouponDiscount{Code: "BIG", Amount: dec("900"), MenuIDs: []int64{2}})
	require.NoError(t, err)
	assertDec(t, "450", res.Amount)
}

func TestResolveDiscount_None(t *testing.T) {
	for _, d := range []core.Discount{nil, core.NoDiscount{}} {
		res, err := core.ResolveDiscount(twoEntries(), d)
		require.NoError(t, err)
		assert.True(t, res.Amount.IsZero())
	}
}

func TestValidateCode(t *testing.T) {
	for _, ok := range []string{"SUMMER15", "free_cheese", "BKS-1"} {
		assert.NoError(t, core.ValidateCode(ok), ok)
	}
	for _, bad := range []string{"", "has space", "semi;colon", "ÜBER", "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456"} {
		err := core.ValidateCode(bad)
		assert.True(t, errors.Is(err, core.ErrMalformedCode), "%q should be malformed", bad)
	}
}

func TestCodeDefinition(t *testing.T) {
	expiry := t0.Add(24 * time.Hour)
	def := core.CodeDefinition{Code: "WINTER10", Kind: core.DiscountPromo, PromoPercent: dec("10"), ExpiresAt: &expiry}

	assert.False(t, def.Expired(t0))
	assert.True(t, def.Expired(expiry))
	assert.False(t, core.CodeDefinition{}.Expired(t0), "no expiry never expires")

	promo, ok := def.Discount().(core.PromoDiscount)
	require.True(t, ok)
	assertDec(t, "10", promo.Percent)

	coupon := core.CodeDefinition{Code: "FREE_CHEESE", Kind: core.DiscountCoupon, CouponAmount: dec("25"), MenuIDs: []int64{1}}
	c, ok := coupon.Discount().(core.CouponDiscount)
	require.True(t, ok)
	assert.Equal(t, []int64{1}, c.MenuIDs)
	assert.Equal(t, "COUPON", c.Label())
}

func TestDiscountLabels(t *testing.T) {
	assert.Equal(t, core.DiscountSenior, core.StatutoryDiscount{Senior: true}.Kind())
	assert.Equal(t, "PWD", core.StatutoryDiscount{}.Label())
	assert.Equal(t, "Employee", core.OtherDiscount{Name: "Employee"}.Label())
	assert.True(t, core.IsStatutory(core.StatutoryDiscount{}))
	assert.False(t, core.IsStatutory(core.PromoDiscount{}))
	assert.True(t, core.IsOtherDisc(core.OtherDiscount{}))
}
