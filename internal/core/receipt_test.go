package core_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos-core/internal/core"
)

func TestFormatPeso(t *testing.T) {
	cases := map[string]string{
		"1234.5":  "₱1,234.50",
		"0":       "₱0.00",
		"999":     "₱999.00",
		"1000000": "₱1,000,000.00",
		"-12.3":   "-₱12.30",
	}
	for in, want := range cases {
		assert.Equal(t, want, core.FormatPeso(dec(in)), in)
	}
}

func TestDisplayPrice(t *testing.T) {
	cases := []struct {
		name string
		line core.ReceiptLine
		want string
	}{
		{"zero", core.ReceiptLine{CatalogID: 3, Quantity: 1, Price: dec("0")}, ""},
		{"other percent", core.ReceiptLine{Quantity: 1, Price: dec("10"), IsOtherDisc: true}, "10%"},
		{"fractional percent", core.ReceiptLine{Quantity: 1, Price: dec("12.5"), IsOtherDisc: true}, "12.5%"},
		{"stored percent", core.ReceiptLine{Quantity: 1, Price: dec("15.00"), IsOtherDisc: true}, "15%"},
		{"adjustment", core.ReceiptLine{Quantity: 1, Price: dec("-250")}, "-₱250.00"},
		{"first item", core.ReceiptLine{CatalogID: 1, Quantity: 2, Price: dec("120"), IsFirstItem: true}, "₱240.00"},
		{"upgrade", core.ReceiptLine{CatalogID: 2, Quantity: 1, Price: dec("20")}, "+₱20.00"},
		{"downgrade", core.ReceiptLine{CatalogID: 2, Quantity: 1, Price: dec("-5")}, "-₱5.00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, core.DisplayPrice(tc.line))
		})
	}
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Iced Tea (M) @10.00", core.DisplayName(core.ReceiptLine{Name: "Iced Tea", Size: "M", CatalogID: 2, Price: dec("10")}))
	assert.Equal(t, "Iced Tea (R)", core.DisplayName(core.ReceiptLine{Name: "Iced Tea", Size: "R", CatalogID: 2, Price: dec("0")}))
	assert.Equal(t, "PWD Discount", core.DisplayName(core.ReceiptLine{Name: "PWD Discount", Price: dec("-42")}))
}

func TestBuildReceiptGroups(t *testing.T) {
	o := &core.Order{Items: twoEntries(), Discount: core.StatutoryDiscount{EntryIDs: []string{"A"}}}
	o.Items[1].UnitPrice = dec("10")
	res, err := core.ResolveDiscount(o.Items, o.Discount)
	require.NoError(t, err)

	groups := core.BuildReceiptGroups(o, res)
	require.Len(t, groups, 2)

	a := groups[0].Lines
	require.Len(t, a, 3)
	assert.Equal(t, "₱200.00", a[0].DisplayPrice)
	assert.Equal(t, "+₱10.00", a[1].DisplayPrice)
	assert.Equal(t, "PWD Discount", a[2].DisplayName)
	assert.Equal(t, "-₱42.00", a[2].DisplayPrice)

	require.Len(t, groups[1].Lines, 1)
	assert.Equal(t, "₱150.00", groups[1].Lines[0].DisplayPrice)
}

func TestBuildReceiptGroups_OtherPercentLine(t *testing.T) {
	o := &core.Order{Items: twoEntries(), Discount: core.OtherDiscount{Name: "Employee", Percent: dec("10")}}
	res, err := core.ResolveDiscount(o.Items, o.Discount)
	require.NoError(t, err)

	groups := core.BuildReceiptGroups(o, res)
	require.Len(t, groups, 3)
	last := groups[2].Lines[0]
	assert.Equal(t, "Employee", last.DisplayName)
	assert.Equal(t, "10%", last.DisplayPrice)
}

func TestDraftGroups_BundleStatutoryAndVoid(t *testing.T) {
	items := twoEntries()
	items = append(items, line(4, "C", core.KindMenu, 3, "80", 1, nil, t0.Add(3*time.Second)))
	items[3].IsVoid = true
	items[1].UnitPrice = dec("10")
	o := &core.Order{Items: items, Discount: core.StatutoryDiscount{EntryIDs: []string{"A"}}}

	groups := core.DraftGroups(o)
	require.Len(t, groups, 2, "the voided entry is not shown")

	a := groups[0].Lines
	require.Len(t, a, 3)
	assert.Equal(t, "₱200.00", a[0].DisplayPrice)
	assert.Equal(t, "+₱10.00", a[1].DisplayPrice)
	assert.Equal(t, "PWD Discount", a[2].DisplayName)
	assert.Equal(t, "-₱42.00", a[2].DisplayPrice)
	assert.Equal(t, "B", groups[1].EntryID)
}

func TestDraftGroups_UnresolvableDiscountKeepsItems(t *testing.T) {
	o := &core.Order{Items: twoEntries(), Discount: core.CouponDiscount{Code: "GONE", Amount: dec("50"), MenuIDs: []int64{99}}}
	groups := core.DraftGroups(o)
	require.Len(t, groups, 2)
	for _, g := range groups {
		assert.NotEmpty(t, g.EntryID)
	}
}
