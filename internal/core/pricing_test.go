package core_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos-core/internal/core"
)

func variant(id int, name, size, price string) core.MenuVariant {
	return core.MenuVariant{ID: id, Kind: core.KindDrink, Name: name, Size: size, Price: dec(price), IsAvailable: true}
}

func TestDeltaPrices(t *testing.T) {
	out := core.DeltaPrices([]core.MenuVariant{
		variant(1, "Iced Tea", "R", "50"),
		variant(2, "Iced Tea", "M", "60"),
		variant(3, "Iced Tea", "L", "70"),
		variant(4, "Shake", "M", "80"),
	})
	require.Len(t, out, 4)
	assertDec(t, "0", out[0].Price)
	assertDec(t, "10", out[1].Price)
	assertDec(t, "20", out[2].Price)
	assertDec(t, "80", out[3].Price, "no Regular size keeps the absolute price")
}

func TestDeltaPrices_Monotone(t *testing.T) {
	triples := [][3]string{{"0", "0", "0"}, {"35", "45", "55"}, {"19.75", "19.75", "40"}, {"100", "150.50", "210.25"}}
	for _, p := range triples {
		out := core.DeltaPrices([]core.MenuVariant{
			variant(1, "X", "R", p[0]), variant(2, "X", "M", p[1]), variant(3, "X", "L", p[2]),
		})
		assert.True(t, out[0].Price.IsZero())
		assert.False(t, out[1].Price.IsNegative())
		assert.True(t, out[2].Price.GreaterThanOrEqual(out[1].Price), "%v", p)
	}
}

func TestBundledPrice(t *testing.T) {
	variants := []core.MenuVariant{variant(1, "Fries", "R", "40"), variant(2, "Fries", "L", "65")}
	assertDec(t, "25", core.BundledPrice(variants[1], variants))
	assertDec(t, "0", core.BundledPrice(variants[0], variants))

	lone := variant(9, "Sundae", "", "55")
	assertDec(t, "55", core.BundledPrice(lone, []core.MenuVariant{lone}))
}

func TestGroupEntries(t *testing.T) {
	items := []core.OrderItem{
		line(1, "B", core.KindMenu, 2, "150", 1, nil, t0.Add(10*time.Second)),
		line(2, "A", core.KindMenu, 1, "200", 1, nil, t0),
		// child created before its own parent row still sorts after it
		line(3, "", core.KindDrink, 5, "10", 1, ptr(1), t0.Add(5*time.Second)),
		line(4, "A", core.KindAddOn, 7, "15", 1, ptr(2), t0.Add(20*time.Second)),
	}
	groups := core.GroupEntries(items)
	require.Len(t, groups, 2)

	assert.Equal(t, "A", groups[0].EntryID)
	assert.Equal(t, []int64{2, 4}, ids(groups[0].Items))
	assert.Equal(t, "B", groups[1].EntryID)
	assert.Equal(t, []int64{1, 3}, ids(groups[1].Items))
}

func TestGroupEntries_TieBreaksOnID(t *testing.T) {
	items := []core.OrderItem{
		line(8, "Z", core.KindMenu, 1, "1", 1, nil, t0),
		line(5, "Y", core.KindMenu, 1, "1", 1, nil, t0),
	}
	groups := core.GroupEntries(items)
	require.Len(t, groups, 2)
	assert.Equal(t, "Y", groups[0].EntryID)
}

func ids(items []core.OrderItem) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
