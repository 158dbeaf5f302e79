package core

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// MenuVariant is one size of a catalog item.
type MenuVariant struct {
	ID          int             `json:"id"`
	Kind        ItemKind        `json:"kind"`
	Name        string          `json:"name"`
	Size        string          `json:"size,omitempty"`
	Price       decimal.Decimal `json:"price"`
	IsAvailable bool            `json:"is_available"`
}

// DeltaPrices rewrites drink and add-on prices as upgrades over the Regular size of
// the same item. Regular becomes zero and every other size shows
// price(size) − price(Regular). Items without a Regular size keep their prices.
func DeltaPrices(variants []MenuVariant) []MenuVariant {
	regular := map[string]decimal.Decimal{}
	for _, v := range variants {
		if strings.EqualFold(v.Size, RegularSize) {
			regular[v.Name] = v.Price
		}
	}

	out := make([]MenuVariant, len(variants))
	for i, v := range variants {
		out[i] = v
		if base, ok := regular[v.Name]; ok {
			out[i].Price = v.Price.Sub(base)
		}
	}
	return out
}

// BundledPrice returns the price of a bundled child line: the delta of variant over
// the Regular size among variants, or its absolute price when no Regular exists.
func BundledPrice(variant MenuVariant, variants []MenuVariant) decimal.Decimal {
	for _, v := range DeltaPrices(variants) {
		if v.ID == variant.ID {
			return v.Price
		}
	}
	return variant.Price
}

// EntryGroup is a parent line followed by its bundled children.
type EntryGroup struct {
	EntryID string
	Items   []OrderItem
}

// GroupEntries groups lines by entry. The key is the line's own EntryID, else the
// EntryID of its parent. Groups are ordered by their earliest line; inside a group
// the parent precedes its children.
func GroupEntries(items []OrderItem) []EntryGroup {
	byID := make(map[int64]OrderItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	keyOf := func(it OrderItem) string {
		if it.EntryID != "" {
			return it.EntryID
		}
		if it.ParentID != nil {
			if p, ok := byID[*it.ParentID]; ok {
				return p.EntryID
			}
		}
		return ""
	}

	index := map[string]int{}
	var groups []EntryGroup
	for _, it := range items {
		k := keyOf(it)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, EntryGroup{EntryID: k})
		}
		groups[i].Items = append(groups[i].Items, it)
	}

	for gi := range groups {
		g := groups[gi].Items
		sort.SliceStable(g, func(a, b int) bool {
			pa, pb := g[a].ParentID == nil, g[b].ParentID == nil
			if pa != pb {
				return pa
			}
			return lineBefore(g[a], g[b])
		})
	}
	sort.SliceStable(groups, func(a, b int) bool {
		return lineBefore(earliest(groups[a].Items), earliest(groups[b].Items))
	})
	return groups
}

func earliest(items []OrderItem) OrderItem {
	first := items[0]
	for _, it := range items[1:] {
		if lineBefore(it, first) {
			first = it
		}
	}
	return first
}

func lineBefore(a, b OrderItem) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
