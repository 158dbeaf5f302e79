package core_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos-core/internal/core"
)

func postedOrder() *core.Order {
	inv := int64(7)
	fin := t0.Add(time.Minute)
	items := twoEntries()
	items[2].IsVoid = true
	return &core.Order{
		ID:            41,
		InvoiceNo:     &inv,
		Status:        core.OrderFinalized,
		Items:         items,
		Discount:      core.StatutoryDiscount{EntryIDs: []string{"A"}},
		DiscountType:  "PWD",
		EligibleNames: []string{"Ana Cruz", "Ben Reyes"},
		OscaIDs:       []string{"OSCA-001"},
		CashTendered:  dec("100"),
		AlternativePayments: []core.AlternativePayment{
			{SaleType: "GCASH", Reference: "GC-1", Amount: dec("30")},
			{SaleType: "MYSTERY", Reference: "M-1", Amount: dec("20")},
		},
		Totals: core.Totals{
			Subtotal:       dec("300"),
			DiscountAmount: dec("250"),
			TotalAmount:    dec("50"),
			VatExempt:      dec("50"),
			VatSales:       dec("0"),
			VatAmount:      dec("0"),
			DueAmount:      dec("50"),
		},
		FinalizedAt: &fin,
	}
}

var saleTypes = map[string]core.SaleType{
	"GCASH": {Name: "GCASH", Account: "E-Wallet Receivable", Type: "E-WALLET"},
}

func TestBuildJournalLines(t *testing.T) {
	lines := core.BuildJournalLines(postedOrder(), saleTypes)

	// 2 items, 1 PWD reference, cash, 2 alternative tenders, discount and 4 totals
	require.Len(t, lines, 11)

	byNo := map[int][]core.JournalLine{}
	for _, l := range lines {
		assert.Equal(t, int64(7), l.EntryNo)
		assert.Equal(t, core.JournalPosted, l.Status)
		assert.True(t, l.Credit.IsZero(), "posted lines never credit")
		byNo[l.EntryLineNo] = append(byNo[l.EntryLineNo], l)
	}

	assert.Len(t, byNo[core.LineItem], 2, "voided line is not posted")
	assert.Equal(t, "Menu", byNo[core.LineItem][0].Description)
	assert.Equal(t, "Drink", byNo[core.LineItem][1].Description)

	require.Len(t, byNo[core.LineStatutory], 1)
	assert.Equal(t, "OSCA-001", byNo[core.LineStatutory][0].Reference)
	assert.Equal(t, "Ana Cruz", byNo[core.LineStatutory][0].AccountName)
	assert.Empty(t, byNo[core.LineStatutory+1], "names beyond the OSCA ids are dropped")

	tenders := byNo[core.LineTender]
	require.Len(t, tenders, 3)
	assertDec(t, "100", tenders[0].Debit)
	assert.Equal(t, "E-Wallet Receivable", tenders[1].AccountName)
	assert.Equal(t, "GC-1", tenders[1].Reference)
	assert.Equal(t, "MYSTERY", tenders[2].AccountName, "unknown sale type falls back to its name")

	totals := byNo[core.LineTotals]
	require.Len(t, totals, 5)
	assert.Equal(t, "PWD", totals[0].AccountName)
	assertDec(t, "250", totals[0].Debit)
	assertDec(t, "50", totals[1].Debit)
	assertDec(t, "50", totals[3].Vatable)
	assertDec(t, "50", totals[4].SubTotal)
}

func TestBuildJournalLines_ReturnedPostsCredits(t *testing.T) {
	o := postedOrder()
	o.Status = core.OrderReturned

	for _, l := range core.BuildJournalLines(o, saleTypes) {
		assert.Equal(t, core.JournalReturned, l.Status)
		assert.True(t, l.Debit.IsZero(), "line %d %s", l.EntryLineNo, l.EntryName)
	}
}

func TestBuildJournalLines_NoInvoice(t *testing.T) {
	o := postedOrder()
	o.InvoiceNo = nil
	assert.Nil(t, core.BuildJournalLines(o, saleTypes))
}

func TestBuildJournalLines_NoDiscountSkipsLine(t *testing.T) {
	o := postedOrder()
	o.Discount = core.NoDiscount{}
	o.DiscountType = ""
	o.Totals.DiscountAmount = dec("0")
	o.CashTendered = dec("0")

	for _, l := range core.BuildJournalLines(o, saleTypes) {
		assert.NotEqual(t, "Discount Amount", l.EntryName)
		assert.NotEqual(t, core.LineStatutory, l.EntryLineNo)
		assert.NotEqual(t, "Cash Tendered", l.EntryName)
	}
}
