package pricing

import (
	"github.com/shopspring/decimal"
)

// Unit is what a line item's unit cost is charged per.
type Unit string

const (
	UnitTeam     Unit = "team"
	UnitStudent  Unit = "student"
	UnitAttendee Unit = "attendee"
	UnitItem     Unit = "item"
)

var (
	gstFactor = decimal.RequireFromString("1.1")
	gstRate   = decimal.RequireFromString("0.1")
)

// LineItem is one itemised row of an invoice. Amounts are kept unrounded;
// rounding happens at the presentation boundary only.
type LineItem struct {
	Name        string
	Description string
	Quantity    int32
	Unit        Unit

	// UnitCost is the configured per-unit price before any GST adjustment.
	UnitCost        decimal.Decimal
	UnitCostExclGST decimal.Decimal

	GST          decimal.Decimal
	TotalExclGST decimal.Decimal
	TotalInclGST decimal.Decimal
}

// invoiceItem computes the GST split for one line. The inclusive and
// exclusive paths are deliberately asymmetric: inclusive pricing works
// backward from the GST-inclusive total, exclusive pricing works forward from
// the exclusive total. Collapsing the two into one formula introduces
// rounding drift between the configurations.
func invoiceItem(name, description string, quantity int32, unitCost decimal.Decimal, unit Unit, includesGST bool) LineItem {
	qty := decimal.NewFromInt32(quantity)
	item := LineItem{
		Name:        name,
		Description: description,
		Quantity:    quantity,
		Unit:        unit,
		UnitCost:    unitCost,
	}
	if includesGST {
		item.TotalInclGST = qty.Mul(unitCost)
		item.TotalExclGST = item.TotalInclGST.Div(gstFactor)
		item.GST = item.TotalInclGST.Sub(item.TotalExclGST)
		item.UnitCostExclGST = unitCost.Div(gstFactor)
	} else {
		item.TotalExclGST = qty.Mul(unitCost)
		item.GST = item.TotalExclGST.Mul(gstRate)
		item.TotalInclGST = item.TotalExclGST.Mul(gstFactor)
		item.UnitCostExclGST = unitCost
	}
	return item
}

// Totals aggregates a set of line items.
type Totals struct {
	ExclGST  decimal.Decimal
	GST      decimal.Decimal
	InclGST  decimal.Decimal
	Quantity int32
}

// Sum adds up every line item without rounding.
func Sum(items []LineItem) Totals {
	t := Totals{
		ExclGST: decimal.Zero,
		GST:     decimal.Zero,
		InclGST: decimal.Zero,
	}
	for _, item := range items {
		t.ExclGST = t.ExclGST.Add(item.TotalExclGST)
		t.GST = t.GST.Add(item.GST)
		t.InclGST = t.InclGST.Add(item.TotalInclGST)
		t.Quantity += item.Quantity
	}
	return t
}
