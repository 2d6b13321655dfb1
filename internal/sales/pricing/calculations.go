// Package pricing resolves unit prices and order totals. Every function is
// pure so drafts and rendered invoices reproduce the same numbers.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/bayala/bayala-stock/internal/catalog"
	"github.com/bayala/bayala-stock/internal/sales/lineitems"
)

var taxRate = decimal.RequireFromString("0.16")

// TaxRate returns the fixed IVA rate applied to every subtotal.
func TaxRate() decimal.Decimal {
	return taxRate
}

// Catalog resolves product ids to products.
type Catalog interface {
	Product(id int64) (catalog.Product, bool)
}

// PricedLine is a line item with its derived prices.
type PricedLine struct {
	Item      lineitems.LineItem
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
	// PriceMissing is set when the product lacks a price for the line's type.
	PriceMissing bool
}

// Totals are the derived order amounts.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// ProductPrice returns the price of p for t, or zero and false when absent.
func ProductPrice(p catalog.Product, t lineitems.Type) (decimal.Decimal, bool) {
	var price decimal.NullDecimal
	switch t {
	case lineitems.TypeSale:
		price = p.SalePrice
	case lineitems.TypeRental:
		price = p.RentalPrice
	}
	if !price.Valid {
		return decimal.Zero, false
	}
	return price.Decimal, true
}

// UnitPrice resolves the unit price of item. Unresolved products and
// missing prices yield zero, never an error.
func UnitPrice(item lineitems.LineItem, c Catalog) decimal.Decimal {
	price, _ := resolve(item, c)
	return price
}

// Line prices a single item.
func Line(item lineitems.LineItem, c Catalog) PricedLine {
	price, ok := resolve(item, c)
	return PricedLine{
		Item:         item,
		UnitPrice:    price,
		LineTotal:    price.Mul(decimal.NewFromInt(int64(item.Quantity))),
		PriceMissing: item.Slot.IsResolved() && !ok,
	}
}

// Lines prices every item in order.
func Lines(items []lineitems.LineItem, c Catalog) []PricedLine {
	out := make([]PricedLine, len(items))
	for i, item := range items {
		out[i] = Line(item, c)
	}
	return out
}

// ComputeTotals derives subtotal, tax and total for items.
func ComputeTotals(items []lineitems.LineItem, c Catalog) Totals {
	return Sum(Lines(items, c))
}

// Sum derives subtotal, tax and total from already priced lines.
func Sum(lines []PricedLine) Totals {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.LineTotal)
	}
	return FromSubtotal(subtotal)
}

// FromSubtotal applies the IVA rate to subtotal.
func FromSubtotal(subtotal decimal.Decimal) Totals {
	tax := subtotal.Mul(taxRate)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}

func resolve(item lineitems.LineItem, c Catalog) (decimal.Decimal, bool) {
	id, ok := item.Slot.ProductID()
	if !ok || c == nil {
		return decimal.Zero, false
	}
	product, ok := c.Product(id)
	if !ok {
		return decimal.Zero, false
	}
	return ProductPrice(product, item.Type)
}
