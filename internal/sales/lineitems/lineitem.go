// Package lineitems models the mutable line items of an order or quotation draft.
package lineitems

import (
	"errors"
	"fmt"
	"strings"
)

// Type selects which of a product's two prices applies to a line.
type Type string

const (
	TypeSale   Type = "sale"
	TypeRental Type = "rental"
)

// ErrUnknownType is returned by ParseType for unsupported values.
var ErrUnknownType = errors.New("unknown transaction type")

// ParseType accepts the wire values and the legacy backend spellings.
func ParseType(raw string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sale", "venda":
		return TypeSale, nil
	case "rental", "aluguer":
		return TypeRental, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownType, raw)
	}
}

// Valid reports whether t is one of the known types.
func (t Type) Valid() bool {
	return t == TypeSale || t == TypeRental
}

// Slot is the product reference of a line: either a free-text search or a
// resolved product id, never both.
type Slot struct {
	resolved  bool
	productID int64
	search    string
}

// Unresolved returns a slot that carries only search text.
func Unresolved(search string) Slot {
	return Slot{search: search}
}

// Resolved returns a slot pointing at a product id.
func Resolved(productID int64) Slot {
	return Slot{resolved: true, productID: productID}
}

// ProductID returns the product id when the slot is resolved.
func (s Slot) ProductID() (int64, bool) {
	if !s.resolved {
		return 0, false
	}
	return s.productID, true
}

// IsResolved reports whether a product has been selected.
func (s Slot) IsResolved() bool {
	return s.resolved
}

// SearchText returns the free text of an unresolved slot. It is empty once
// the slot is resolved.
func (s Slot) SearchText() string {
	if s.resolved {
		return ""
	}
	return s.search
}

// LineItem is one product + quantity + type within a draft.
type LineItem struct {
	Slot     Slot
	Quantity int
	Type     Type
}

// New returns the line appended by Set.Add: no product, quantity 1, sale.
func New() LineItem {
	return LineItem{Slot: Unresolved(""), Quantity: 1, Type: TypeSale}
}

// Submittable reports whether a product id and quantity pair may be sent to
// the order service. Remote product ids start at 1.
func Submittable(productID int64, quantity int) bool {
	return productID > 0 && quantity >= 1
}

// Complete reports whether the line may be submitted.
func (li LineItem) Complete() bool {
	id, ok := li.Slot.ProductID()
	return ok && Submittable(id, li.Quantity)
}
