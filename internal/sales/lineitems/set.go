package lineitems

import (
	"errors"
	"fmt"
)

// ErrIndexOutOfRange is returned when an operation names a line that does not exist.
var ErrIndexOutOfRange = errors.New("line index out of range")

// Set is an ordered collection of line items. It is not safe for concurrent
// use; the owning draft serialises access.
type Set struct {
	items []LineItem
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{}
}

// FromItems builds a set holding a copy of items.
func FromItems(items []LineItem) *Set {
	return &Set{items: append([]LineItem(nil), items...)}
}

// Len returns the number of lines.
func (s *Set) Len() int {
	return len(s.items)
}

// Items returns a copy of the lines in order.
func (s *Set) Items() []LineItem {
	return append([]LineItem(nil), s.items...)
}

// Item returns the line at index.
func (s *Set) Item(index int) (LineItem, error) {
	if err := s.check(index); err != nil {
		return LineItem{}, err
	}
	return s.items[index], nil
}

// Add appends a new incomplete line and returns its index.
func (s *Set) Add() int {
	s.items = append(s.items, New())
	return len(s.items) - 1
}

// Remove deletes the line at index.
func (s *Set) Remove(index int) error {
	if err := s.check(index); err != nil {
		return err
	}
	s.items = append(s.items[:index], s.items[index+1:]...)
	return nil
}

// SetProduct resolves the line to productID, discarding any search text.
func (s *Set) SetProduct(index int, productID int64) error {
	if err := s.check(index); err != nil {
		return err
	}
	s.items[index].Slot = Resolved(productID)
	return nil
}

// SetSearch puts the line back into searching state with text, clearing
// the current product.
func (s *Set) SetSearch(index int, text string) error {
	if err := s.check(index); err != nil {
		return err
	}
	s.items[index].Slot = Unresolved(text)
	return nil
}

// SetQuantity stores n as is. Values below 1 are rejected at validation
// time, not clamped here.
func (s *Set) SetQuantity(index, n int) error {
	if err := s.check(index); err != nil {
		return err
	}
	s.items[index].Quantity = n
	return nil
}

// SetType switches the line between sale and rental.
func (s *Set) SetType(index int, t Type) error {
	if err := s.check(index); err != nil {
		return err
	}
	if !t.Valid() {
		return fmt.Errorf("line %d: %w: %q", index+1, ErrUnknownType, t)
	}
	s.items[index].Type = t
	return nil
}

// FirstIncomplete returns the index of the first line that blocks submission.
func (s *Set) FirstIncomplete() (int, bool) {
	for i, item := range s.items {
		if !item.Complete() {
			return i, true
		}
	}
	return 0, false
}

// Complete reports whether the set has at least one line and every line is complete.
func (s *Set) Complete() bool {
	if len(s.items) == 0 {
		return false
	}
	_, incomplete := s.FirstIncomplete()
	return !incomplete
}

func (s *Set) check(index int) error {
	if index < 0 || index >= len(s.items) {
		return fmt.Errorf("%w: %d (lines: %d)", ErrIndexOutOfRange, index, len(s.items))
	}
	return nil
}
