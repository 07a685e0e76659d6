package service

import (
	"errors"
	"fmt"
)

// ErrAlreadyProcessed indicates an approve or reject was attempted on a
// record that already left the pending state. Terminal states are
// immutable; repeating an approval never deducts stock twice.
var ErrAlreadyProcessed = errors.New("record has already been processed")

// RequestNotFoundError indicates the outbound request id did not resolve.
type RequestNotFoundError struct {
	ID string
}

func (e *RequestNotFoundError) Error() string {
	return fmt.Sprintf("outbound request %q not found", e.ID)
}

// StockItemNotFoundError indicates no stock item matched the lookup.
// SearchedName carries the exact string attempted so operators can spot
// renames and typos.
type StockItemNotFoundError struct {
	SearchedName string
}

func (e *StockItemNotFoundError) Error() string {
	return fmt.Sprintf("item %q not found in stock; make sure the item name matches exactly", e.SearchedName)
}

// StockItemIDNotFoundError indicates a stock item id did not resolve.
type StockItemIDNotFoundError struct {
	ID string
}

func (e *StockItemIDNotFoundError) Error() string {
	return fmt.Sprintf("stock item %q not found", e.ID)
}

// InsufficientStockError indicates the requested deduction exceeds the
// current on-hand quantity. Carries both values for display. No mutation
// happened.
type InsufficientStockError struct {
	ItemName  string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: current stock %d, requested %d",
		e.ItemName, e.Available, e.Requested)
}
