// Package stock models the per-product quantity on hand.
package stock

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-faster/errors"
)

// Level is the quantity on hand for one product.
type Level struct {
	ProductID string
	Quantity  int
}

// Movement is a signed change to one product's quantity. Deliveries produce
// negative deltas, receipts positive ones.
type Movement struct {
	ProductID string
	Delta     int
}

// MissingError indicates a movement targets a product that has no stock row.
type MissingError struct {
	ProductID string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("no stock row for product %s", e.ProductID)
}

// Increment adds n units to the level. n must be positive.
func (l *Level) Increment(n int) error {
	if n <= 0 {
		return errors.Errorf("increment by %d: amount must be positive", n)
	}
	l.Quantity += n
	return nil
}

// Decrement removes n units from the level. n must be positive. The result
// may drop below zero: deliveries are not rejected on insufficient stock.
func (l *Level) Decrement(n int) error {
	if n <= 0 {
		return errors.Errorf("decrement by %d: amount must be positive", n)
	}
	l.Quantity -= n
	return nil
}

// Apply returns the levels after applying movements. Every movement must
// target one of the given levels. The input slice is not modified. The
// result is ordered by product id.
func Apply(levels []Level, movements []Movement) ([]Level, error) {
	byID := make(map[string]*Level, len(levels))
	out := make([]Level, len(levels))
	copy(out, levels)
	for i := range out {
		byID[out[i].ProductID] = &out[i]
	}

	for _, m := range movements {
		l, ok := byID[m.ProductID]
		if !ok {
			return nil, &MissingError{ProductID: m.ProductID}
		}

		var err error
		switch {
		case m.Delta > 0:
			err = l.Increment(m.Delta)
		case m.Delta < 0:
			err = l.Decrement(-m.Delta)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "product %s", m.ProductID)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

// ProductIDs returns the distinct product ids touched by movements, sorted.
// Locking rows in this order keeps concurrent finalizations deadlock free.
func ProductIDs(movements []Movement) []string {
	seen := make(map[string]struct{}, len(movements))
	ids := make([]string, 0, len(movements))
	for _, m := range movements {
		if _, ok := seen[m.ProductID]; ok {
			continue
		}
		seen[m.ProductID] = struct{}{}
		ids = append(ids, m.ProductID)
	}
	sort.Strings(ids)
	return ids
}

// Ledger reads and writes stock levels. Implementations bound to a
// transaction must hold row locks from GetForUpdate until commit.
type Ledger interface {
	// GetForUpdate returns and locks the levels of the given products.
	// Products without a stock row are omitted from the result.
	GetForUpdate(ctx context.Context, productIDs []string) ([]Level, error)
	Update(ctx context.Context, levels []Level) error
}

// Reader returns the current level of a single product.
type Reader interface {
	GetByProductID(ctx context.Context, productID string) (*Level, error)
}
