// Package document holds the pieces orders and purchases share: line items,
// the error taxonomy and the transaction contract.
package document

import (
	"context"
	"math"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/stockroom/internal/domain/catalog"
)

// Line is one requested (product, quantity) pair. A request is an ordered
// list of lines with distinct product ids.
type Line struct {
	ProductID string
	Quantity  int
}

// LineItem is a priced snapshot of a product taken when the owning document
// was created or last updated. Later catalog changes do not affect it.
type LineItem struct {
	ProductID   string
	ProductName string
	UnitLabel   string
	Quantity    int
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal
}

// PriceFunc selects the price snapshotted into a line item.
type PriceFunc func(p catalog.Product) decimal.Decimal

// SalePrice prices order items.
func SalePrice(p catalog.Product) decimal.Decimal { return p.SalePrice }

// PurchasePrice prices purchase items.
func PurchasePrice(p catalog.Product) decimal.Decimal { return p.PurchasePrice }

// NewLineItem snapshots p at the given quantity and unit price.
func NewLineItem(p catalog.Product, quantity int, unitPrice decimal.Decimal) (LineItem, error) {
	if !validQuantity(quantity) {
		return LineItem{}, &InvalidQuantityError{ProductID: p.ID, Quantity: quantity}
	}
	return LineItem{
		ProductID:   p.ID,
		ProductName: p.Name,
		UnitLabel:   p.UnitLabel,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		Total:       unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
	}, nil
}

// Items is the ordered line item collection of a document, holding at most
// one item per product id.
type Items []LineItem

// Total returns the exact sum of line totals.
func (items Items) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Total)
	}
	return total
}

// Find returns the item for productID.
func (items Items) Find(productID string) (LineItem, bool) {
	for _, it := range items {
		if it.ProductID == productID {
			return it, true
		}
	}
	return LineItem{}, false
}

// ProductIDs returns the product ids in item order.
func (items Items) ProductIDs() []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ProductID
	}
	return ids
}

// Clone returns a copy that shares no backing array with items.
func (items Items) Clone() Items {
	if items == nil {
		return nil
	}
	out := make(Items, len(items))
	copy(out, items)
	return out
}

// MaxQuantity is the largest quantity a line or stock level can hold; the
// columns are INTEGER.
const MaxQuantity = math.MaxInt32

func validQuantity(q int) bool { return q > 0 && q <= MaxQuantity }

// ValidateLines checks the request shape: non-empty, non-blank distinct
// product ids, quantities in 1..MaxQuantity.
func ValidateLines(lines []Line) error {
	if len(lines) == 0 {
		return errors.Wrap(ErrInvalidRequest, "items required")
	}

	seen := make(map[string]struct{}, len(lines))
	for _, l := range lines {
		if l.ProductID == "" {
			return errors.Wrap(ErrInvalidRequest, "product id required")
		}
		if !validQuantity(l.Quantity) {
			return &InvalidQuantityError{ProductID: l.ProductID, Quantity: l.Quantity}
		}
		if _, dup := seen[l.ProductID]; dup {
			return errors.Wrapf(ErrInvalidRequest, "duplicate product %s", l.ProductID)
		}
		seen[l.ProductID] = struct{}{}
	}
	return nil
}

// BuildItems validates lines and snapshots one item per line from products,
// priced with price. Every line must resolve in products.
func BuildItems(lines []Line, products map[string]catalog.Product, price PriceFunc) (Items, error) {
	if err := ValidateLines(lines); err != nil {
		return nil, err
	}

	items := make(Items, 0, len(lines))
	for _, l := range lines {
		p, ok := products[l.ProductID]
		if !ok {
			return nil, &ReferenceNotFoundError{Entity: "product", ID: l.ProductID}
		}
		it, err := NewLineItem(p, l.Quantity, price(p))
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

// ResolveProducts batch-fetches the products referenced by lines. Missing
// ids are reported as *ReferenceNotFoundError in line order.
func ResolveProducts(ctx context.Context, products catalog.ProductReader, lines []Line) (map[string]catalog.Product, error) {
	ids := make([]string, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}

	fetched, err := products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}

	byID := make(map[string]catalog.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, &ReferenceNotFoundError{Entity: "product", ID: id}
		}
	}
	return byID, nil
}
