// Package order implements outbound documents to customers. Delivering an
// order decrements stock.
package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/stockroom/internal/domain/document"
	"github.com/xenking/stockroom/internal/domain/stock"
)

// Order is an outbound document to a customer. It is open until delivered;
// delivery is terminal.
type Order struct {
	ID          string
	CustomerID  string
	OrderedAt   time.Time
	Delivered   bool
	DeliveredAt *time.Time
	Items       document.Items
	Total       decimal.Decimal
}

// New returns an open order for customerID holding items.
func New(id, customerID string, items document.Items, now time.Time) (*Order, error) {
	if len(items) == 0 {
		return nil, errors.Wrap(document.ErrInvalidRequest, "items required")
	}
	return &Order{
		ID:         id,
		CustomerID: customerID,
		OrderedAt:  now,
		Items:      items,
		Total:      items.Total(),
	}, nil
}

// Replace swaps the whole item collection for items and recomputes the
// total. Products missing from items are dropped.
func (o *Order) Replace(items document.Items) error {
	if err := o.EnsureUpdatable(); err != nil {
		return err
	}
	if len(items) == 0 {
		return errors.Wrap(document.ErrInvalidRequest, "items required")
	}
	o.Items = items
	o.Total = items.Total()
	return nil
}

// Deliver marks the order delivered at now and returns the stock movements
// the delivery implies: one decrement per item.
func (o *Order) Deliver(now time.Time) ([]stock.Movement, error) {
	if o.Delivered {
		return nil, errors.Wrapf(document.ErrAlreadyFinalized, "order %s already delivered", o.ID)
	}

	movements := make([]stock.Movement, len(o.Items))
	for i, it := range o.Items {
		movements[i] = stock.Movement{ProductID: it.ProductID, Delta: -it.Quantity}
	}

	o.Delivered = true
	o.DeliveredAt = &now
	return movements, nil
}

// EnsureUpdatable reports whether the order items may still change.
func (o *Order) EnsureUpdatable() error {
	if o.Delivered {
		return errors.Wrapf(document.ErrDocumentFinalized, "order %s has already been delivered and cannot be updated", o.ID)
	}
	return nil
}

// EnsureRemovable reports whether the order may be deleted.
func (o *Order) EnsureRemovable() error {
	if o.Delivered {
		return errors.Wrapf(document.ErrDocumentFinalized, "cannot delete order %s that has already been delivered", o.ID)
	}
	return nil
}

// Repository defines persistence operations for orders. GetByID and
// GetForUpdate return document.ErrDocumentNotFound for unknown ids.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	// GetForUpdate loads the order and locks it until the transaction ends.
	GetForUpdate(ctx context.Context, id string) (*Order, error)
	// Update writes the header and replaces all items.
	Update(ctx context.Context, o *Order) error
	// MarkDelivered writes only the delivery state; items are left as is.
	MarkDelivered(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
}

// Tx is the repository set available inside an order transaction.
type Tx interface {
	Orders() Repository
	Stock() stock.Ledger
}
