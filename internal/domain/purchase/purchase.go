// Package purchase implements inbound documents from suppliers. Receiving
// a purchase increments stock.
package purchase

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/stockroom/internal/domain/document"
	"github.com/xenking/stockroom/internal/domain/stock"
)

// Purchase is an inbound document from a supplier. It is open until it
// arrives; arrival is terminal.
type Purchase struct {
	ID         string
	SupplierID string
	CreatedAt  time.Time
	Arrived    bool
	ArrivedAt  *time.Time
	Items      document.Items
	Total      decimal.Decimal
}

// New returns an open purchase from supplierID holding items.
func New(id, supplierID string, items document.Items, now time.Time) (*Purchase, error) {
	if len(items) == 0 {
		return nil, errors.Wrap(document.ErrInvalidRequest, "items required")
	}
	return &Purchase{
		ID:         id,
		SupplierID: supplierID,
		CreatedAt:  now,
		Items:      items,
		Total:      items.Total(),
	}, nil
}

// EnsureUpdatable reports whether the purchase items may still change.
func (p *Purchase) EnsureUpdatable() error {
	if p.Arrived {
		return errors.Wrapf(document.ErrDocumentFinalized, "purchase %s has already arrived and cannot be updated", p.ID)
	}
	return nil
}

// Replace swaps the whole item collection for items and recomputes the
// total.
func (p *Purchase) Replace(items document.Items) error {
	if err := p.EnsureUpdatable(); err != nil {
		return err
	}
	if len(items) == 0 {
		return errors.Wrap(document.ErrInvalidRequest, "items required")
	}
	p.Items = items
	p.Total = items.Total()
	return nil
}

// Receive marks the purchase arrived at now and returns one stock increment
// per item.
func (p *Purchase) Receive(now time.Time) ([]stock.Movement, error) {
	if p.Arrived {
		return nil, errors.Wrapf(document.ErrAlreadyFinalized, "purchase %s already arrived", p.ID)
	}

	movements := make([]stock.Movement, len(p.Items))
	for i, it := range p.Items {
		movements[i] = stock.Movement{ProductID: it.ProductID, Delta: it.Quantity}
	}

	p.Arrived = true
	p.ArrivedAt = &now
	return movements, nil
}

// EnsureRemovable reports whether the purchase may be deleted.
func (p *Purchase) EnsureRemovable() error {
	if p.Arrived {
		return errors.Wrapf(document.ErrDocumentFinalized, "cannot delete purchase %s that has already arrived", p.ID)
	}
	return nil
}

// Repository defines persistence operations for purchases.
type Repository interface {
	Create(ctx context.Context, p *Purchase) error
	GetByID(ctx context.Context, id string) (*Purchase, error)
	GetForUpdate(ctx context.Context, id string) (*Purchase, error)
	Update(ctx context.Context, p *Purchase) error
	// MarkReceived writes only the arrival state; items are left as is.
	MarkReceived(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
}

// Tx is the repository set available inside a purchase transaction.
type Tx interface {
	Purchases() Repository
	Stock() stock.Ledger
}
