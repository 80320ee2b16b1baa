package purchase

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/stockroom/internal/domain/catalog"
	"github.com/xenking/stockroom/internal/domain/document"
	"github.com/xenking/stockroom/internal/domain/stock"
)

// Service runs the purchase lifecycle.
type Service struct {
	suppliers catalog.SupplierReader
	products  catalog.ProductReader
	tx        document.Transactor[Tx]

	now   func() time.Time
	newID func() string
}

// NewService creates a purchase Service.
func NewService(
	suppliers catalog.SupplierReader,
	products catalog.ProductReader,
	tx document.Transactor[Tx],
) *Service {
	return &Service{
		suppliers: suppliers,
		products:  products,
		tx:        tx,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

// Create persists a new open purchase priced at current purchase prices and
// returns its id.
func (s *Service) Create(ctx context.Context, supplierID string, lines []document.Line) (string, error) {
	if err := document.ValidateLines(lines); err != nil {
		return "", err
	}

	if _, err := s.suppliers.GetByID(ctx, supplierID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return "", &document.ReferenceNotFoundError{Entity: "supplier", ID: supplierID}
		}
		return "", document.Classify("get supplier", err)
	}

	items, err := s.buildItems(ctx, lines)
	if err != nil {
		return "", document.Classify("create purchase", err)
	}

	p, err := New(s.newID(), supplierID, items, s.now())
	if err != nil {
		return "", err
	}

	if err := s.tx.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.Purchases().Create(ctx, p)
	}); err != nil {
		return "", document.Classify("create purchase", err)
	}

	zctx.From(ctx).Debug("Purchase created",
		zap.String("purchase_id", p.ID),
		zap.String("supplier_id", supplierID),
		zap.Int("items", len(p.Items)),
	)
	return p.ID, nil
}

// Update replaces the items of an open purchase.
func (s *Service) Update(ctx context.Context, id string, lines []document.Line) error {
	if err := document.ValidateLines(lines); err != nil {
		return err
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		p, err := tx.Purchases().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := p.EnsureUpdatable(); err != nil {
			return err
		}

		items, err := s.buildItems(ctx, lines)
		if err != nil {
			return err
		}
		if err := p.Replace(items); err != nil {
			return err
		}
		return tx.Purchases().Update(ctx, p)
	})
	return document.Classify("update purchase", err)
}

// Receive finalizes the purchase and increments stock by every item
// quantity.
func (s *Service) Receive(ctx context.Context, id string) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		p, err := tx.Purchases().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		movements, err := p.Receive(s.now())
		if err != nil {
			return err
		}

		if _, err := stock.Adjust(ctx, tx.Stock(), movements); err != nil {
			var missing *stock.MissingError
			if errors.As(err, &missing) {
				return &document.ReferenceNotFoundError{Entity: "stock", ID: missing.ProductID}
			}
			return err
		}

		return tx.Purchases().MarkReceived(ctx, p.ID, *p.ArrivedAt)
	})
	if err != nil {
		return document.Classify("receive purchase", err)
	}

	zctx.From(ctx).Info("Purchase received", zap.String("purchase_id", id))
	return nil
}

// Delete removes an open purchase.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		p, err := tx.Purchases().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := p.EnsureRemovable(); err != nil {
			return err
		}
		return tx.Purchases().Delete(ctx, id)
	})
	if err != nil {
		return document.Classify("delete purchase", err)
	}

	zctx.From(ctx).Info("Purchase deleted", zap.String("purchase_id", id))
	return nil
}

// Get returns the purchase with its items and total.
func (s *Service) Get(ctx context.Context, id string) (*Purchase, error) {
	var p *Purchase
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		p, err = tx.Purchases().GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, document.Classify("get purchase", err)
	}
	return p, nil
}

func (s *Service) buildItems(ctx context.Context, lines []document.Line) (document.Items, error) {
	products, err := document.ResolveProducts(ctx, s.products, lines)
	if err != nil {
		return nil, err
	}
	return document.BuildItems(lines, products, document.PurchasePrice)
}
