// Package catalog holds the reference data orders and purchases point at.
// The lifecycle services only ever read it.
package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested catalog entry does not exist.
var ErrNotFound = errors.New("catalog entry not found")

// Product is a stocked item. PurchasePrice is what suppliers charge,
// SalePrice is what customers pay.
type Product struct {
	ID            string
	SupplierID    string
	CategoryID    string
	UnitID        string
	Name          string
	UnitLabel     string
	PurchasePrice decimal.Decimal
	SalePrice     decimal.Decimal
}

// Customer is the counterparty of an order.
type Customer struct {
	ID      string
	Name    string
	Email   string
	Phone   string
	Address string
}

// Supplier is the counterparty of a purchase.
type Supplier struct {
	ID      string
	Name    string
	Email   string
	Phone   string
	Address string
}

// Category groups products.
type Category struct {
	ID   string
	Name string
}

// Unit is a unit of measurement, e.g. "kg" or "pcs".
type Unit struct {
	ID   string
	Name string
}

// ProductReader defines read operations for products.
type ProductReader interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}

// CustomerReader looks customers up by id.
type CustomerReader interface {
	GetByID(ctx context.Context, id string) (*Customer, error)
}

// SupplierReader looks suppliers up by id.
type SupplierReader interface {
	GetByID(ctx context.Context, id string) (*Supplier, error)
}
