package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/stockroom/internal/domain/catalog"
)

const (
	productColumns = `p.id, p.supplier_id, p.category_id, p.unit_id, p.name, u.name, p.purchase_price, p.sale_price
		FROM products p JOIN units u ON u.id = p.unit_id`

	listProductsSQL = `SELECT ` + productColumns + ` ORDER BY p.id`

	getProductByIDSQL = `SELECT ` + productColumns + ` WHERE p.id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` WHERE p.id = ANY($1)`

	upsertProductSQL = `INSERT INTO products (id, supplier_id, category_id, unit_id, name, purchase_price, sale_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			supplier_id = EXCLUDED.supplier_id,
			category_id = EXCLUDED.category_id,
			unit_id = EXCLUDED.unit_id,
			name = EXCLUDED.name,
			purchase_price = EXCLUDED.purchase_price,
			sale_price = EXCLUDED.sale_price`

	getCustomerSQL = `SELECT id, name, email, phone, address FROM customers WHERE id = $1`

	getSupplierSQL = `SELECT id, name, email, phone, address FROM suppliers WHERE id = $1`

	upsertCustomerSQL = `INSERT INTO customers (id, name, email, phone, address) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email,
			phone = EXCLUDED.phone, address = EXCLUDED.address`

	upsertSupplierSQL = `INSERT INTO suppliers (id, name, email, phone, address) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email,
			phone = EXCLUDED.phone, address = EXCLUDED.address`

	upsertCategorySQL = `INSERT INTO categories (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`

	upsertUnitSQL = `INSERT INTO units (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`
)

var _ catalog.ProductReader = (*ProductRepository)(nil)

// ProductRepository implements catalog.ProductReader backed by PostgreSQL.
// The unit label is joined in from units.
type ProductRepository struct {
	q querier
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{q: pool}
}

// List returns all products ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]catalog.Product, error) {
	rows, err := r.q.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	rows, err := r.q.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs. Unknown ids are
// skipped; callers compare the result against what they asked for.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]catalog.Product, error) {
	rows, err := r.q.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Upsert inserts or overwrites a product. Used by the seeding and import
// tools; the lifecycle services never write products.
func (r *ProductRepository) Upsert(ctx context.Context, p catalog.Product) error {
	_, err := r.q.Exec(ctx, upsertProductSQL,
		p.ID, p.SupplierID, p.CategoryID, p.UnitID, p.Name, p.PurchasePrice, p.SalePrice,
	)
	if err != nil {
		return fmt.Errorf("upserting product %q: %w", p.ID, err)
	}
	return nil
}

// UpsertProducts upserts products and creates their missing stock rows in
// one batch and one transaction.
func (r *ProductRepository) UpsertProducts(ctx context.Context, products []catalog.Product) error {
	if len(products) == 0 {
		return nil
	}

	b := &pgx.Batch{}
	for _, p := range products {
		b.Queue(upsertProductSQL, p.ID, p.SupplierID, p.CategoryID, p.UnitID, p.Name, p.PurchasePrice, p.SalePrice)
		b.Queue(ensureStockSQL, p.ID)
	}

	return pgx.BeginFunc(ctx, r.q, func(tx pgx.Tx) error {
		if err := tx.SendBatch(ctx, b).Close(); err != nil {
			return fmt.Errorf("upserting %d products: %w", len(products), err)
		}
		return nil
	})
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(
		&p.ID, &p.SupplierID, &p.CategoryID, &p.UnitID, &p.Name, &p.UnitLabel,
		&p.PurchasePrice, &p.SalePrice,
	)
	return p, err
}

var _ catalog.CustomerReader = (*CustomerRepository)(nil)

// CustomerRepository implements catalog.CustomerReader.
type CustomerRepository struct {
	q querier
}

// NewCustomerRepository returns a CustomerRepository that uses the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{q: pool}
}

// GetByID returns catalog.ErrNotFound for unknown ids.
func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*catalog.Customer, error) {
	var c catalog.Customer
	err := r.q.QueryRow(ctx, getCustomerSQL, id).Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting customer %q: %w", id, err)
	}
	return &c, nil
}

func (r *CustomerRepository) Upsert(ctx context.Context, c catalog.Customer) error {
	if _, err := r.q.Exec(ctx, upsertCustomerSQL, c.ID, c.Name, c.Email, c.Phone, c.Address); err != nil {
		return fmt.Errorf("upserting customer %q: %w", c.ID, err)
	}
	return nil
}

var _ catalog.SupplierReader = (*SupplierRepository)(nil)

// SupplierRepository implements catalog.SupplierReader.
type SupplierRepository struct {
	q querier
}

// NewSupplierRepository returns a SupplierRepository that uses the given pool.
func NewSupplierRepository(pool *pgxpool.Pool) *SupplierRepository {
	return &SupplierRepository{q: pool}
}

// GetByID returns catalog.ErrNotFound for unknown ids.
func (r *SupplierRepository) GetByID(ctx context.Context, id string) (*catalog.Supplier, error) {
	var s catalog.Supplier
	err := r.q.QueryRow(ctx, getSupplierSQL, id).Scan(&s.ID, &s.Name, &s.Email, &s.Phone, &s.Address)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting supplier %q: %w", id, err)
	}
	return &s, nil
}

func (r *SupplierRepository) Upsert(ctx context.Context, s catalog.Supplier) error {
	if _, err := r.q.Exec(ctx, upsertSupplierSQL, s.ID, s.Name, s.Email, s.Phone, s.Address); err != nil {
		return fmt.Errorf("upserting supplier %q: %w", s.ID, err)
	}
	return nil
}

// ReferenceRepository writes categories and units.
type ReferenceRepository struct {
	q querier
}

// NewReferenceRepository returns a ReferenceRepository that uses the given pool.
func NewReferenceRepository(pool *pgxpool.Pool) *ReferenceRepository {
	return &ReferenceRepository{q: pool}
}

func (r *ReferenceRepository) UpsertCategory(ctx context.Context, c catalog.Category) error {
	if _, err := r.q.Exec(ctx, upsertCategorySQL, c.ID, c.Name); err != nil {
		return fmt.Errorf("upserting category %q: %w", c.ID, err)
	}
	return nil
}

func (r *ReferenceRepository) UpsertUnit(ctx context.Context, u catalog.Unit) error {
	if _, err := r.q.Exec(ctx, upsertUnitSQL, u.ID, u.Name); err != nil {
		return fmt.Errorf("upserting unit %q: %w", u.ID, err)
	}
	return nil
}
