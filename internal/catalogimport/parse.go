// Package catalogimport bulk-loads product catalogs from gzipped,
// semicolon-separated files.
//
// Each row is
//
//	id;supplier_id;category_id;unit_id;name;purchase_price;sale_price
//
// and an optional header row starting with "id" is skipped.
package catalogimport

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/stockroom/internal/domain/catalog"
)

const numFields = 7

// RowError describes a rejected row.
type RowError struct {
	File string
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// ParseFile reads every product row of a gzipped catalog file. Malformed
// rows are returned as RowErrors and do not stop parsing; I/O failures do.
func ParseFile(ctx context.Context, path string) ([]catalog.Product, []*RowError, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	return parse(ctx, path, gz)
}

func parse(ctx context.Context, name string, r io.Reader) ([]catalog.Product, []*RowError, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	var (
		products []catalog.Product
		rejected []*RowError
	)
	for line := 1; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				rejected = append(rejected, &RowError{File: name, Line: line, Err: perr.Err})
				continue
			}
			return nil, nil, errors.Wrapf(err, "read %s", name)
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(fields[0]), "id") {
			continue
		}

		p, err := parseRow(fields)
		if err != nil {
			rejected = append(rejected, &RowError{File: name, Line: line, Err: err})
			continue
		}
		products = append(products, p)
	}
	return products, rejected, nil
}

func parseRow(fields []string) (catalog.Product, error) {
	if len(fields) != numFields {
		return catalog.Product{}, errors.Errorf("want %d fields, got %d", numFields, len(fields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	p := catalog.Product{
		ID:         fields[0],
		SupplierID: fields[1],
		CategoryID: fields[2],
		UnitID:     fields[3],
		Name:       fields[4],
	}
	if p.ID == "" || p.SupplierID == "" || p.CategoryID == "" || p.UnitID == "" || p.Name == "" {
		return catalog.Product{}, errors.New("empty required field")
	}

	var err error
	if p.PurchasePrice, err = parsePrice(fields[5]); err != nil {
		return catalog.Product{}, errors.Wrap(err, "purchase price")
	}
	if p.SalePrice, err = parsePrice(fields[6]); err != nil {
		return catalog.Product{}, errors.Wrap(err, "sale price")
	}
	return p, nil
}

func parsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if d.IsNegative() {
		return decimal.Decimal{}, errors.Errorf("negative price %s", s)
	}
	return d, nil
}
