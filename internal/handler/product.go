package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/stockroom/internal/domain/catalog"
)

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		h.fail(w, r, errors.Wrap(err, "list products"))
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, p := range products {
			encodeProduct(e, p)
		}
		e.ArrEnd()
	})
}

func (h *Handler) getStock(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	level, err := h.stock.GetByProductID(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product "+id+" has no stock row")
			return
		}
		h.fail(w, r, errors.Wrap(err, "get stock"))
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(level.ProductID)
		e.FieldStart("quantity")
		e.Int(level.Quantity)
		e.ObjEnd()
	})
}

func encodeProduct(e *jx.Encoder, p catalog.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("supplierId")
	e.Str(p.SupplierID)
	e.FieldStart("categoryId")
	e.Str(p.CategoryID)
	e.FieldStart("unit")
	e.Str(p.UnitLabel)
	e.FieldStart("purchasePrice")
	encodeMoney(e, p.PurchasePrice)
	e.FieldStart("salePrice")
	encodeMoney(e, p.SalePrice)
	e.ObjEnd()
}
