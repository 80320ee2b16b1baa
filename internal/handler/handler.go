// Package handler exposes the order and purchase lifecycles over HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/xenking/stockroom/internal/domain/catalog"
	"github.com/xenking/stockroom/internal/domain/document"
	"github.com/xenking/stockroom/internal/domain/order"
	"github.com/xenking/stockroom/internal/domain/purchase"
	"github.com/xenking/stockroom/internal/domain/stock"
)

// maxBodySize caps request bodies.
const maxBodySize = 1 << 20

// OrderService is the order lifecycle consumed by Handler.
type OrderService interface {
	Create(ctx context.Context, customerID string, lines []document.Line) (string, error)
	Update(ctx context.Context, id string, lines []document.Line) error
	Deliver(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*order.Order, error)
}

// PurchaseService is the purchase lifecycle consumed by Handler.
type PurchaseService interface {
	Create(ctx context.Context, supplierID string, lines []document.Line) (string, error)
	Update(ctx context.Context, id string, lines []document.Line) error
	Receive(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*purchase.Purchase, error)
}

var (
	_ OrderService    = (*order.Service)(nil)
	_ PurchaseService = (*purchase.Service)(nil)
)

// Handler serves the /api routes.
type Handler struct {
	orders    OrderService
	purchases PurchaseService
	products  catalog.ProductReader
	stock     stock.Reader
}

// New constructs a Handler.
func New(
	orders OrderService,
	purchases PurchaseService,
	products catalog.ProductReader,
	levels stock.Reader,
) *Handler {
	return &Handler{
		orders:    orders,
		purchases: purchases,
		products:  products,
		stock:     levels,
	}
}

// Register adds every API route to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/orders", h.createOrder)
	mux.HandleFunc("GET /api/orders/{id}", h.getOrder)
	mux.HandleFunc("PUT /api/orders/{id}", h.updateOrder)
	mux.HandleFunc("DELETE /api/orders/{id}", h.deleteOrder)
	mux.HandleFunc("POST /api/orders/{id}/deliver", h.deliverOrder)

	mux.HandleFunc("POST /api/purchases", h.createPurchase)
	mux.HandleFunc("GET /api/purchases/{id}", h.getPurchase)
	mux.HandleFunc("PUT /api/purchases/{id}", h.updatePurchase)
	mux.HandleFunc("DELETE /api/purchases/{id}", h.deletePurchase)
	mux.HandleFunc("POST /api/purchases/{id}/receive", h.receivePurchase)

	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{id}/stock", h.getStock)
}
