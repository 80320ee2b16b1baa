package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/stockroom/internal/domain/order"
)

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	req, err := readDocument(w, r, "customerId", true)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	id, err := h.orders.Create(r.Context(), req.CounterpartyID, req.Lines)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeCreated(w, id)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	req, err := readDocument(w, r, "customerId", false)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.orders.Update(r.Context(), r.PathValue("id"), req.Lines); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deliverOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.orders.Deliver(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	zctx.From(r.Context()).Debug("Order delivered over http", zap.String("order_id", id))
	w.WriteHeader(http.StatusNoContent)
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("customerId")
	e.Str(o.CustomerID)
	e.FieldStart("orderedAt")
	encodeTime(e, o.OrderedAt)
	e.FieldStart("delivered")
	e.Bool(o.Delivered)
	e.FieldStart("deliveredAt")
	encodeOptTime(e, o.DeliveredAt)
	e.FieldStart("items")
	encodeItems(e, o.Items)
	e.FieldStart("total")
	encodeMoney(e, o.Total)
	e.ObjEnd()
}
