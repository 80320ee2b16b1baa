package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/stockroom/internal/domain/purchase"
)

func (h *Handler) createPurchase(w http.ResponseWriter, r *http.Request) {
	req, err := readDocument(w, r, "supplierId", true)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	id, err := h.purchases.Create(r.Context(), req.CounterpartyID, req.Lines)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeCreated(w, id)
}

func (h *Handler) getPurchase(w http.ResponseWriter, r *http.Request) {
	p, err := h.purchases.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodePurchase(e, p) })
}

func (h *Handler) updatePurchase(w http.ResponseWriter, r *http.Request) {
	req, err := readDocument(w, r, "supplierId", false)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.purchases.Update(r.Context(), r.PathValue("id"), req.Lines); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deletePurchase(w http.ResponseWriter, r *http.Request) {
	if err := h.purchases.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) receivePurchase(w http.ResponseWriter, r *http.Request) {
	if err := h.purchases.Receive(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func encodePurchase(e *jx.Encoder, p *purchase.Purchase) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("supplierId")
	e.Str(p.SupplierID)
	e.FieldStart("createdAt")
	encodeTime(e, p.CreatedAt)
	e.FieldStart("arrived")
	e.Bool(p.Arrived)
	e.FieldStart("arrivedAt")
	encodeOptTime(e, p.ArrivedAt)
	e.FieldStart("items")
	encodeItems(e, p.Items)
	e.FieldStart("total")
	encodeMoney(e, p.Total)
	e.ObjEnd()
}
