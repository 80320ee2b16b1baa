package handler

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/stockroom/internal/domain/document"
)

// statusOf maps an error kind to its HTTP status.
func statusOf(k document.Kind) int {
	switch k {
	case document.KindInvalidRequest:
		return http.StatusBadRequest
	case document.KindReferenceNotFound:
		return http.StatusUnprocessableEntity
	case document.KindDocumentNotFound:
		return http.StatusNotFound
	case document.KindDocumentFinalized, document.KindAlreadyFinalized:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the error response for err. Storage failures are logged and
// their detail is not sent to the client.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := document.KindOf(err)
	status := statusOf(kind)

	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}
