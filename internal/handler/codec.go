package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/stockroom/internal/domain/document"
)

// documentRequest is the body of create and update calls.
type documentRequest struct {
	CounterpartyID string
	Lines          []document.Line
}

// readDocument decodes {"<counterparty>": "...", "items": [...]}. Unknown
// fields are ignored. Malformed bodies are reported as invalid requests;
// item rules are left to the domain.
func readDocument(w http.ResponseWriter, r *http.Request, counterparty string, requireCounterparty bool) (documentRequest, error) {
	var req documentRequest

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return req, invalid("read body: %v", err)
	}

	err = jx.DecodeBytes(body).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case counterparty:
			s, err := d.Str()
			req.CounterpartyID = s
			return err
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				line, err := decodeLine(d)
				if err != nil {
					return err
				}
				req.Lines = append(req.Lines, line)
				return nil
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return req, invalid("decode body: %v", err)
	}
	if requireCounterparty && req.CounterpartyID == "" {
		return req, invalid("%s required", counterparty)
	}
	return req, nil
}

func decodeLine(d *jx.Decoder) (document.Line, error) {
	var line document.Line
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "productId":
			s, err := d.Str()
			line.ProductID = s
			return err
		case "quantity":
			n, err := d.Int()
			line.Quantity = n
			return err
		default:
			return d.Skip()
		}
	})
	return line, err
}

func invalid(format string, args ...any) error {
	return errors.Wrapf(document.ErrInvalidRequest, format, args...)
}

func encodeItems(e *jx.Encoder, items document.Items) {
	e.ArrStart()
	for _, it := range items {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(it.ProductID)
		e.FieldStart("productName")
		e.Str(it.ProductName)
		e.FieldStart("unit")
		e.Str(it.UnitLabel)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("unitPrice")
		encodeMoney(e, it.UnitPrice)
		e.FieldStart("total")
		encodeMoney(e, it.Total)
		e.ObjEnd()
	}
	e.ArrEnd()
}

// encodeMoney writes amounts as fixed two-decimal strings.
func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.Str(d.StringFixed(2))
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339Nano))
}

func encodeOptTime(e *jx.Encoder, t *time.Time) {
	if t == nil {
		e.Null()
		return
	}
	encodeTime(e, *t)
}

func writeJSON(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	var e jx.Encoder
	fn(&e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeCreated(w http.ResponseWriter, id string) {
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(id)
		e.ObjEnd()
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(status)
		e.FieldStart("message")
		e.Str(msg)
		e.ObjEnd()
	})
}
