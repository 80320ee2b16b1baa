package document

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Sentinel errors, one per error kind. Every error returned by the
// lifecycle services matches exactly one of them via errors.Is.
var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrReferenceNotFound = errors.New("reference not found")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrDocumentFinalized = errors.New("document finalized")
	ErrAlreadyFinalized  = errors.New("document already finalized")
	ErrStorage           = errors.New("storage failure")
)

// ReferenceNotFoundError indicates a counterparty, product or stock row id
// did not resolve.
type ReferenceNotFoundError struct {
	// Entity is one of "customer", "supplier", "product" or "stock".
	Entity string
	ID     string
}

func (e *ReferenceNotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *ReferenceNotFoundError) Unwrap() error { return ErrReferenceNotFound }

// InvalidQuantityError indicates a line whose quantity is not in
// 1..MaxQuantity.
type InvalidQuantityError struct {
	ProductID string
	Quantity  int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be between 1 and %d for product %s, got %d", MaxQuantity, e.ProductID, e.Quantity)
}

func (e *InvalidQuantityError) Unwrap() error { return ErrInvalidRequest }

// StorageError wraps an infrastructure failure (connection loss, lock
// timeout, constraint violation, cancelled context). The transaction it
// happened in was rolled back, so the operation can be retried as a whole.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, ErrStorage, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is reports whether target is ErrStorage.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// Kind classifies an error for callers that map errors to responses.
type Kind int

const (
	KindNone Kind = iota
	KindInvalidRequest
	KindReferenceNotFound
	KindDocumentNotFound
	KindDocumentFinalized
	KindAlreadyFinalized
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindInvalidRequest:
		return "invalid_request"
	case KindReferenceNotFound:
		return "reference_not_found"
	case KindDocumentNotFound:
		return "document_not_found"
	case KindDocumentFinalized:
		return "document_finalized"
	case KindAlreadyFinalized:
		return "already_finalized"
	case KindStorage:
		return "storage"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// KindOf returns the kind of err. Errors outside the taxonomy are reported
// as KindStorage.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	case errors.Is(err, ErrReferenceNotFound):
		return KindReferenceNotFound
	case errors.Is(err, ErrDocumentNotFound):
		return KindDocumentNotFound
	case errors.Is(err, ErrDocumentFinalized):
		return KindDocumentFinalized
	case errors.Is(err, ErrAlreadyFinalized):
		return KindAlreadyFinalized
	default:
		return KindStorage
	}
}

// Classify returns err unchanged when it already carries a business kind
// and wraps anything else into a *StorageError for op.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if k := KindOf(err); k != KindStorage {
		return err
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
