package entity

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrInvalidTable is returned for an empty or unknown document table name.
	ErrInvalidTable = errors.New("invalid document table")
)

// Extraction failure reasons.
const (
	ReasonVariantDataMissing   = "variant data not found"
	ReasonVariantDataMalformed = "malformed variant data"
	ReasonProductDataMissing   = "product data not found"
	ReasonMalformedEmbedded    = "malformed embedded data"
	ReasonStructuralInvariant  = "structural invariant violated"
	ReasonInvalidPrice         = "invalid price"
)

// FetchError reports a failed fetch of one URL, either a non-2xx Status or a
// transport Cause (network error, timeout, cancellation).
type FetchError struct {
	URL    string
	Status int
	Cause  error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }

// ParseError reports that a listing page lacks the pagination control.
type ParseError struct {
	URL    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.URL, e.Reason)
}

// ExtractionError reports that a stored product document could not be turned
// into a product.
type ExtractionError struct {
	URL    string
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract %s: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("extract %s: %s", e.URL, e.Reason)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// StructuralInvariantError reports parallel arrays of unequal length on one axis.
type StructuralInvariantError struct {
	Handle string
	Axis   string // "variant" or "image"
	Field  string
	Want   int
	Got    int
}

func (e *StructuralInvariantError) Error() string {
	return fmt.Sprintf("product %q: %s axis field %q has %d entries, want %d",
		e.Handle, e.Axis, e.Field, e.Got, e.Want)
}

// StorageError reports a failed append or read against the document store.
type StorageError struct {
	Op    string
	Table string
	Err   error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
