package validator

import (
	"errors"
	"fmt"
)

// Sentinel errors wrapped by failing results
var (
	ErrNullValues     = errors.New("null values present")
	ErrDuplicateRows  = errors.New("duplicate rows present")
	ErrTableCount     = errors.New("unexpected table count")
	ErrSchemaMismatch = errors.New("schema mismatch")
)

// ErrorCategory classifies a failed check
type ErrorCategory int

const (
	ErrorCategoryNone ErrorCategory = iota
	ErrorCategoryNullValue
	ErrorCategoryDuplicateRow
	ErrorCategoryTableCount
	ErrorCategorySchemaMismatch
)

// String returns a string representation of the error category
func (ec ErrorCategory) String() string {
	switch ec {
	case ErrorCategoryNone:
		return "None"
	case ErrorCategoryNullValue:
		return "NullValueError"
	case ErrorCategoryDuplicateRow:
		return "DuplicateRowError"
	case ErrorCategoryTableCount:
		return "TableCountError"
	case ErrorCategorySchemaMismatch:
		return "SchemaMismatchError"
	default:
		return fmt.Sprintf("Unknown(%d)", ec)
	}
}

// Sentinel returns the sentinel error for the category
func (ec ErrorCategory) Sentinel() error {
	switch ec {
	case ErrorCategoryNullValue:
		return ErrNullValues
	case ErrorCategoryDuplicateRow:
		return ErrDuplicateRows
	case ErrorCategoryTableCount:
		return ErrTableCount
	case ErrorCategorySchemaMismatch:
		return ErrSchemaMismatch
	default:
		return nil
	}
}
