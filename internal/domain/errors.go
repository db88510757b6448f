package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable means the backing collision file could not be opened or read.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrSchemaMismatch means a required column is absent from the source header.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrInvalidParameter means a caller passed an out-of-range hour, count,
	// row limit, or an unrecognized category.
	ErrInvalidParameter = errors.New("invalid parameter")
)

func invalidParameter(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParameter, fmt.Sprintf(format, args...))
}
