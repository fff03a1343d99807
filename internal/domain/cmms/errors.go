package cmms

import "errors"

// Calculator errors. Both carry context via wrapping; match with
// errors.Is.
var (
	// ErrTypeMismatch indicates the input is not a usable table.
	ErrTypeMismatch = errors.New("input is not tabular data")
	// ErrInvalidInput indicates a missing column or unparseable cell.
	ErrInvalidInput = errors.New("invalid CMMS input")
)
