package normalize

import "errors"

// Sentinel kinds for normalization errors. ErrValidation covers
// malformed or out-of-range raw input; ErrUnmappedValue covers a
// DataInput value that matches no scoring band.
var (
	ErrValidation    = errors.New("invalid response value")
	ErrUnmappedValue = errors.New("value matches no scoring band")
)
