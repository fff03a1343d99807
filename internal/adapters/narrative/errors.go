package narrative

import "errors"

// ErrScorerFailure wraps every upstream failure (transport, status,
// malformed payload) so callers can degrade on a single sentinel.
var ErrScorerFailure = errors.New("narrative scorer failure")
