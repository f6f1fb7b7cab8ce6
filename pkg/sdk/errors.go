package agentdex

import "github.com/xpersona/agentdex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrValidation  = domain.ErrValidation
	ErrNotFound    = domain.ErrNotFound
	ErrRateLimited = domain.ErrRateLimited
	ErrCircuitOpen = domain.ErrCircuitOpen
	ErrBackend     = domain.ErrBackend
)
