package hanaihang

import "github.com/Earthondev/hanaihang/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidDocument = domain.ErrInvalidDocument
	ErrInvalidQuery    = domain.ErrInvalidQuery
	ErrInvalidOrigin   = domain.ErrInvalidOrigin
	ErrInvalidScope    = domain.ErrInvalidScope
)
