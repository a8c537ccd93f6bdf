package domain

import "errors"

var (
	// ErrInvalidQuery signals a malformed search query.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidOrigin signals an origin point outside valid coordinates.
	ErrInvalidOrigin = errors.New("invalid origin")
	// ErrInvalidScope signals an unknown search scope.
	ErrInvalidScope = errors.New("invalid scope")
	// ErrInvalidDocument signals a document that cannot be indexed.
	ErrInvalidDocument = errors.New("invalid document")
)
