package catalog

import "errors"

// Catalog module errors.
var (
	ErrServiceNotFound = errors.New("service not found")
	ErrInvalidStatus   = errors.New("invalid service status")
)
