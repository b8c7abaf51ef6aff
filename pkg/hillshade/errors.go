package hillshade

import "errors"

// Shape errors.
var (
	ErrShapeMismatch = errors.New("shape mismatch")
	ErrInvalidShape  = errors.New("invalid shape")
)
