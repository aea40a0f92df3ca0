package models

import "errors"

var (
	// ErrValidation marks input rejected before any request is made.
	ErrValidation = errors.New("validation failed")
	// ErrForbidden marks an action the current role may not perform.
	ErrForbidden = errors.New("forbidden")
)
