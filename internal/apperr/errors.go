package apperr

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidPath = errors.New("invalid path")
	ErrUpstream    = errors.New("upstream error")
)
