package errors

import "errors"

var (
	ErrInvalidID   = errors.New("invalid id")
	ErrInvalidBody = errors.New("invalid request body")
)
