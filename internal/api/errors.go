package api

import "errors"

var (
	ErrMessageRequired = errors.New("Message is required")
	ErrInvalidOptions  = errors.New("Invalid options")
)
