package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")

	ErrUpstreamTimeout     = errors.New("upstream timeout")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	ErrAppNotFound      = fmt.Errorf("app %w", ErrNotFound)
	ErrFunctionNotFound = fmt.Errorf("function %w", ErrNotFound)
	ErrVersionNotFound  = fmt.Errorf("version %w", ErrNotFound)
)
