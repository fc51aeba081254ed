package services

import (
	"errors"

	"MindMateGo/store"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = store.ErrNotFound
	ErrUpstream   = errors.New("upstream service failed")
	ErrForbidden  = errors.New("forbidden")
)

// ValidationError 带有可直接返回给客户端的提示
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}
