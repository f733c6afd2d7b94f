package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Domain error taxonomy. Every failure the workflow can surface maps to one
// of these so the HTTP layer can answer with the specific reason instead of
// a generic message.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("request is not in the expected stage")
	ErrInvalidQty   = errors.New("quantity must be positive")
)

// InsufficientStockError carries the requested/available pair so staff can
// decide whether to top up stock first.
type InsufficientStockError struct {
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: requested %d, available %d", e.Requested, e.Available)
}

// ValidationError 提交校验错误 — a malformed submission, reported per field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// StoreError wraps an underlying persistence failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// storeErr translates a gorm error: record-not-found becomes ErrNotFound,
// anything else is a StoreError. Nil passes through.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return &StoreError{Op: op, Err: err}
}
