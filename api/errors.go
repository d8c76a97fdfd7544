// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-nic.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	ErrMappingFailed       = errors.New("contiguous mapping failed")
	ErrPoolFull            = errors.New("receive buffer pool is full")
	ErrSliceMismatch       = errors.New("region cannot hold requested records")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrNotContiguous       = errors.New("region is not physically contiguous")
	ErrPhysAddrUnavailable = errors.New("physical address unavailable")
	ErrBufferIdle          = errors.New("receive buffer is already idle")
	ErrNotSupported        = errors.New("operation not supported")
	ErrReleased            = errors.New("region already released")
	ErrMisaligned          = errors.New("descriptor ring base is misaligned")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	// ErrCodeResourceExhausted: the backing memory could not satisfy a mapping.
	ErrCodeResourceExhausted ErrorCode = iota + 1
	// ErrCodeInternal: the kernel interface failed underneath a mapping.
	ErrCodeInternal
)

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Unwrap exposes the cause for errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.Err }

// NewError creates a new structured error.
func NewError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
		Err:     cause,
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}
