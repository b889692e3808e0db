package utils

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures by how the pipeline reacts to them
type ErrorKind string

const (
	// KindTransient covers navigation and timeout failures: log, treat as empty, continue
	KindTransient ErrorKind = "transient"
	// KindResource covers automation backend acquisition failures: degrade to a fallback
	KindResource ErrorKind = "resource"
	// KindPersistence covers output store failures
	KindPersistence ErrorKind = "persistence"
	// KindState covers operations invoked in the wrong session state
	KindState ErrorKind = "state"
	// KindFatal covers everything that ends the run
	KindFatal ErrorKind = "fatal"
)

// CustomError represents a custom application error
type CustomError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Detail  string    `json:"detail,omitempty"`
	Err     error     `json:"-"`
}

func (e *CustomError) Error() string {
	msg := e.Message
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first CustomError in err's chain, or KindFatal
func KindOf(err error) ErrorKind {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindFatal
}

// IsTransient reports whether err should be logged and skipped
func IsTransient(err error) bool {
	return err != nil && KindOf(err) == KindTransient
}

func NewNavigationError(url string, err error) *CustomError {
	return &CustomError{
		Kind:    KindTransient,
		Message: "Navigation failed",
		Detail:  url,
		Err:     err,
	}
}

func NewBackendError(engine string, err error) *CustomError {
	return &CustomError{
		Kind:    KindResource,
		Message: "Automation backend unavailable",
		Detail:  engine,
		Err:     err,
	}
}

func NewPersistenceError(path string, err error) *CustomError {
	return &CustomError{
		Kind:    KindPersistence,
		Message: "Persistence failed",
		Detail:  path,
		Err:     err,
	}
}

func NewStateError(detail string, err error) *CustomError {
	return &CustomError{
		Kind:    KindState,
		Message: "Invalid session state",
		Detail:  detail,
		Err:     err,
	}
}
