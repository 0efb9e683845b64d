package models

import (
	"fmt"
	"time"
)

// ResultClass is the classification of an OperationResult.
type ResultClass int

const (
	ClassSuccess ResultClass = iota
	ClassRetryable
	ClassPermanent
)

func (c ResultClass) String() string {
	switch c {
	case ClassSuccess:
		return "success"
	case ClassRetryable:
		return "retryable"
	case ClassPermanent:
		return "permanent"
	default:
		return fmt.Sprintf("ResultClass(%d)", int(c))
	}
}

// Status codes reported for item-level outcomes. The numbering follows
// HTTP so that results from any store read the same way.
const (
	StatusOK              = 200
	StatusCreated         = 201
	StatusNoContent       = 204
	StatusBadRequest      = 400
	StatusNotFound        = 404
	StatusRequestTimeout  = 408
	StatusConflict        = 409
	StatusTooManyRequests = 429
	StatusRetryWith       = 449
	StatusInternalError   = 500
	StatusUnavailable     = 503
)

// OperationResult is the outcome of a single operation in a bulk batch.
type OperationResult struct {
	StatusCode int
	// RetryAfter is the store's hint for how long to wait before retrying.
	// Zero means no hint.
	RetryAfter time.Duration
	Message    string
}

// Class classifies the result by its status code.
func (r OperationResult) Class() ResultClass {
	return Classify(r.StatusCode)
}

// Succeeded is shorthand for Class() == ClassSuccess.
func (r OperationResult) Succeeded() bool {
	return r.Class() == ClassSuccess
}

// Classify maps a status code to a ResultClass.
func Classify(code int) ResultClass {
	switch code {
	case StatusOK, StatusCreated, StatusNoContent:
		return ClassSuccess
	case StatusRequestTimeout, StatusTooManyRequests, StatusRetryWith, StatusInternalError, StatusUnavailable:
		return ClassRetryable
	default:
		return ClassPermanent
	}
}
