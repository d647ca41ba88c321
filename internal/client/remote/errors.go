package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies remote store failures for retry policy
type ErrorKind int

const (
	// KindTransient сетевой таймаут, rate limit, недоступность сервиса.
	// Оркестратор повторяет такие операции с экспоненциальным backoff.
	KindTransient ErrorKind = iota

	// KindPermanent отказ авторизации, невалидный payload, отсутствующая
	// сущность при delete. Повтор бессмысленен - изменение отбрасывается.
	KindPermanent
)

// String returns the kind name for logs
func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Error is a classified remote store failure
type Error struct {
	Err    error
	Op     string
	Kind   ErrorKind
	Status int // HTTP status, 0 for transport failures
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("remote %s: %s (status %d): %v", e.Op, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("remote %s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap supports errors.Is/As chains
func (e *Error) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a retryable remote failure
func IsTransient(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Kind == KindTransient
}

// IsPermanent reports whether err is a non-retryable remote failure
func IsPermanent(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Kind == KindPermanent
}

// classifyStatus maps an HTTP status code to an error kind.
// 408/429 и все 5xx считаются временными; остальные 4xx - постоянными.
func classifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return KindTransient
	case status >= 500:
		return KindTransient
	default:
		return KindPermanent
	}
}

// transientErr wraps a transport-level failure (DNS, timeout, refused
// connection) as transient
func transientErr(op string, err error) *Error {
	return &Error{Op: op, Kind: KindTransient, Err: err}
}

// statusErr wraps an HTTP error response with its classification
func statusErr(op string, status int, err error) *Error {
	return &Error{Op: op, Kind: classifyStatus(status), Status: status, Err: err}
}
