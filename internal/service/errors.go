package service

import (
	"context"
	"errors"

	"github.com/lib/pq"

	"messaging-service/internal/repositories"
)

// Error taxonomy surfaced to callers. Handlers map these to HTTP statuses and
// stable machine-readable codes.
var (
	ErrNotFound       = errors.New("not found")
	ErrForbidden      = errors.New("forbidden")
	ErrValidation     = errors.New("validation error")
	ErrTimeout        = errors.New("store timeout")
	ErrTransientStore = errors.New("transient store error")
)

// Stable error codes carried in response bodies.
const (
	CodeNotFound       = "not_found"
	CodeForbidden      = "forbidden"
	CodeValidation     = "validation_error"
	CodeTimeout        = "timeout"
	CodeTransientStore = "transient_store_error"
	CodeInternal       = "internal_error"
)

// CodeFor returns the machine-readable code for a service error.
func CodeFor(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	case errors.Is(err, ErrTimeout):
		return CodeTimeout
	case errors.Is(err, ErrTransientStore):
		return CodeTransientStore
	}
	return CodeInternal
}

// classify folds repository and driver errors into the taxonomy. Anything
// recognized as a retryable infrastructure hiccup becomes ErrTransientStore;
// deadline expiry becomes ErrTimeout; the remaining repo sentinels map to
// NotFound.
func classify(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, repositories.ErrConversationNotFound),
		errors.Is(err, repositories.ErrMessageNotFound),
		errors.Is(err, repositories.ErrIdentityNotFound):
		return errors.Join(ErrNotFound, err)
	case errors.Is(err, context.DeadlineExceeded):
		return errors.Join(ErrTimeout, err)
	case isTransient(err):
		return errors.Join(ErrTransientStore, err)
	}
	return err
}

// Postgres error classes considered retryable: serialization failures,
// deadlocks, connection trouble, and resource exhaustion.
func isTransient(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch string(pqErr.Code) {
	case "40001", "40P01", "53300", "57P01":
		return true
	}
	return pqErr.Code.Class() == "08"
}
