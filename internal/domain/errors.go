package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound           = errors.New("not found")
	ErrQueueNotFound      = errors.New("queue not found for category")
	ErrUnknownCategory    = errors.New("unknown email category")
	ErrUnknownEmailType   = errors.New("unknown email type for category")
	ErrInvalidEmailType   = errors.New("email type is not part of the category catalogue")
	ErrInvalidPayload     = errors.New("payload must be a non-empty object")
	ErrBatchEmpty         = errors.New("batch must contain at least one email")
	ErrBatchTooLarge      = errors.New("batch exceeds maximum of 100 emails")
	ErrTransport          = errors.New("transport failure")
	ErrQuotaExhausted     = errors.New("daily send quota exhausted on every credential slot")
	ErrBackendUnavailable = errors.New("queue backend unavailable")
)
