package domain

import "errors"

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// Error taxonomy. Every failure surfaced by the trading core wraps exactly
// one of these sentinels so the API layer can map it to a stable category.
var (
	// ErrMarketNotFound is returned when a market id or symbol resolves to nothing.
	ErrMarketNotFound = errors.New("market not found")

	// ErrOrderNotFound is returned when an order id does not exist or belongs
	// to a different account. Ownership misses deliberately look identical.
	ErrOrderNotFound = errors.New("order not found")

	// ErrMarketInactive is returned when placing into or reading a halted market.
	ErrMarketInactive = errors.New("market is not active")

	// ErrValidation is returned for malformed input: bad side/type/status,
	// quantity out of bounds, missing or misaligned price, bad pagination.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized is returned when no valid caller identity is present.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidTransition is returned when a status change would leave a
	// terminal state or skip the state machine.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvariantViolation is returned when a stored row fails a fill invariant.
	ErrInvariantViolation = errors.New("order invariant violation")

	// ErrExternalAPI is returned when the upstream exchange proxy fails.
	ErrExternalAPI = errors.New("external api error")
)

// StorageError wraps a database failure. Callers own retry policy, so these
// report retriable.
type StorageError struct {
	Op  string // Operation that failed (e.g., "insert_order", "load_bids")
	Err error  // Underlying error
}

func (e *StorageError) Error() string {
	return "storage " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) IsRetriable() bool {
	return true
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError creates a retriable storage error
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

// ValidationError carries the field that failed along with ErrValidation.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return "validation error [" + e.Field + "]: " + e.Msg
}

func (e *ValidationError) IsRetriable() bool {
	return false
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a field-level validation error
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Msg: msg}
}
