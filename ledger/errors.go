package ledger

import "errors"

var (
	// Rejections: the ledger's own application-level validation refused the
	// mutation. Never retried.
	ErrItemNotFound         = errors.New("ledger: item not found")
	ErrItemExists           = errors.New("ledger: item already registered")
	ErrHandlerNotAuthorized = errors.New("ledger: handler not authorized")
	ErrNotOwner             = errors.New("ledger: caller is not the owner")
	ErrInvalidMutation      = errors.New("ledger: invalid mutation")

	// Transient faults: safe to retry with a freshly read sequence number.
	ErrSequenceConflict = errors.New("ledger: sequence conflict")
	ErrUnavailable      = errors.New("ledger: unavailable")

	ErrInvalidRef = errors.New("ledger: invalid commit reference")
)

var rejections = []error{
	ErrItemNotFound,
	ErrItemExists,
	ErrHandlerNotAuthorized,
	ErrNotOwner,
	ErrInvalidMutation,
}

// IsRejected reports whether err is a terminal application-level rejection.
func IsRejected(err error) bool {
	for _, r := range rejections {
		if errors.Is(err, r) {
			return true
		}
	}
	return false
}

// IsTransient reports whether err may succeed if the same logical mutation is
// resubmitted at a freshly read sequence number.
func IsTransient(err error) bool {
	return errors.Is(err, ErrSequenceConflict) || errors.Is(err, ErrUnavailable)
}

func IsNotFound(err error) bool { return errors.Is(err, ErrItemNotFound) }
