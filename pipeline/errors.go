package pipeline

import (
	"errors"
	"fmt"

	"immutrack.io/custody/attest"
)

// Kind is a machine-distinguishable rejection category. Client automation
// reacts to the kind, never to message text.
type Kind int

const (
	// KindInvalidSignature: the attestation is malformed or does not verify.
	KindInvalidSignature Kind = iota + 1

	// KindIdentityMismatch: the signature verified, but the recovered signer
	// is not the claimed handler. The recovered identity is reported for
	// diagnostics.
	KindIdentityMismatch

	// KindItemNotFound: the referenced item is not registered.
	KindItemNotFound

	// KindHandlerNotAuthorized: the handler is not authorized and
	// auto-authorization is disabled.
	KindHandlerNotAuthorized

	// KindSubmissionRejected: the ledger rejected the mutation at
	// application level. Not retried.
	KindSubmissionRejected

	// KindSubmissionTimedOut: confirmation timed out; the outcome is
	// unknown. The caller must reconcile via the history read path before
	// resubmitting.
	KindSubmissionTimedOut

	// KindRetryExhausted: transient-fault retries exceeded the bound.
	KindRetryExhausted
)

var kindNames = map[Kind]string{
	KindInvalidSignature:     "invalid_signature",
	KindIdentityMismatch:     "identity_mismatch",
	KindItemNotFound:         "item_not_found",
	KindHandlerNotAuthorized: "handler_not_authorized",
	KindSubmissionRejected:   "submission_rejected",
	KindSubmissionTimedOut:   "submission_timed_out",
	KindRetryExhausted:       "retry_exhausted",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// KindFromString maps a kind's string form back to the Kind. Unknown strings
// map to 0. Transports use this to carry the rejection kind across the wire.
func KindFromString(s string) Kind {
	for k, name := range kindNames {
		if name == s {
			return k
		}
	}
	return 0
}

// Error is a pipeline rejection.
type Error struct {
	Kind    Kind
	Message string

	// Recovered is the identity the signature actually verified for. Set
	// only for KindIdentityMismatch.
	Recovered attest.Identity

	Cause error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func wrapError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf returns the rejection kind carried by err, or 0 if err is not a
// pipeline rejection.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsKind reports whether err is a pipeline rejection of the given kind.
func IsKind(err error, kind Kind) bool { return KindOf(err) == kind }
