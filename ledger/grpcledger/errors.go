package grpcledger

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"immutrack.io/custody/ledger"
)

func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.NotFound:
		return ledger.ErrItemNotFound
	case codes.AlreadyExists:
		return ledger.ErrItemExists
	case codes.FailedPrecondition:
		return ledger.ErrHandlerNotAuthorized
	case codes.PermissionDenied:
		return ledger.ErrNotOwner
	case codes.Aborted:
		return ledger.ErrSequenceConflict
	case codes.InvalidArgument:
		return ledger.ErrInvalidMutation
	case codes.Unavailable:
		return ledger.ErrUnavailable
	case codes.DeadlineExceeded:
		// Preserve the context error: a timed-out submission is an unknown
		// outcome, which the sequencer must never blindly retry.
		return context.DeadlineExceeded
	default:
		// Best-effort: if the node sent a known ledger error message, preserve it.
		switch st.Message() {
		case ledger.ErrItemNotFound.Error():
			return ledger.ErrItemNotFound
		case ledger.ErrSequenceConflict.Error():
			return ledger.ErrSequenceConflict
		case ledger.ErrUnavailable.Error():
			return ledger.ErrUnavailable
		default:
			return err
		}
	}
}
