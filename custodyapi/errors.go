package custodyapi

import (
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"immutrack.io/custody/attest"
	"immutrack.io/custody/pipeline"
)

// mapErr maps a pipeline rejection onto a gRPC status. The kind travels as a
// message prefix ("<kind>: ...") so the client can rebuild the exact
// rejection; the code is the closest canonical gRPC category.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	kind := pipeline.KindOf(err)
	if kind == 0 {
		return status.Error(codes.Internal, err.Error())
	}

	msg := err.Error()
	if kind == pipeline.KindIdentityMismatch {
		var perr *pipeline.Error
		if errors.As(err, &perr) && !perr.Recovered.IsZero() {
			msg += ": recovered " + perr.Recovered.String()
		}
	}

	var code codes.Code
	switch kind {
	case pipeline.KindInvalidSignature, pipeline.KindIdentityMismatch:
		code = codes.Unauthenticated
	case pipeline.KindItemNotFound:
		code = codes.NotFound
	case pipeline.KindHandlerNotAuthorized:
		code = codes.PermissionDenied
	case pipeline.KindSubmissionRejected:
		code = codes.FailedPrecondition
	case pipeline.KindSubmissionTimedOut:
		code = codes.DeadlineExceeded
	case pipeline.KindRetryExhausted:
		code = codes.Unavailable
	default:
		code = codes.Internal
	}
	return status.Error(code, msg)
}

// mapRPC rebuilds a pipeline rejection from a gRPC status on the client side.
func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	msg := st.Message()
	if prefix, rest, found := strings.Cut(msg, ": "); found {
		if kind := pipeline.KindFromString(prefix); kind != 0 {
			perr := &pipeline.Error{Kind: kind, Message: rest}
			if kind == pipeline.KindIdentityMismatch {
				perr.Recovered = recoveredFromMessage(rest)
			}
			return perr
		}
	}

	// Best-effort fallback on the status code alone.
	switch st.Code() {
	case codes.Unauthenticated:
		return &pipeline.Error{Kind: pipeline.KindInvalidSignature, Message: msg}
	case codes.NotFound:
		return &pipeline.Error{Kind: pipeline.KindItemNotFound, Message: msg}
	case codes.PermissionDenied:
		return &pipeline.Error{Kind: pipeline.KindHandlerNotAuthorized, Message: msg}
	case codes.FailedPrecondition:
		return &pipeline.Error{Kind: pipeline.KindSubmissionRejected, Message: msg}
	case codes.DeadlineExceeded:
		return &pipeline.Error{Kind: pipeline.KindSubmissionTimedOut, Message: msg}
	case codes.Unavailable:
		return &pipeline.Error{Kind: pipeline.KindRetryExhausted, Message: msg}
	default:
		return err
	}
}

// recoveredFromMessage extracts the "recovered 0x..." identity a mismatch
// status carries, if any.
func recoveredFromMessage(msg string) attest.Identity {
	const marker = "recovered 0x"
	i := strings.LastIndex(msg, marker)
	if i < 0 {
		return attest.ZeroIdentity
	}
	hex := msg[i+len(marker)-2:]
	if len(hex) < 2+2*attest.IdentitySize {
		return attest.ZeroIdentity
	}
	id, err := attest.ParseIdentity(hex[:2+2*attest.IdentitySize])
	if err != nil {
		return attest.ZeroIdentity
	}
	return id
}
