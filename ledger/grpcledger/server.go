package grpcledger

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"immutrack.io/custody/attest"
	"immutrack.io/custody/codec"
	"immutrack.io/custody/ledger"
)

// Server exposes a ledger.Ledger over the Ledger gRPC service.
type Server struct {
	UnimplementedLedgerServer
	Ledger ledger.Ledger
}

func (s *Server) NextSequence(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.UInt64Value, error) {
	if s == nil || s.Ledger == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing ledger")
	}
	seq, err := s.Ledger.NextSequence(ctx)
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.UInt64(seq), nil
}

func (s *Server) Submit(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	if s == nil || s.Ledger == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing ledger")
	}
	seq, m, err := decodeSubmission(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, ledger.ErrInvalidMutation.Error())
	}
	ref, err := s.Ledger.Submit(ctx, seq, m)
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.String(ref.String()), nil
}

func (s *Server) ItemExists(ctx context.Context, in *wrapperspb.UInt64Value) (*wrapperspb.BoolValue, error) {
	if s == nil || s.Ledger == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing ledger")
	}
	exists, err := s.Ledger.ItemExists(ctx, in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bool(exists), nil
}

func (s *Server) Item(ctx context.Context, in *wrapperspb.UInt64Value) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Ledger == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing ledger")
	}
	rec, err := s.Ledger.Item(ctx, in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	b, err := codec.Marshal(rec)
	if err != nil {
		return nil, status.Error(codes.Internal, "record encoding failed")
	}
	return wrapperspb.Bytes(b), nil
}

func (s *Server) IsAuthorizedHandler(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	if s == nil || s.Ledger == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing ledger")
	}
	handler, err := attest.ParseIdentity(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	ok, err := s.Ledger.IsAuthorizedHandler(ctx, handler)
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bool(ok), nil
}

func (s *Server) ItemHistory(ctx context.Context, in *wrapperspb.UInt64Value) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Ledger == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing ledger")
	}
	events, err := s.Ledger.ItemHistory(ctx, in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	b, err := codec.Marshal(events)
	if err != nil {
		return nil, status.Error(codes.Internal, "history encoding failed")
	}
	return wrapperspb.Bytes(b), nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ledger.ErrItemNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ledger.ErrItemExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, ledger.ErrHandlerNotAuthorized):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, ledger.ErrNotOwner):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, ledger.ErrSequenceConflict):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, ledger.ErrInvalidMutation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ledger.ErrUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
