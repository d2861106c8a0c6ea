package custodyapi

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"immutrack.io/custody/audit"
	"immutrack.io/custody/codec"
	"immutrack.io/custody/ledger"
	"immutrack.io/custody/pipeline"
)

// Server exposes a custody pipeline over the Custody gRPC service.
type Server struct {
	UnimplementedCustodyServer

	Pipeline *pipeline.Pipeline

	// Reader serves the audit export path. Usually the same ledger backend
	// the pipeline reads from.
	Reader ledger.Reader
}

func (s *Server) Register(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Pipeline == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing pipeline")
	}
	var req registerRequest
	if err := codec.Unmarshal(in.GetValue(), &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, "malformed register request")
	}
	res, err := s.Pipeline.RegisterItem(ctx, toRegisterRequest(req))
	if err != nil {
		return nil, mapErr(err)
	}
	return encodeResponse(fromRegisterResult(res))
}

func (s *Server) Authorize(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Pipeline == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing pipeline")
	}
	var req authorizeRequest
	if err := codec.Unmarshal(in.GetValue(), &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, "malformed authorize request")
	}
	res, err := s.Pipeline.SetAuthorization(ctx, toAuthorizeRequest(req))
	if err != nil {
		return nil, mapErr(err)
	}
	return encodeResponse(fromAuthorizeResult(res))
}

func (s *Server) Transfer(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Pipeline == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing pipeline")
	}
	var req transferRequest
	if err := codec.Unmarshal(in.GetValue(), &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, "malformed transfer request")
	}
	res, err := s.Pipeline.SubmitTransfer(ctx, toTransferRequest(req))
	if err != nil {
		return nil, mapErr(err)
	}
	return encodeResponse(fromTransferResult(res))
}

func (s *Server) Item(ctx context.Context, in *wrapperspb.UInt64Value) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Pipeline == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing pipeline")
	}
	rec, err := s.Pipeline.Item(ctx, in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	return encodeResponse(rec)
}

func (s *Server) History(ctx context.Context, in *wrapperspb.UInt64Value) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Pipeline == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing pipeline")
	}
	events, err := s.Pipeline.History(ctx, in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	return encodeResponse(events)
}

func (s *Server) AuditExport(ctx context.Context, in *wrapperspb.UInt64Value) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Reader == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing ledger reader")
	}
	bundle, err := audit.Export(ctx, s.Reader, in.GetValue())
	if err != nil {
		if ledger.IsNotFound(err) {
			return nil, status.Error(codes.NotFound, "item not registered")
		}
		return nil, status.Error(codes.Internal, err.Error())
	}
	// Bundle bytes are already canonical; send them as-is so the client can
	// re-derive the CID.
	return wrapperspb.Bytes(bundle.Bytes), nil
}

func encodeResponse(v any) (*wrapperspb.BytesValue, error) {
	b, err := codec.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "response encoding failed")
	}
	return wrapperspb.Bytes(b), nil
}
