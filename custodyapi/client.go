package custodyapi

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"immutrack.io/custody/audit"
	"immutrack.io/custody/codec"
	"immutrack.io/custody/ledger"
	"immutrack.io/custody/pipeline"
)

// Client is a typed client for the Custody gRPC service.
type Client struct {
	cc     *grpc.ClientConn
	client CustodyClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int
}

func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return &Client{cc: cc, client: NewCustodyClient(cc)}, nil
}

// NewClient wraps an existing connection, e.g. a bufconn in tests.
func NewClient(cc *grpc.ClientConn) *Client {
	return &Client{cc: cc, client: NewCustodyClient(cc)}
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) Register(ctx context.Context, req pipeline.RegisterRequest) (pipeline.RegisterResult, error) {
	b, err := codec.Marshal(registerRequest{
		ItemID:       req.ItemID,
		Name:         req.Name,
		Location:     req.Location,
		Timestamp:    req.Timestamp,
		RegisteredBy: req.RegisteredBy,
	})
	if err != nil {
		return pipeline.RegisterResult{}, err
	}

	ctx, cancel := c.ctx(ctx)
	defer cancel()

	reply, err := c.client.Register(ctx, wrapperspb.Bytes(b))
	if err != nil {
		return pipeline.RegisterResult{}, mapRPC(err)
	}
	var resp registerResponse
	if err := codec.Unmarshal(reply.GetValue(), &resp); err != nil {
		return pipeline.RegisterResult{}, err
	}
	return pipeline.RegisterResult{
		Status: pipeline.Status(resp.Status),
		Record: resp.Record,
		Ref:    resp.Ref,
	}, nil
}

func (c *Client) Authorize(ctx context.Context, req pipeline.AuthorizeRequest) (pipeline.AuthorizeResult, error) {
	b, err := codec.Marshal(authorizeRequest{Handler: req.Handler, Authorized: req.Authorized})
	if err != nil {
		return pipeline.AuthorizeResult{}, err
	}

	ctx, cancel := c.ctx(ctx)
	defer cancel()

	reply, err := c.client.Authorize(ctx, wrapperspb.Bytes(b))
	if err != nil {
		return pipeline.AuthorizeResult{}, mapRPC(err)
	}
	var resp authorizeResponse
	if err := codec.Unmarshal(reply.GetValue(), &resp); err != nil {
		return pipeline.AuthorizeResult{}, err
	}
	return pipeline.AuthorizeResult{Status: pipeline.Status(resp.Status), Ref: resp.Ref}, nil
}

func (c *Client) Transfer(ctx context.Context, req pipeline.TransferRequest) (pipeline.TransferResult, error) {
	b, err := codec.Marshal(transferRequest{
		Handler:   req.Handler,
		Claim:     req.Claim,
		Signature: req.Signature,
	})
	if err != nil {
		return pipeline.TransferResult{}, err
	}

	ctx, cancel := c.ctx(ctx)
	defer cancel()

	reply, err := c.client.Transfer(ctx, wrapperspb.Bytes(b))
	if err != nil {
		return pipeline.TransferResult{}, mapRPC(err)
	}
	var resp transferResponse
	if err := codec.Unmarshal(reply.GetValue(), &resp); err != nil {
		return pipeline.TransferResult{}, err
	}
	return pipeline.TransferResult{
		Status:    pipeline.Status(resp.Status),
		Handler:   resp.Handler,
		Timestamp: resp.Timestamp,
		Ref:       resp.Ref,
	}, nil
}

func (c *Client) Item(ctx context.Context, itemID uint64) (ledger.ItemRecord, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	reply, err := c.client.Item(ctx, wrapperspb.UInt64(itemID))
	if err != nil {
		return ledger.ItemRecord{}, mapRPC(err)
	}
	var rec ledger.ItemRecord
	if err := codec.Unmarshal(reply.GetValue(), &rec); err != nil {
		return ledger.ItemRecord{}, err
	}
	return rec, nil
}

func (c *Client) History(ctx context.Context, itemID uint64) ([]ledger.TransferEvent, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	reply, err := c.client.History(ctx, wrapperspb.UInt64(itemID))
	if err != nil {
		return nil, mapRPC(err)
	}
	var events []ledger.TransferEvent
	if err := codec.Unmarshal(reply.GetValue(), &events); err != nil {
		return nil, err
	}
	return events, nil
}

// AuditExport fetches an item's evidence bundle and re-verifies it locally,
// deriving the CID from the received bytes rather than trusting the node.
func (c *Client) AuditExport(ctx context.Context, itemID uint64) (*audit.Bundle, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	reply, err := c.client.AuditExport(ctx, wrapperspb.UInt64(itemID))
	if err != nil {
		return nil, mapRPC(err)
	}
	return audit.FromBytes(reply.GetValue())
}

func (c *Client) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, c.Timeout)
}
