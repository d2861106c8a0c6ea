// Package pipeline orchestrates the custody transfer protocol.
//
// A transfer request is gated in a fixed order: signature verification,
// recovered-vs-claimed identity comparison, item existence, handler
// authorization, then submission through the shared sequencer. Verification
// always runs first, so an attacker cannot probe item existence with forged
// signatures. The server, never the client, assigns the transfer timestamp.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"immutrack.io/custody/attest"
	"immutrack.io/custody/authz"
	"immutrack.io/custody/ledger"
	"immutrack.io/custody/registry"
	"immutrack.io/custody/sequencer"
)

// Status reports the outcome of a successful pipeline operation.
type Status string

const (
	StatusRegistered        Status = "registered"
	StatusAlreadyRegistered Status = "already_registered"
	StatusOK                Status = "ok"
	StatusLogged            Status = "logged"
)

// Options configures a Pipeline.
type Options struct {
	// Domain is the attestation domain binding transfers must be signed
	// under. All four fields are required.
	Domain attest.Domain

	// AutoAuthorize grants authorization on a handler's first successfully
	// verified transfer instead of rejecting it. Trust-on-first-use: any
	// party able to produce a valid attestation gains standing
	// authorization, so strict deployments leave this off.
	AutoAuthorize bool

	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger

	// Now is the timestamp authority. If nil, time.Now is used.
	Now func() time.Time
}

// Pipeline composes the verifier, registry, authorization store, and
// sequencer into the request-handling protocol. It owns no durable state;
// everything durable lives in the ledger.
type Pipeline struct {
	reader   ledger.Reader
	seq      *sequencer.Sequencer
	registry *registry.Registry
	authz    *authz.Store

	domain        attest.Domain
	autoAuthorize bool
	logger        *slog.Logger
	now           func() time.Time
}

// New constructs a Pipeline over a ledger read surface and the shared
// submission sequencer.
func New(r ledger.Reader, s *sequencer.Sequencer, opts Options) (*Pipeline, error) {
	if _, err := attest.SigningDigest(opts.Domain, attest.Claim{}); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		reader:        r,
		seq:           s,
		registry:      registry.New(r, s, registry.Options{Logger: logger}),
		authz:         authz.New(r, s, authz.Options{Logger: logger}),
		domain:        opts.Domain,
		autoAuthorize: opts.AutoAuthorize,
		logger:        logger,
		now:           now,
	}, nil
}

// Domain returns the attestation domain binding transfers are verified
// against.
func (p *Pipeline) Domain() attest.Domain { return p.domain }

// RegisterRequest asks for an item registration.
type RegisterRequest struct {
	ItemID       uint64 `json:"itemId"`
	Name         string `json:"name"`
	Location     string `json:"location"`
	Timestamp    string `json:"timestamp"`
	RegisteredBy string `json:"registeredBy"`
}

// RegisterResult reports a registration outcome.
type RegisterResult struct {
	Status Status            `json:"status"`
	Record ledger.ItemRecord `json:"record"`
	Ref    ledger.CommitRef  `json:"commitRef"`
}

// RegisterItem registers an item, idempotently. Re-registering an existing id
// submits no mutation and reports StatusAlreadyRegistered with the original
// metadata.
func (p *Pipeline) RegisterItem(ctx context.Context, req RegisterRequest) (RegisterResult, error) {
	var by attest.Identity
	if req.RegisteredBy != "" {
		var err error
		by, err = attest.ParseIdentity(req.RegisteredBy)
		if err != nil {
			return RegisterResult{}, wrapError(KindSubmissionRejected, "invalid registeredBy identity", err)
		}
	}
	timestamp := req.Timestamp
	if timestamp == "" {
		timestamp = p.timestamp()
	}

	res, err := p.registry.Register(ctx, req.ItemID, req.Name, req.Location, timestamp, by)
	if err != nil {
		return RegisterResult{}, p.submitError(err)
	}
	if !res.Created {
		return RegisterResult{Status: StatusAlreadyRegistered, Record: res.Record}, nil
	}
	return RegisterResult{Status: StatusRegistered, Record: res.Record, Ref: res.Ref}, nil
}

// AuthorizeRequest asks for a handler authorization toggle.
type AuthorizeRequest struct {
	Handler    string `json:"handler"`
	Authorized bool   `json:"authorized"`
}

// AuthorizeResult reports an authorization change outcome.
type AuthorizeResult struct {
	Status Status           `json:"status"`
	Ref    ledger.CommitRef `json:"commitRef"`
}

// SetAuthorization commits an authorization toggle. The ledger enforces that
// only the owner identity may do this; its rejection is surfaced, not
// swallowed.
func (p *Pipeline) SetAuthorization(ctx context.Context, req AuthorizeRequest) (AuthorizeResult, error) {
	handler, err := attest.ParseIdentity(req.Handler)
	if err != nil {
		return AuthorizeResult{}, wrapError(KindSubmissionRejected, "invalid handler identity", err)
	}
	ref, err := p.authz.SetAuthorization(ctx, handler, req.Authorized)
	if err != nil {
		return AuthorizeResult{}, p.submitError(err)
	}
	return AuthorizeResult{Status: StatusOK, Ref: ref}, nil
}

// TransferRequest asks to record a custody handoff. Handler is the claimed
// identity; Signature must be an attestation over Claim under the pipeline's
// domain.
type TransferRequest struct {
	Handler   string       `json:"handler"`
	Claim     attest.Claim `json:"claim"`
	Signature string       `json:"signature"`
}

// TransferResult reports a committed transfer.
type TransferResult struct {
	Status    Status           `json:"status"`
	Handler   attest.Identity  `json:"handler"`
	Timestamp string           `json:"timestamp"`
	Ref       ledger.CommitRef `json:"commitRef"`
}

// SubmitTransfer runs the transfer protocol end to end.
//
// Gating order is fixed: verify, compare identities, check item existence,
// check (or establish) authorization, then submit. Failure at any gate
// returns a *Error with the corresponding Kind and submits nothing further.
func (p *Pipeline) SubmitTransfer(ctx context.Context, req TransferRequest) (TransferResult, error) {
	recovered, err := attest.RecoverSigner(p.domain, req.Claim, req.Signature)
	if err != nil {
		return TransferResult{}, wrapError(KindInvalidSignature, "attestation rejected", err)
	}

	claimed, err := attest.ParseIdentity(req.Handler)
	if err != nil {
		return TransferResult{}, &Error{
			Kind:      KindIdentityMismatch,
			Message:   "claimed handler identity unparseable",
			Recovered: recovered,
			Cause:     err,
		}
	}
	if claimed != recovered {
		return TransferResult{}, &Error{
			Kind:      KindIdentityMismatch,
			Message:   "signature recovered to a different identity",
			Recovered: recovered,
		}
	}

	exists, err := p.registry.Exists(ctx, req.Claim.ItemID)
	if err != nil {
		return TransferResult{}, p.submitError(err)
	}
	if !exists {
		return TransferResult{}, newError(KindItemNotFound, "item not registered")
	}

	authorized, err := p.authz.IsAuthorized(ctx, recovered)
	if err != nil {
		return TransferResult{}, p.submitError(err)
	}
	if !authorized {
		if !p.autoAuthorize {
			return TransferResult{}, newError(KindHandlerNotAuthorized, "handler not authorized")
		}
		// Trust on first successful attestation: the authorization must be
		// committed before the transfer is even enqueued, so these two
		// submissions are sequential on purpose.
		if _, err := p.authz.SetAuthorization(ctx, recovered, true); err != nil {
			return TransferResult{}, p.submitError(err)
		}
		p.logger.Info("handler auto-authorized", "handler", recovered.String())
	}

	timestamp := p.timestamp()
	ref, err := p.seq.Submit(ctx, ledger.TransferItem{
		ItemID:    req.Claim.ItemID,
		To:        recovered,
		Location:  req.Claim.Location,
		Timestamp: timestamp,
	})
	if err != nil {
		return TransferResult{}, p.submitError(err)
	}

	p.logger.Info("transfer logged",
		"item", req.Claim.ItemID, "to", recovered.String(), "ref", ref.String())
	return TransferResult{
		Status:    StatusLogged,
		Handler:   recovered,
		Timestamp: timestamp,
		Ref:       ref,
	}, nil
}

// History returns the committed transfer events for itemID in commit order.
// Pending submissions are never visible.
func (p *Pipeline) History(ctx context.Context, itemID uint64) ([]ledger.TransferEvent, error) {
	exists, err := p.registry.Exists(ctx, itemID)
	if err != nil {
		return nil, p.submitError(err)
	}
	if !exists {
		return nil, newError(KindItemNotFound, "item not registered")
	}
	return p.reader.ItemHistory(ctx, itemID)
}

// Item returns the registration record for itemID.
func (p *Pipeline) Item(ctx context.Context, itemID uint64) (ledger.ItemRecord, error) {
	rec, err := p.registry.Item(ctx, itemID)
	if err != nil {
		return ledger.ItemRecord{}, p.submitError(err)
	}
	if !rec.Exists {
		return ledger.ItemRecord{}, newError(KindItemNotFound, "item not registered")
	}
	return rec, nil
}

func (p *Pipeline) timestamp() string {
	return p.now().UTC().Format(time.RFC3339)
}

// submitError maps ledger and sequencer failures onto the rejection taxonomy.
func (p *Pipeline) submitError(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	switch {
	case errors.Is(err, sequencer.ErrTimedOut):
		return wrapError(KindSubmissionTimedOut, "ledger confirmation timed out; outcome unknown", err)
	case errors.Is(err, sequencer.ErrRetryExhausted):
		return wrapError(KindRetryExhausted, "ledger submission retries exhausted", err)
	case ledger.IsNotFound(err):
		return wrapError(KindItemNotFound, "item not registered", err)
	case errors.Is(err, ledger.ErrHandlerNotAuthorized):
		return wrapError(KindHandlerNotAuthorized, "handler not authorized", err)
	case ledger.IsRejected(err):
		return wrapError(KindSubmissionRejected, "ledger rejected the submission", err)
	default:
		return wrapError(KindSubmissionRejected, "ledger submission failed", err)
	}
}
