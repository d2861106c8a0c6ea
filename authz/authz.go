// Package authz tracks which handler identities may record transfers.
//
// Authorization is a plain boolean per handler, toggled only by the ledger's
// configured owner identity. That privilege is enforced by the ledger itself;
// this package surfaces the rejection rather than re-implementing the check.
package authz

import (
	"context"
	"log/slog"

	"immutrack.io/custody/attest"
	"immutrack.io/custody/ledger"
	"immutrack.io/custody/sequencer"
)

// Options tunes the store.
type Options struct {
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Store is the handler authorization gate. Reads go straight to the ledger;
// authorization changes are funneled through the sequencer.
type Store struct {
	reader ledger.Reader
	seq    *sequencer.Sequencer
	logger *slog.Logger
}

// New constructs a Store over a ledger read surface and the shared submission
// sequencer.
func New(r ledger.Reader, s *sequencer.Sequencer, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{reader: r, seq: s, logger: logger}
}

// IsAuthorized reports whether handler may record transfers. Handlers default
// to unauthorized on first reference.
func (s *Store) IsAuthorized(ctx context.Context, handler attest.Identity) (bool, error) {
	return s.reader.IsAuthorizedHandler(ctx, handler)
}

// SetAuthorization commits an authorization toggle for handler. The ledger
// rejects it with ledger.ErrNotOwner unless the configured writer identity is
// the owner.
func (s *Store) SetAuthorization(ctx context.Context, handler attest.Identity, authorized bool) (ledger.CommitRef, error) {
	ref, err := s.seq.Submit(ctx, ledger.SetHandlerAuthorization{
		Handler:    handler,
		Authorized: authorized,
	})
	if err != nil {
		return ledger.UndefRef, err
	}
	s.logger.Debug("handler authorization set",
		"handler", handler.String(), "authorized", authorized, "ref", ref.String())
	return ref, nil
}
