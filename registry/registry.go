// Package registry tracks which item identifiers exist and their
// registration metadata.
//
// Registration is idempotent: registering an id that already exists submits
// no ledger mutation and returns the existing record unchanged, so callers
// and their retries never risk a duplicate on-ledger record.
package registry

import (
	"context"
	"errors"
	"log/slog"

	"immutrack.io/custody/attest"
	"immutrack.io/custody/ledger"
	"immutrack.io/custody/sequencer"
)

// Options tunes the registry.
type Options struct {
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Registry is the item read gate and registration path. Reads go straight to
// the ledger; the registration mutation is funneled through the sequencer.
type Registry struct {
	reader ledger.Reader
	seq    *sequencer.Sequencer
	logger *slog.Logger
}

// New constructs a Registry over a ledger read surface and the shared
// submission sequencer.
func New(r ledger.Reader, s *sequencer.Sequencer, opts Options) *Registry {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{reader: r, seq: s, logger: logger}
}

// Exists reports whether itemID is registered.
func (r *Registry) Exists(ctx context.Context, itemID uint64) (bool, error) {
	return r.reader.ItemExists(ctx, itemID)
}

// Item returns the registration record for itemID. A missing item reads as a
// zero record with Exists false.
func (r *Registry) Item(ctx context.Context, itemID uint64) (ledger.ItemRecord, error) {
	return r.reader.Item(ctx, itemID)
}

// RegisterResult reports the outcome of a Register call.
type RegisterResult struct {
	// Created is true when this call committed a new registration. False
	// means the item already existed and no mutation was submitted.
	Created bool

	// Record is the item's registration metadata: the newly committed values
	// when Created, the pre-existing ones otherwise.
	Record ledger.ItemRecord

	// Ref identifies the registration commit. Undefined when Created is
	// false.
	Ref ledger.CommitRef
}

// Register registers itemID with the given metadata. Registering an existing
// id is a no-op that returns the existing record.
func (r *Registry) Register(ctx context.Context, itemID uint64, name, location, timestamp string, by attest.Identity) (RegisterResult, error) {
	rec, err := r.reader.Item(ctx, itemID)
	if err != nil {
		return RegisterResult{}, err
	}
	if rec.Exists {
		return RegisterResult{Record: rec}, nil
	}

	ref, err := r.seq.Submit(ctx, ledger.RegisterItem{
		ItemID:       itemID,
		Name:         name,
		Location:     location,
		Timestamp:    timestamp,
		RegisteredBy: by,
	})
	if errors.Is(err, ledger.ErrItemExists) {
		// Lost a registration race after the existence read. The ledger
		// rejected the duplicate, so report the record that won.
		rec, rerr := r.reader.Item(ctx, itemID)
		if rerr != nil {
			return RegisterResult{}, rerr
		}
		return RegisterResult{Record: rec}, nil
	}
	if err != nil {
		return RegisterResult{}, err
	}

	r.logger.Debug("item registered", "item", itemID, "ref", ref.String())
	return RegisterResult{
		Created: true,
		Record: ledger.ItemRecord{
			ItemID:       itemID,
			Name:         name,
			Location:     location,
			Timestamp:    timestamp,
			RegisteredBy: by,
			Exists:       true,
		},
		Ref: ref,
	}, nil
}
