// Package ledger defines the capability interface to the external custody
// ledger: an append-only, single-writer system of record for item, handler,
// and transfer state.
//
// The ledger accepts mutations from exactly one signing identity and requires
// each mutation to carry a sequence number one greater than the previous
// accepted mutation. Submitting with a stale or duplicate sequence number is
// rejected with ErrSequenceConflict.
package ledger

import (
	"context"

	"immutrack.io/custody/attest"
)

// ItemRecord is an item's registration metadata.
//
// Once registered, Exists never reverts to false and ItemID is immutable.
type ItemRecord struct {
	ItemID       uint64          `cbor:"itemId" json:"itemId"`
	Name         string          `cbor:"name" json:"name"`
	Location     string          `cbor:"location" json:"location"`
	Timestamp    string          `cbor:"timestamp" json:"timestamp"`
	RegisteredBy attest.Identity `cbor:"registeredBy" json:"registeredBy"`
	Exists       bool            `cbor:"exists" json:"exists"`
}

// TransferEvent is one immutable entry in an item's custody history.
//
// Events for an item are totally ordered by ledger commit order. The first
// event's From is the null identity sentinel.
type TransferEvent struct {
	From      attest.Identity `cbor:"from" json:"from"`
	To        attest.Identity `cbor:"to" json:"to"`
	Location  string          `cbor:"location" json:"location"`
	Timestamp string          `cbor:"timestamp" json:"timestamp"`
	Sequence  uint64          `cbor:"sequence" json:"sequence"`
	Ref       CommitRef       `cbor:"ref" json:"ref"`
}

// Reader is the ledger's query surface. Reads are safe to run concurrently
// and reflect only committed state.
type Reader interface {
	ItemExists(ctx context.Context, itemID uint64) (bool, error)
	Item(ctx context.Context, itemID uint64) (ItemRecord, error)
	IsAuthorizedHandler(ctx context.Context, handler attest.Identity) (bool, error)
	ItemHistory(ctx context.Context, itemID uint64) ([]TransferEvent, error)
}

// Writer is the ledger's mutation surface, bound to the single configured
// signing identity.
//
// Contract:
//   - NextSequence returns the sequence number the next accepted mutation
//     must carry.
//   - Submit commits m at seq atomically, or fails without side effects.
//     A wrong seq fails with ErrSequenceConflict; application-level
//     validation failures fail with a rejection sentinel (IsRejected).
//   - A mutation, once committed, is durable and immutable.
type Writer interface {
	NextSequence(ctx context.Context) (uint64, error)
	Submit(ctx context.Context, seq uint64, m Mutation) (CommitRef, error)
}

// Ledger combines the read and write surfaces of one backend.
type Ledger interface {
	Reader
	Writer
}
