// Package audit exports an item's committed custody history as a canonical
// evidence bundle.
//
// A bundle is a first-class document, not ephemeral output: its bytes are
// canonical CBOR, its content identifier is derived from those bytes, and the
// custody chain inside it can be re-verified offline by any party.
package audit

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"immutrack.io/custody/cidutil"
	"immutrack.io/custody/codec"
	"immutrack.io/custody/ledger"
)

var (
	// ErrNotCanonical reports bundle bytes that are not the canonical
	// encoding of their content.
	ErrNotCanonical = errors.New("audit: bundle bytes not canonical")

	// ErrBrokenChain reports a custody chain that is not append-only
	// ordered: sequences out of order, a from-identity that does not match
	// the previous holder, or a missing commit reference.
	ErrBrokenChain = errors.New("audit: custody chain broken")
)

// Bundle is a canonical custody evidence bundle. Bytes are canonical CBOR of
// the bundle content; CID is derived from Bytes.
type Bundle struct {
	Bytes []byte
	CID   string
}

// Content is what a bundle encodes: the item's registration record and its
// committed transfer events in commit order.
type Content struct {
	Item   ledger.ItemRecord      `cbor:"item"`
	Events []ledger.TransferEvent `cbor:"events"`
}

// Export reads itemID's record and history and returns its evidence bundle.
// An unregistered item fails with ledger.ErrItemNotFound.
func Export(ctx context.Context, r ledger.Reader, itemID uint64) (*Bundle, error) {
	rec, err := r.Item(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !rec.Exists {
		return nil, ledger.ErrItemNotFound
	}
	events, err := r.ItemHistory(ctx, itemID)
	if err != nil {
		return nil, err
	}
	b, err := codec.Marshal(Content{Item: rec, Events: events})
	if err != nil {
		return nil, fmt.Errorf("audit: encode bundle: %w", err)
	}
	return &Bundle{Bytes: b, CID: cidutil.RawSHA256String(b)}, nil
}

// FromBytes verifies bundle bytes and wraps them as a Bundle.
func FromBytes(b []byte) (*Bundle, error) {
	if _, err := Verify(b); err != nil {
		return nil, err
	}
	return &Bundle{Bytes: b, CID: cidutil.RawSHA256String(b)}, nil
}

// Verify checks bundle bytes and returns the decoded content.
//
// Canonical bytes are required: re-encoding the decoded content must
// reproduce the input exactly, so a bundle's CID commits to one and only one
// byte form. The custody chain must be append-only ordered: strictly
// increasing sequences, each from-identity equal to the previous holder, the
// first from-identity null, and every event carrying a commit reference.
func Verify(b []byte) (*Content, error) {
	var c Content
	if err := codec.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("audit: decode bundle: %w", err)
	}
	canon, err := codec.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("audit: re-encode bundle: %w", err)
	}
	if !bytes.Equal(b, canon) {
		return nil, ErrNotCanonical
	}

	if !c.Item.Exists {
		return nil, fmt.Errorf("%w: item record marked nonexistent", ErrBrokenChain)
	}
	for i, ev := range c.Events {
		if !ev.Ref.Defined() {
			return nil, fmt.Errorf("%w: event %d missing commit ref", ErrBrokenChain, i)
		}
		if ev.To.IsZero() {
			return nil, fmt.Errorf("%w: event %d has null to-identity", ErrBrokenChain, i)
		}
		if i == 0 {
			if !ev.From.IsZero() {
				return nil, fmt.Errorf("%w: first event from-identity not null", ErrBrokenChain)
			}
			continue
		}
		if ev.Sequence <= c.Events[i-1].Sequence {
			return nil, fmt.Errorf("%w: event %d sequence not increasing", ErrBrokenChain, i)
		}
		if ev.From != c.Events[i-1].To {
			return nil, fmt.Errorf("%w: event %d from-identity does not match previous holder", ErrBrokenChain, i)
		}
	}
	return &c, nil
}
