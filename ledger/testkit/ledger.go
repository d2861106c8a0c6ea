// Package testkit provides a conformance suite every ledger backend must
// pass. A backend that passes is safe to place behind the submission
// sequencer.
package testkit

import (
	"context"
	"testing"

	"immutrack.io/custody/attest"
	"immutrack.io/custody/ledger"
)

// Config describes the identities a conformance ledger is constructed with.
type Config struct {
	// Owner is the privileged identity for authorization changes.
	Owner attest.Identity

	// Writer is the signing identity mutations are submitted under.
	Writer attest.Identity
}

// NewLedger constructs a fresh, empty ledger for a test. The returned ledger
// MUST be isolated from other tests.
type NewLedger func(t *testing.T, cfg Config) ledger.Ledger

// Owner returns the owner identity conformance ledgers use.
func Owner() attest.Identity {
	return mustIdentity("0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266")
}

// Handler returns the n-th well-known handler identity.
func Handler(n byte) attest.Identity {
	var id attest.Identity
	id[0] = 0x70
	id[attest.IdentitySize-1] = n
	return id
}

func mustIdentity(s string) attest.Identity {
	id, err := attest.ParseIdentity(s)
	if err != nil {
		panic(err)
	}
	return id
}

func submitNext(t *testing.T, l ledger.Ledger, m ledger.Mutation) ledger.CommitRef {
	t.Helper()
	ctx := context.Background()
	seq, err := l.NextSequence(ctx)
	if err != nil {
		t.Fatalf("NextSequence: %v", err)
	}
	ref, err := l.Submit(ctx, seq, m)
	if err != nil {
		t.Fatalf("Submit(%s): %v", m.Kind(), err)
	}
	if !ref.Defined() {
		t.Fatalf("Submit(%s): undefined commit ref", m.Kind())
	}
	return ref
}

// RunLedgerConformance exercises the ledger.Ledger contract against backends
// produced by newLedger.
func RunLedgerConformance(t *testing.T, newLedger NewLedger) {
	t.Helper()
	ctx := context.Background()
	owner := Owner()

	t.Run("SequenceEnforcement", func(t *testing.T) {
		l := newLedger(t, Config{Owner: owner, Writer: owner})

		seq, err := l.NextSequence(ctx)
		if err != nil {
			t.Fatalf("NextSequence: %v", err)
		}
		m := ledger.SetHandlerAuthorization{Handler: Handler(1), Authorized: true}

		if _, err := l.Submit(ctx, seq+1, m); err == nil {
			t.Fatal("expected sequence conflict for future sequence number")
		} else if !ledger.IsTransient(err) {
			t.Fatalf("expected transient sequence conflict, got %v", err)
		}

		if _, err := l.Submit(ctx, seq, m); err != nil {
			t.Fatalf("Submit at current sequence: %v", err)
		}

		// The committed sequence number is now stale.
		if _, err := l.Submit(ctx, seq, m); err == nil {
			t.Fatal("expected sequence conflict for stale sequence number")
		}

		next, err := l.NextSequence(ctx)
		if err != nil {
			t.Fatalf("NextSequence: %v", err)
		}
		if next != seq+1 {
			t.Fatalf("NextSequence after commit: got %d want %d", next, seq+1)
		}
	})

	t.Run("RegisterItem", func(t *testing.T) {
		l := newLedger(t, Config{Owner: owner, Writer: owner})

		exists, err := l.ItemExists(ctx, 12345)
		if err != nil {
			t.Fatalf("ItemExists: %v", err)
		}
		if exists {
			t.Fatal("fresh ledger must not contain item 12345")
		}

		submitNext(t, l, ledger.RegisterItem{
			ItemID:       12345,
			Name:         "Demo Item",
			Location:     "Origin",
			Timestamp:    "2024-01-01 09:00",
			RegisteredBy: owner,
		})

		exists, err = l.ItemExists(ctx, 12345)
		if err != nil {
			t.Fatalf("ItemExists: %v", err)
		}
		if !exists {
			t.Fatal("item must exist after registration")
		}

		rec, err := l.Item(ctx, 12345)
		if err != nil {
			t.Fatalf("Item: %v", err)
		}
		if !rec.Exists || rec.Name != "Demo Item" || rec.Location != "Origin" || rec.RegisteredBy != owner {
			t.Fatalf("unexpected record: %+v", rec)
		}

		// Re-registering the same id is an application-level rejection.
		seq, err := l.NextSequence(ctx)
		if err != nil {
			t.Fatalf("NextSequence: %v", err)
		}
		_, err = l.Submit(ctx, seq, ledger.RegisterItem{ItemID: 12345, Name: "Dup"})
		if !ledger.IsRejected(err) {
			t.Fatalf("expected rejection for duplicate registration, got %v", err)
		}
	})

	t.Run("OwnerOnlyAuthorization", func(t *testing.T) {
		l := newLedger(t, Config{Owner: owner, Writer: Handler(9)})

		seq, err := l.NextSequence(ctx)
		if err != nil {
			t.Fatalf("NextSequence: %v", err)
		}
		_, err = l.Submit(ctx, seq, ledger.SetHandlerAuthorization{Handler: Handler(1), Authorized: true})
		if !ledger.IsRejected(err) {
			t.Fatalf("expected rejection for non-owner writer, got %v", err)
		}
	})

	t.Run("TransferValidation", func(t *testing.T) {
		l := newLedger(t, Config{Owner: owner, Writer: owner})
		h := Handler(2)

		// Unknown item is rejected even for an authorized handler.
		submitNext(t, l, ledger.SetHandlerAuthorization{Handler: h, Authorized: true})
		seq, err := l.NextSequence(ctx)
		if err != nil {
			t.Fatalf("NextSequence: %v", err)
		}
		_, err = l.Submit(ctx, seq, ledger.TransferItem{ItemID: 404, To: h, Location: "Dock", Timestamp: "t"})
		if !ledger.IsNotFound(err) {
			t.Fatalf("expected item-not-found rejection, got %v", err)
		}

		submitNext(t, l, ledger.RegisterItem{ItemID: 42, Name: "Crate", Location: "Origin", Timestamp: "t0", RegisteredBy: owner})

		// Unauthorized receiving handler is rejected.
		seq, err = l.NextSequence(ctx)
		if err != nil {
			t.Fatalf("NextSequence: %v", err)
		}
		_, err = l.Submit(ctx, seq, ledger.TransferItem{ItemID: 42, To: Handler(3), Location: "Dock", Timestamp: "t1"})
		if !ledger.IsRejected(err) {
			t.Fatalf("expected rejection for unauthorized handler, got %v", err)
		}
	})

	t.Run("HistoryAppendOnlyOrdered", func(t *testing.T) {
		l := newLedger(t, Config{Owner: owner, Writer: owner})
		h1, h2 := Handler(4), Handler(5)

		submitNext(t, l, ledger.RegisterItem{ItemID: 42, Name: "Crate", Location: "Origin", Timestamp: "t0", RegisteredBy: owner})
		submitNext(t, l, ledger.SetHandlerAuthorization{Handler: h1, Authorized: true})
		submitNext(t, l, ledger.SetHandlerAuthorization{Handler: h2, Authorized: true})
		ref1 := submitNext(t, l, ledger.TransferItem{ItemID: 42, To: h1, Location: "Warehouse A", Timestamp: "t1"})
		ref2 := submitNext(t, l, ledger.TransferItem{ItemID: 42, To: h2, Location: "Warehouse B", Timestamp: "t2"})

		events, err := l.ItemHistory(ctx, 42)
		if err != nil {
			t.Fatalf("ItemHistory: %v", err)
		}
		if len(events) != 2 {
			t.Fatalf("history length: got %d want 2", len(events))
		}
		if !events[0].From.IsZero() {
			t.Fatalf("first event From must be the null sentinel, got %s", events[0].From)
		}
		if events[0].To != h1 || events[1].From != h1 || events[1].To != h2 {
			t.Fatalf("custody chain broken: %+v", events)
		}
		if events[1].Sequence <= events[0].Sequence {
			t.Fatalf("sequences must be strictly increasing: %d then %d", events[0].Sequence, events[1].Sequence)
		}
		if events[0].Ref.String() != ref1.String() || events[1].Ref.String() != ref2.String() {
			t.Fatal("history refs must match submission refs")
		}

		// Re-reads return the identical sequence.
		again, err := l.ItemHistory(ctx, 42)
		if err != nil {
			t.Fatalf("ItemHistory re-read: %v", err)
		}
		if len(again) != len(events) {
			t.Fatalf("re-read length changed: %d vs %d", len(again), len(events))
		}
		for i := range again {
			if again[i] != events[i] {
				t.Fatalf("re-read event %d differs", i)
			}
		}
	})
}
