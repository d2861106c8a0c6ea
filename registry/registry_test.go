package registry_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"immutrack.io/custody/ledger"
	"immutrack.io/custody/ledger/memledger"
	"immutrack.io/custody/ledger/testkit"
	"immutrack.io/custody/registry"
	"immutrack.io/custody/sequencer"
)

func newRegistry(t *testing.T) (*registry.Registry, *memledger.Ledger) {
	t.Helper()
	mem, err := memledger.New(memledger.Config{Owner: testkit.Owner()})
	if err != nil {
		t.Fatalf("memledger.New: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	seq := sequencer.New(mem, sequencer.Options{Logger: logger})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go seq.Run(ctx)
	return registry.New(mem, seq, registry.Options{Logger: logger}), mem
}

func TestRegisterAndExists(t *testing.T) {
	r, _ := newRegistry(t)
	ctx := context.Background()

	exists, err := r.Exists(ctx, 42)
	if err != nil || exists {
		t.Fatalf("Exists before registration = (%v, %v)", exists, err)
	}

	res, err := r.Register(ctx, 42, "Pallet 42", "Factory", "2026-08-30", testkit.Handler(1))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !res.Created || !res.Ref.Defined() {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Record.Name != "Pallet 42" || !res.Record.Exists {
		t.Fatalf("unexpected record %+v", res.Record)
	}

	exists, err = r.Exists(ctx, 42)
	if err != nil || !exists {
		t.Fatalf("Exists after registration = (%v, %v)", exists, err)
	}
}

func TestRegisterIdempotent(t *testing.T) {
	r, _ := newRegistry(t)
	ctx := context.Background()

	if _, err := r.Register(ctx, 7, "Crate 7", "Dock", "2026-08-30", testkit.Handler(1)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	res, err := r.Register(ctx, 7, "Other Name", "Elsewhere", "2026-08-31", testkit.Handler(2))
	if err != nil {
		t.Fatalf("Register (repeat): %v", err)
	}
	if res.Created {
		t.Fatal("repeat registration must not commit a mutation")
	}
	if res.Ref.Defined() {
		t.Fatal("repeat registration must not carry a commit ref")
	}
	if res.Record.Name != "Crate 7" || res.Record.Location != "Dock" {
		t.Fatalf("repeat registration changed metadata: %+v", res.Record)
	}
}

// staleReader serves one stale existence read before delegating, simulating a
// registration race where another caller commits between the read and the
// submission.
type staleReader struct {
	ledger.Reader

	mu    sync.Mutex
	stale bool
}

func (r *staleReader) Item(ctx context.Context, itemID uint64) (ledger.ItemRecord, error) {
	r.mu.Lock()
	if r.stale {
		r.stale = false
		r.mu.Unlock()
		return ledger.ItemRecord{ItemID: itemID}, nil
	}
	r.mu.Unlock()
	return r.Reader.Item(ctx, itemID)
}

func TestRegisterLostRace(t *testing.T) {
	mem, err := memledger.New(memledger.Config{Owner: testkit.Owner()})
	if err != nil {
		t.Fatalf("memledger.New: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	seq := sequencer.New(mem, sequencer.Options{Logger: logger})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go seq.Run(ctx)

	// The winning registration is already on the ledger; the stale reader
	// hides it from the next Register call's existence check.
	if _, err := mem.Submit(ctx, 0, ledger.RegisterItem{
		ItemID:   9,
		Name:     "Spool 9",
		Location: "Mill",
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	r := registry.New(&staleReader{Reader: mem, stale: true}, seq, registry.Options{Logger: logger})
	res, err := r.Register(ctx, 9, "Loser", "Nowhere", "2026-08-30", testkit.Handler(1))
	if err != nil {
		t.Fatalf("Register after lost race: %v", err)
	}
	if res.Created {
		t.Fatal("lost race must not report a new registration")
	}
	if res.Record.Name != "Spool 9" {
		t.Fatalf("lost race must return the winning record, got %+v", res.Record)
	}
}
