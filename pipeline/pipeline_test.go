package pipeline_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"immutrack.io/custody/attest"
	"immutrack.io/custody/ledger"
	"immutrack.io/custody/ledger/memledger"
	"immutrack.io/custody/ledger/testkit"
	"immutrack.io/custody/pipeline"
	"immutrack.io/custody/sequencer"
)

// countingWriter counts committed mutations so tests can assert that rejected
// requests submit nothing.
type countingWriter struct {
	ledger.Writer

	mu      sync.Mutex
	commits int
}

func (w *countingWriter) Submit(ctx context.Context, seq uint64, m ledger.Mutation) (ledger.CommitRef, error) {
	ref, err := w.Writer.Submit(ctx, seq, m)
	if err == nil {
		w.mu.Lock()
		w.commits++
		w.mu.Unlock()
	}
	return ref, err
}

func (w *countingWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.commits
}

type env struct {
	ledger *memledger.Ledger
	writer *countingWriter
	pipe   *pipeline.Pipeline
}

var testNow = time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC)

func newEnv(t *testing.T, autoAuthorize bool) *env {
	t.Helper()

	mem, err := memledger.New(memledger.Config{Owner: testkit.Owner()})
	if err != nil {
		t.Fatalf("memledger.New: %v", err)
	}
	writer := &countingWriter{Writer: mem}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	seq := sequencer.New(writer, sequencer.Options{Logger: logger})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go seq.Run(ctx)

	pipe, err := pipeline.New(mem, seq, pipeline.Options{
		Domain:        testDomain(),
		AutoAuthorize: autoAuthorize,
		Logger:        logger,
		Now:           func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	return &env{ledger: mem, writer: writer, pipe: pipe}
}

func testDomain() attest.Domain {
	return attest.Domain{
		Scheme:  attest.DefaultScheme,
		Version: attest.DefaultVersion,
		Network: "testnet",
		Ledger:  testkit.Owner(),
	}
}

type signer struct {
	priv ed25519.PrivateKey
	id   attest.Identity
}

func newSigner(t *testing.T) signer {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	key, err := attest.AttestationKeyEd25519(pub)
	if err != nil {
		t.Fatalf("AttestationKeyEd25519: %v", err)
	}
	id, err := attest.IdentityFromAttestationKey(key)
	if err != nil {
		t.Fatalf("IdentityFromAttestationKey: %v", err)
	}
	return signer{priv: priv, id: id}
}

func (s signer) sign(t *testing.T, d attest.Domain, c attest.Claim) string {
	t.Helper()
	sig, err := attest.SignClaimEd25519(d, c, s.priv)
	if err != nil {
		t.Fatalf("SignClaimEd25519: %v", err)
	}
	return sig
}

func registerItem(t *testing.T, e *env, itemID uint64, name, location string) {
	t.Helper()
	res, err := e.pipe.RegisterItem(context.Background(), pipeline.RegisterRequest{
		ItemID:   itemID,
		Name:     name,
		Location: location,
	})
	if err != nil {
		t.Fatalf("RegisterItem: %v", err)
	}
	if res.Status != pipeline.StatusRegistered {
		t.Fatalf("RegisterItem status = %q, want %q", res.Status, pipeline.StatusRegistered)
	}
}

func TestTransferAutoAuthorization(t *testing.T) {
	e := newEnv(t, true)
	h := newSigner(t)
	ctx := context.Background()

	registerItem(t, e, 42, "Pallet 42", "Factory")

	claim := attest.Claim{ItemID: 42, Location: "Warehouse A"}
	// Claimed identity in uppercase hex: comparison is case-insensitive.
	claimed := "0x" + strings.ToUpper(strings.TrimPrefix(h.id.String(), "0x"))
	res, err := e.pipe.SubmitTransfer(ctx, pipeline.TransferRequest{
		Handler:   claimed,
		Claim:     claim,
		Signature: h.sign(t, testDomain(), claim),
	})
	if err != nil {
		t.Fatalf("SubmitTransfer: %v", err)
	}
	if res.Status != pipeline.StatusLogged {
		t.Fatalf("status = %q, want %q", res.Status, pipeline.StatusLogged)
	}
	if res.Handler != h.id {
		t.Fatalf("handler = %s, want %s", res.Handler, h.id)
	}
	if res.Timestamp != "2026-08-30T12:00:00Z" {
		t.Fatalf("timestamp = %q, not server-assigned", res.Timestamp)
	}
	if !res.Ref.Defined() {
		t.Fatal("expected a defined commit ref")
	}

	// One registration, one auto-authorization, one transfer.
	if got := e.writer.count(); got != 3 {
		t.Fatalf("committed mutations = %d, want 3", got)
	}
	authorized, err := e.ledger.IsAuthorizedHandler(ctx, h.id)
	if err != nil {
		t.Fatalf("IsAuthorizedHandler: %v", err)
	}
	if !authorized {
		t.Fatal("handler should be authorized after auto-authorization")
	}

	events, err := e.pipe.History(ctx, 42)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("history length = %d, want 1", len(events))
	}
	ev := events[0]
	if ev.To != h.id || ev.Location != "Warehouse A" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if !ev.From.IsZero() {
		t.Fatalf("first event From = %s, want null sentinel", ev.From)
	}
	if ev.Ref != res.Ref {
		t.Fatalf("event ref %s != returned ref %s", ev.Ref, res.Ref)
	}
}

func TestTransferIdentityMismatch(t *testing.T) {
	e := newEnv(t, true)
	h := newSigner(t)
	other := newSigner(t)
	ctx := context.Background()

	registerItem(t, e, 7, "Crate 7", "Dock")
	before := e.writer.count()

	claim := attest.Claim{ItemID: 7, Location: "Warehouse B"}
	_, err := e.pipe.SubmitTransfer(ctx, pipeline.TransferRequest{
		Handler:   other.id.String(),
		Claim:     claim,
		Signature: h.sign(t, testDomain(), claim),
	})
	if !pipeline.IsKind(err, pipeline.KindIdentityMismatch) {
		t.Fatalf("expected identity mismatch, got %v", err)
	}
	var perr *pipeline.Error
	if !errors.As(err, &perr) || perr.Recovered != h.id {
		t.Fatalf("mismatch must report the recovered identity %s, got %+v", h.id, perr)
	}
	if got := e.writer.count(); got != before {
		t.Fatalf("mismatch submitted %d mutations", got-before)
	}
}

func TestTransferUnknownItem(t *testing.T) {
	e := newEnv(t, true)
	h := newSigner(t)

	claim := attest.Claim{ItemID: 99, Location: "Warehouse A"}
	_, err := e.pipe.SubmitTransfer(context.Background(), pipeline.TransferRequest{
		Handler:   h.id.String(),
		Claim:     claim,
		Signature: h.sign(t, testDomain(), claim),
	})
	if !pipeline.IsKind(err, pipeline.KindItemNotFound) {
		t.Fatalf("expected item not found, got %v", err)
	}
	if got := e.writer.count(); got != 0 {
		t.Fatalf("valid signature for unknown item submitted %d mutations", got)
	}
}

func TestTransferStrictAuthorization(t *testing.T) {
	e := newEnv(t, false)
	h := newSigner(t)

	registerItem(t, e, 1, "Box 1", "Dock")
	before := e.writer.count()

	claim := attest.Claim{ItemID: 1, Location: "Warehouse A"}
	_, err := e.pipe.SubmitTransfer(context.Background(), pipeline.TransferRequest{
		Handler:   h.id.String(),
		Claim:     claim,
		Signature: h.sign(t, testDomain(), claim),
	})
	if !pipeline.IsKind(err, pipeline.KindHandlerNotAuthorized) {
		t.Fatalf("expected handler not authorized, got %v", err)
	}
	if got := e.writer.count(); got != before {
		t.Fatalf("strict rejection submitted %d mutations", got-before)
	}
}

func TestTransferInvalidSignature(t *testing.T) {
	e := newEnv(t, true)
	h := newSigner(t)

	registerItem(t, e, 1, "Box 1", "Dock")

	_, err := e.pipe.SubmitTransfer(context.Background(), pipeline.TransferRequest{
		Handler:   h.id.String(),
		Claim:     attest.Claim{ItemID: 1, Location: "Warehouse A"},
		Signature: "not-a-signature",
	})
	if !pipeline.IsKind(err, pipeline.KindInvalidSignature) {
		t.Fatalf("expected invalid signature, got %v", err)
	}
}

func TestTransferWrongDomainSignature(t *testing.T) {
	e := newEnv(t, true)
	h := newSigner(t)

	registerItem(t, e, 1, "Box 1", "Dock")

	otherDomain := testDomain()
	otherDomain.Network = "mainnet"
	claim := attest.Claim{ItemID: 1, Location: "Warehouse A"}
	_, err := e.pipe.SubmitTransfer(context.Background(), pipeline.TransferRequest{
		Handler:   h.id.String(),
		Claim:     claim,
		Signature: h.sign(t, otherDomain, claim),
	})
	if !pipeline.IsKind(err, pipeline.KindInvalidSignature) {
		t.Fatalf("cross-domain signature must be rejected, got %v", err)
	}
}

func TestRegisterIdempotent(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()

	first, err := e.pipe.RegisterItem(ctx, pipeline.RegisterRequest{
		ItemID:   5,
		Name:     "Drum 5",
		Location: "Plant",
	})
	if err != nil {
		t.Fatalf("RegisterItem: %v", err)
	}
	if first.Status != pipeline.StatusRegistered || !first.Ref.Defined() {
		t.Fatalf("first registration = %+v", first)
	}

	second, err := e.pipe.RegisterItem(ctx, pipeline.RegisterRequest{
		ItemID:   5,
		Name:     "Different Name",
		Location: "Elsewhere",
	})
	if err != nil {
		t.Fatalf("RegisterItem (repeat): %v", err)
	}
	if second.Status != pipeline.StatusAlreadyRegistered {
		t.Fatalf("repeat status = %q, want %q", second.Status, pipeline.StatusAlreadyRegistered)
	}
	if second.Ref.Defined() {
		t.Fatal("repeat registration must not carry a commit ref")
	}
	if second.Record.Name != "Drum 5" || second.Record.Location != "Plant" {
		t.Fatalf("repeat registration changed metadata: %+v", second.Record)
	}
	if got := e.writer.count(); got != 1 {
		t.Fatalf("committed mutations = %d, want 1", got)
	}
}

func TestSetAuthorization(t *testing.T) {
	e := newEnv(t, false)
	h := newSigner(t)
	ctx := context.Background()

	res, err := e.pipe.SetAuthorization(ctx, pipeline.AuthorizeRequest{
		Handler:    h.id.String(),
		Authorized: true,
	})
	if err != nil {
		t.Fatalf("SetAuthorization: %v", err)
	}
	if res.Status != pipeline.StatusOK || !res.Ref.Defined() {
		t.Fatalf("unexpected result %+v", res)
	}
	authorized, err := e.ledger.IsAuthorizedHandler(ctx, h.id)
	if err != nil {
		t.Fatalf("IsAuthorizedHandler: %v", err)
	}
	if !authorized {
		t.Fatal("handler should be authorized")
	}
}

func TestHistoryUnknownItem(t *testing.T) {
	e := newEnv(t, true)
	if _, err := e.pipe.History(context.Background(), 404); !pipeline.IsKind(err, pipeline.KindItemNotFound) {
		t.Fatalf("expected item not found, got %v", err)
	}
}

func TestTransfersOrderedPerItem(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()

	registerItem(t, e, 3, "Roll 3", "Mill")

	handlers := []signer{newSigner(t), newSigner(t), newSigner(t)}
	locations := []string{"Warehouse A", "Warehouse B", "Store"}
	for i, h := range handlers {
		claim := attest.Claim{ItemID: 3, Location: locations[i]}
		if _, err := e.pipe.SubmitTransfer(ctx, pipeline.TransferRequest{
			Handler:   h.id.String(),
			Claim:     claim,
			Signature: h.sign(t, testDomain(), claim),
		}); err != nil {
			t.Fatalf("SubmitTransfer %d: %v", i, err)
		}
	}

	events, err := e.pipe.History(ctx, 3)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("history length = %d, want 3", len(events))
	}
	for i, ev := range events {
		if ev.To != handlers[i].id || ev.Location != locations[i] {
			t.Fatalf("event %d out of order: %+v", i, ev)
		}
		if i > 0 {
			if ev.From != handlers[i-1].id {
				t.Fatalf("event %d From = %s, want previous holder %s", i, ev.From, handlers[i-1].id)
			}
			if ev.Sequence <= events[i-1].Sequence {
				t.Fatalf("sequences not increasing: %d then %d", events[i-1].Sequence, ev.Sequence)
			}
		}
	}
}
