package sequencer_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"immutrack.io/custody/ledger"
	"immutrack.io/custody/ledger/memledger"
	"immutrack.io/custody/ledger/testkit"
	"immutrack.io/custody/sequencer"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMemWriter(t *testing.T) *memledger.Ledger {
	t.Helper()
	l, err := memledger.New(memledger.Config{Owner: testkit.Owner()})
	if err != nil {
		t.Fatalf("memledger.New: %v", err)
	}
	return l
}

func startSequencer(t *testing.T, w ledger.Writer, opts sequencer.Options) *sequencer.Sequencer {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	s := sequencer.New(w, opts)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.Run(ctx)
	return s
}

// recordingWriter captures the sequence number of every accepted submission.
type recordingWriter struct {
	ledger.Writer

	mu   sync.Mutex
	seqs []uint64
}

func (w *recordingWriter) Submit(ctx context.Context, seq uint64, m ledger.Mutation) (ledger.CommitRef, error) {
	ref, err := w.Writer.Submit(ctx, seq, m)
	if err == nil {
		w.mu.Lock()
		w.seqs = append(w.seqs, seq)
		w.mu.Unlock()
	}
	return ref, err
}

func TestConcurrentSubmissionsGetDistinctSequences(t *testing.T) {
	const n = 25

	rec := &recordingWriter{Writer: newMemWriter(t)}
	s := startSequencer(t, rec, sequencer.Options{})

	var wg sync.WaitGroup
	errc := make(chan error, n)
	refc := make(chan ledger.CommitRef, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ref, err := s.Submit(context.Background(), ledger.SetHandlerAuthorization{
				Handler:    testkit.Handler(byte(i + 1)),
				Authorized: true,
			})
			if err != nil {
				errc <- err
				return
			}
			refc <- ref
		}(i)
	}
	wg.Wait()
	close(errc)
	close(refc)

	for err := range errc {
		t.Fatalf("Submit: %v", err)
	}
	refs := map[string]bool{}
	for ref := range refc {
		if refs[ref.String()] {
			t.Fatalf("duplicate commit ref %s", ref)
		}
		refs[ref.String()] = true
	}
	if len(refs) != n {
		t.Fatalf("expected %d distinct refs, got %d", n, len(refs))
	}

	if len(rec.seqs) != n {
		t.Fatalf("expected %d accepted submissions, got %d", n, len(rec.seqs))
	}
	for i := 1; i < len(rec.seqs); i++ {
		if rec.seqs[i] != rec.seqs[i-1]+1 {
			t.Fatalf("sequence numbers not strictly increasing: %v", rec.seqs)
		}
	}
}

// conflictingWriter rejects the first conflicts submissions with a sequence
// conflict before delegating. NextSequence reads are counted to verify the
// retry re-reads the cursor.
type conflictingWriter struct {
	ledger.Writer

	mu        sync.Mutex
	conflicts int
	nextReads int
}

func (w *conflictingWriter) NextSequence(ctx context.Context) (uint64, error) {
	w.mu.Lock()
	w.nextReads++
	w.mu.Unlock()
	return w.Writer.NextSequence(ctx)
}

func (w *conflictingWriter) Submit(ctx context.Context, seq uint64, m ledger.Mutation) (ledger.CommitRef, error) {
	w.mu.Lock()
	if w.conflicts > 0 {
		w.conflicts--
		w.mu.Unlock()
		return ledger.UndefRef, ledger.ErrSequenceConflict
	}
	w.mu.Unlock()
	return w.Writer.Submit(ctx, seq, m)
}

func TestTransientConflictRetriedAtFreshSequence(t *testing.T) {
	w := &conflictingWriter{Writer: newMemWriter(t), conflicts: 2}
	s := startSequencer(t, w, sequencer.Options{
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	})

	ref, err := s.Submit(context.Background(), ledger.SetHandlerAuthorization{
		Handler:    testkit.Handler(1),
		Authorized: true,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !ref.Defined() {
		t.Fatal("expected defined ref after retries")
	}
	if w.nextReads != 3 {
		t.Fatalf("expected a fresh sequence read per attempt, got %d reads", w.nextReads)
	}
}

// failingWriter fails every Submit with a fixed error and counts attempts.
type failingWriter struct {
	ledger.Writer

	mu       sync.Mutex
	err      error
	attempts int
}

func (w *failingWriter) Submit(ctx context.Context, seq uint64, m ledger.Mutation) (ledger.CommitRef, error) {
	w.mu.Lock()
	w.attempts++
	w.mu.Unlock()
	return ledger.UndefRef, w.err
}

func TestApplicationRejectionNotRetried(t *testing.T) {
	w := &failingWriter{Writer: newMemWriter(t), err: ledger.ErrItemExists}
	s := startSequencer(t, w, sequencer.Options{
		InitialBackoff: time.Millisecond,
	})

	_, err := s.Submit(context.Background(), ledger.RegisterItem{ItemID: 1})
	if !errors.Is(err, ledger.ErrItemExists) {
		t.Fatalf("expected ErrItemExists, got %v", err)
	}
	if w.attempts != 1 {
		t.Fatalf("rejection must not be retried; got %d attempts", w.attempts)
	}
}

func TestConfirmationTimeoutNotRetried(t *testing.T) {
	w := &failingWriter{Writer: newMemWriter(t), err: context.DeadlineExceeded}
	s := startSequencer(t, w, sequencer.Options{
		InitialBackoff: time.Millisecond,
	})

	_, err := s.Submit(context.Background(), ledger.TransferItem{ItemID: 1, To: testkit.Handler(1)})
	if !errors.Is(err, sequencer.ErrTimedOut) {
		t.Fatalf("expected ErrTimedOut, got %v", err)
	}
	if w.attempts != 1 {
		t.Fatalf("unknown outcome must not be retried; got %d attempts", w.attempts)
	}
}

func TestTransientRetriesExhausted(t *testing.T) {
	w := &failingWriter{Writer: newMemWriter(t), err: ledger.ErrSequenceConflict}
	s := startSequencer(t, w, sequencer.Options{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	})

	_, err := s.Submit(context.Background(), ledger.TransferItem{ItemID: 1, To: testkit.Handler(1)})
	if !errors.Is(err, sequencer.ErrRetryExhausted) {
		t.Fatalf("expected ErrRetryExhausted, got %v", err)
	}
	if w.attempts != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", w.attempts)
	}
}

func TestSubmitNilMutation(t *testing.T) {
	s := startSequencer(t, newMemWriter(t), sequencer.Options{})
	if _, err := s.Submit(context.Background(), nil); !errors.Is(err, ledger.ErrInvalidMutation) {
		t.Fatalf("expected ErrInvalidMutation, got %v", err)
	}
}
