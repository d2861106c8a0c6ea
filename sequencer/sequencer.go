// Package sequencer serializes ledger mutations behind a single FIFO
// admission queue.
//
// The external ledger accepts mutations from one signing identity with
// strictly increasing sequence numbers, so sequence assignment must never
// race: at most one submission is in flight system-wide, and the next queued
// submission proceeds only after the ledger confirms or rejects the current
// one. Throughput is bounded by confirmation latency on purpose; it is the
// sole mechanism that prevents sequence collisions and cross-item ordering
// anomalies.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"immutrack.io/custody/ledger"
)

var (
	// ErrTimedOut reports an unknown outcome: the ledger did not confirm in
	// time, but the mutation may still have committed. The caller must
	// reconcile via the read path before resubmitting.
	ErrTimedOut = errors.New("sequencer: confirmation timed out; outcome unknown")

	// ErrRetryExhausted reports that transient-fault retries hit the bound.
	ErrRetryExhausted = errors.New("sequencer: transient-fault retries exhausted")

	// ErrClosed reports that the sequencer's consumption loop has stopped.
	ErrClosed = errors.New("sequencer: closed")
)

// Options tunes the sequencer. The zero value uses the defaults below.
type Options struct {
	// QueueDepth bounds the admission queue. Default 64.
	QueueDepth int

	// MaxAttempts bounds attempts per submission for transient faults.
	// Default 5.
	MaxAttempts uint

	// SubmitTimeout bounds each confirmation wait. Default 30s.
	SubmitTimeout time.Duration

	// InitialBackoff and MaxBackoff shape the retry backoff.
	// Defaults 100ms and 5s.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.QueueDepth <= 0 {
		o.QueueDepth = 64
	}
	if o.MaxAttempts == 0 {
		o.MaxAttempts = 5
	}
	if o.SubmitTimeout <= 0 {
		o.SubmitTimeout = 30 * time.Second
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = 100 * time.Millisecond
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 5 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

type submission struct {
	ctx     context.Context
	m       ledger.Mutation
	resultc chan result
}

type result struct {
	ref ledger.CommitRef
	err error
}

// Sequencer owns the admission queue and the sequence cursor. All mutation
// submissions across the pipeline funnel through one Sequencer.
type Sequencer struct {
	writer ledger.Writer
	opts   Options
	logger *slog.Logger

	submitc chan *submission

	closeOnce sync.Once
	done      chan struct{}

	// cursor caches the next sequence number between commits. It is owned
	// exclusively by the consumption loop; a conflict invalidates it and the
	// next attempt re-reads from the ledger.
	cursor      uint64
	cursorValid bool
}

// New constructs a Sequencer over the given ledger writer. The caller must
// start the consumption loop with Run.
func New(w ledger.Writer, opts Options) *Sequencer {
	opts = opts.withDefaults()
	return &Sequencer{
		writer:  w,
		opts:    opts,
		logger:  opts.Logger,
		submitc: make(chan *submission, opts.QueueDepth),
		done:    make(chan struct{}),
	}
}

// Run consumes the admission queue until ctx is cancelled. It must be called
// exactly once; submissions block until it is running.
func (s *Sequencer) Run(ctx context.Context) {
	defer s.closeOnce.Do(func() { close(s.done) })

	for {
		select {
		case <-ctx.Done():
			return
		case sub := <-s.submitc:
			if err := sub.ctx.Err(); err != nil {
				// Caller abandoned the submission before it was dequeued;
				// nothing was sent to the ledger.
				sub.resultc <- result{err: err}
				continue
			}
			ref, err := s.commit(ctx, sub.m)
			sub.resultc <- result{ref: ref, err: err}
		}
	}
}

// Submit enqueues m and waits for its terminal outcome.
//
// Ordering: submissions are committed in admission order, never reordered by
// retry. A ctx expiry while the submission may be in flight reports
// ErrTimedOut (unknown outcome), not a clean failure.
func (s *Sequencer) Submit(ctx context.Context, m ledger.Mutation) (ledger.CommitRef, error) {
	if m == nil {
		return ledger.UndefRef, ledger.ErrInvalidMutation
	}
	sub := &submission{ctx: ctx, m: m, resultc: make(chan result, 1)}

	select {
	case s.submitc <- sub:
	case <-ctx.Done():
		return ledger.UndefRef, ctx.Err()
	case <-s.done:
		return ledger.UndefRef, ErrClosed
	}

	select {
	case res := <-sub.resultc:
		return res.ref, res.err
	case <-ctx.Done():
		// Admitted and possibly in flight: the outcome is unknown.
		return ledger.UndefRef, fmt.Errorf("%w: %w", ErrTimedOut, ctx.Err())
	case <-s.done:
		return ledger.UndefRef, ErrClosed
	}
}

// commit drives one submission to a terminal outcome. It runs only on the
// consumption loop goroutine.
func (s *Sequencer) commit(ctx context.Context, m ledger.Mutation) (ledger.CommitRef, error) {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = s.opts.InitialBackoff
	expo.MaxInterval = s.opts.MaxBackoff

	attempts := 0
	op := func() (ledger.CommitRef, error) {
		attempts++

		attemptCtx, cancel := context.WithTimeout(ctx, s.opts.SubmitTimeout)
		defer cancel()

		if !s.cursorValid {
			seq, err := s.writer.NextSequence(attemptCtx)
			if err != nil {
				// Reads have no side effects; any failure here is safe to retry.
				if ctx.Err() != nil {
					return ledger.UndefRef, backoff.Permanent(ctx.Err())
				}
				return ledger.UndefRef, err
			}
			s.cursor = seq
			s.cursorValid = true
		}

		ref, err := s.writer.Submit(attemptCtx, s.cursor, m)
		if err == nil {
			s.cursor++
			s.logger.Debug("submission committed",
				"kind", m.Kind(), "sequence", s.cursor-1, "ref", ref.String(), "attempts", attempts)
			return ref, nil
		}

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			// The mutation may have landed; never resubmit blindly.
			s.cursorValid = false
			return ledger.UndefRef, backoff.Permanent(fmt.Errorf("%w: %w", ErrTimedOut, err))
		}
		if ledger.IsTransient(err) {
			// Same logical operation, freshly read sequence number.
			s.cursorValid = false
			s.logger.Debug("transient submission fault",
				"kind", m.Kind(), "attempt", attempts, "error", err)
			return ledger.UndefRef, err
		}
		// Application-level rejection: terminal, not retried.
		return ledger.UndefRef, backoff.Permanent(err)
	}

	ref, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(s.opts.MaxAttempts),
	)
	if err != nil {
		if ledger.IsTransient(err) {
			err = fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempts, err)
		}
		s.logger.Warn("submission failed", "kind", m.Kind(), "attempts", attempts, "error", err)
		return ledger.UndefRef, err
	}
	return ref, nil
}
