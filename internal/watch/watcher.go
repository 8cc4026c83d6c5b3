package watch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/dagwatch/internal/ctxlog"
	"github.com/specialistvlad/dagwatch/internal/scheduler"
	"github.com/specialistvlad/dagwatch/internal/snapshot"
	"github.com/specialistvlad/dagwatch/internal/terminal"
	"github.com/specialistvlad/dagwatch/internal/workflowid"
)

// Config holds the timing and retry settings of a Watcher.
type Config struct {
	// Interval is the delay between successful polls.
	Interval time.Duration
	// BackoffBase is the first backoff delay; it doubles with each
	// consecutive failure. Zero means Interval.
	BackoffBase time.Duration
	// BackoffCap is the largest backoff delay.
	BackoffCap time.Duration
	// MaxRetries is the number of consecutive transient failures tolerated
	// before monitoring is abandoned.
	MaxRetries int
	// Policy selects how workflow failures become exit codes.
	Policy terminal.Policy
}

// Sleeper blocks for d or until ctx is done, returning ctx.Err() in the
// latter case.
type Sleeper func(ctx context.Context, d time.Duration) error

// Option customizes a Watcher.
type Option func(*Watcher)

// WithClock replaces the clock used to timestamp snapshots.
func WithClock(now func() time.Time) Option {
	return func(w *Watcher) { w.now = now }
}

// WithSleeper replaces the function used to wait between cycles.
func WithSleeper(s Sleeper) Option {
	return func(w *Watcher) { w.sleep = s }
}

// Watcher follows one workflow until it ends. A Watcher is single-use and
// owns its failure counter and backoff state; watchers of different
// workflows share nothing.
type Watcher struct {
	adapter  scheduler.Adapter
	id       workflowid.ID
	cfg      Config
	detector *terminal.Detector
	sink     Sink
	now      func() time.Time
	sleep    Sleeper

	state    atomic.Int32
	failures atomic.Int32
	lastErr  error
	previous *snapshot.Snapshot

	outcome *terminal.Outcome
	err     error
}

// New creates a Watcher for the given workflow.
func New(adapter scheduler.Adapter, id workflowid.ID, cfg Config, sink Sink, opts ...Option) *Watcher {
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = cfg.Interval
	}
	if cfg.BackoffCap < cfg.BackoffBase {
		cfg.BackoffCap = cfg.BackoffBase
	}
	if sink == nil {
		sink = Sinks(nil)
	}
	w := &Watcher{
		adapter:  adapter,
		id:       id,
		cfg:      cfg,
		detector: terminal.NewDetector(cfg.Policy),
		sink:     sink,
		now:      time.Now,
		sleep:    Sleep,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// State returns the current state of the poll loop. It is safe to call
// from other goroutines.
func (w *Watcher) State() State {
	return State(w.state.Load())
}

// Failures returns the current number of consecutive failed queries. It
// is safe to call from other goroutines.
func (w *Watcher) Failures() int {
	return int(w.failures.Load())
}

func (w *Watcher) transition(ctx context.Context, to State) {
	from := w.State()
	if from != to && !isAllowedTransition(from, to) {
		panic(fmt.Sprintf("watch: disallowed transition %s -> %s", from, to))
	}
	w.state.Store(int32(to))
	if from != to {
		ctxlog.FromContext(ctx).Debug("Poll loop transition.", "from", from, "to", to)
	}
}

// Run polls until the workflow ends, monitoring fails or ctx is cancelled.
// It returns the terminal outcome of a finished workflow, or an error.
// Cancellation returns ctx.Err().
func (w *Watcher) Run(ctx context.Context) (*terminal.Outcome, error) {
	ctx = ctxlog.With(ctx, "workflow", w.id.String())
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Watcher starting.", "interval", w.cfg.Interval, "max_retries", w.cfg.MaxRetries, "backoff_cap", w.cfg.BackoffCap)

	w.state.Store(int32(Starting))
	for {
		switch w.State() {
		case Starting:
			w.transition(ctx, Polling)

		case Polling:
			done, err := w.cycle(ctx)
			if err != nil {
				return nil, err
			}
			if done {
				continue
			}
			if err := w.sleep(ctx, w.cfg.Interval); err != nil {
				logger.Debug("Watcher interrupted while sleeping.")
				return nil, err
			}
			w.transition(ctx, Polling)

		case Backoff:
			failures := w.Failures()
			if failures > w.cfg.MaxRetries {
				logger.Error("Retry budget exhausted, giving up.", "attempts", failures, "max_retries", w.cfg.MaxRetries, "error", w.lastErr)
				w.finish(ctx, nil, &MonitoringError{Attempts: failures, Last: w.lastErr})
				continue
			}
			delay := backoffDelay(w.cfg.BackoffBase, w.cfg.BackoffCap, failures)
			if err := w.sleep(ctx, delay); err != nil {
				logger.Debug("Watcher interrupted during backoff.")
				return nil, err
			}
			w.transition(ctx, Polling)

		case Terminal:
			return w.outcome, w.err
		}
	}
}

// cycle runs one query → aggregate → detect → emit pass. It returns
// done=true when it moved the loop out of Polling. A non-nil error means
// the context was cancelled mid-query.
func (w *Watcher) cycle(ctx context.Context) (bool, error) {
	logger := ctxlog.FromContext(ctx)

	res, err := w.adapter.Query(ctx, w.id)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if scheduler.IsTransient(err) {
			w.fail(ctx, err)
			return true, nil
		}
		w.finish(ctx, nil, fmt.Errorf("query workflow %s: %w", w.id, err))
		return true, nil
	}

	if n := w.failures.Swap(0); n > 0 {
		logger.Info("Scheduler reachable again.", "failed_attempts", n)
	}
	w.lastErr = nil

	snap, err := snapshot.Aggregate(ctx, res.Records, res.Meta, w.now())
	if err != nil {
		w.finish(ctx, nil, fmt.Errorf("workflow %s: %w", w.id, err))
		return true, nil
	}

	outcome, err := w.detector.Detect(snap, res.ExitCode)
	if err != nil {
		w.finish(ctx, nil, fmt.Errorf("workflow %s: %w", w.id, err))
		return true, nil
	}

	changed := w.previous == nil || !w.previous.SameCounts(snap)
	w.previous = &snap

	if outcome != nil {
		o := TerminalOutcome(outcome.ExitCode, snap)
		w.sink.Emit(ctx, o)
		logger.Debug("Workflow reached a terminal state.", "exit_code", outcome.ExitCode, "failed", outcome.Failed)
		w.finish(ctx, outcome, nil)
		return true, nil
	}

	if res.Exited {
		code := w.detector.FailureCode(snap, res.ExitCode)
		w.finish(ctx, nil, &AbortedError{Snapshot: snap, ExitCode: code})
		return true, nil
	}

	o := Progress(snap)
	o.Changed = changed
	w.sink.Emit(ctx, o)
	return false, nil
}

// fail records a transient failure and moves to Backoff. Failures within
// the retry budget are reported to the sink; Backoff ends the run once the
// budget is spent.
func (w *Watcher) fail(ctx context.Context, err error) {
	failures := int(w.failures.Add(1))
	w.lastErr = err

	if failures <= w.cfg.MaxRetries {
		delay := backoffDelay(w.cfg.BackoffBase, w.cfg.BackoffCap, failures)
		ctxlog.FromContext(ctx).Warn("Scheduler query failed, backing off.", "attempt", failures, "max_retries", w.cfg.MaxRetries, "delay", delay, "error", err)

		o := TransientError(err.Error(), failures)
		o.Delay = delay
		w.sink.Emit(ctx, o)
	}
	w.transition(ctx, Backoff)
}

func (w *Watcher) finish(ctx context.Context, outcome *terminal.Outcome, err error) {
	w.outcome = outcome
	w.err = err
	w.transition(ctx, Terminal)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsCancelled reports whether err is the result of stopping the watcher.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}
