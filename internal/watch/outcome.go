package watch

import (
	"context"
	"time"

	"github.com/specialistvlad/dagwatch/internal/snapshot"
)

// Kind tags the variant of an Outcome.
type Kind int

const (
	// KindProgress carries a non-terminal snapshot.
	KindProgress Kind = iota
	// KindTransientError reports a retried scheduler failure.
	KindTransientError
	// KindTerminal carries the final snapshot and exit code.
	KindTerminal
)

func (k Kind) String() string {
	switch k {
	case KindProgress:
		return "progress"
	case KindTransientError:
		return "transient_error"
	case KindTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Outcome is the result of one poll cycle.
type Outcome struct {
	Kind Kind
	// Snapshot is set for progress and terminal outcomes.
	Snapshot snapshot.Snapshot
	// Changed is true when the snapshot's counts differ from the previous
	// cycle's, or when there was no previous cycle.
	Changed bool

	// Reason, Attempt and Delay describe a transient error.
	Reason  string
	Attempt int
	Delay   time.Duration

	// ExitCode is set for terminal outcomes.
	ExitCode int
}

// Progress builds a progress outcome.
func Progress(s snapshot.Snapshot) Outcome {
	return Outcome{Kind: KindProgress, Snapshot: s, Changed: true}
}

// TransientError builds a transient error outcome.
func TransientError(reason string, attempt int) Outcome {
	return Outcome{Kind: KindTransientError, Reason: reason, Attempt: attempt}
}

// TerminalOutcome builds a terminal outcome.
func TerminalOutcome(exitCode int, final snapshot.Snapshot) Outcome {
	return Outcome{Kind: KindTerminal, Snapshot: final, Changed: true, ExitCode: exitCode}
}

// Sink consumes the outcomes of a Watcher. Emit is called from the
// Watcher's goroutine, one outcome at a time; the outcome is the sink's to
// keep.
type Sink interface {
	Emit(ctx context.Context, o Outcome)
}

// SinkFunc adapts an ordinary function to the Sink interface.
type SinkFunc func(ctx context.Context, o Outcome)

// Emit implements Sink.
func (f SinkFunc) Emit(ctx context.Context, o Outcome) { f(ctx, o) }

// Sinks fans one outcome out to several sinks, in order.
type Sinks []Sink

// Emit implements Sink.
func (s Sinks) Emit(ctx context.Context, o Outcome) {
	for _, sink := range s {
		if sink != nil {
			sink.Emit(ctx, o)
		}
	}
}
