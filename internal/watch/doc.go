// Package watch implements the poll loop that follows one workflow until it
// ends.
//
// # How It Works
//
// A Watcher is an explicit state machine:
//
//	Starting ──▶ Polling ──(transient error)──▶ Backoff
//	               ▲  │                            │
//	               │  └──(interval)──┐             │
//	               └─────────────────┴─(delay)─────┘
//	Polling ──(all nodes done or failed)──▶ Terminal
//	Backoff ──(more than MaxRetries failures in a row)──▶ Terminal
//
// Each cycle runs to completion (query, classify, aggregate, detect, emit)
// before the next one starts, so no locking is needed around snapshots.
// The sleep between cycles and the query itself are where
// cancellation of the context is observed.
//
// Every cycle produces exactly one Outcome for the Sink: Progress with a
// snapshot, TransientError with the retry attempt, or Terminal with the exit
// code and final snapshot. Fatal conditions (unknown workflow, malformed
// response, unclassifiable node, exhausted retry budget) end the run with an
// error instead.
package watch
