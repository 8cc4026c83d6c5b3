// Package scheduler defines the contract between the polling engine and the
// batch scheduler that runs the watched workflow.
//
// # Why Scheduler Exists
//
// The polling engine never talks to HTCondor directly. It asks an Adapter for
// the current node records of one workflow and receives either a Result or a
// typed QueryError. This keeps the engine testable without a scheduler and
// lets different transports (the condor command line tools, the REST daemon,
// a recorded replay) share one engine.
//
// # Error Kinds
//
// Every failure an Adapter returns is classified as one of:
//   - ErrNotFound: the identifier names no workflow. Never retried.
//   - ErrTransientUnavailable: the scheduler could not answer right now
//     (connection refused, timeout, history not yet written). Retried with
//     backoff by the caller.
//   - ErrMalformedResponse: the scheduler answered with data the adapter
//     cannot interpret. Never retried.
//
// Query timeouts are the adapter's responsibility; an expired context
// deadline is reported as transient.
package scheduler
