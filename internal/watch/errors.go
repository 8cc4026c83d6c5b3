package watch

import (
	"fmt"

	"github.com/specialistvlad/dagwatch/internal/snapshot"
)

// MonitoringError reports that the scheduler stayed unavailable for more
// consecutive polls than the retry budget allows. It is a failure of the
// monitor, not of the workflow.
type MonitoringError struct {
	Attempts int
	Last     error
}

func (e *MonitoringError) Error() string {
	return fmt.Sprintf("giving up after %d consecutive failed queries: %v", e.Attempts, e.Last)
}

func (e *MonitoringError) Unwrap() error { return e.Last }

// AbortedError reports a workflow that left the scheduler queue while
// some of its nodes were still in progress, e.g. because it was removed.
type AbortedError struct {
	Snapshot snapshot.Snapshot
	ExitCode int
}

func (e *AbortedError) Error() string {
	return fmt.Sprintf("workflow %s left the queue with %d unfinished nodes", e.Snapshot.Meta.Workflow, e.Snapshot.InProgress())
}
