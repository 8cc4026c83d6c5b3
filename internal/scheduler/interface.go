package scheduler

import (
	"context"

	"github.com/specialistvlad/dagwatch/internal/node"
	"github.com/specialistvlad/dagwatch/internal/snapshot"
	"github.com/specialistvlad/dagwatch/internal/workflowid"
)

// Result is the answer to one successful query.
type Result struct {
	// Records holds one raw record per workflow node.
	Records []node.Record
	// Meta describes the workflow as a whole.
	Meta snapshot.Metadata
	// Exited is true once the scheduler reports that the workflow job has
	// left the queue.
	Exited bool
	// ExitCode is the workflow job's own exit code, when the scheduler
	// reports one.
	ExitCode *int
}

// Adapter queries the scheduler for the state of one workflow.
//
// Implementations must return either a non-nil Result or an error that
// wraps a *QueryError. They need not be safe for concurrent use; the
// polling engine never overlaps two queries.
type Adapter interface {
	Query(ctx context.Context, id workflowid.ID) (*Result, error)
}

// AdapterFunc adapts an ordinary function to the Adapter interface.
type AdapterFunc func(ctx context.Context, id workflowid.ID) (*Result, error)

// Query implements Adapter.
func (f AdapterFunc) Query(ctx context.Context, id workflowid.ID) (*Result, error) {
	return f(ctx, id)
}
