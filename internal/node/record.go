package node

// DAGMan node status tokens, as they appear in node status files without
// the `STATUS_` prefix.
const (
	StatusNotReady  = "not_ready"
	StatusReady     = "ready"
	StatusPrerun    = "prerun"
	StatusSubmitted = "submitted"
	StatusPostrun   = "postrun"
	StatusDone      = "done"
	StatusError     = "error"
	StatusFutile    = "futile"
)

// HTCondor JobStatus codes of a node's job.
const (
	JobNotQueued    = 0
	JobIdle         = 1
	JobRunning      = 2
	JobRemoved      = 3
	JobCompleted    = 4
	JobHeld         = 5
	JobTransferring = 6
	JobSuspended    = 7
)

// Record is the raw status of one workflow node as reported by the
// scheduler at a moment in time. Records only live for one poll cycle.
type Record struct {
	// Name is the DAG node name, when the scheduler reports one.
	Name string
	// Status is the DAGMan node status token.
	Status string
	// JobStatus is the HTCondor JobStatus of the node's job. It is only
	// meaningful while Status is "submitted".
	JobStatus int
}
