package workflowid

import "fmt"

// ID names the top-level scheduler job (the DAGMan job) of a workflow.
type ID struct {
	Cluster int
	Proc    int
}

// New creates an ID from its numeric parts.
func New(cluster, proc int) ID {
	return ID{Cluster: cluster, Proc: proc}
}

// String serializes the ID into its canonical `cluster.proc` form.
func (id ID) String() string {
	return fmt.Sprintf("%d.%d", id.Cluster, id.Proc)
}

// IsZero reports whether the ID was never set.
func (id ID) IsZero() bool {
	return id.Cluster == 0 && id.Proc == 0
}
