package testutil

import (
	"fmt"

	"github.com/specialistvlad/dagwatch/internal/node"
)

// rawForState is one raw record shape per node state, in column order.
var rawForState = [node.NumStates]node.Record{
	{Status: node.StatusNotReady},
	{Status: node.StatusReady},
	{Status: node.StatusSubmitted, JobStatus: node.JobIdle},
	{Status: node.StatusSubmitted, JobStatus: node.JobRunning},
	{Status: node.StatusSubmitted, JobStatus: node.JobHeld},
	{Status: node.StatusError},
	{Status: node.StatusDone},
}

// Records builds raw records that classify to the given counts, in column
// order: unready, ready, idle, running, held, failed, done.
func Records(counts ...int) []node.Record {
	var out []node.Record
	for i, n := range counts {
		if i >= node.NumStates {
			break
		}
		for j := 0; j < n; j++ {
			r := rawForState[i]
			r.Name = fmt.Sprintf("%s_%d", node.States[i], j)
			out = append(out, r)
		}
	}
	return out
}
