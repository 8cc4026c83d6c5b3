package node

import (
	"fmt"
	"strings"
)

// ClassificationError reports a raw status the classifier has no mapping
// for. It signals a contract violation with the scheduler, not a transient
// condition.
type ClassificationError struct {
	Record Record
	Reason string
}

// Error implements the error interface for ClassificationError.
func (e *ClassificationError) Error() string {
	name := e.Record.Name
	if name == "" {
		name = "<unnamed>"
	}
	return fmt.Sprintf("cannot classify node %s: %s", name, e.Reason)
}

// Classify maps one raw record to exactly one State.
func Classify(r Record) (State, error) {
	status := strings.ToLower(strings.TrimSpace(r.Status))
	status = strings.TrimPrefix(status, "status_")

	switch status {
	case StatusNotReady:
		return Unready, nil
	case StatusReady:
		return Ready, nil
	case StatusPrerun, StatusPostrun:
		return Running, nil
	case StatusSubmitted:
		return classifyJob(r)
	case StatusDone:
		return Done, nil
	case StatusError, StatusFutile:
		return Failed, nil
	default:
		return 0, &ClassificationError{Record: r, Reason: fmt.Sprintf("unknown node status %q", r.Status)}
	}
}

// classifyJob splits submitted nodes by the state of their job.
func classifyJob(r Record) (State, error) {
	switch r.JobStatus {
	case JobNotQueued, JobIdle:
		return Idle, nil
	case JobRunning, JobRemoved, JobCompleted, JobTransferring:
		// Removed and completed jobs stay "running" until DAGMan has
		// processed the event and moved the node on.
		return Running, nil
	case JobHeld, JobSuspended:
		return Held, nil
	default:
		return 0, &ClassificationError{Record: r, Reason: fmt.Sprintf("unknown job status %d", r.JobStatus)}
	}
}
