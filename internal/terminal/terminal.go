// Package terminal decides from a Snapshot whether a workflow has ended and
// which exit code reports the outcome.
package terminal

import (
	"errors"
	"fmt"
	"strings"

	"github.com/specialistvlad/dagwatch/internal/node"
	"github.com/specialistvlad/dagwatch/internal/snapshot"
)

// ErrNoNodes reports a workflow with zero nodes. This is a configuration
// problem of the watched workflow and is never treated as success.
var ErrNoNodes = errors.New("workflow has no nodes")

// MaxWorkflowExitCode is the largest exit code the failed-count policy
// produces, keeping workflow failures clear of the reserved codes.
const MaxWorkflowExitCode = 63

// Policy selects how a workflow failure is turned into an exit code.
type Policy string

const (
	// PolicyFailedCount exits with the number of failed nodes, clamped to
	// 1..MaxWorkflowExitCode.
	PolicyFailedCount Policy = "failed-count"
	// PolicySentinel exits with 1 for any workflow failure.
	PolicySentinel Policy = "sentinel"
	// PolicyScheduler exits with the scheduler's own exit code for the
	// workflow job, falling back to 1 when it reports none or one outside
	// 1..MaxWorkflowExitCode.
	PolicyScheduler Policy = "scheduler"
)

// Policies lists the accepted policy names.
var Policies = []Policy{PolicyFailedCount, PolicySentinel, PolicyScheduler}

// ParsePolicy validates a policy name.
func ParsePolicy(name string) (Policy, error) {
	p := Policy(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Policies {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown exit code policy %q", name)
}

// Outcome describes a finished workflow.
type Outcome struct {
	ExitCode int
	Failed   int
	Snapshot snapshot.Snapshot
}

// Success reports whether the workflow finished without failed nodes.
func (o Outcome) Success() bool {
	return o.Failed == 0
}

// Detector turns snapshots into outcomes under a fixed policy.
type Detector struct {
	Policy Policy
}

// NewDetector returns a Detector for the given policy. An empty policy
// selects PolicyFailedCount.
func NewDetector(p Policy) *Detector {
	if p == "" {
		p = PolicyFailedCount
	}
	return &Detector{Policy: p}
}

// Detect returns nil while any in-progress state still has nodes, and an
// Outcome once every node is done or failed. schedulerCode is the exit code
// the scheduler reported for the workflow job, if any.
func (d *Detector) Detect(s snapshot.Snapshot, schedulerCode *int) (*Outcome, error) {
	if s.Total == 0 {
		return nil, ErrNoNodes
	}
	if s.InProgress() > 0 {
		return nil, nil
	}

	failed := s.Count(node.Failed)
	return &Outcome{
		ExitCode: d.exitCode(failed, schedulerCode),
		Failed:   failed,
		Snapshot: s,
	}, nil
}

func (d *Detector) exitCode(failed int, schedulerCode *int) int {
	if failed == 0 {
		return 0
	}
	switch d.Policy {
	case PolicySentinel:
		return 1
	case PolicyScheduler:
		if schedulerCode != nil && *schedulerCode >= 1 && *schedulerCode <= MaxWorkflowExitCode {
			return *schedulerCode
		}
		return 1
	default:
		return clamp(failed, 1, MaxWorkflowExitCode)
	}
}

// FailureCode returns the exit code for a workflow that ended abnormally
// without a terminal snapshot, e.g. one removed from the queue.
func (d *Detector) FailureCode(s snapshot.Snapshot, schedulerCode *int) int {
	code := d.exitCode(max(s.Count(node.Failed), 1), schedulerCode)
	if code == 0 {
		return 1
	}
	return code
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
