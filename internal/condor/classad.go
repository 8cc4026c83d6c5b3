package condor

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/specialistvlad/dagwatch/internal/node"
	"github.com/specialistvlad/dagwatch/internal/snapshot"
	"github.com/specialistvlad/dagwatch/internal/workflowid"
)

// DAGManAttributes are the attributes requested for the DAGMan job.
var DAGManAttributes = []string{
	"ClusterId", "ProcId", "Owner", "Machine", "JobBatchName", "JobStatus", "ExitCode",
	"JobUniverse", "Cmd",
	"DAG_NodesTotal", "DAG_NodesUnready", "DAG_NodesReady", "DAG_NodesPrerun",
	"DAG_NodesQueued", "DAG_NodesPostrun", "DAG_NodesDone", "DAG_NodesFailed",
	"DAG_NodesFutile",
}

// NodeJobAttributes are the attributes requested for node jobs.
var NodeJobAttributes = []string{"ClusterId", "ProcId", "JobStatus", "DAGNodeName"}

// DAGManAd is the subset of a DAGMan job ClassAd the adapter reads.
// Counters absent from the ad decode as zero, except DAG_NodesTotal which
// tells whether DAGMan has published its counters yet.
type DAGManAd struct {
	ClusterID    int    `json:"ClusterId"`
	ProcID       int    `json:"ProcId"`
	Owner        string `json:"Owner"`
	Machine      string `json:"Machine"`
	JobBatchName string `json:"JobBatchName"`
	JobStatus    int    `json:"JobStatus"`
	ExitCode     *int   `json:"ExitCode"`
	JobUniverse  int    `json:"JobUniverse"`
	Cmd          string `json:"Cmd"`

	NodesTotal   *int `json:"DAG_NodesTotal"`
	NodesUnready int  `json:"DAG_NodesUnready"`
	NodesReady   int  `json:"DAG_NodesReady"`
	NodesPrerun  int  `json:"DAG_NodesPrerun"`
	NodesQueued  int  `json:"DAG_NodesQueued"`
	NodesPostrun int  `json:"DAG_NodesPostrun"`
	NodesDone    int  `json:"DAG_NodesDone"`
	NodesFailed  int  `json:"DAG_NodesFailed"`
	NodesFutile  int  `json:"DAG_NodesFutile"`
}

// SchedulerUniverse is the JobUniverse DAGMan jobs run in.
const SchedulerUniverse = 7

// IsDAG reports whether the ad belongs to a DAGMan job.
func (a *DAGManAd) IsDAG() bool {
	if a == nil {
		return false
	}
	return a.JobUniverse == SchedulerUniverse ||
		strings.HasSuffix(a.Cmd, "condor_dagman") ||
		a.NodesTotal != nil
}

// HasCounters reports whether DAGMan has published its node counters. A
// freshly submitted DAGMan job has not.
func (a *DAGManAd) HasCounters() bool {
	return a != nil && a.NodesTotal != nil
}

// Validate rejects ads with negative node counters.
func (a *DAGManAd) Validate() error {
	counters := map[string]int{
		"DAG_NodesUnready": a.NodesUnready,
		"DAG_NodesReady":   a.NodesReady,
		"DAG_NodesPrerun":  a.NodesPrerun,
		"DAG_NodesQueued":  a.NodesQueued,
		"DAG_NodesPostrun": a.NodesPostrun,
		"DAG_NodesDone":    a.NodesDone,
		"DAG_NodesFailed":  a.NodesFailed,
		"DAG_NodesFutile":  a.NodesFutile,
	}
	var errs []error
	for _, name := range slices.Sorted(maps.Keys(counters)) {
		if v := counters[name]; v < 0 {
			errs = append(errs, fmt.Errorf("%s is negative: %d", name, v))
		}
	}
	if a.NodesTotal != nil && *a.NodesTotal < 0 {
		errs = append(errs, fmt.Errorf("DAG_NodesTotal is negative: %d", *a.NodesTotal))
	}
	return errors.Join(errs...)
}

// Metadata returns the workflow-level description of the ad.
func (a *DAGManAd) Metadata(id workflowid.ID) snapshot.Metadata {
	m := snapshot.Metadata{
		Workflow:  id,
		Machine:   a.Machine,
		Owner:     a.Owner,
		BatchName: a.JobBatchName,
	}
	if a.NodesTotal != nil {
		m.TotalNodes = *a.NodesTotal
	}
	return m
}

// JobAd is the subset of a node job ClassAd the adapter reads.
type JobAd struct {
	ClusterID   int    `json:"ClusterId"`
	ProcID      int    `json:"ProcId"`
	JobStatus   int    `json:"JobStatus"`
	DAGNodeName string `json:"DAGNodeName"`
}

func (j JobAd) nodeName() string {
	if j.DAGNodeName != "" {
		return j.DAGNodeName
	}
	return "job_" + strconv.Itoa(j.ClusterID)
}

// jobPriority orders job statuses when one node has several procs; the
// node takes the status of its most visible proc.
func jobPriority(status int) int {
	switch status {
	case node.JobHeld, node.JobSuspended:
		return 3
	case node.JobRunning, node.JobTransferring, node.JobRemoved, node.JobCompleted:
		return 2
	case node.JobIdle:
		return 1
	default:
		return 0
	}
}

// BuildRecords rebuilds one record per node from the DAGMan counters and
// the node jobs currently in the queue. At most DAG_NodesQueued jobs are
// used, picked in node name order; queued nodes without a job yet are
// reported as submitted with no job status.
func BuildRecords(ad *DAGManAd, jobs []JobAd) []node.Record {
	var records []node.Record
	add := func(status string, n int, prefix string) {
		for i := 0; i < n; i++ {
			records = append(records, node.Record{Name: fmt.Sprintf("%s_%d", prefix, i), Status: status})
		}
	}

	add(node.StatusNotReady, ad.NodesUnready, "unready")
	add(node.StatusReady, ad.NodesReady, "ready")
	add(node.StatusPrerun, ad.NodesPrerun, "prerun")

	byNode := make(map[string]int, len(jobs))
	for _, j := range jobs {
		name := j.nodeName()
		if cur, ok := byNode[name]; !ok || jobPriority(j.JobStatus) > jobPriority(cur) {
			byNode[name] = j.JobStatus
		}
	}
	names := make([]string, 0, len(byNode))
	for name := range byNode {
		names = append(names, name)
	}
	slices.Sort(names)
	if len(names) > ad.NodesQueued {
		names = names[:ad.NodesQueued]
	}
	for _, name := range names {
		records = append(records, node.Record{Name: name, Status: node.StatusSubmitted, JobStatus: byNode[name]})
	}
	add(node.StatusSubmitted, ad.NodesQueued-len(names), "queued")

	add(node.StatusPostrun, ad.NodesPostrun, "postrun")
	add(node.StatusDone, ad.NodesDone, "done")
	add(node.StatusError, ad.NodesFailed, "failed")
	add(node.StatusFutile, ad.NodesFutile, "futile")

	return records
}
