package condor

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/dagwatch/internal/node"
	"github.com/specialistvlad/dagwatch/internal/snapshot"
	"github.com/specialistvlad/dagwatch/internal/workflowid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func countStates(t *testing.T, records []node.Record) snapshot.Counts {
	t.Helper()
	var c snapshot.Counts
	for _, r := range records {
		st, err := node.Classify(r)
		require.NoError(t, err, "record %+v", r)
		c[st]++
	}
	return c
}

func TestBuildRecords(t *testing.T) {
	testCases := []struct {
		name     string
		ad       DAGManAd
		jobs     []JobAd
		expected snapshot.Counts
	}{
		{
			name:     "counters only",
			ad:       DAGManAd{NodesTotal: intPtr(21), NodesReady: 4, NodesPrerun: 1, NodesDone: 16},
			expected: snapshot.Counts{0, 4, 0, 1, 0, 0, 16},
		},
		{
			name: "queued nodes refined by their jobs",
			ad:   DAGManAd{NodesTotal: intPtr(6), NodesQueued: 4, NodesDone: 2},
			jobs: []JobAd{
				{ClusterID: 11, JobStatus: node.JobIdle, DAGNodeName: "a"},
				{ClusterID: 12, JobStatus: node.JobRunning, DAGNodeName: "b"},
				{ClusterID: 13, JobStatus: node.JobHeld, DAGNodeName: "c"},
			},
			expected: snapshot.Counts{0, 0, 2, 1, 1, 0, 2},
		},
		{
			name: "held proc wins over running proc of the same node",
			ad:   DAGManAd{NodesTotal: intPtr(1), NodesQueued: 1},
			jobs: []JobAd{
				{ClusterID: 11, ProcID: 0, JobStatus: node.JobRunning, DAGNodeName: "a"},
				{ClusterID: 11, ProcID: 1, JobStatus: node.JobHeld, DAGNodeName: "a"},
			},
			expected: snapshot.Counts{0, 0, 0, 0, 1, 0, 0},
		},
		{
			name: "more jobs than queued nodes are ignored",
			ad:   DAGManAd{NodesTotal: intPtr(2), NodesQueued: 1, NodesDone: 1},
			jobs: []JobAd{
				{ClusterID: 11, JobStatus: node.JobRunning},
				{ClusterID: 12, JobStatus: node.JobRunning},
			},
			expected: snapshot.Counts{0, 0, 0, 1, 0, 0, 1},
		},
		{
			name:     "failed and futile both count as failed",
			ad:       DAGManAd{NodesTotal: intPtr(21), NodesFailed: 2, NodesFutile: 1, NodesDone: 18},
			expected: snapshot.Counts{0, 0, 0, 0, 0, 3, 18},
		},
		{
			name:     "postrun and unready",
			ad:       DAGManAd{NodesTotal: intPtr(3), NodesUnready: 2, NodesPostrun: 1},
			expected: snapshot.Counts{2, 0, 0, 1, 0, 0, 0},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			records := BuildRecords(&tc.ad, tc.jobs)

			got := countStates(t, records)
			if diff := cmp.Diff(tc.expected, got); diff != "" {
				t.Errorf("counts mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildRecords_IsDeterministic(t *testing.T) {
	ad := DAGManAd{NodesTotal: intPtr(3), NodesQueued: 2, NodesDone: 1}
	jobs := []JobAd{
		{ClusterID: 13, JobStatus: node.JobHeld, DAGNodeName: "c"},
		{ClusterID: 11, JobStatus: node.JobIdle, DAGNodeName: "a"},
		{ClusterID: 12, JobStatus: node.JobRunning, DAGNodeName: "b"},
	}
	reversed := []JobAd{jobs[2], jobs[1], jobs[0]}

	assert.Equal(t, BuildRecords(&ad, jobs), BuildRecords(&ad, reversed))
}

func TestDAGManAd_Validate(t *testing.T) {
	ok := DAGManAd{NodesTotal: intPtr(3), NodesDone: 3}
	require.NoError(t, ok.Validate())

	bad := DAGManAd{NodesTotal: intPtr(-1), NodesDone: -2}
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DAG_NodesDone is negative")
	assert.Contains(t, err.Error(), "DAG_NodesTotal is negative")
}

func TestDAGManAd_Metadata(t *testing.T) {
	id := workflowid.MustParse("42")
	ad := DAGManAd{Owner: "alice", Machine: "submit.example.org", JobBatchName: "analysis", NodesTotal: intPtr(21)}

	assert.Equal(t, snapshot.Metadata{
		Workflow:   id,
		TotalNodes: 21,
		Machine:    "submit.example.org",
		Owner:      "alice",
		BatchName:  "analysis",
	}, ad.Metadata(id))
	assert.True(t, ad.IsDAG())
	assert.False(t, (&DAGManAd{}).IsDAG())
}

func TestDAGManAd_IsDAG(t *testing.T) {
	testCases := []struct {
		name        string
		ad          *DAGManAd
		isDAG       bool
		hasCounters bool
	}{
		{"nil", nil, false, false},
		{"ordinary job", &DAGManAd{JobUniverse: 5, Cmd: "/bin/sleep"}, false, false},
		{"fresh dagman by universe", &DAGManAd{JobUniverse: SchedulerUniverse}, true, false},
		{"fresh dagman by command", &DAGManAd{Cmd: "/usr/bin/condor_dagman"}, true, false},
		{"running dagman", &DAGManAd{JobUniverse: SchedulerUniverse, NodesTotal: intPtr(3)}, true, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.isDAG, tc.ad.IsDAG())
			assert.Equal(t, tc.hasCounters, tc.ad.HasCounters())
		})
	}
}
