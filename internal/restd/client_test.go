package restd

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/specialistvlad/dagwatch/internal/condor"
	"github.com/specialistvlad/dagwatch/internal/scheduler"
	"github.com/specialistvlad/dagwatch/internal/workflowid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var id42 = workflowid.MustParse("42")

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := New(Settings{BaseURL: srv.URL, Schedd: "schedd.example.org", Timeout: 5 * time.Second, TripAfter: 2, OpenFor: time.Hour})
	t.Cleanup(func() { _ = c.Close() })
	return c, srv
}

func TestClient_DAGMan(t *testing.T) {
	// --- Arrange ---
	var gotPath, gotSchedd, gotProjection string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotSchedd = r.URL.Query().Get("schedd")
		gotProjection = r.URL.Query().Get("projection")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"jobid": "42.0", "classad": {"clusterid": 42, "owner": "alice",
			"dag_nodestotal": 21, "dag_nodesready": 4, "dag_nodesdone": 16, "dag_nodesqueued": 1}}]`)
	})

	// --- Act ---
	ad, err := c.DAGMan(context.Background(), id42)

	// --- Assert ---
	require.NoError(t, err)
	require.NotNil(t, ad)
	assert.Equal(t, "/v1/jobs/42/0", gotPath)
	assert.Equal(t, "schedd.example.org", gotSchedd)
	assert.Contains(t, gotProjection, "dag_nodestotal")
	assert.Equal(t, 42, ad.ClusterID)
	assert.Equal(t, "alice", ad.Owner)
	assert.True(t, ad.IsDAG())
	assert.Equal(t, 16, ad.NodesDone)
}

func TestClient_NotFoundIsMissing(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	ad, err := c.History(context.Background(), id42)

	require.NoError(t, err)
	assert.Nil(t, ad)
}

func TestClient_NodeJobs(t *testing.T) {
	var constraint string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		constraint = r.URL.Query().Get("constraint")
		fmt.Fprint(w, `[{"jobid": "43.0", "classad": {"clusterid": 43, "jobstatus": 2, "dagnodename": "a"}},
			{"jobid": "44.0", "classad": {"clusterid": 44, "jobstatus": 5, "dagnodename": "b"}}]`)
	})

	jobs, err := c.NodeJobs(context.Background(), id42)

	require.NoError(t, err)
	assert.Equal(t, "DAGManJobId==42", constraint)
	assert.Equal(t, []condor.JobAd{
		{ClusterID: 43, JobStatus: 2, DAGNodeName: "a"},
		{ClusterID: 44, JobStatus: 5, DAGNodeName: "b"},
	}, jobs)
}

func TestClient_ErrorKinds(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "server error is transient",
			status: http.StatusServiceUnavailable,
			check:  func(t *testing.T, err error) { assert.True(t, scheduler.IsTransient(err)) },
		},
		{
			name:   "bad request is malformed",
			status: http.StatusBadRequest,
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, scheduler.ErrMalformedResponse) },
		},
		{
			name:   "invalid json is malformed",
			status: http.StatusOK,
			body:   `{"not": "a list"`,
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, scheduler.ErrMalformedResponse) },
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			})

			_, err := c.DAGMan(context.Background(), id42)

			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestClient_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	// --- Arrange ---
	var hits atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	// --- Act ---
	for i := 0; i < 2; i++ {
		_, err := c.DAGMan(context.Background(), id42)
		require.Error(t, err)
	}
	_, err := c.DAGMan(context.Background(), id42)

	// --- Assert ---
	assert.Equal(t, gobreaker.StateOpen, c.BreakerState())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.True(t, scheduler.IsTransient(err))
	assert.EqualValues(t, 2, hits.Load(), "an open breaker must not reach the daemon")
}

func TestClient_UnreachableIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	c := New(Settings{BaseURL: url, Timeout: time.Second})
	defer c.Close()

	_, err := c.DAGMan(context.Background(), id42)

	assert.True(t, scheduler.IsTransient(err))
}

func TestClient_WorksWithCondorAdapter(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/jobs/42/0":
			http.NotFound(w, r)
		case "/v1/history/42/0":
			fmt.Fprint(w, `[{"jobid": "42.0", "classad": {"dag_nodestotal": 21, "dag_nodesdone": 18, "dag_nodesfailed": 3, "exitcode": 1}}]`)
		default:
			t.Errorf("unexpected request %s", r.URL)
		}
	})

	res, err := condor.NewAdapter(c).Query(context.Background(), id42)

	require.NoError(t, err)
	assert.True(t, res.Exited)
	require.NotNil(t, res.ExitCode)
	assert.Equal(t, 1, *res.ExitCode)
	assert.Len(t, res.Records, 21)
}
