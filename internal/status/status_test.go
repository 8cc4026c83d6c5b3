package status

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/specialistvlad/dagwatch/internal/snapshot"
	"github.com/specialistvlad/dagwatch/internal/watch"
	"github.com/specialistvlad/dagwatch/internal/workflowid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var meta = snapshot.Metadata{Workflow: workflowid.MustParse("1234"), TotalNodes: 21, Owner: "alice"}

func snap(counts ...int) snapshot.Snapshot {
	return snapshot.FromCounts(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), meta, counts...)
}

func TestStore_Emit(t *testing.T) {
	// --- Arrange ---
	st := NewStore("run-1", "1234.0", func() string { return "polling" })
	ctx := context.Background()

	// --- Act ---
	st.Emit(ctx, watch.Progress(snap(0, 4, 0, 1, 0, 0, 16)))
	st.Emit(ctx, watch.TransientError("connection refused", 1))
	st.Emit(ctx, watch.TransientError("connection refused", 2))
	mid := st.View()
	o := watch.Progress(snap(0, 4, 0, 1, 0, 0, 16))
	o.Changed = false
	st.Emit(ctx, o)
	st.Emit(ctx, watch.TerminalOutcome(0, snap(0, 0, 0, 0, 0, 0, 21)))
	v := st.View()

	// --- Assert ---
	assert.Equal(t, 2, mid.Counters.ConsecutiveFailures)
	assert.Equal(t, "connection refused", mid.Error)

	assert.Equal(t, "run-1", v.RunID)
	assert.Equal(t, "polling", v.State)
	assert.Equal(t, Counters{Polls: 5, Changes: 2, TransientErrors: 2}, v.Counters)
	assert.Empty(t, v.Error)
	require.NotNil(t, v.ExitCode)
	assert.Equal(t, 0, *v.ExitCode)
	require.NotNil(t, v.Snapshot)
	assert.Equal(t, 21, v.Snapshot.Counts["done"])
	assert.Equal(t, "alice", v.Snapshot.Owner)
}

func TestStore_ViewIsACopy(t *testing.T) {
	st := NewStore("run-1", "1234.0", nil)
	st.Emit(context.Background(), watch.Progress(snap(0, 1)))

	v := st.View()
	v.Snapshot.Counts["ready"] = 99
	*v.Snapshot = SnapshotView{}

	again := st.View()
	assert.Equal(t, 1, again.Snapshot.Counts["ready"])
	assert.Equal(t, "starting", again.State)
}

func TestServer_Routes(t *testing.T) {
	st := NewStore("run-1", "1234.0", func() string { return "backoff" })
	st.Emit(context.Background(), watch.Progress(snap(0, 4, 0, 1, 0, 0, 16)))
	srv := httptest.NewServer(NewServer(st, 0).Handler(context.Background()))
	defer srv.Close()

	get := func(t *testing.T, path string) (*http.Response, string) {
		t.Helper()
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp, string(body)
	}

	t.Run("health", func(t *testing.T) {
		resp, body := get(t, "/health")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "OK\n", body)
	})

	t.Run("status", func(t *testing.T) {
		resp, body := get(t, "/status")
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		var v View
		require.NoError(t, json.Unmarshal([]byte(body), &v))
		assert.Equal(t, "backoff", v.State)
		assert.Equal(t, "1234.0", v.Workflow)
		assert.Equal(t, 16, v.Snapshot.Counts["done"])
	})

	t.Run("metrics", func(t *testing.T) {
		_, body := get(t, "/metrics")
		assert.Contains(t, body, "dagwatch_polls_total 1\n")
		assert.Contains(t, body, `dagwatch_nodes{state="ready"} 4`)
		assert.Contains(t, body, "# TYPE dagwatch_consecutive_failures gauge")
	})

	t.Run("unknown route", func(t *testing.T) {
		resp, _ := get(t, "/nope")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	// --- Arrange ---
	st := NewStore("run-1", "1234.0", nil)
	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan string, 1)
	done := make(chan error, 1)

	// --- Act ---
	go func() { done <- NewServer(st, 0).Run(ctx, ready) }()
	_, port, err := net.SplitHostPort(<-ready)
	require.NoError(t, err)
	resp, err := http.Get("http://127.0.0.1:" + port + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	cancel()

	// --- Assert ---
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}
