package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/specialistvlad/dagwatch/internal/config"
	"github.com/specialistvlad/dagwatch/internal/scheduler"
	"github.com/specialistvlad/dagwatch/internal/testutil"
	"github.com/specialistvlad/dagwatch/internal/watch"
	"github.com/specialistvlad/dagwatch/internal/workflowid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func settingsFor(t *testing.T, replayFile string) config.Settings {
	t.Helper()
	s, err := config.Resolve(&config.Overrides{
		Scheduler:  ptr(config.SchedulerReplay),
		ReplayFile: ptr(replayFile),
		NoColor:    ptr(true),
		LogLevel:   ptr("debug"),
	})
	require.NoError(t, err)
	return s
}

func ptr[T any](v T) *T { return &v }

func setupApp(t *testing.T, s config.Settings, opts ...Option) (*App, *testutil.SafeBuffer, *testutil.SafeBuffer) {
	t.Helper()
	out, logs := &testutil.SafeBuffer{}, &testutil.SafeBuffer{}
	opts = append([]Option{WithWatchOptions(watch.WithSleeper(noSleep))}, opts...)
	a := New(out, logs, s, workflowid.MustParse("1234"), opts...)

	t.Cleanup(func() {
		if os.Getenv("DAGWATCH_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})
	return a, out, logs
}

func TestRun_SuccessScenario(t *testing.T) {
	// --- Arrange ---
	a, out, logs := setupApp(t, settingsFor(t, "scenario:success"))

	// --- Act ---
	outcome, err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, 0, outcome.ExitCode)
	assert.Contains(t, out.String(), "Monitoring workflow 1234.0")
	assert.Contains(t, out.String(), "Workflow exited with status 0")
	assert.Contains(t, logs.String(), "run_id="+a.RunID())
}

func TestRun_FailureScenario(t *testing.T) {
	a, out, _ := setupApp(t, settingsFor(t, "scenario:failure"))

	outcome, err := a.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, outcome.ExitCode)
	assert.False(t, outcome.Success())
	assert.Contains(t, out.String(), "Workflow exited with status 3")
}

func TestRun_FlakyScenarioRecovers(t *testing.T) {
	a, _, logs := setupApp(t, settingsFor(t, "scenario:flaky"))

	outcome, err := a.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, outcome.ExitCode)
	assert.Equal(t, 3, strings.Count(logs.String(), "Scheduler query failed, backing off."))
}

func TestRun_MissingReplayFileIsConfigError(t *testing.T) {
	a, _, _ := setupApp(t, settingsFor(t, filepath.Join(t.TempDir(), "missing.yaml")))

	_, err := a.Run(context.Background())

	var cerr *config.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "replay_file", cerr.Field)
}

func TestRun_AbortedWorkflowPrintsFooter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "removed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
workflow: {total_nodes: 21}
cycles:
  - counts: {ready: 4, running: 1, done: 16}
  - counts: {ready: 4, idle: 1, done: 16}
    exited: true
`), 0o644))
	a, out, _ := setupApp(t, settingsFor(t, path))

	_, err := a.Run(context.Background())

	var aborted *watch.AbortedError
	require.ErrorAs(t, err, &aborted)
	assert.Contains(t, out.String(), "Workflow left the queue with 5 unfinished nodes")
	assert.Contains(t, out.String(), "Workflow exited with status 1")
}

func TestRun_WithAdapterAndCancel(t *testing.T) {
	// --- Arrange ---
	ctx, cancel := context.WithCancel(context.Background())
	adapter := scheduler.AdapterFunc(func(context.Context, workflowid.ID) (*scheduler.Result, error) {
		cancel()
		return testutil.Counts(testutilMeta(), 0, 1).Result, nil
	})
	a, _, _ := setupApp(t, settingsFor(t, "scenario:success"), WithAdapter(adapter))

	// --- Act ---
	_, err := a.Run(ctx)

	// --- Assert ---
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_ServesStatusWhileRunning(t *testing.T) {
	// --- Arrange ---
	s := settingsFor(t, "scenario:success")
	port := freePort(t)
	s.StatusPort = port

	ready := make(chan string, 1)
	release := make(chan struct{})
	gate := watch.WithSleeper(func(ctx context.Context, _ time.Duration) error {
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	a, _, _ := setupApp(t, s, WithStatusReady(ready), WithWatchOptions(gate))

	done := make(chan error, 1)
	go func() {
		_, err := a.Run(context.Background())
		done <- err
	}()

	// --- Act ---
	<-ready
	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://127.0.0.1:" + itoa(port) + "/status")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		body = string(b)
		return strings.Contains(body, `"snapshot"`)
	}, 5*time.Second, 10*time.Millisecond)
	close(release)

	// --- Assert ---
	assert.Contains(t, body, a.RunID())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish")
	}
}

func TestRun_UnknownScenarioIsConfigError(t *testing.T) {
	a, _, _ := setupApp(t, settingsFor(t, "scenario:nope"))
	_, err := a.Run(context.Background())
	var cerr *config.Error
	assert.True(t, errors.As(err, &cerr))
}
