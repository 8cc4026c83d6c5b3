package report

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/specialistvlad/dagwatch/internal/snapshot"
	"github.com/specialistvlad/dagwatch/internal/watch"
	"github.com/specialistvlad/dagwatch/internal/workflowid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	t0   = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	meta = snapshot.Metadata{Workflow: workflowid.MustParse("1234"), TotalNodes: 21, Owner: "alice", Machine: "submit.example.org"}
)

func snapAt(sec int, counts ...int) snapshot.Snapshot {
	return snapshot.FromCounts(t0.Add(time.Duration(sec)*time.Second), meta, counts...)
}

func progress(s snapshot.Snapshot, changed bool) watch.Outcome {
	o := watch.Progress(s)
	o.Changed = changed
	return o
}

func TestFormatRow(t *testing.T) {
	got := FormatRow(snapAt(0, 0, 4, 0, 1, 0, 0, 16))

	assert.Equal(t, "      0 |       4 |       0 |       1 |       0 |       0 |      16", got)
}

func TestPrinter_FullRun(t *testing.T) {
	// --- Arrange ---
	var buf bytes.Buffer
	p := New(&buf, Options{})
	ctx := context.Background()

	// --- Act ---
	p.Emit(ctx, progress(snapAt(0, 0, 4, 0, 1, 0, 0, 16), true))
	p.Emit(ctx, progress(snapAt(2, 0, 4, 0, 1, 0, 0, 16), false))
	p.Emit(ctx, watch.TransientError("connection refused", 1))
	p.Emit(ctx, watch.TerminalOutcome(0, snapAt(4, 0, 0, 0, 0, 0, 0, 21)))

	// --- Assert ---
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	expected := []string{
		strings.Repeat("-", 68),
		"Monitoring workflow 1234.0",
		"Total nodes: 21",
		"Machine: submit.example.org",
		"Owner: alice",
		strings.Repeat("-", 68),
		"                      unready |   ready |    idle | running |    held |  failed |    done",
		strings.Repeat("-", 68),
		"[2026-03-01 12:00:00]       0 |       4 |       0 |       1 |       0 |       0 |      16",
		"[2026-03-01 12:00:02]       0 |       4 |       0 |       1 |       0 |       0 |      16",
		"[2026-03-01 12:00:04]       0 |       0 |       0 |       0 |       0 |       0 |      21",
		strings.Repeat("-", 68),
		"Workflow exited with status 0",
	}
	assert.Equal(t, expected, lines)
}

func TestPrinter_ChangesOnly(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, Options{ChangesOnly: true})
	ctx := context.Background()

	p.Emit(ctx, progress(snapAt(0, 0, 0, 0, 1, 0, 0, 20), true))
	p.Emit(ctx, progress(snapAt(2, 0, 0, 0, 1, 0, 0, 20), false))
	p.Emit(ctx, progress(snapAt(4, 0, 0, 0, 1, 0, 0, 20), false))
	p.Emit(ctx, watch.TerminalOutcome(3, snapAt(6, 0, 0, 0, 0, 0, 3, 18)))

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "[2026-03-01"), "only changed rows are printed")
	assert.NotContains(t, out, "12:00:02")
	assert.Contains(t, out, "Workflow exited with status 3")
}

func TestPrinter_ChangesOnlySkipsRepeatedFinalRow(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, Options{ChangesOnly: true})

	p.Emit(context.Background(), progress(snapAt(0, 0, 0, 0, 0, 0, 0, 21), true))
	p.Emit(context.Background(), watch.TerminalOutcome(0, snapAt(2, 0, 0, 0, 0, 0, 0, 21)))

	assert.Equal(t, 1, strings.Count(buf.String(), "[2026-03-01"))
}

func TestPrinter_Color(t *testing.T) {
	var plain, colored bytes.Buffer
	New(&plain, Options{}).Emit(context.Background(), watch.TerminalOutcome(2, snapAt(0, 0, 0, 0, 0, 0, 2, 19)))
	New(&colored, Options{Color: true}).Emit(context.Background(), watch.TerminalOutcome(2, snapAt(0, 0, 0, 0, 0, 0, 2, 19)))

	assert.NotContains(t, plain.String(), "\x1b[")
	assert.Contains(t, colored.String(), "\x1b[")
	assert.Contains(t, colored.String(), "Workflow exited with status 2")
}

func TestPrinter_TimeFormat(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, Options{TimeFormat: time.Kitchen})

	p.Emit(context.Background(), progress(snapAt(0, 0, 1), true))

	assert.Contains(t, buf.String(), "[12:00PM]       0 |       1 |")
}

func TestPrinter_Summary(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, Options{Summary: true})

	p.Emit(context.Background(), watch.TerminalOutcome(3, snapAt(0, 0, 0, 0, 0, 0, 3, 18)))

	out := buf.String()
	footer := strings.Index(out, "Workflow exited with status 3")
	require.GreaterOrEqual(t, footer, 0)
	summary := out[footer:]
	assert.Contains(t, summary, "failed")
	assert.Contains(t, summary, "18")
	assert.Contains(t, strings.ToLower(summary), "total")
}

func TestPrinter_Abort(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, Options{})
	last := snapAt(0, 0, 2, 0, 1, 0, 0, 18)
	p.Emit(context.Background(), progress(last, true))

	p.Abort(last, 1, "Workflow left the queue with 3 unfinished nodes")
	p.Abort(last, 1, "again")

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "[2026-03-01"), "the last row is not repeated")
	assert.Equal(t, 1, strings.Count(out, "Workflow exited with status 1"), "the footer is printed once")
	assert.Contains(t, out, "Workflow left the queue with 3 unfinished nodes")
}
