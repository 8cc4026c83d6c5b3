// Package report renders poll outcomes as the human-readable progress
// table written to standard output.
package report

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/specialistvlad/dagwatch/internal/node"
	"github.com/specialistvlad/dagwatch/internal/snapshot"
	"github.com/specialistvlad/dagwatch/internal/watch"
)

// DefaultTimeFormat is the Go layout of row timestamps.
const DefaultTimeFormat = "2006-01-02 15:04:05"

const (
	ruleWidth = 68
	cellWidth = 7
)

var rule = strings.Repeat("-", ruleWidth)

// stateColors is the header colour of each state column.
var stateColors = [node.NumStates]text.Color{
	node.Unready: text.FgWhite,
	node.Ready:   text.FgMagenta,
	node.Idle:    text.FgWhite,
	node.Running: text.FgBlue,
	node.Held:    text.FgYellow,
	node.Failed:  text.FgRed,
	node.Done:    text.FgGreen,
}

// Options controls the look of the report.
type Options struct {
	// Color enables ANSI colours in the header and footer.
	Color bool
	// ChangesOnly suppresses rows whose counts equal the previous row's.
	ChangesOnly bool
	// TimeFormat is the Go layout of row timestamps.
	TimeFormat string
	// Summary appends a table of the final counts after the footer.
	Summary bool
}

// Printer writes the progress report. It implements watch.Sink.
type Printer struct {
	mu        sync.Mutex
	out       io.Writer
	opts      Options
	started   bool
	finished  bool
	lastShown *snapshot.Snapshot
}

var _ watch.Sink = (*Printer)(nil)

// New returns a Printer writing to out.
func New(out io.Writer, opts Options) *Printer {
	if opts.TimeFormat == "" {
		opts.TimeFormat = DefaultTimeFormat
	}
	return &Printer{out: out, opts: opts}
}

// Emit implements watch.Sink.
func (p *Printer) Emit(_ context.Context, o watch.Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch o.Kind {
	case watch.KindProgress:
		p.start(o.Snapshot)
		if p.opts.ChangesOnly && !o.Changed {
			return
		}
		p.row(o.Snapshot)
	case watch.KindTerminal:
		p.start(o.Snapshot)
		if !p.opts.ChangesOnly || p.lastShown == nil || !p.lastShown.SameCounts(o.Snapshot) {
			p.row(o.Snapshot)
		}
		p.footer(o.ExitCode, "")
		if p.opts.Summary {
			p.summary(o.Snapshot)
		}
	case watch.KindTransientError:
		// Retry notices go to the log.
	}
}

// Abort closes the report of a workflow that ended without a terminal
// snapshot, printing its last known counts first.
func (p *Printer) Abort(last snapshot.Snapshot, exitCode int, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.start(last)
	if p.lastShown == nil || !p.lastShown.SameCounts(last) {
		p.row(last)
	}
	p.footer(exitCode, reason)
}

// start prints the preamble and header once.
func (p *Printer) start(s snapshot.Snapshot) {
	if p.started {
		return
	}
	p.started = true

	meta := s.Meta
	p.println(rule)
	p.println("Monitoring workflow " + meta.Workflow.String())
	total := meta.TotalNodes
	if total == 0 {
		total = s.Total
	}
	p.println("Total nodes: " + strconv.Itoa(total))
	for _, kv := range [][2]string{{"Machine", meta.Machine}, {"Owner", meta.Owner}, {"Batch name", meta.BatchName}} {
		if kv[1] != "" {
			p.println(kv[0] + ": " + kv[1])
		}
	}
	p.println(rule)
	p.println(p.header())
	p.println(rule)
}

func (p *Printer) header() string {
	cells := make([]string, 0, node.NumStates)
	for _, st := range node.States {
		cell := fmt.Sprintf("%*s", cellWidth, st.String())
		if p.opts.Color {
			cell = stateColors[st].Sprint(cell)
		}
		cells = append(cells, cell)
	}
	// Pad past the "[timestamp] " prefix of the rows.
	indent := strings.Repeat(" ", len(snapshot.Snapshot{}.Time.Format(p.opts.TimeFormat))+3)
	return indent + strings.Join(cells, " | ")
}

// FormatRow renders the counts of s as one report row, without the
// timestamp.
func FormatRow(s snapshot.Snapshot) string {
	cells := make([]string, 0, node.NumStates)
	for _, c := range s.Counts {
		cells = append(cells, fmt.Sprintf("%*d", cellWidth, c))
	}
	return strings.Join(cells, " | ")
}

func (p *Printer) row(s snapshot.Snapshot) {
	p.println("[" + s.Time.Format(p.opts.TimeFormat) + "] " + FormatRow(s))
	shown := s
	p.lastShown = &shown
}

func (p *Printer) footer(exitCode int, reason string) {
	if p.finished {
		return
	}
	p.finished = true

	p.println(rule)
	if reason != "" {
		p.println(reason)
	}
	msg := fmt.Sprintf("Workflow exited with status %d", exitCode)
	if exitCode != 0 && p.opts.Color {
		msg = text.Colors{text.FgHiRed, text.Bold}.Sprint(msg)
	}
	p.println(msg)
}

func (p *Printer) summary(s snapshot.Snapshot) {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"State", "Nodes"})
	for _, st := range node.States {
		tw.AppendRow(table.Row{st.String(), s.Counts[st]})
	}
	tw.AppendFooter(table.Row{"Total", s.Total})
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	p.println(tw.Render())
}

func (p *Printer) println(line string) {
	fmt.Fprintln(p.out, line)
}
