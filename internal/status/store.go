// Package status keeps the latest state of the run and serves it over HTTP
// for health checks and dashboards.
package status

import (
	"context"
	"sync"
	"time"

	"github.com/mohae/deepcopy"
	"github.com/specialistvlad/dagwatch/internal/snapshot"
	"github.com/specialistvlad/dagwatch/internal/watch"
)

// View is the JSON document served at /status.
type View struct {
	RunID     string    `json:"run_id"`
	Workflow  string    `json:"workflow"`
	State     string    `json:"state"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`

	Snapshot *SnapshotView `json:"snapshot,omitempty"`
	ExitCode *int          `json:"exit_code,omitempty"`
	Error    string        `json:"error,omitempty"`

	Counters Counters `json:"counters"`
}

// SnapshotView is the JSON form of a snapshot.
type SnapshotView struct {
	Time      time.Time      `json:"time"`
	Total     int            `json:"total"`
	Counts    map[string]int `json:"counts"`
	Owner     string         `json:"owner,omitempty"`
	Machine   string         `json:"machine,omitempty"`
	BatchName string         `json:"batch_name,omitempty"`
}

// Counters are the poll counters of the run.
type Counters struct {
	Polls               int `json:"polls"`
	Changes             int `json:"changes"`
	TransientErrors     int `json:"transient_errors"`
	ConsecutiveFailures int `json:"consecutive_failures"`
}

// Store records outcomes and hands out copies of the resulting View. It
// implements watch.Sink and is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	view  View
	state func() string
	now   func() time.Time
}

var _ watch.Sink = (*Store)(nil)

// NewStore returns a Store for one run. state, when not nil, reports the
// live state of the poll loop.
func NewStore(runID, workflow string, state func() string) *Store {
	s := &Store{state: state, now: time.Now}
	s.view = View{RunID: runID, Workflow: workflow, State: "starting", StartedAt: s.now()}
	return s
}

// Emit implements watch.Sink.
func (s *Store) Emit(_ context.Context, o watch.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.view.UpdatedAt = s.now()
	switch o.Kind {
	case watch.KindProgress, watch.KindTerminal:
		s.view.Counters.Polls++
		s.view.Counters.ConsecutiveFailures = 0
		s.view.Error = ""
		if o.Changed {
			s.view.Counters.Changes++
		}
		s.view.Snapshot = newSnapshotView(o.Snapshot)
		if o.Kind == watch.KindTerminal {
			code := o.ExitCode
			s.view.ExitCode = &code
		}
	case watch.KindTransientError:
		s.view.Counters.Polls++
		s.view.Counters.TransientErrors++
		s.view.Counters.ConsecutiveFailures = o.Attempt
		s.view.Error = o.Reason
	}
}

// View returns a deep copy of the current view.
func (s *Store) View() View {
	s.mu.RLock()
	v := deepcopy.Copy(s.view).(View)
	s.mu.RUnlock()

	if s.state != nil {
		v.State = s.state()
	}
	return v
}

func newSnapshotView(snap snapshot.Snapshot) *SnapshotView {
	return &SnapshotView{
		Time:      snap.Time,
		Total:     snap.Total,
		Counts:    snap.CountsMap(),
		Owner:     snap.Meta.Owner,
		Machine:   snap.Meta.Machine,
		BatchName: snap.Meta.BatchName,
	}
}
