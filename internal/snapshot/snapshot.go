package snapshot

import (
	"time"

	"github.com/specialistvlad/dagwatch/internal/node"
	"github.com/specialistvlad/dagwatch/internal/workflowid"
)

// Metadata describes the workflow as a whole, as reported by the scheduler.
type Metadata struct {
	Workflow   workflowid.ID
	TotalNodes int
	Machine    string
	Owner      string
	BatchName  string
}

// Counts holds one counter per node state, indexed by node.State.
type Counts [node.NumStates]int

// Snapshot is the aggregate state of a workflow at one point in time.
type Snapshot struct {
	Time   time.Time
	Total  int
	Counts Counts
	Meta   Metadata
}

// Count returns the number of nodes in the given state.
func (s Snapshot) Count(state node.State) int {
	if !state.Valid() {
		return 0
	}
	return s.Counts[state]
}

// Sum returns the sum of all counters.
func (s Snapshot) Sum() int {
	total := 0
	for _, c := range s.Counts {
		total += c
	}
	return total
}

// InProgress returns the number of nodes that have not finished yet.
func (s Snapshot) InProgress() int {
	n := 0
	for _, st := range node.States {
		if st.InProgress() {
			n += s.Counts[st]
		}
	}
	return n
}

// SameCounts reports whether two snapshots have identical counters,
// ignoring time and metadata.
func (s Snapshot) SameCounts(other Snapshot) bool {
	return s.Total == other.Total && s.Counts == other.Counts
}

// CountsMap returns the counters keyed by state name.
func (s Snapshot) CountsMap() map[string]int {
	out := make(map[string]int, node.NumStates)
	for _, st := range node.States {
		out[st.String()] = s.Counts[st]
	}
	return out
}

// FromCounts builds a Snapshot directly from counters in column order:
// unready, ready, idle, running, held, failed, done. Missing trailing
// values are zero.
func FromCounts(at time.Time, meta Metadata, counts ...int) Snapshot {
	var c Counts
	copy(c[:], counts)
	s := Snapshot{Time: at, Counts: c, Meta: meta}
	s.Total = s.Sum()
	return s
}
