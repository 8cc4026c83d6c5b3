package testutil

import (
	"context"
	"sync"

	"github.com/specialistvlad/dagwatch/internal/scheduler"
	"github.com/specialistvlad/dagwatch/internal/snapshot"
	"github.com/specialistvlad/dagwatch/internal/workflowid"
)

// Step is one scripted answer of a ScriptedAdapter.
type Step struct {
	Result *scheduler.Result
	Err    error
}

// Counts returns a Step answering with records for the given counts.
func Counts(meta snapshot.Metadata, counts ...int) Step {
	return Step{Result: &scheduler.Result{Records: Records(counts...), Meta: meta}}
}

// Fail returns a Step answering with err.
func Fail(err error) Step {
	return Step{Err: err}
}

// ScriptedAdapter is a scheduler.Adapter that answers from a fixed script.
// Once the script is exhausted the last step repeats.
type ScriptedAdapter struct {
	mu    sync.Mutex
	steps []Step
	calls int
	ids   []workflowid.ID
}

// NewScriptedAdapter creates an adapter that plays the given steps in order.
func NewScriptedAdapter(steps ...Step) *ScriptedAdapter {
	return &ScriptedAdapter{steps: steps}
}

// Query implements scheduler.Adapter.
func (a *ScriptedAdapter) Query(ctx context.Context, id workflowid.ID) (*scheduler.Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.ids = append(a.ids, id)
	if len(a.steps) == 0 {
		return nil, scheduler.NotFound("empty script")
	}
	idx := a.calls
	if idx >= len(a.steps) {
		idx = len(a.steps) - 1
	}
	a.calls++

	step := a.steps[idx]
	if step.Err != nil {
		return nil, step.Err
	}
	res := *step.Result
	return &res, nil
}

// Calls returns how many queries were made.
func (a *ScriptedAdapter) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// IDs returns the workflow ids seen by each query, in order.
func (a *ScriptedAdapter) IDs() []workflowid.ID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]workflowid.ID(nil), a.ids...)
}
