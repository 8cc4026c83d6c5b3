package replay

import (
	"context"
	"sync"

	"github.com/specialistvlad/dagwatch/internal/ctxlog"
	"github.com/specialistvlad/dagwatch/internal/scheduler"
	"github.com/specialistvlad/dagwatch/internal/workflowid"
)

// Adapter answers queries from a Script, one cycle per query. Once the
// script runs out the last cycle repeats.
type Adapter struct {
	mu     sync.Mutex
	script *Script
	plan   []int
	next   int
}

// NewAdapter returns an Adapter that plays s from the start.
func NewAdapter(s *Script) *Adapter {
	var plan []int
	for i, c := range s.Cycles {
		for n := max(c.Repeat, 1); n > 0; n-- {
			plan = append(plan, i)
		}
	}
	return &Adapter{script: s, plan: plan}
}

// Query implements scheduler.Adapter.
func (a *Adapter) Query(ctx context.Context, id workflowid.ID) (*scheduler.Result, error) {
	a.mu.Lock()
	if len(a.plan) == 0 {
		a.mu.Unlock()
		return nil, scheduler.Malformed(nil, "replay script for %s has no cycles", id)
	}
	idx := a.plan[min(a.next, len(a.plan)-1)]
	a.next++
	a.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := a.script.Cycles[idx]
	ctxlog.FromContext(ctx).Debug("Replaying cycle.", "cycle", idx+1, "error", c.Error, "exited", c.Exited)
	if c.Error != "" {
		return nil, c.err()
	}

	meta := a.script.Workflow.metadata()
	meta.Workflow = id
	return &scheduler.Result{
		Records:  c.records(),
		Meta:     meta,
		Exited:   c.Exited,
		ExitCode: c.ExitCode,
	}, nil
}
