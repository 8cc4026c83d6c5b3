package condor

import (
	"context"

	"github.com/specialistvlad/dagwatch/internal/ctxlog"
	"github.com/specialistvlad/dagwatch/internal/scheduler"
	"github.com/specialistvlad/dagwatch/internal/workflowid"
)

// Adapter implements scheduler.Adapter on top of a Source.
//
// An Adapter remembers whether it has seen the workflow: a workflow that
// vanishes from both queue and history after being seen is reported as
// transient, since the schedd writes the history record with a delay.
type Adapter struct {
	source Source
	seen   bool
}

// NewAdapter returns an Adapter reading from source.
func NewAdapter(source Source) *Adapter {
	return &Adapter{source: source}
}

// Query implements scheduler.Adapter.
func (a *Adapter) Query(ctx context.Context, id workflowid.ID) (*scheduler.Result, error) {
	logger := ctxlog.FromContext(ctx)

	ad, err := a.source.DAGMan(ctx, id)
	if err != nil {
		return nil, err
	}
	if ad != nil {
		if err := check(ad, id); err != nil {
			return nil, err
		}
		a.seen = true
		if !ad.HasCounters() {
			logger.Debug("DAGMan job has not published node counters yet.", "job_status", ad.JobStatus)
			return nil, scheduler.Transient(nil, "workflow %s has not published its node counters yet", id)
		}

		var jobs []JobAd
		if ad.NodesQueued > 0 {
			jobs, err = a.source.NodeJobs(ctx, id)
			if err != nil {
				return nil, err
			}
		}
		logger.Debug("DAGMan job is queued.", "queued_nodes", ad.NodesQueued, "node_jobs", len(jobs))
		return &scheduler.Result{
			Records: BuildRecords(ad, jobs),
			Meta:    ad.Metadata(id),
		}, nil
	}

	hist, err := a.source.History(ctx, id)
	if err != nil {
		return nil, err
	}
	if hist == nil {
		if a.seen {
			return nil, scheduler.Transient(nil, "workflow %s left the queue but has no history record yet", id)
		}
		return nil, scheduler.NotFound("no job %s in the queue or the history", id)
	}
	if err := check(hist, id); err != nil {
		return nil, err
	}
	a.seen = true
	if !hist.HasCounters() {
		return nil, scheduler.Malformed(nil, "workflow %s left the queue without publishing node counters", id)
	}

	logger.Debug("DAGMan job has left the queue.", "exit_code", hist.ExitCode)
	return &scheduler.Result{
		Records:  BuildRecords(hist, nil),
		Meta:     hist.Metadata(id),
		Exited:   true,
		ExitCode: hist.ExitCode,
	}, nil
}

func check(ad *DAGManAd, id workflowid.ID) error {
	if !ad.IsDAG() {
		return scheduler.NotFound("job %s is not a DAGMan workflow", id)
	}
	if err := ad.Validate(); err != nil {
		return scheduler.Malformed(err, "job %s", id)
	}
	return nil
}
