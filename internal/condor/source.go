package condor

import (
	"context"

	"github.com/specialistvlad/dagwatch/internal/workflowid"
)

// Source fetches the ClassAds of one workflow.
//
// Implementations report a missing job as (nil, nil) and any failure as a
// scheduler query error, so the Adapter can pass them through unchanged.
type Source interface {
	// DAGMan returns the queued DAGMan job ad.
	DAGMan(ctx context.Context, id workflowid.ID) (*DAGManAd, error)
	// NodeJobs returns the queued jobs submitted by the DAGMan job.
	NodeJobs(ctx context.Context, id workflowid.ID) ([]JobAd, error)
	// History returns the most recent history ad of the DAGMan job.
	History(ctx context.Context, id workflowid.ID) (*DAGManAd, error)
}
