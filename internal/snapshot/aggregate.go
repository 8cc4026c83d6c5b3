package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/specialistvlad/dagwatch/internal/ctxlog"
	"github.com/specialistvlad/dagwatch/internal/node"
)

// Aggregate classifies every record and folds the results into a Snapshot.
//
// Aggregation either succeeds for every record or fails as a whole: the
// first classification error is returned and no Snapshot is produced.
// A total that differs from the declared node count is only logged, since
// nodes can be added to a DAG while it runs.
func Aggregate(ctx context.Context, records []node.Record, meta Metadata, at time.Time) (Snapshot, error) {
	logger := ctxlog.FromContext(ctx)

	var counts Counts
	for _, r := range records {
		state, err := node.Classify(r)
		if err != nil {
			logger.Error("Node classification failed, discarding cycle.", "node", r.Name, "raw_status", r.Status, "job_status", r.JobStatus)
			return Snapshot{}, fmt.Errorf("aggregating %d records: %w", len(records), err)
		}
		counts[state]++
	}

	snap := Snapshot{
		Time:   at,
		Total:  len(records),
		Counts: counts,
		Meta:   meta,
	}

	if meta.TotalNodes > 0 && snap.Total != meta.TotalNodes {
		logger.Warn("Node count differs from the declared total.", "counted", snap.Total, "declared", meta.TotalNodes)
	}
	logger.Debug("Cycle aggregated.", "total", snap.Total, "counts", snap.CountsMap())

	return snap, nil
}
