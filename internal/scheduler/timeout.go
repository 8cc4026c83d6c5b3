package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/specialistvlad/dagwatch/internal/workflowid"
)

// WithTimeout bounds every query of a by d. A query that runs out of time
// while the caller's context is still live is reported as transient. A
// non-positive d returns a unchanged.
func WithTimeout(a Adapter, d time.Duration) Adapter {
	if d <= 0 {
		return a
	}
	return AdapterFunc(func(ctx context.Context, id workflowid.ID) (*Result, error) {
		qctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		res, err := a.Query(qctx, id)
		if err != nil && ctx.Err() == nil && errors.Is(qctx.Err(), context.DeadlineExceeded) && !IsTransient(err) {
			return nil, Transient(err, "query did not return within %s", d)
		}
		return res, err
	})
}
