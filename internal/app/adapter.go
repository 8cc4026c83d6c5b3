package app

import (
	"context"

	"github.com/specialistvlad/dagwatch/internal/condor"
	"github.com/specialistvlad/dagwatch/internal/config"
	"github.com/specialistvlad/dagwatch/internal/ctxlog"
	"github.com/specialistvlad/dagwatch/internal/replay"
	"github.com/specialistvlad/dagwatch/internal/restd"
	"github.com/specialistvlad/dagwatch/internal/scheduler"
)

// buildAdapter creates the scheduler adapter named by the settings, bounded
// by the query timeout. The returned cleanup is never nil.
func (a *App) buildAdapter(ctx context.Context) (scheduler.Adapter, func(), error) {
	logger := ctxlog.FromContext(ctx)
	s := a.settings
	noop := func() {}

	if a.adapter != nil {
		logger.Debug("Using pre-configured scheduler adapter.")
		return scheduler.WithTimeout(a.adapter, s.QueryTimeout), noop, nil
	}

	logger.Debug("Building scheduler adapter.", "scheduler", s.Scheduler.Kind, "query_timeout", s.QueryTimeout)
	switch s.Scheduler.Kind {
	case config.SchedulerRestd:
		client := restd.New(restd.Settings{
			BaseURL: s.Scheduler.URL,
			Schedd:  s.Scheduler.Schedd,
			Timeout: s.QueryTimeout,
		})
		cleanup := func() {
			if err := client.Close(); err != nil {
				logger.Debug("Closing restd client failed.", "error", err)
			}
		}
		return scheduler.WithTimeout(condor.NewAdapter(client), s.QueryTimeout), cleanup, nil

	case config.SchedulerReplay:
		script, err := replay.Load(s.Scheduler.ReplayFile)
		if err != nil {
			return nil, noop, &config.Error{Field: "replay_file", Value: s.Scheduler.ReplayFile, Msg: err.Error()}
		}
		logger.Debug("Replay script loaded.", "cycles", len(script.Cycles))
		return replay.NewAdapter(script), noop, nil

	default:
		return scheduler.WithTimeout(condor.NewAdapter(condor.NewCLI(s.Scheduler.Schedd)), s.QueryTimeout), noop, nil
	}
}
