package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/dagwatch/internal/ctxlog"
	"github.com/specialistvlad/dagwatch/internal/publish"
	"github.com/specialistvlad/dagwatch/internal/report"
	"github.com/specialistvlad/dagwatch/internal/status"
	"github.com/specialistvlad/dagwatch/internal/terminal"
	"github.com/specialistvlad/dagwatch/internal/watch"
	"golang.org/x/sync/errgroup"
)

// Run monitors the workflow until it ends, monitoring fails or ctx is
// cancelled. It returns the workflow's outcome, or the error that stopped
// the run.
func (a *App) Run(ctx context.Context) (*terminal.Outcome, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	logger := a.logger
	s := a.settings
	logger.Debug("App.Run method started.", "workflow", a.workflow.String())

	adapter, cleanup, err := a.buildAdapter(ctx)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	printer := report.New(a.outW, report.Options{
		Color:       !s.NoColor,
		ChangesOnly: s.ChangesOnly,
		TimeFormat:  s.TimeFormat,
		Summary:     s.Summary,
	})
	sinks := watch.Sinks{printer}

	var w *watch.Watcher
	var store *status.Store
	if s.StatusPort > 0 {
		store = status.NewStore(a.runID, a.workflow.String(), func() string { return w.State().String() })
		sinks = append(sinks, store)
	}

	if s.PublishURL != "" {
		pub, err := publish.Dial(ctx, publish.Options{URL: s.PublishURL}, a.runID, a.workflow.String())
		if err != nil {
			logger.Warn("Publisher unavailable, continuing without it.", "url", s.PublishURL, "error", err)
		} else {
			defer pub.Close()
			sinks = append(sinks, pub)
		}
	}

	w = watch.New(adapter, a.workflow, watch.Config{
		Interval:    s.Interval,
		BackoffBase: s.BackoffBase,
		BackoffCap:  s.BackoffCap,
		MaxRetries:  s.MaxRetries,
		Policy:      s.Policy,
	}, sinks, a.watchOptions...)

	g, gctx := errgroup.WithContext(ctx)
	serverCtx, stopServer := context.WithCancel(gctx)
	defer stopServer()

	if store != nil {
		srv := status.NewServer(store, s.StatusPort)
		g.Go(func() error {
			return srv.Run(serverCtx, a.statusReady)
		})
	}

	var outcome *terminal.Outcome
	g.Go(func() error {
		defer stopServer()
		var err error
		outcome, err = w.Run(gctx)
		return err
	})

	logger.Info("🚀 Monitoring workflow", "workflow", a.workflow.String(), "scheduler", s.Scheduler.Kind, "interval", s.Interval)
	err = g.Wait()

	var aborted *watch.AbortedError
	if errors.As(err, &aborted) {
		printer.Abort(aborted.Snapshot, aborted.ExitCode, fmt.Sprintf("Workflow left the queue with %d unfinished nodes", aborted.Snapshot.InProgress()))
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("Monitoring interrupted.")
		}
		return nil, err
	}

	logger.Info("🏁 Workflow finished.", "exit_code", outcome.ExitCode, "failed", outcome.Failed)
	return outcome, nil
}
