package app

import (
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/specialistvlad/dagwatch/internal/config"
	"github.com/specialistvlad/dagwatch/internal/scheduler"
	"github.com/specialistvlad/dagwatch/internal/watch"
	"github.com/specialistvlad/dagwatch/internal/workflowid"
)

// App monitors one workflow with fully resolved settings.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	settings config.Settings
	workflow workflowid.ID
	runID    string

	adapter      scheduler.Adapter
	watchOptions []watch.Option
	statusReady  chan<- string
}

// Option customizes an App.
type Option func(*App)

// WithAdapter replaces the scheduler adapter selected by the settings.
func WithAdapter(a scheduler.Adapter) Option {
	return func(app *App) { app.adapter = a }
}

// WithWatchOptions passes options through to the watcher.
func WithWatchOptions(opts ...watch.Option) Option {
	return func(app *App) { app.watchOptions = append(app.watchOptions, opts...) }
}

// WithStatusReady receives the status server address once it listens.
func WithStatusReady(ch chan<- string) Option {
	return func(app *App) { app.statusReady = ch }
}

// New is the constructor for the main application. The report goes to
// outW and logs to logW.
func New(outW, logW io.Writer, settings config.Settings, workflow workflowid.ID, opts ...Option) *App {
	runID := uuid.NewString()
	a := &App{
		outW:     outW,
		logger:   newLogger(settings, logW).With("run_id", runID),
		settings: settings,
		workflow: workflow,
		runID:    runID,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger.Debug("Logger configured successfully.", "level", settings.LogLevel, "format", settings.LogFormat)
	return a
}

// RunID returns the random id tagging this run's logs and events.
func (a *App) RunID() string {
	return a.runID
}
