package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/specialistvlad/dagwatch/internal/app"
	"github.com/specialistvlad/dagwatch/internal/config"
	"github.com/specialistvlad/dagwatch/internal/ctxlog"
	"github.com/specialistvlad/dagwatch/internal/hcl"
	"github.com/specialistvlad/dagwatch/internal/terminal"
	"github.com/specialistvlad/dagwatch/internal/workflowid"
	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// Env gives Run access to the process environment.
type Env struct {
	Stdout    io.Writer
	Stderr    io.Writer
	LookupEnv func(string) (string, bool)
	// Environ feeds the env object of settings files. Nil means os.Environ.
	Environ func() []string
}

// flagValues holds the raw flag values. Only flags the user set are layered
// over the settings file and environment.
type flagValues struct {
	configFile string

	interval     string
	maxRetries   int
	backoffBase  string
	backoffCap   string
	queryTimeout string
	policy       string

	scheduler  string
	restdURL   string
	schedd     string
	replayFile string

	statusPort int
	publishURL string

	logLevel  string
	logFormat string

	noColor     bool
	changesOnly bool
	summary     bool
	timeFormat  string
}

// Run parses args, resolves the settings and monitors the workflow. A
// failed workflow is reported as an *ExitError carrying its exit code.
func Run(ctx context.Context, args []string, env Env, opts ...app.Option) error {
	cmd := newRootCommand(env, opts)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func newRootCommand(env Env, opts []app.Option) *cobra.Command {
	fv := &flagValues{}
	d := config.Defaults()

	cmd := &cobra.Command{
		Use:   "dagwatch [flags] CLUSTER[.PROC]",
		Short: "Monitor the progress of an HTCondor DAGMan workflow",
		Long: "dagwatch polls the scheduler for a DAGMan workflow and prints one row of\n" +
			"node-state counts per poll until the workflow finishes. The exit status\n" +
			"reflects how the workflow ended.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageError(fmt.Errorf("expected exactly one workflow id, got %d arguments\n\n%s", len(args), cmd.UsageString()))
			}
			return nil
		},
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, args[0], fv, env, opts)
		},
	}
	cmd.SetOut(env.Stdout)
	cmd.SetErr(env.Stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	f := cmd.Flags()
	f.SortFlags = false
	f.StringVarP(&fv.configFile, "config", "c", "", "Path to an HCL settings file (or $DAGWATCH_CONFIG).")
	f.StringVarP(&fv.interval, "interval", "u", d.Interval.String(), "Time between polls, as a duration or seconds.")
	f.IntVar(&fv.maxRetries, "max-retries", d.MaxRetries, "Consecutive transient failures tolerated before giving up.")
	f.StringVar(&fv.backoffBase, "backoff-base", "", "First backoff delay (defaults to the interval).")
	f.StringVar(&fv.backoffCap, "backoff-cap", d.BackoffCap.String(), "Upper bound of the backoff delay.")
	f.StringVar(&fv.queryTimeout, "query-timeout", d.QueryTimeout.String(), "Deadline for a single scheduler query. 0 disables it.")
	f.StringVar(&fv.policy, "exit-code-policy", string(d.Policy), "How a failed workflow maps to an exit code: "+policyNames()+".")
	f.StringVar(&fv.scheduler, "scheduler", d.Scheduler.Kind, "Scheduler adapter: condor, restd or replay.")
	f.StringVar(&fv.restdURL, "restd-url", "", "Base URL of the htcondor-restd service.")
	f.StringVar(&fv.schedd, "schedd", d.Scheduler.Schedd, "Name of the schedd to query.")
	f.StringVar(&fv.replayFile, "replay-file", "", "Replay script path, or scenario:NAME for a built-in one.")
	f.IntVar(&fv.statusPort, "status-port", 0, "Port for the HTTP status server. 0 is disabled.")
	f.StringVar(&fv.publishURL, "publish-url", "", "socket.io server that receives poll events.")
	f.StringVar(&fv.logLevel, "log-level", d.LogLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	f.StringVar(&fv.logFormat, "log-format", d.LogFormat, "Log output format. Options: 'text' or 'json'.")
	f.BoolVar(&fv.noColor, "no-color", false, "Disable state colours in the header.")
	f.BoolVar(&fv.changesOnly, "changes-only", false, "Print a row only when the counts change.")
	f.BoolVar(&fv.summary, "summary", false, "Print a table of the final counts after the footer.")
	f.StringVar(&fv.timeFormat, "time-format", d.TimeFormat, "Go time layout for row timestamps.")

	return cmd
}

func policyNames() string {
	names := make([]string, len(terminal.Policies))
	for i, p := range terminal.Policies {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}

func runRoot(cmd *cobra.Command, rawID string, fv *flagValues, env Env, opts []app.Option) error {
	ctx := cmd.Context()
	logger := ctxlog.FromContext(ctx)
	logger.Debug("CLI parser started.", "args", rawID)

	id, err := workflowid.Parse(rawID)
	if err != nil {
		return usageError(err)
	}

	flags, err := fv.overrides(cmd)
	if err != nil {
		return err
	}

	settings, err := resolve(ctx, fv.configFile, flags, env)
	if err != nil {
		return err
	}
	logger.Debug("Settings resolved.", "settings", settings)

	a := app.New(env.Stdout, env.Stderr, settings, id, opts...)
	outcome, err := a.Run(ctx)
	if err != nil {
		return err
	}
	if !outcome.Success() {
		return &ExitError{Code: outcome.ExitCode}
	}
	return nil
}

// resolve layers defaults, the settings file, the environment and flags.
func resolve(ctx context.Context, configFile string, flags *config.Overrides, env Env) (config.Settings, error) {
	logger := ctxlog.FromContext(ctx)
	lookup := env.LookupEnv
	if lookup == nil {
		lookup = func(string) (string, bool) { return "", false }
	}

	if configFile == "" {
		configFile = config.ConfigFile(lookup)
	}

	var file *config.Overrides
	if configFile != "" {
		loader := hcl.NewLoader()
		if env.Environ != nil {
			loader.Environ = env.Environ
		}
		var err error
		file, err = loader.Load(ctx, configFile)
		if err != nil {
			var cfgErr *config.Error
			if errors.As(err, &cfgErr) {
				return config.Settings{}, err
			}
			return config.Settings{}, &config.Error{Field: "settings file", Value: configFile, Msg: err.Error()}
		}
		logger.Debug("Settings file loaded.", "path", configFile)
	}

	fromEnv, err := config.FromEnv(lookup)
	if err != nil {
		return config.Settings{}, err
	}
	return config.Resolve(file, fromEnv, flags)
}

// overrides returns a layer holding only the flags set on the command line.
func (fv *flagValues) overrides(cmd *cobra.Command) (*config.Overrides, error) {
	o := &config.Overrides{}
	changed := cmd.Flags().Changed

	dur := func(name, raw string) (*time.Duration, error) {
		if !changed(name) {
			return nil, nil
		}
		d, err := config.ParseDuration(raw)
		if err != nil {
			return nil, usageError(fmt.Errorf("invalid argument %q for \"--%s\" flag: %v", raw, name, err))
		}
		return &d, nil
	}
	str := func(name, v string) *string {
		if !changed(name) {
			return nil
		}
		return &v
	}
	num := func(name string, v int) *int {
		if !changed(name) {
			return nil
		}
		return &v
	}
	flag := func(name string, v bool) *bool {
		if !changed(name) {
			return nil
		}
		return &v
	}

	var err error
	if o.Interval, err = dur("interval", fv.interval); err != nil {
		return nil, err
	}
	if o.BackoffBase, err = dur("backoff-base", fv.backoffBase); err != nil {
		return nil, err
	}
	if o.BackoffCap, err = dur("backoff-cap", fv.backoffCap); err != nil {
		return nil, err
	}
	if o.QueryTimeout, err = dur("query-timeout", fv.queryTimeout); err != nil {
		return nil, err
	}
	o.MaxRetries = num("max-retries", fv.maxRetries)
	o.Policy = str("exit-code-policy", fv.policy)
	o.Scheduler = str("scheduler", fv.scheduler)
	o.RestdURL = str("restd-url", fv.restdURL)
	o.Schedd = str("schedd", fv.schedd)
	o.ReplayFile = str("replay-file", fv.replayFile)
	o.StatusPort = num("status-port", fv.statusPort)
	o.PublishURL = str("publish-url", fv.publishURL)
	o.LogLevel = str("log-level", fv.logLevel)
	o.LogFormat = str("log-format", fv.logFormat)
	o.NoColor = flag("no-color", fv.noColor)
	o.ChangesOnly = flag("changes-only", fv.changesOnly)
	o.Summary = flag("summary", fv.summary)
	o.TimeFormat = str("time-format", fv.timeFormat)

	ctxlog.FromContext(cmd.Context()).Debug("Flag overrides collected.")
	return o, nil
}
