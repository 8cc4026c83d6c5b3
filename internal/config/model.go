package config

import (
	"context"
	"time"

	"github.com/specialistvlad/dagwatch/internal/terminal"
)

// Scheduler kinds.
const (
	SchedulerCondor = "condor"
	SchedulerRestd  = "restd"
	SchedulerReplay = "replay"
)

// Settings is the complete configuration of one run.
type Settings struct {
	Interval     time.Duration
	MaxRetries   int
	BackoffBase  time.Duration
	BackoffCap   time.Duration
	QueryTimeout time.Duration
	Policy       terminal.Policy

	Scheduler Scheduler

	StatusPort int
	PublishURL string

	LogLevel  string
	LogFormat string

	NoColor     bool
	ChangesOnly bool
	Summary     bool
	TimeFormat  string
}

// Scheduler selects and configures the scheduler adapter.
type Scheduler struct {
	Kind       string
	URL        string
	Schedd     string
	ReplayFile string
}

// Overrides is one configuration layer. Nil fields are left unchanged by
// Apply.
type Overrides struct {
	Interval     *time.Duration
	MaxRetries   *int
	BackoffBase  *time.Duration
	BackoffCap   *time.Duration
	QueryTimeout *time.Duration
	Policy       *string

	Scheduler  *string
	RestdURL   *string
	Schedd     *string
	ReplayFile *string

	StatusPort *int
	PublishURL *string

	LogLevel  *string
	LogFormat *string

	NoColor     *bool
	ChangesOnly *bool
	Summary     *bool
	TimeFormat  *string
}

// Loader reads a settings file into an Overrides layer.
type Loader interface {
	Load(ctx context.Context, path string) (*Overrides, error)
}

// Defaults returns the built-in settings. BackoffBase is zero, meaning
// "same as Interval"; Resolve fills it in.
func Defaults() Settings {
	return Settings{
		Interval:     2 * time.Second,
		MaxRetries:   5,
		BackoffCap:   60 * time.Second,
		QueryTimeout: 30 * time.Second,
		Policy:       terminal.PolicyFailedCount,
		Scheduler:    Scheduler{Kind: SchedulerCondor, Schedd: "local"},
		LogLevel:     "info",
		LogFormat:    "text",
		TimeFormat:   "2006-01-02 15:04:05",
	}
}

// Apply overlays the non-nil fields of o onto s.
func (s *Settings) Apply(o *Overrides) {
	if o == nil {
		return
	}
	set(&s.Interval, o.Interval)
	set(&s.MaxRetries, o.MaxRetries)
	set(&s.BackoffBase, o.BackoffBase)
	set(&s.BackoffCap, o.BackoffCap)
	set(&s.QueryTimeout, o.QueryTimeout)
	if o.Policy != nil {
		s.Policy = terminal.Policy(*o.Policy)
	}
	set(&s.Scheduler.Kind, o.Scheduler)
	set(&s.Scheduler.URL, o.RestdURL)
	set(&s.Scheduler.Schedd, o.Schedd)
	set(&s.Scheduler.ReplayFile, o.ReplayFile)
	set(&s.StatusPort, o.StatusPort)
	set(&s.PublishURL, o.PublishURL)
	set(&s.LogLevel, o.LogLevel)
	set(&s.LogFormat, o.LogFormat)
	set(&s.NoColor, o.NoColor)
	set(&s.ChangesOnly, o.ChangesOnly)
	set(&s.Summary, o.Summary)
	set(&s.TimeFormat, o.TimeFormat)
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// Resolve applies the layers in order on top of Defaults and validates the
// result. Unless a layer sets backoff_cap, the cap is raised to at least
// the backoff base.
func Resolve(layers ...*Overrides) (Settings, error) {
	s := Defaults()
	capSet := false
	for _, l := range layers {
		s.Apply(l)
		if l != nil && l.BackoffCap != nil {
			capSet = true
		}
	}
	if s.BackoffBase == 0 {
		s.BackoffBase = s.Interval
	}
	if !capSet {
		s.BackoffCap = max(s.BackoffCap, s.BackoffBase)
	}
	s.Policy = terminal.Policy(normalize(string(s.Policy)))
	s.Scheduler.Kind = normalize(s.Scheduler.Kind)
	s.LogLevel = normalize(s.LogLevel)
	s.LogFormat = normalize(s.LogFormat)
	return s, s.Validate()
}
