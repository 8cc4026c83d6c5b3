package config

import (
	"errors"
	"net/url"
	"slices"
	"strings"

	"github.com/specialistvlad/dagwatch/internal/terminal"
)

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
	schedulers = []string{SchedulerCondor, SchedulerRestd, SchedulerReplay}
)

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Validate checks every setting and returns all problems found, each as an
// *Error.
func (s Settings) Validate() error {
	var errs []error
	add := func(e *Error) { errs = append(errs, e) }

	if s.Interval <= 0 {
		add(invalid("interval", s.Interval.String(), "must be positive"))
	}
	if s.MaxRetries < 0 {
		add(invalid("max_retries", "", "must not be negative, got %d", s.MaxRetries))
	}
	if s.BackoffBase <= 0 {
		add(invalid("backoff_base", s.BackoffBase.String(), "must be positive"))
	}
	if s.BackoffCap < s.BackoffBase {
		add(invalid("backoff_cap", s.BackoffCap.String(), "must not be smaller than backoff_base (%s)", s.BackoffBase))
	}
	if s.QueryTimeout < 0 {
		add(invalid("query_timeout", s.QueryTimeout.String(), "must not be negative"))
	}
	if _, err := terminal.ParsePolicy(string(s.Policy)); err != nil {
		add(invalid("exit_code_policy", string(s.Policy), "must be one of %v", terminal.Policies))
	}

	switch s.Scheduler.Kind {
	case SchedulerCondor:
	case SchedulerRestd:
		if s.Scheduler.URL == "" {
			add(invalid("restd_url", "", "required when scheduler is %q", SchedulerRestd))
		} else if err := checkURL(s.Scheduler.URL); err != nil {
			add(invalid("restd_url", s.Scheduler.URL, "%v", err))
		}
	case SchedulerReplay:
		if s.Scheduler.ReplayFile == "" {
			add(invalid("replay_file", "", "required when scheduler is %q", SchedulerReplay))
		}
	default:
		add(invalid("scheduler", s.Scheduler.Kind, "must be one of %v", schedulers))
	}

	if s.StatusPort < 0 || s.StatusPort > 65535 {
		add(invalid("status_port", "", "must be between 0 and 65535, got %d", s.StatusPort))
	}
	if s.PublishURL != "" {
		if err := checkURL(s.PublishURL); err != nil {
			add(invalid("publish_url", s.PublishURL, "%v", err))
		}
	}
	if !slices.Contains(logLevels, s.LogLevel) {
		add(invalid("log_level", s.LogLevel, "must be one of %v", logLevels))
	}
	if !slices.Contains(logFormats, s.LogFormat) {
		add(invalid("log_format", s.LogFormat, "must be one of %v", logFormats))
	}
	if s.TimeFormat == "" {
		add(invalid("time_format", "", "must not be empty"))
	}
	return errors.Join(errs...)
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme == "" || u.Host == "" {
		return errors.New("must be an absolute URL")
	}
	return nil
}
