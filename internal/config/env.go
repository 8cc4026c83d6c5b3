package config

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix prefixes every environment variable read by FromEnv.
const EnvPrefix = "DAGWATCH_"

// ParseDuration accepts a Go duration ("90s", "1m30s") or a bare number of
// seconds ("2", "0.5").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.New("not a duration or a number of seconds")
	}
	return d, nil
}

// FromEnv builds an Overrides layer from DAGWATCH_* variables. lookup is
// usually os.LookupEnv.
func FromEnv(lookup func(string) (string, bool)) (*Overrides, error) {
	o := &Overrides{}
	var errs []error

	getenv := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		if !ok || strings.TrimSpace(v) == "" {
			return "", false
		}
		return strings.TrimSpace(v), true
	}
	str := func(name string) *string {
		if v, ok := getenv(name); ok {
			return &v
		}
		return nil
	}
	dur := func(name string) *time.Duration {
		v, ok := getenv(name)
		if !ok {
			return nil
		}
		d, err := ParseDuration(v)
		if err != nil {
			errs = append(errs, invalid(EnvPrefix+name, v, "%v", err))
			return nil
		}
		return &d
	}
	num := func(name string) *int {
		v, ok := getenv(name)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, invalid(EnvPrefix+name, v, "not an integer"))
			return nil
		}
		return &n
	}
	flag := func(name string) *bool {
		v, ok := getenv(name)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, invalid(EnvPrefix+name, v, "not a boolean"))
			return nil
		}
		return &b
	}

	o.Interval = dur("INTERVAL")
	o.MaxRetries = num("MAX_RETRIES")
	o.BackoffBase = dur("BACKOFF_BASE")
	o.BackoffCap = dur("BACKOFF_CAP")
	o.QueryTimeout = dur("QUERY_TIMEOUT")
	o.Policy = str("EXIT_CODE_POLICY")
	o.Scheduler = str("SCHEDULER")
	o.RestdURL = str("RESTD_URL")
	o.Schedd = str("SCHEDD")
	o.ReplayFile = str("REPLAY_FILE")
	o.StatusPort = num("STATUS_PORT")
	o.PublishURL = str("PUBLISH_URL")
	o.LogLevel = str("LOG_LEVEL")
	o.LogFormat = str("LOG_FORMAT")
	o.NoColor = flag("NO_COLOR")
	o.ChangesOnly = flag("CHANGES_ONLY")
	o.Summary = flag("SUMMARY")
	o.TimeFormat = str("TIME_FORMAT")

	return o, errors.Join(errs...)
}

// ConfigFile returns the settings file named by DAGWATCH_CONFIG, if any.
func ConfigFile(lookup func(string) (string, bool)) string {
	v, _ := lookup(EnvPrefix + "CONFIG")
	return strings.TrimSpace(v)
}
