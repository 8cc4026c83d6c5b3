package hcl

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/dagwatch/internal/config"
	"github.com/specialistvlad/dagwatch/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// Loader is the HCL implementation of config.Loader.
type Loader struct {
	// Environ returns the environment exposed as env. Nil means os.Environ.
	Environ func() []string
}

var _ config.Loader = (*Loader)(nil)

// NewLoader creates a new HCL settings loader.
func NewLoader() *Loader {
	return &Loader{Environ: os.Environ}
}

// fileRoot is the schema of a settings file.
type fileRoot struct {
	Interval     *string `hcl:"interval,optional"`
	MaxRetries   *int    `hcl:"max_retries,optional"`
	BackoffBase  *string `hcl:"backoff_base,optional"`
	BackoffCap   *string `hcl:"backoff_cap,optional"`
	QueryTimeout *string `hcl:"query_timeout,optional"`
	Policy       *string `hcl:"exit_code_policy,optional"`

	StatusPort *int    `hcl:"status_port,optional"`
	PublishURL *string `hcl:"publish_url,optional"`

	LogLevel  *string `hcl:"log_level,optional"`
	LogFormat *string `hcl:"log_format,optional"`

	NoColor     *bool   `hcl:"no_color,optional"`
	ChangesOnly *bool   `hcl:"changes_only,optional"`
	Summary     *bool   `hcl:"summary,optional"`
	TimeFormat  *string `hcl:"time_format,optional"`

	Schedulers []*schedulerBlock `hcl:"scheduler,block"`
}

type schedulerBlock struct {
	Kind       string  `hcl:"kind,label"`
	URL        *string `hcl:"url,optional"`
	Schedd     *string `hcl:"schedd,optional"`
	ReplayFile *string `hcl:"replay_file,optional"`
}

// Load parses the settings file at path.
func (l *Loader) Load(ctx context.Context, path string) (*config.Overrides, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path", path)

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}
	return l.Parse(ctx, src, path)
}

// Parse decodes settings from src; filename is used in diagnostics.
func (l *Loader) Parse(ctx context.Context, src []byte, filename string) (*config.Overrides, error) {
	logger := ctxlog.FromContext(ctx)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, &config.Error{Field: "settings file", Value: filename, Msg: diags.Error()}
	}

	var root fileRoot
	diags = gohcl.DecodeBody(file.Body, l.evalContext(), &root)
	if diags.HasErrors() {
		return nil, &config.Error{Field: "settings file", Value: filename, Msg: diags.Error()}
	}

	o, err := translate(&root)
	if err != nil {
		return nil, err
	}
	logger.Debug("HCL settings decoded.", "path", filename, "scheduler_blocks", len(root.Schedulers))
	return o, nil
}

// evalContext exposes the environment as the env object.
func (l *Loader) evalContext() *hcl.EvalContext {
	environ := l.Environ
	if environ == nil {
		environ = os.Environ
	}
	vars := make(map[string]cty.Value)
	for _, kv := range environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			continue
		}
		vars[name] = cty.StringVal(value)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": cty.ObjectVal(vars)},
	}
}

func translate(root *fileRoot) (*config.Overrides, error) {
	o := &config.Overrides{
		MaxRetries:  root.MaxRetries,
		Policy:      root.Policy,
		StatusPort:  root.StatusPort,
		PublishURL:  root.PublishURL,
		LogLevel:    root.LogLevel,
		LogFormat:   root.LogFormat,
		NoColor:     root.NoColor,
		ChangesOnly: root.ChangesOnly,
		Summary:     root.Summary,
		TimeFormat:  root.TimeFormat,
	}

	durations := []struct {
		name string
		src  *string
		dst  **time.Duration
	}{
		{"interval", root.Interval, &o.Interval},
		{"backoff_base", root.BackoffBase, &o.BackoffBase},
		{"backoff_cap", root.BackoffCap, &o.BackoffCap},
		{"query_timeout", root.QueryTimeout, &o.QueryTimeout},
	}
	for _, d := range durations {
		if d.src == nil {
			continue
		}
		v, err := config.ParseDuration(*d.src)
		if err != nil {
			return nil, &config.Error{Field: d.name, Value: *d.src, Msg: err.Error()}
		}
		*d.dst = &v
	}

	switch len(root.Schedulers) {
	case 0:
	case 1:
		b := root.Schedulers[0]
		kind := b.Kind
		o.Scheduler = &kind
		o.RestdURL = b.URL
		o.Schedd = b.Schedd
		o.ReplayFile = b.ReplayFile
	default:
		return nil, &config.Error{Field: "scheduler", Msg: fmt.Sprintf("only one scheduler block is allowed, found %d", len(root.Schedulers))}
	}
	return o, nil
}
