// Package replay plays back a scripted workflow run as a scheduler.Adapter.
// Scripts are YAML documents; a few ready-made ones are embedded for demos.
package replay

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/specialistvlad/dagwatch/internal/node"
	"github.com/specialistvlad/dagwatch/internal/scheduler"
	"github.com/specialistvlad/dagwatch/internal/snapshot"
	"gopkg.in/yaml.v3"
)

// Script is a recorded workflow run.
type Script struct {
	Workflow Workflow `yaml:"workflow"`
	Cycles   []Cycle  `yaml:"cycles"`
}

// Workflow holds the metadata reported with every cycle.
type Workflow struct {
	Owner      string `yaml:"owner"`
	Machine    string `yaml:"machine"`
	BatchName  string `yaml:"batch_name"`
	TotalNodes int    `yaml:"total_nodes"`
}

// Cycle is the scheduler's answer to one query.
type Cycle struct {
	// Counts synthesizes records per node state name.
	Counts map[string]int `yaml:"counts"`
	// Records lists raw records explicitly, after those from Counts.
	Records []Record `yaml:"records"`
	// Error answers the query with an error of this kind instead:
	// not_found, transient or malformed.
	Error   string `yaml:"error"`
	Message string `yaml:"message"`
	// Exited and ExitCode report the workflow job leaving the queue.
	Exited   bool `yaml:"exited"`
	ExitCode *int `yaml:"exit_code"`
	// Repeat plays the cycle this many times. Zero means once.
	Repeat int `yaml:"repeat"`
}

// Record is a raw node record.
type Record struct {
	Name      string `yaml:"name"`
	Status    string `yaml:"status"`
	JobStatus int    `yaml:"job_status"`
}

// rawForState gives a raw record that classifies to each state.
var rawForState = [node.NumStates]node.Record{
	node.Unready: {Status: node.StatusNotReady},
	node.Ready:   {Status: node.StatusReady},
	node.Idle:    {Status: node.StatusSubmitted, JobStatus: node.JobIdle},
	node.Running: {Status: node.StatusSubmitted, JobStatus: node.JobRunning},
	node.Held:    {Status: node.StatusSubmitted, JobStatus: node.JobHeld},
	node.Failed:  {Status: node.StatusError},
	node.Done:    {Status: node.StatusDone},
}

var errorKinds = map[string]error{
	"not_found": scheduler.ErrNotFound,
	"transient": scheduler.ErrTransientUnavailable,
	"malformed": scheduler.ErrMalformedResponse,
}

// Parse decodes and validates a script. Unknown fields are rejected.
func Parse(r io.Reader) (*Script, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var s Script
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty replay script")
		}
		return nil, fmt.Errorf("parse replay script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads a script from a file, or an embedded scenario when path has
// the form "scenario:NAME".
func Load(path string) (*Script, error) {
	if name, ok := strings.CutPrefix(path, "scenario:"); ok {
		return LoadScenario(name)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read replay script: %w", err)
	}
	s, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Validate checks that every cycle can be played back.
func (s *Script) Validate() error {
	if len(s.Cycles) == 0 {
		return errors.New("replay script has no cycles")
	}
	var errs []error
	for i, c := range s.Cycles {
		if c.Repeat < 0 {
			errs = append(errs, fmt.Errorf("cycle %d: repeat must not be negative", i+1))
		}
		if c.Error != "" {
			if _, ok := errorKinds[c.Error]; !ok {
				errs = append(errs, fmt.Errorf("cycle %d: unknown error kind %q", i+1, c.Error))
			}
			continue
		}
		for name, n := range c.Counts {
			if _, err := node.ParseState(name); err != nil {
				errs = append(errs, fmt.Errorf("cycle %d: %w", i+1, err))
			}
			if n < 0 {
				errs = append(errs, fmt.Errorf("cycle %d: count for %s is negative", i+1, name))
			}
		}
	}
	return errors.Join(errs...)
}

func (w Workflow) metadata() snapshot.Metadata {
	return snapshot.Metadata{
		TotalNodes: w.TotalNodes,
		Machine:    w.Machine,
		Owner:      w.Owner,
		BatchName:  w.BatchName,
	}
}

// records builds the raw records of a cycle: synthesized ones in column
// order, then the explicit ones.
func (c Cycle) records() []node.Record {
	var out []node.Record
	for _, st := range node.States {
		for i := 0; i < c.Counts[st.String()]; i++ {
			r := rawForState[st]
			r.Name = fmt.Sprintf("%s_%d", st, i)
			out = append(out, r)
		}
	}
	for _, r := range c.Records {
		out = append(out, node.Record{Name: r.Name, Status: r.Status, JobStatus: r.JobStatus})
	}
	return out
}

func (c Cycle) err() error {
	kind := errorKinds[c.Error]
	msg := c.Message
	if msg == "" {
		msg = "scripted"
	}
	return &scheduler.QueryError{Kind: kind, Msg: msg}
}
