package condor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/specialistvlad/dagwatch/internal/ctxlog"
	"github.com/specialistvlad/dagwatch/internal/scheduler"
	"github.com/specialistvlad/dagwatch/internal/workflowid"
)

// ErrToolMissing reports that a condor command is not installed.
var ErrToolMissing = errors.New("HTCondor tools not found in PATH")

// Runner runs a command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec. A non-zero exit is returned as an
// error carrying the command's standard error.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// CLI is a Source backed by the condor_q and condor_history tools.
type CLI struct {
	// Schedd names the schedd to query. Empty or "local" queries the
	// local schedd.
	Schedd string
	// Run executes the tools. Nil means ExecRunner.
	Run Runner
}

// NewCLI returns a CLI Source for the given schedd.
func NewCLI(schedd string) *CLI {
	return &CLI{Schedd: schedd, Run: ExecRunner}
}

func (c *CLI) baseArgs() []string {
	if c.Schedd == "" || c.Schedd == "local" {
		return nil
	}
	return []string{"-name", c.Schedd}
}

func (c *CLI) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	logger := ctxlog.FromContext(ctx)
	run := c.Run
	if run == nil {
		run = ExecRunner
	}

	logger.Debug("Running scheduler tool.", "command", name, "args", args)
	out, err := run(ctx, name, args...)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s: %w", ErrToolMissing, name, err)
		}
		return nil, scheduler.Transient(err, "%s failed", name)
	}
	return out, nil
}

// DAGMan implements Source.
func (c *CLI) DAGMan(ctx context.Context, id workflowid.ID) (*DAGManAd, error) {
	args := append(c.baseArgs(), id.String(), "-json", "-attributes", strings.Join(DAGManAttributes, ","))
	out, err := c.run(ctx, "condor_q", args...)
	if err != nil {
		return nil, err
	}
	return decodeOne[DAGManAd](out, "condor_q")
}

// NodeJobs implements Source.
func (c *CLI) NodeJobs(ctx context.Context, id workflowid.ID) ([]JobAd, error) {
	args := append(c.baseArgs(),
		"-constraint", "DAGManJobId == "+strconv.Itoa(id.Cluster),
		"-json", "-attributes", strings.Join(NodeJobAttributes, ","))
	out, err := c.run(ctx, "condor_q", args...)
	if err != nil {
		return nil, err
	}
	return decodeAll[JobAd](out, "condor_q")
}

// History implements Source.
func (c *CLI) History(ctx context.Context, id workflowid.ID) (*DAGManAd, error) {
	args := append(c.baseArgs(), id.String(), "-json", "-match", "1", "-attributes", strings.Join(DAGManAttributes, ","))
	out, err := c.run(ctx, "condor_history", args...)
	if err != nil {
		return nil, err
	}
	return decodeOne[DAGManAd](out, "condor_history")
}

// decodeAll decodes the JSON array printed by the -json option. The tools
// print nothing at all when no job matches.
func decodeAll[T any](out []byte, tool string) ([]T, error) {
	out = bytes.TrimSpace(out)
	if len(out) == 0 {
		return nil, nil
	}
	var ads []T
	if err := json.Unmarshal(out, &ads); err != nil {
		return nil, scheduler.Malformed(err, "decoding %s output", tool)
	}
	return ads, nil
}

func decodeOne[T any](out []byte, tool string) (*T, error) {
	ads, err := decodeAll[T](out, tool)
	if err != nil || len(ads) == 0 {
		return nil, err
	}
	return &ads[0], nil
}
