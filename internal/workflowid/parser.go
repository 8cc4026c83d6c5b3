package workflowid

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// idRegex matches `cluster` or `cluster.proc`.
var idRegex = regexp.MustCompile(`^(\d+)(?:\.(\d+))?$`)

// Parse creates an ID from its string representation.
func Parse(raw string) (ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ID{}, fmt.Errorf("workflow identifier cannot be empty")
	}

	matches := idRegex.FindStringSubmatch(raw)
	if matches == nil {
		return ID{}, fmt.Errorf("invalid workflow identifier %q: expected CLUSTER[.PROC]", raw)
	}

	cluster, err := strconv.Atoi(matches[1])
	if err != nil {
		return ID{}, fmt.Errorf("invalid cluster id %q: %w", matches[1], err)
	}
	if cluster <= 0 {
		return ID{}, fmt.Errorf("invalid cluster id %d: must be positive", cluster)
	}

	proc := 0
	if matches[2] != "" {
		proc, err = strconv.Atoi(matches[2])
		if err != nil {
			return ID{}, fmt.Errorf("invalid proc id %q: %w", matches[2], err)
		}
	}

	return ID{Cluster: cluster, Proc: proc}, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// constants.
func MustParse(raw string) ID {
	id, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return id
}
