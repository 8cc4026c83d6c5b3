// Package restd reads workflow ClassAds from the HTCondor REST daemon. A
// Client is a condor.Source, so the condor Adapter turns its ads into node
// records exactly as it does for the command line tools.
package restd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/specialistvlad/dagwatch/internal/condor"
	"github.com/specialistvlad/dagwatch/internal/ctxlog"
	"github.com/specialistvlad/dagwatch/internal/scheduler"
	"github.com/specialistvlad/dagwatch/internal/workflowid"
	"resty.dev/v3"
)

// Settings tunes a Client.
type Settings struct {
	// BaseURL is the root of the REST daemon, e.g. http://localhost:8080.
	BaseURL string
	// Schedd names the schedd to query. Empty or "local" lets the daemon
	// pick its default schedd.
	Schedd string
	// Timeout bounds each HTTP request. Zero means no client-side limit.
	Timeout time.Duration
	// TripAfter is the number of consecutive failed requests that opens
	// the circuit breaker. Zero means 3.
	TripAfter uint32
	// OpenFor is how long an open breaker rejects requests before letting
	// one through. Zero means 30s.
	OpenFor time.Duration
}

// Client is a condor.Source backed by the REST daemon.
type Client struct {
	http    *resty.Client
	schedd  string
	breaker *gobreaker.CircuitBreaker[*resty.Response]
}

var _ condor.Source = (*Client)(nil)

// errServer marks responses the breaker counts as failures.
var errServer = errors.New("server error")

// New creates a Client. Close releases its connections.
func New(s Settings) *Client {
	if s.TripAfter == 0 {
		s.TripAfter = 3
	}
	if s.OpenFor == 0 {
		s.OpenFor = 30 * time.Second
	}

	hc := resty.New().
		SetBaseURL(strings.TrimRight(s.BaseURL, "/")).
		SetHeader("Accept", "application/json")
	if s.Timeout > 0 {
		hc.SetTimeout(s.Timeout)
	}

	c := &Client{http: hc, schedd: s.Schedd}
	c.breaker = gobreaker.NewCircuitBreaker[*resty.Response](gobreaker.Settings{
		Name:    "restd",
		Timeout: s.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.TripAfter
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return c
}

// Close releases the client's idle connections.
func (c *Client) Close() error {
	return c.http.Close()
}

// BreakerState returns the state of the circuit breaker.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// envelope is one element of a restd job listing.
type envelope struct {
	JobID   string          `json:"jobid"`
	ClassAd json.RawMessage `json:"classad"`
}

func (c *Client) get(ctx context.Context, path string, query map[string]string) ([]json.RawMessage, error) {
	logger := ctxlog.FromContext(ctx)
	if c.schedd != "" && c.schedd != "local" {
		query["schedd"] = c.schedd
	}

	resp, err := c.breaker.Execute(func() (*resty.Response, error) {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(query).
			Get(path)
		if err != nil {
			return nil, err
		}
		if code := resp.StatusCode(); code >= 500 || code == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: %s", errServer, resp.Status())
		}
		return resp, nil
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		logger.Debug("REST daemon circuit is open.", "path", path)
		return nil, scheduler.Transient(err, "restd %s", path)
	case err != nil:
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, scheduler.Transient(err, "restd %s", path)
	}

	logger.Debug("REST daemon answered.", "path", path, "status", resp.StatusCode())
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if resp.IsError() {
		return nil, scheduler.Malformed(nil, "restd %s: unexpected status %s", path, resp.Status())
	}

	var envs []envelope
	if err := json.Unmarshal(resp.Bytes(), &envs); err != nil {
		return nil, scheduler.Malformed(err, "decoding restd %s", path)
	}
	ads := make([]json.RawMessage, 0, len(envs))
	for _, e := range envs {
		ads = append(ads, e.ClassAd)
	}
	return ads, nil
}

func decode[T any](raw []json.RawMessage, path string) ([]T, error) {
	out := make([]T, 0, len(raw))
	for _, r := range raw {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			return nil, scheduler.Malformed(err, "decoding classad from %s", path)
		}
		out = append(out, v)
	}
	return out, nil
}

func jobPath(kind string, id workflowid.ID) string {
	return fmt.Sprintf("/v1/%s/%d/%d", kind, id.Cluster, id.Proc)
}

func projection(attrs []string) string {
	return strings.ToLower(strings.Join(attrs, ","))
}

func (c *Client) one(ctx context.Context, path string, query map[string]string) (*condor.DAGManAd, error) {
	raw, err := c.get(ctx, path, query)
	if err != nil || len(raw) == 0 {
		return nil, err
	}
	ads, err := decode[condor.DAGManAd](raw[:1], path)
	if err != nil {
		return nil, err
	}
	return &ads[0], nil
}

// DAGMan implements condor.Source.
func (c *Client) DAGMan(ctx context.Context, id workflowid.ID) (*condor.DAGManAd, error) {
	return c.one(ctx, jobPath("jobs", id), map[string]string{
		"projection": projection(condor.DAGManAttributes),
	})
}

// NodeJobs implements condor.Source.
func (c *Client) NodeJobs(ctx context.Context, id workflowid.ID) ([]condor.JobAd, error) {
	path := "/v1/jobs"
	raw, err := c.get(ctx, path, map[string]string{
		"constraint": "DAGManJobId==" + strconv.Itoa(id.Cluster),
		"projection": projection(condor.NodeJobAttributes),
	})
	if err != nil {
		return nil, err
	}
	return decode[condor.JobAd](raw, path)
}

// History implements condor.Source.
func (c *Client) History(ctx context.Context, id workflowid.ID) (*condor.DAGManAd, error) {
	return c.one(ctx, jobPath("history", id), map[string]string{
		"projection": projection(condor.DAGManAttributes),
		"limit":      "1",
	})
}
