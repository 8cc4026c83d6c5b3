// Package publish forwards poll outcomes to a socket.io server, so a live
// dashboard can follow the run.
package publish

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/specialistvlad/dagwatch/internal/ctxlog"
	"github.com/specialistvlad/dagwatch/internal/watch"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// EventName is the socket.io event carrying each outcome.
const EventName = "dagwatch:outcome"

// connectTimeout bounds the wait for the initial connection.
const connectTimeout = 15 * time.Second

// Emitter sends one socket.io event.
type Emitter interface {
	Emit(event string, args ...any)
}

// Event is the payload of EventName.
type Event struct {
	RunID    string         `json:"run_id"`
	Workflow string         `json:"workflow"`
	Kind     string         `json:"kind"`
	Time     string         `json:"time,omitempty"`
	Total    int            `json:"total,omitempty"`
	Counts   map[string]int `json:"counts,omitempty"`
	Changed  bool           `json:"changed,omitempty"`
	Reason   string         `json:"reason,omitempty"`
	Attempt  int            `json:"attempt,omitempty"`
	DelayMS  int64          `json:"delay_ms,omitempty"`
	ExitCode *int           `json:"exit_code,omitempty"`
}

// NewEvent converts an outcome to its published form.
func NewEvent(runID, workflow string, o watch.Outcome) Event {
	ev := Event{RunID: runID, Workflow: workflow, Kind: o.Kind.String()}
	switch o.Kind {
	case watch.KindTransientError:
		ev.Reason = o.Reason
		ev.Attempt = o.Attempt
		ev.DelayMS = o.Delay.Milliseconds()
	default:
		ev.Time = o.Snapshot.Time.UTC().Format(time.RFC3339)
		ev.Total = o.Snapshot.Total
		ev.Counts = o.Snapshot.CountsMap()
		ev.Changed = o.Changed
		if o.Kind == watch.KindTerminal {
			code := o.ExitCode
			ev.ExitCode = &code
		}
	}
	return ev
}

// Publisher is a watch.Sink that emits every outcome. Emits are
// fire-and-forget; a dashboard that is down never affects the run.
type Publisher struct {
	emitter  Emitter
	runID    string
	workflow string
	close    func()
}

var _ watch.Sink = (*Publisher)(nil)

// New returns a Publisher sending through emitter.
func New(emitter Emitter, runID, workflow string) *Publisher {
	return &Publisher{emitter: emitter, runID: runID, workflow: workflow, close: func() {}}
}

// Emit implements watch.Sink.
func (p *Publisher) Emit(ctx context.Context, o watch.Outcome) {
	ev := NewEvent(p.runID, p.workflow, o)
	ctxlog.FromContext(ctx).Debug("Publishing outcome.", "event", EventName, "kind", ev.Kind)
	p.emitter.Emit(EventName, ev)
}

// Close disconnects the underlying client.
func (p *Publisher) Close() {
	p.close()
}

// socketEmitter adapts a socket.io client socket to Emitter.
type socketEmitter struct {
	io *socket.Socket
}

func (e socketEmitter) Emit(event string, args ...any) {
	e.io.Emit(event, args...)
}

// Options configures Dial.
type Options struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
}

// Dial connects to a socket.io server and returns a Publisher using it.
func Dial(ctx context.Context, opts Options, runID, workflow string) (*Publisher, error) {
	logger := ctxlog.FromContext(ctx).With("url", opts.URL)
	logger.Debug("Connecting publisher...")

	parsedURL, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse publish URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("publish URL %q must be absolute", opts.URL)
	}

	sopts := socket.DefaultOptions()
	if parsedURL.Path != "" && parsedURL.Path != "/" {
		sopts.SetPath(parsedURL.Path)
	}
	if opts.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		sopts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	sopts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, sopts)
	io := manager.Socket(opts.Namespace, sopts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Publisher connected", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err, _ := errs[0].(error)
		if err == nil {
			err = fmt.Errorf("%v", errs[0])
		}
		connectChan <- err
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
	case <-ctx.Done():
		io.Disconnect()
		return nil, ctx.Err()
	case <-time.After(connectTimeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", connectTimeout)
	}

	p := New(socketEmitter{io: io}, runID, workflow)
	p.close = func() {
		logger.Debug("Disconnecting publisher", "sid", io.Id())
		io.Disconnect()
	}
	return p, nil
}
