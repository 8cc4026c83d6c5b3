package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/specialistvlad/dagwatch/internal/ctxlog"
)

// Server serves a Store over HTTP.
type Server struct {
	store *Store
	port  int
}

// NewServer returns a Server for the given port. Port 0 picks a free port.
func NewServer(store *Store, port int) *Server {
	return &Server{store: store, port: port}
}

// Handler returns the router serving /health, /status and /metrics.
func (s *Server) Handler(ctx context.Context) http.Handler {
	logger := ctxlog.FromContext(ctx)

	router := httprouter.New()
	router.GET("/health", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "OK")
	})
	router.GET("/status", s.handleStatus)
	router.GET("/metrics", s.handleMetrics)
	return router
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(s.store.View())
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	v := s.store.View()
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	metric := func(name, help, kind string, value int) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %d\n", name, help, name, kind, name, value)
	}
	metric("dagwatch_polls_total", "Scheduler queries made.", "counter", v.Counters.Polls)
	metric("dagwatch_changes_total", "Polls whose counts differed from the previous poll.", "counter", v.Counters.Changes)
	metric("dagwatch_transient_errors_total", "Scheduler queries that failed transiently.", "counter", v.Counters.TransientErrors)
	metric("dagwatch_consecutive_failures", "Current run of failed queries.", "gauge", v.Counters.ConsecutiveFailures)

	if v.Snapshot == nil {
		return
	}
	fmt.Fprint(w, "# HELP dagwatch_nodes Workflow nodes per state.\n# TYPE dagwatch_nodes gauge\n")
	states := make([]string, 0, len(v.Snapshot.Counts))
	for st := range v.Snapshot.Counts {
		states = append(states, st)
	}
	sort.Strings(states)
	for _, st := range states {
		fmt.Fprintf(w, "dagwatch_nodes{state=%s} %d\n", strconv.Quote(st), v.Snapshot.Counts[st])
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully. ready,
// when not nil, receives the bound address once the listener is open.
func (s *Server) Run(ctx context.Context, ready chan<- string) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Configuring status server.")

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("status server: %w", err)
	}
	srv := &http.Server{
		Handler:           s.Handler(ctx),
		ReadHeaderTimeout: 5 * time.Second,
	}

	addr := ln.Addr().String()
	logger.Info("🩺 Status server starting", "address", "http://"+addr+"/status")
	if ready != nil {
		ready <- addr
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Status server failed unexpectedly", "error", err)
			return fmt.Errorf("status server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	logger.Info("🩺 Shutting down status server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Status server shutdown failed", "error", err)
		return err
	}
	logger.Debug("Status server shut down gracefully.")
	return nil
}
