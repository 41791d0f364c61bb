// Package health serves the liveness probe. It pings the store and the
// queue on every request; orchestrators restart the process on repeated
// non-200 answers.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

const pingTimeout = 3 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	addr     string
	store    Pinger
	queue    Pinger
	inFlight func() int
	log      *slog.Logger
}

func NewServer(addr string, store, queue Pinger, inFlight func() int, log *slog.Logger) *Server {
	return &Server{
		addr:     addr,
		store:    store,
		queue:    queue,
		inFlight: inFlight,
		log:      log,
	}
}

type report struct {
	Status   string `json:"status"`
	Store    string `json:"store"`
	Queue    string `json:"queue"`
	InFlight int    `json:"in_flight"`
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	rep := report{Status: "ok", Store: "ok", Queue: "ok", InFlight: s.inFlight()}
	code := http.StatusOK
	if err := s.store.Ping(ctx); err != nil {
		rep.Status = "degraded"
		rep.Store = err.Error()
		code = http.StatusServiceUnavailable
	}
	if err := s.queue.Ping(ctx); err != nil {
		rep.Status = "degraded"
		rep.Queue = err.Error()
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(rep)
}

// Handler returns the probe endpoint, mostly so tests can hit it without
// binding a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handle)
	return mux
}

// Run serves until ctx is cancelled, then shuts the listener down.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.Handler()}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.Info("health server listening", "addr", s.addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
