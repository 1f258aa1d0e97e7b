// Package keepalive runs the small HTTP surface free-tier hosts need: a
// health endpoint to probe, plus a periodic self-ping so the platform never
// idles the process out.
package keepalive

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-resty/resty/v2"
	"github.com/robfig/cron/v3"
)

// pingSpec fires well inside the common 15-minute idle window.
const pingSpec = "@every 10m"

// Server is the keep-alive HTTP listener and self-ping loop.
type Server struct {
	listen  string
	pingURL string
	cron    *cron.Cron
	httpSrv *http.Server
}

// New builds the server. pingURL may be empty, which disables the self-ping
// and leaves only the health endpoints.
func New(listen, pingURL string) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return &Server{
		listen:  listen,
		pingURL: pingURL,
		cron:    cron.New(),
		httpSrv: &http.Server{Addr: listen, Handler: r, ReadHeaderTimeout: 5 * time.Second},
	}
}

// Start launches the listener and the ping schedule. It does not block.
func (s *Server) Start() {
	go func() {
		slog.Info("keep-alive listening", "addr", s.listen)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("keep-alive server", "err", err)
		}
	}()

	if s.pingURL == "" {
		return
	}
	client := resty.New().SetTimeout(15 * time.Second)
	s.cron.AddFunc(pingSpec, func() {
		if _, err := client.R().Get(s.pingURL); err != nil {
			slog.Warn("self-ping failed", "url", s.pingURL, "err", err)
		}
	})
	s.cron.Start()
}

// Stop shuts the listener and schedule down.
func (s *Server) Stop(ctx context.Context) {
	s.cron.Stop()
	if err := s.httpSrv.Shutdown(ctx); err != nil {
		slog.Warn("keep-alive shutdown", "err", err)
	}
}
