package cli

import (
	"context"
	"easierless/internal/engine/session"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ObservabilityServer struct {
	addr    string
	session func() *session.Session
	server  *http.Server
}

// NewObservabilityServer serves metrics and health for whichever session
// current returns at request time.
func NewObservabilityServer(addr string, current func() *session.Session) *ObservabilityServer {
	return &ObservabilityServer{
		addr:    addr,
		session: current,
	}
}

type healthStatus struct {
	Status     string `json:"status"`
	Generation string `json:"generation"`
	Warm       bool   `json:"warm"`
	Symbols    int    `json:"symbols"`
	Files      int    `json:"files"`
}

func (s *ObservabilityServer) handler() http.Handler {
	mux := http.NewServeMux()

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		gen := s.session().Current()
		status := healthStatus{
			Status:     "up",
			Generation: gen.ID,
			Warm:       gen.Warm,
			Symbols:    gen.Table.Len(),
			Files:      len(gen.Records),
		}
		if gen.ID == "" {
			status.Status = "starting"
		}
		w.Header().Set("Content-Type", "application/json")
		if status.Status != "up" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(status)
	})
	return mux
}

func (s *ObservabilityServer) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s.handler(),
	}

	slog.Info("observability server starting", "addr", s.addr)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("observability server failed", "error", err)
		}
	}()

	return nil
}

func (s *ObservabilityServer) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
