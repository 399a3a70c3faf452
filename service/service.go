// Package service exposes the sidecar HTTP surface of app-acceptor: a
// healthz endpoint for probes and a Prometheus metrics endpoint.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/log"

	"github.com/device-infra/app-acceptor/metrics"
)

const (
	DefaultHealthzAddr = "0.0.0.0:8080"
	DefaultMetricsAddr = "0.0.0.0:7300"
)

type Service struct {
	log     log.Logger
	healthz *HealthzServer
	metrics *MetricsServer

	healthzAddr string
	metricsAddr string
}

func New() *Service {
	return &Service{
		log:         log.New("component", "service"),
		healthz:     &HealthzServer{},
		metrics:     &MetricsServer{},
		healthzAddr: DefaultHealthzAddr,
		metricsAddr: DefaultMetricsAddr,
	}
}

// Start brings up both servers in the background. Failures are logged and
// counted but do not stop the test run; the orchestrator is still useful
// without its sidecar endpoints.
func (s *Service) Start(ctx context.Context) {
	s.log.Info("service starting", "healthz", s.healthzAddr, "metrics", s.metricsAddr)

	go s.serve(ctx, "healthz", s.healthzAddr, s.healthz.Start)
	go s.serve(ctx, "metrics", s.metricsAddr, s.metrics.Start)

	s.log.Info("service started")
}

func (s *Service) serve(ctx context.Context, name, addr string, start func(context.Context, string) error) {
	s.log.Info("starting server", "server", name, "addr", addr)
	if err := start(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Error("server failed", "server", name, "addr", addr, "err", err)
		metrics.RecordErrorDetails(fmt.Sprintf("error starting %s server", name), err)
	}
}

func (s *Service) Shutdown() {
	s.log.Info("service shutting down")

	_ = s.healthz.Shutdown()
	s.log.Info("healthz stopped")

	_ = s.metrics.Shutdown()
	s.log.Info("metrics stopped")

	s.log.Info("service stopped")
}
