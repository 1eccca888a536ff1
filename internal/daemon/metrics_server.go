package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/samiuddin-code/datportal-sub005/internal/config"
	"github.com/samiuddin-code/datportal-sub005/internal/metrics"
	"go.uber.org/zap"
)

// MetricsServer exposes /metrics and /healthz over HTTP. It is inert when
// no listen address is configured.
type MetricsServer struct {
	addr   string
	srv    *http.Server
	logger *zap.Logger
}

// NewMetricsServer builds the metrics endpoint from the console config.
func NewMetricsServer(cfg *config.Console, m *metrics.Metrics, logger *zap.Logger) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return &MetricsServer{
		addr:   cfg.Metrics.Listen,
		srv:    &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		logger: logger.Named("metrics"),
	}
}

// Start listens in the background. Listen failures are logged, not fatal.
func (s *MetricsServer) Start() {
	if s.addr == "" {
		return
	}
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.logger.Warn("metrics endpoint disabled", zap.String("addr", s.addr), zap.Error(err))
		s.addr = ""
		return
	}
	s.logger.Info("metrics endpoint listening", zap.String("addr", lis.Addr().String()))
	go func() {
		if err := s.srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server error", zap.Error(err))
		}
	}()
}

func (s *MetricsServer) Stop(ctx context.Context) {
	if s.addr == "" {
		return
	}
	_ = s.srv.Shutdown(ctx)
}
