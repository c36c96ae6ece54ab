package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/netxfw/forbidlog/internal/utils/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes the default Prometheus registry.
// Server 暴露默认的 Prometheus 注册表。
type Server struct {
	server *http.Server
}

// NewServer creates a metrics server on addr serving path.
// NewServer 创建在 addr 上提供 path 的指标服务器。
func NewServer(addr, path string) *Server {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Handler returns the underlying mux.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start serves in the background.
// Start 在后台提供服务。
func (s *Server) Start(ctx context.Context) {
	log := logger.Get(ctx)
	go func() {
		log.Infof("[METRICS] Metrics server starting on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("[ERROR] Metrics server error: %v", err)
		}
	}()
}

// Stop shuts the server down.
// Stop 关闭服务器。
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
