// Package proxy fronts any upstream web application and logs the 403s it returns.
// Package proxy 代理任意上游 Web 应用并记录其返回的 403。
package proxy

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httputil"
	"net/netip"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/netxfw/forbidlog/internal/metrics"
	"github.com/netxfw/forbidlog/internal/middleware"
	"github.com/netxfw/forbidlog/internal/proxyproto"
	ferrors "github.com/netxfw/forbidlog/pkg/errors"
)

// Config configures the reverse proxy.
// Config 配置反向代理。
type Config struct {
	Listen          string
	Upstream        string
	PreserveHost    bool
	ShutdownTimeout time.Duration
	// ProxyProtocol expects a PROXY header from peers accepted by Trusted (all peers when nil).
	// ProxyProtocol 要求 Trusted 接受的对端（为 nil 时所有对端）发送 PROXY 头。
	ProxyProtocol bool
	Trusted       func(netip.Addr) bool
}

// Server is a reverse proxy wrapped in the forbidden-access middleware.
// Server 是包装了禁止访问中间件的反向代理。
type Server struct {
	cfg     Config
	server  *http.Server
	handler http.Handler
	log     *zap.SugaredLogger
}

// NewServer builds the proxy. The upstream must be an absolute http(s) URL.
// NewServer 构建代理，上游必须是绝对的 http(s) URL。
func NewServer(cfg Config, mw *middleware.Middleware, log *zap.SugaredLogger) (*Server, error) {
	target, err := url.Parse(cfg.Upstream)
	if err != nil {
		return nil, ferrors.NewURLError(cfg.Upstream, err)
	}
	if (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		return nil, ferrors.NewURLError(cfg.Upstream, errors.New("absolute http or https URL required"))
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}

	rp := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			if cfg.PreserveHost {
				pr.Out.Host = pr.In.Host
			}
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			metrics.UpstreamErrors.Inc()
			log.Warnf("[WARN]  Upstream request failed: %s %s: %v", r.Method, r.URL.Path, err)
			w.WriteHeader(http.StatusBadGateway)
		},
	}

	s := &Server{
		cfg:     cfg,
		handler: mw.Handler(rp),
		log:     log,
	}
	s.server = &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the wrapped proxy handler.
// Handler 返回包装后的代理处理器。
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down gracefully.
// Serve 在 ln 上接受连接直到 ctx 被取消，然后优雅关闭。
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("[PROXY] Proxy listening on %s -> %s", ln.Addr(), s.cfg.Upstream)
		errCh <- s.server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ferrors.ErrTimeout
		}
		return err
	}
	s.log.Infof("[PROXY] Proxy stopped")
	return nil
}

// ListenAndServe listens on the configured address and calls Serve.
// ListenAndServe 在配置的地址上监听并调用 Serve。
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return err
	}
	if s.cfg.ProxyProtocol {
		ln = proxyproto.NewListener(ln, s.cfg.Trusted, proxyproto.DefaultHeaderTimeout)
	}
	return s.Serve(ctx, ln)
}
