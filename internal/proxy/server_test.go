package proxy

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/netxfw/forbidlog/internal/forbidden"
	"github.com/netxfw/forbidlog/internal/middleware"
	"github.com/netxfw/forbidlog/internal/proxyproto"
	ferrors "github.com/netxfw/forbidlog/pkg/errors"
)

type lineCollector struct {
	mu    sync.Mutex
	lines []string
}

func (c *lineCollector) WriteLine(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, line)
	return nil
}

func (c *lineCollector) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

// fakeCMS answers 403 for anything under /wp-admin
// fakeCMS 对 /wp-admin 下的请求返回 403
func fakeCMS() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(r.URL.Path) >= 9 && r.URL.Path[:9] == "/wp-admin" {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		w.Header().Set("X-Upstream-Host", r.Host)
		_, _ = io.WriteString(w, "hello")
	}))
}

func newProxy(t *testing.T, upstream string, sink forbidden.Sink, preserveHost bool) *Server {
	t.Helper()
	mw := middleware.New(middleware.Options{
		Entry:  "wordpress",
		Logger: forbidden.NewLogger(sink),
		Log:    zap.NewNop().Sugar(),
	})
	s, err := NewServer(Config{Listen: "127.0.0.1:0", Upstream: upstream, PreserveHost: preserveHost}, mw, zap.NewNop().Sugar())
	require.NoError(t, err)
	return s
}

// TestServer_Forbidden tests the end-to-end 403 path
// TestServer_Forbidden 测试端到端的 403 路径
func TestServer_Forbidden(t *testing.T) {
	cms := fakeCMS()
	defer cms.Close()

	sink := &lineCollector{}
	s := newProxy(t, cms.URL, sink, false)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wp-admin/install.php?step=1", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, []string{"Malicious traffic detected: 403_forbidden (/wp-admin/install.php?step=1) <wordpress"}, sink.Lines())

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", rec.Body.String())
	assert.Len(t, sink.Lines(), 1)
}

func TestServer_PreserveHost(t *testing.T) {
	cms := fakeCMS()
	defer cms.Close()

	s := newProxy(t, cms.URL, &lineCollector{}, true)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "blog.example.com"
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "blog.example.com", rec.Header().Get("X-Upstream-Host"))
}

// TestServer_UpstreamDown tests that a dead upstream yields 502 and no forbidden line
// TestServer_UpstreamDown 测试上游不可用时返回 502 且不记录禁止访问日志
func TestServer_UpstreamDown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	sink := &lineCollector{}
	s := newProxy(t, "http://"+addr, sink, false)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Empty(t, sink.Lines())
}

func TestNewServer_InvalidUpstream(t *testing.T) {
	mw := middleware.New(middleware.Options{})
	for _, upstream := range []string{"", "cms:80", "ftp://cms", "http://", "::bad"} {
		_, err := NewServer(Config{Upstream: upstream}, mw, zap.NewNop().Sugar())
		assert.ErrorIs(t, err, ferrors.ErrInvalidURL, upstream)
	}
}

// TestServer_Serve tests the listener lifecycle and graceful shutdown
// TestServer_Serve 测试监听生命周期和优雅关闭
func TestServer_Serve(t *testing.T) {
	cms := fakeCMS()
	defer cms.Close()

	sink := &lineCollector{}
	s := newProxy(t, cms.URL, sink, false)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/wp-admin/")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("proxy did not shut down")
	}

	require.Len(t, sink.Lines(), 1)
	assert.Contains(t, sink.Lines()[0], "(/wp-admin/) <wordpress")
}

// TestServer_ProxyProtocol tests that the client prefix comes from the PROXY header
// TestServer_ProxyProtocol 测试客户端前缀取自 PROXY 头
func TestServer_ProxyProtocol(t *testing.T) {
	cms := fakeCMS()
	defer cms.Close()

	sink := &lineCollector{}
	mw := middleware.New(middleware.Options{
		Entry:  "wordpress",
		Logger: forbidden.NewLogger(sink, forbidden.WithClientPrefix(true)),
		Log:    zap.NewNop().Sugar(),
	})
	s, err := NewServer(Config{Upstream: cms.URL, ProxyProtocol: true}, mw, zap.NewNop().Sugar())
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Serve(ctx, proxyproto.NewListener(ln, nil, time.Second)) }()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	_, err = io.WriteString(conn, "PROXY TCP4 203.0.113.50 10.0.0.1 5555 80\r\n"+
		"GET /wp-admin/ HTTP/1.1\r\nHost: blog.example.com\r\nConnection: close\r\n\r\n")
	require.NoError(t, err)

	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	assert.Equal(t, []string{"[client 203.0.113.50] Malicious traffic detected: 403_forbidden (/wp-admin/) <wordpress"}, sink.Lines())
}
