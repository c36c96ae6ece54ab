// Package middleware observes the status a handler writes and logs forbidden responses.
// Package middleware 观察处理器写入的状态码并记录禁止访问响应。
package middleware

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/netxfw/forbidlog/internal/forbidden"
	"github.com/netxfw/forbidlog/internal/metrics"
	"github.com/netxfw/forbidlog/internal/realip"
	"github.com/netxfw/forbidlog/internal/rules"
	"github.com/netxfw/forbidlog/internal/utils/logger"
)

// Options configures the middleware.
// Options 配置中间件。
type Options struct {
	// Entry seeds the loaded-files list of every request. Empty means DefaultEntry().
	// Entry 作为每个请求加载文件列表的第一个元素，为空时使用 DefaultEntry()。
	Entry  string
	Logger *forbidden.Logger
	RealIP *realip.Manager
	Ignore *rules.Set
	Log    *zap.SugaredLogger
}

// Middleware logs one line per 403 response. It never changes the response.
// Middleware 为每个 403 响应记录一行日志，从不修改响应。
type Middleware struct {
	entry  string
	logger *forbidden.Logger
	realIP *realip.Manager
	ignore *rules.Set
	log    *zap.SugaredLogger
}

// DefaultEntry is the executable name, the Go counterpart of a script entry point.
// DefaultEntry 是可执行文件名，相当于脚本的入口文件。
func DefaultEntry() string {
	if len(os.Args) == 0 || os.Args[0] == "" {
		return forbidden.NoEntryFile
	}
	return filepath.Base(os.Args[0])
}

// New creates the middleware.
// New 创建中间件。
func New(opts Options) *Middleware {
	m := &Middleware{
		entry:  opts.Entry,
		logger: opts.Logger,
		realIP: opts.RealIP,
		ignore: opts.Ignore,
		log:    opts.Log,
	}
	if m.entry == "" {
		m.entry = DefaultEntry()
	}
	if m.realIP == nil {
		m.realIP = realip.NewManager(nil)
	}
	if m.ignore == nil {
		m.ignore, _ = rules.NewSet(nil)
	}
	if m.log == nil {
		m.log = logger.Get(context.Background())
	}
	return m
}

// RealIP returns the resolver used for the client prefix.
// RealIP 返回用于客户端前缀的解析器。
func (m *Middleware) RealIP() *realip.Manager {
	return m.realIP
}

// Ignore returns the active ignore rules. Updating them takes effect on the next request.
// Ignore 返回当前生效的忽略规则，更新后从下一个请求开始生效。
func (m *Middleware) Ignore() *rules.Set {
	return m.ignore
}

// Handler wraps next.
// Handler 包装 next。
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r = r.WithContext(forbidden.WithEntry(r.Context(), m.entry))
		rec := &statusRecorder{ResponseWriter: w}
		rec.onHeader = func(status int) {
			metrics.ResponsesTotal.WithLabelValues(metrics.StatusClass(status)).Inc()
			if status == http.StatusForbidden {
				m.record(r)
			}
		}
		next.ServeHTTP(rec, r)
	})
}

// record writes the line for r. Failures are logged and counted, never returned.
// record 为 r 写入日志行，失败只记录和计数，不返回。
func (m *Middleware) record(r *http.Request) {
	defer func() {
		if p := recover(); p != nil {
			metrics.SinkErrors.Inc()
			m.log.Errorf("[ERROR] Forbidden-access logging panicked: %v", p)
		}
	}()

	path := r.RequestURI
	if path == "" {
		path = r.URL.RequestURI()
	}

	ev := forbidden.NewEvent(path, forbidden.LoadedFiles(r.Context()))
	ev.Client = m.realIP.ClientAddr(r)

	if rule, ok := m.ignore.Match(rules.NewEnv(r, path, ev.Client, ev.EntryFile)); ok {
		metrics.ForbiddenIgnored.Inc()
		m.log.Debugf("[SKIP] Forbidden response ignored by rule %q", rule.Source)
		return
	}

	if err := m.logger.Log(ev); err != nil {
		metrics.SinkErrors.Inc()
		m.log.Errorf("[ERROR] Failed to write forbidden-access line: %v", err)
		return
	}
	metrics.ForbiddenEvents.WithLabelValues(ev.EntryFile).Inc()
}
