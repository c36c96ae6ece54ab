package forbidden

import (
	"fmt"

	ferrors "github.com/netxfw/forbidlog/pkg/errors"
)

// LogForbidden writes one line for a request answered with 403.
// Only loadedFiles[0] is reported; an empty list reports NoEntryFile.
// Sink failures are returned, never panicked.
// LogForbidden 为一个被 403 拒绝的请求写入一行日志。
// 只报告 loadedFiles[0]；空列表报告 NoEntryFile。
func LogForbidden(sink Sink, requestPath string, loadedFiles []string) error {
	return NewLogger(sink).Log(NewEvent(requestPath, loadedFiles))
}

// Logger writes events to a sink.
// Logger 将事件写入 Sink。
type Logger struct {
	sink         Sink
	clientPrefix bool
}

// Option configures a Logger.
type Option func(*Logger)

// WithClientPrefix prepends "[client <ip>] " when the event carries a client address.
// WithClientPrefix 在事件带有客户端地址时添加 "[client <ip>] " 前缀。
func WithClientPrefix(enabled bool) Option {
	return func(l *Logger) {
		l.clientPrefix = enabled
	}
}

// NewLogger creates a Logger writing to sink.
// NewLogger 创建写入 sink 的 Logger。
func NewLogger(sink Sink, opts ...Option) *Logger {
	l := &Logger{sink: sink}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Log renders ev and writes it.
// Log 渲染 ev 并写入。
func (l *Logger) Log(ev LogEvent) (err error) {
	if l == nil || l.sink == nil {
		return ferrors.ErrInvalidSink
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ferrors.ErrSinkWrite, r)
		}
	}()

	return l.sink.WriteLine(ev.Line(l.clientPrefix))
}
