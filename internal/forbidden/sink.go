package forbidden

import (
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	ferrors "github.com/netxfw/forbidlog/pkg/errors"
)

// Sink is a write-only diagnostic log.
// Sink 是只写的诊断日志。
type Sink interface {
	WriteLine(line string) error
}

// SinkFunc adapts a function to Sink.
// SinkFunc 将函数适配为 Sink。
type SinkFunc func(line string) error

// WriteLine calls f(line).
func (f SinkFunc) WriteLine(line string) error {
	return f(line)
}

// WriterSink appends newline-terminated lines to an io.Writer.
// Writes are serialised so concurrent requests never interleave within a line.
// WriterSink 将以换行结尾的行追加到 io.Writer，写入是串行化的。
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink creates a sink over w. A nil writer means stderr.
// NewWriterSink 创建基于 w 的 Sink，nil 表示 stderr。
func NewWriterSink(w io.Writer) *WriterSink {
	if w == nil {
		w = os.Stderr
	}
	return &WriterSink{w: w}
}

// WriteLine writes line followed by a newline.
// WriteLine 写入一行并追加换行符。
func (s *WriterSink) WriteLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := io.WriteString(s.w, line+"\n"); err != nil {
		return ferrors.NewSinkError("writer", err)
	}
	return nil
}

// ZapSink writes each line as the message of a zap entry.
// ZapSink 将每一行作为 zap 条目的消息写入。
type ZapSink struct {
	core  zapcore.Core
	level zapcore.Level
}

// NewZapSink creates a sink that writes through log at the given level.
// NewZapSink 创建一个以给定级别通过 log 写入的 Sink。
func NewZapSink(log *zap.SugaredLogger, level zapcore.Level) *ZapSink {
	return &ZapSink{
		core:  log.Desugar().Core(),
		level: level,
	}
}

// WriteLine writes the entry straight to the core so write errors are returned.
// The line is emitted regardless of the logger's minimum level.
// WriteLine 直接写入 core 以返回写入错误，无论 logger 的最低级别如何都会输出。
func (s *ZapSink) WriteLine(line string) error {
	entry := zapcore.Entry{
		Level:   s.level,
		Time:    time.Now(),
		Message: line,
	}
	if err := s.core.Write(entry, nil); err != nil {
		return ferrors.NewSinkError("zap", err)
	}
	return nil
}
