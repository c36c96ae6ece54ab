package logger

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type contextKey string

const LoggerKey = contextKey("logger")

var globalLogger *zap.SugaredLogger

// Init initializes the global logger based on configuration.
// Without a file path the diagnostic log goes to stderr, like a web server error log.
// Init 根据配置初始化全局日志记录器。
// 未配置文件路径时，诊断日志写入 stderr，与 Web 服务器错误日志一致。
func Init(cfg LoggingConfig) {
	writeSyncer := zapcore.AddSync(os.Stderr)

	if cfg.Enabled && cfg.Path != "" {
		dir := filepath.Dir(cfg.Path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			// 如果无法创建目录，则输出到 stderr
			globalLogger = New(writeSyncer, cfg.Level)
			globalLogger.Warnf("[WARN]  Failed to create log directory: %v", err)
			return
		}

		rotator := &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		writeSyncer = zapcore.AddSync(rotator)
	}

	globalLogger = New(writeSyncer, cfg.Level)
	globalLogger.Debugf("[LOG] Logging initialized (Level: %s, Path: %s)", ParseLevel(cfg.Level), cfg.Path)
}

// New builds a console-encoded sugared logger writing to ws.
// New 构建写入 ws 的控制台编码 SugaredLogger。
func New(ws zapcore.WriteSyncer, level string) *zap.SugaredLogger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewConsoleEncoder(encoderConfig)

	core := zapcore.NewCore(encoder, ws, ParseLevel(level))
	return zap.New(core, zap.AddCaller()).Sugar()
}

// ParseLevel maps a config level to a zap level, defaulting to info.
// ParseLevel 将配置级别映射为 zap 级别，默认为 info。
func ParseLevel(level string) zapcore.Level {
	if level == "" {
		return zapcore.InfoLevel
	}
	l, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return l
}

// Sync flushes any buffered log entries.
// Sync 刷新所有缓存的日志条目。
func Sync() error {
	if globalLogger != nil {
		return globalLogger.Sync()
	}
	return nil
}

// Get returns the logger from context or global logger
// Get 从 Context 或全局日志记录器返回 Logger。
func Get(ctx context.Context) *zap.SugaredLogger {
	if ctx != nil {
		if logger, ok := ctx.Value(LoggerKey).(*zap.SugaredLogger); ok {
			return logger
		}
	}
	if globalLogger == nil {
		l, err := zap.NewDevelopment()
		if err != nil {
			return zap.NewExample().Sugar()
		}
		return l.Sugar()
	}
	return globalLogger
}

// WithContext adds logger to context
// WithContext 将 Logger 添加到 Context。
func WithContext(ctx context.Context, logger *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}
