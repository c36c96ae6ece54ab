package logger

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// TestInit tests logger initialization
// TestInit 测试日志初始化
func TestInit(t *testing.T) {
	Init(LoggingConfig{Enabled: false, Level: "info"})

	log := Get(nil)
	assert.NotNil(t, log)

	// Sync 在 stderr 上可能返回错误，这是预期的
	_ = Sync()
}

// TestInit_File tests that lines reach the rotated log file
// TestInit_File 测试日志行写入轮转日志文件
func TestInit_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "forbidlog.log")
	Init(LoggingConfig{Enabled: true, Level: "info", Path: path, MaxSize: 1})
	t.Cleanup(func() { Init(LoggingConfig{}) })

	Get(nil).Warn("Malicious traffic detected: 403_forbidden (/x) <index.php")
	require.NoError(t, Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "403_forbidden (/x) <index.php")
}

// TestGet tests getting logger from context
// TestGet 测试从 context 获取 logger
func TestGet(t *testing.T) {
	assert.NotNil(t, Get(nil))
	assert.NotNil(t, Get(context.Background()))
}

// TestWithContext tests adding logger to context
// TestWithContext 测试将 logger 添加到 context
func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	l := New(zapcore.AddSync(&buf), "debug")

	ctx := WithContext(context.Background(), l)
	assert.Same(t, l, Get(ctx))

	Get(ctx).Debug("hello")
	assert.True(t, strings.Contains(buf.String(), "hello"))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ParseLevel(tc.in), tc.in)
	}
}

// TestNew_LevelFilter tests that entries below the level are dropped
// TestNew_LevelFilter 测试低于级别的条目被丢弃
func TestNew_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := New(zapcore.AddSync(&buf), "warn")
	l.Info("quiet")
	l.Warn("loud")
	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")
}

// TestInit_BadDirectory tests the stderr fallback when the log directory cannot be created
// TestInit_BadDirectory 测试无法创建日志目录时回退到 stderr
func TestInit_BadDirectory(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	path := filepath.Join(blocker, "sub", "forbidlog.log")

	require.NotPanics(t, func() {
		Init(LoggingConfig{Enabled: true, Level: "info", Path: path})
		Get(nil).Info("still logging")
	})
	assert.NotNil(t, Get(nil))

	_, err := os.Stat(filepath.Join(blocker, "sub"))
	assert.Error(t, err)
	_, err = os.Stat(path)
	assert.Error(t, err)

	Init(LoggingConfig{Enabled: false, Level: "info"})
}
