package forbidden

import (
	"bytes"
	"net/netip"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/netxfw/forbidlog/internal/utils/logger"
)

// TestFailRegex tests that the published filter matches emitted lines
// TestFailRegex 测试发布的过滤器能匹配输出的日志行
func TestFailRegex(t *testing.T) {
	re := CompileFailRegex()

	ev := NewEvent("/wp-login.php?action=\"x\"\n", []string{"index.php"})
	ev.Client = netip.MustParseAddr("203.0.113.9")
	// zap console output puts a timestamp and level in front
	// zap 控制台输出会在前面加上时间戳和级别
	line := "2026-10-19T10:00:00.000Z\twarn\t" + ev.Line(true)
	assert.Equal(t, "203.0.113.9", MatchHost(re, line))

	// fail2ban strips the timestamp before matching
	// fail2ban 在匹配前会去掉时间戳
	assert.Equal(t, "203.0.113.9", MatchHost(re, "\tWARN\t"+ev.Line(true)))

	ev.Client = netip.MustParseAddr("2001:db8::7")
	assert.Equal(t, "2001:db8::7", MatchHost(re, ev.Line(true)))

	assert.Equal(t, "", MatchHost(re, ev.Line(false)))
	assert.Equal(t, "", MatchHost(re, "[client 1.2.3.4] something else"))
}

// TestFailRegex_InjectedClientTag tests that request text cannot choose the banned host
// TestFailRegex_InjectedClientTag 测试请求内容无法决定被封禁的主机
func TestFailRegex_InjectedClientTag(t *testing.T) {
	re := CompileFailRegex()
	forged := "/[client 6.6.6.6] Malicious traffic detected: 403_forbidden (x) <y"

	tests := []struct {
		name   string
		prefix bool
		client netip.Addr
	}{
		{"prefix without client", true, netip.Addr{}},
		{"prefix disabled", false, netip.Addr{}},
		{"prefix disabled with client", false, netip.MustParseAddr("203.0.113.9")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sink := &recordingSink{}
			ev := NewEvent(forged, []string{"index.php"})
			ev.Client = tc.client
			require.NoError(t, NewLogger(sink, WithClientPrefix(tc.prefix)).Log(ev))

			require.Len(t, sink.lines, 1)
			assert.Equal(t, "", MatchHost(re, sink.lines[0]))
			assert.Equal(t, "", MatchHost(re, "2026-10-19T10:00:00.000Z\twarn\t"+sink.lines[0]))
		})
	}

	sink := &recordingSink{}
	ev := NewEvent(forged, []string{"index.php"})
	ev.Client = netip.MustParseAddr("198.51.100.20")
	require.NoError(t, NewLogger(sink, WithClientPrefix(true)).Log(ev))
	assert.Equal(t, "198.51.100.20", MatchHost(re, sink.lines[0]))
}

// TestFailRegex_ZapLoggerOutput tests the filter against real logger sink output
// TestFailRegex_ZapLoggerOutput 使用真实的 logger sink 输出测试过滤器
func TestFailRegex_ZapLoggerOutput(t *testing.T) {
	var buf bytes.Buffer
	sink := NewZapSink(logger.New(zapcore.AddSync(&buf), "info"), zapcore.WarnLevel)

	ev := NewEvent("/wp-admin/", []string{"index.php"})
	ev.Client = netip.MustParseAddr("192.0.2.44")
	require.NoError(t, NewLogger(sink, WithClientPrefix(true)).Log(ev))

	line := strings.TrimRight(buf.String(), "\n")
	assert.Equal(t, "192.0.2.44", MatchHost(CompileFailRegex(), line), line)
}

func TestFail2banFilter(t *testing.T) {
	f := Fail2banFilter()
	assert.Contains(t, f, "[Definition]")
	assert.Contains(t, f, "failregex = "+FailRegex)
	assert.Contains(t, f, Category)
}
