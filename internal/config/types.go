package config

import (
	"os"
	"path/filepath"

	"github.com/netxfw/forbidlog/internal/utils/fileutil"
	"github.com/netxfw/forbidlog/internal/utils/logger"
	"gopkg.in/yaml.v3"
)

// GlobalConfig is the root of the configuration file.
// GlobalConfig 是配置文件的根结构。
type GlobalConfig struct {
	Logging   logger.LoggingConfig `yaml:"logging"`
	Forbidden ForbiddenConfig      `yaml:"forbidden"`
	Proxy     ProxyConfig          `yaml:"proxy"`
	Metrics   MetricsConfig        `yaml:"metrics"`
}

// ForbiddenConfig controls how forbidden-access lines are produced.
// ForbiddenConfig 控制禁止访问日志行的生成方式。
type ForbiddenConfig struct {
	// Entry is reported as the first loaded file. Empty means the executable name.
	// Entry 作为第一个加载文件报告，为空时使用可执行文件名。
	Entry string `yaml:"entry"`
	// Sink is one of logger, stderr, stdout.
	// Sink 取值 logger、stderr、stdout。
	Sink string `yaml:"sink"`
	// Level is the zap level used by the logger sink.
	// Level 是 logger sink 使用的 zap 级别。
	Level string `yaml:"level"`
	// ClientPrefix prepends "[client <ip>] " so stock fail2ban filters can extract the host.
	// ClientPrefix 添加 "[client <ip>] " 前缀，便于 fail2ban 过滤器提取主机。
	ClientPrefix bool `yaml:"client_prefix"`
	// TrustedProxies whose X-Forwarded-For / X-Real-IP headers are honoured.
	// TrustedProxies 其 X-Forwarded-For / X-Real-IP 头会被采信。
	TrustedProxies []string `yaml:"trusted_proxies"`
	// Ignore expressions; any match suppresses the line.
	// Ignore 表达式，任意一个匹配即不输出日志行。
	Ignore []string `yaml:"ignore"`
}

// ProxyConfig configures the reverse proxy host.
// ProxyConfig 配置反向代理。
type ProxyConfig struct {
	Listen          string `yaml:"listen"`
	Upstream        string `yaml:"upstream"`
	PreserveHost    bool   `yaml:"preserve_host"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
	ProxyProtocol   bool   `yaml:"proxy_protocol"`
}

// MetricsConfig configures the Prometheus endpoint.
// MetricsConfig 配置 Prometheus 端点。
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	Path    string `yaml:"path"`
}

// DefaultConfig returns the built-in defaults.
// DefaultConfig 返回内置默认值。
func DefaultConfig() *GlobalConfig {
	return &GlobalConfig{
		Logging: logger.LoggingConfig{
			Enabled:    false,
			Level:      "info",
			Path:       DefaultLogPath,
			MaxSize:    10, // 10MB
			MaxBackups: 3,
			MaxAge:     30, // 30 days
			Compress:   true,
		},
		Forbidden: ForbiddenConfig{
			Sink:           SinkLogger,
			Level:          "warn",
			ClientPrefix:   true,
			TrustedProxies: []string{},
			Ignore:         []string{},
		},
		Proxy: ProxyConfig{
			Listen:          DefaultProxyListen,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  DefaultMetricsListen,
			Path:    DefaultMetricsPath,
		},
	}
}

// LoadGlobalConfig reads path on top of the defaults.
// LoadGlobalConfig 在默认值之上读取 path。
func LoadGlobalConfig(path string) (*GlobalConfig, error) {
	safePath := filepath.Clean(path) // Sanitize path to prevent directory traversal
	data, err := os.ReadFile(safePath)
	if err != nil {
		return nil, err
	}
	return ParseGlobalConfig(data)
}

// ParseGlobalConfig decodes YAML on top of the defaults.
// ParseGlobalConfig 在默认值之上解码 YAML。
func ParseGlobalConfig(data []byte) (*GlobalConfig, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveGlobalConfig writes cfg to path, creating the directory if needed.
// SaveGlobalConfig 将 cfg 写入 path，必要时创建目录。
func SaveGlobalConfig(path string, cfg *GlobalConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return fileutil.AtomicWriteFile(filepath.Clean(path), data, 0600)
}
