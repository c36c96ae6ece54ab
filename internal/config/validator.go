package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/netxfw/forbidlog/internal/realip"
	"github.com/netxfw/forbidlog/internal/rules"
	ferrors "github.com/netxfw/forbidlog/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ValidationError represents a single validation error.
// ValidationError 表示单个验证错误。
type ValidationError struct {
	Field   string `json:"field"`   // Field path (e.g., "proxy.upstream")
	Message string `json:"message"` // Error message
	Value   any    `json:"value"`   // The invalid value (optional)
}

// ValidationWarning represents a potential issue that's not critical.
// ValidationWarning 表示非关键的潜在问题。
type ValidationWarning struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value"`
}

// ValidationResult contains all validation errors and warnings.
// ValidationResult 包含所有验证错误和警告。
type ValidationResult struct {
	Valid    bool                `json:"valid"`
	Errors   []ValidationError   `json:"errors"`
	Warnings []ValidationWarning `json:"warnings"`
}

func newResult() *ValidationResult {
	return &ValidationResult{Valid: true, Errors: []ValidationError{}, Warnings: []ValidationWarning{}}
}

// AddError adds a validation error.
// AddError 添加验证错误。
func (r *ValidationResult) AddError(field, message string, value any) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message, Value: value})
	r.Valid = false
}

// AddWarning adds a validation warning.
// AddWarning 添加验证警告。
func (r *ValidationResult) AddWarning(field, message string, value any) {
	r.Warnings = append(r.Warnings, ValidationWarning{Field: field, Message: message, Value: value})
}

// Err folds the errors into one error wrapping ErrConfigInvalid, or nil when valid.
// Err 将所有错误合并为一个包装 ErrConfigInvalid 的错误，有效时返回 nil。
func (r *ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return fmt.Errorf("%w: %s", ferrors.ErrConfigInvalid, strings.Join(msgs, "; "))
}

// ConfigValidator provides configuration validation functionality.
// ConfigValidator 提供配置验证功能。
type ConfigValidator struct {
	MaxShutdownTimeout time.Duration
	MaxLogSizeMB       int
}

// NewConfigValidator creates a new ConfigValidator with default limits.
// NewConfigValidator 创建具有默认限制的新 ConfigValidator。
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{
		MaxShutdownTimeout: 5 * time.Minute,
		MaxLogSizeMB:       10240,
	}
}

// ValidateSyntax validates the YAML syntax of the configuration.
// ValidateSyntax 验证配置的 YAML 语法。
func (v *ConfigValidator) ValidateSyntax(configData []byte) *ValidationResult {
	result := newResult()

	var rawConfig map[string]any
	if err := yaml.Unmarshal(configData, &rawConfig); err != nil {
		result.AddError("config", fmt.Sprintf("YAML syntax error: %v", err), nil)
	}
	return result
}

// Validate validates the entire configuration.
// Validate 验证整个配置。
func (v *ConfigValidator) Validate(cfg *GlobalConfig) *ValidationResult {
	result := newResult()
	if cfg == nil {
		result.AddError("config", "configuration is nil", nil)
		return result
	}

	v.validateLoggingConfig(cfg, result)
	v.validateForbiddenConfig(&cfg.Forbidden, result)
	v.validateProxyConfig(&cfg.Proxy, result)
	v.validateMetricsConfig(&cfg.Metrics, result)

	// Cross-section validation / 跨部分验证
	if cfg.Metrics.Enabled && cfg.Proxy.Listen != "" && cfg.Metrics.Listen == cfg.Proxy.Listen {
		result.AddError("metrics.listen", "metrics and proxy cannot share a listen address", cfg.Metrics.Listen)
	}
	if cfg.Proxy.ProxyProtocol && len(cfg.Forbidden.TrustedProxies) == 0 {
		result.AddWarning("proxy.proxy_protocol",
			"no forbidden.trusted_proxies configured, PROXY headers will never be read", cfg.Proxy.ProxyProtocol)
	}

	return result
}

func (v *ConfigValidator) validateLoggingConfig(cfg *GlobalConfig, result *ValidationResult) {
	l := cfg.Logging
	switch strings.ToLower(l.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		result.AddError("logging.level", "must be one of debug, info, warn, error", l.Level)
	}
	if l.Enabled && l.Path == "" {
		result.AddError("logging.path", "path is required when file logging is enabled", l.Path)
	}
	if l.MaxSize < 0 || l.MaxSize > v.MaxLogSizeMB {
		result.AddError("logging.max_size", fmt.Sprintf("must be between 0 and %d", v.MaxLogSizeMB), l.MaxSize)
	}
	if l.MaxBackups < 0 {
		result.AddError("logging.max_backups", "must not be negative", l.MaxBackups)
	}
	if l.MaxAge < 0 {
		result.AddError("logging.max_age", "must not be negative", l.MaxAge)
	}
	if cfg.Forbidden.Sink == SinkLogger && !l.Enabled {
		result.AddWarning("logging.enabled",
			"forbidden lines go to stderr; enable file logging so the ban daemon has a file to watch", l.Enabled)
	}
}

func (v *ConfigValidator) validateForbiddenConfig(cfg *ForbiddenConfig, result *ValidationResult) {
	switch cfg.Sink {
	case "", SinkLogger, SinkStderr, SinkStdout:
	default:
		result.AddError("forbidden.sink", "must be one of logger, stderr, stdout", cfg.Sink)
	}

	switch strings.ToLower(cfg.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		result.AddError("forbidden.level", "must be one of debug, info, warn, error", cfg.Level)
	}

	if strings.ContainsAny(cfg.Entry, "\r\n") {
		result.AddError("forbidden.entry", "must be a single line", cfg.Entry)
	}

	for i, cidr := range cfg.TrustedProxies {
		if _, err := realip.ParsePrefix(cidr); err != nil {
			result.AddError(fmt.Sprintf("forbidden.trusted_proxies[%d]", i), ferrors.NewCIDRError(cidr).Error(), cidr)
		}
	}

	for i, src := range cfg.Ignore {
		if strings.TrimSpace(src) == "" {
			result.AddWarning(fmt.Sprintf("forbidden.ignore[%d]", i), "empty rule is skipped", src)
			continue
		}
		if _, err := rules.Compile(src); err != nil {
			result.AddError(fmt.Sprintf("forbidden.ignore[%d]", i), err.Error(), src)
		}
	}

	if !cfg.ClientPrefix {
		result.AddWarning("forbidden.client_prefix",
			"without a client prefix the ban daemon must get the address from another field", cfg.ClientPrefix)
	}
}

func (v *ConfigValidator) validateProxyConfig(cfg *ProxyConfig, result *ValidationResult) {
	if cfg.Listen != "" {
		if _, _, err := net.SplitHostPort(cfg.Listen); err != nil {
			result.AddError("proxy.listen", fmt.Sprintf("%v: %v", ferrors.ErrInvalidListenAddr, err), cfg.Listen)
		}
	}

	if cfg.Upstream != "" {
		u, err := url.Parse(cfg.Upstream)
		switch {
		case err != nil:
			result.AddError("proxy.upstream", ferrors.NewURLError(cfg.Upstream, err).Error(), cfg.Upstream)
		case u.Scheme != "http" && u.Scheme != "https":
			result.AddError("proxy.upstream", "scheme must be http or https", cfg.Upstream)
		case u.Host == "":
			result.AddError("proxy.upstream", "host is required", cfg.Upstream)
		}
	}

	if cfg.ShutdownTimeout != "" {
		d, err := time.ParseDuration(cfg.ShutdownTimeout)
		if err != nil {
			result.AddError("proxy.shutdown_timeout", fmt.Sprintf("invalid duration: %v", err), cfg.ShutdownTimeout)
		} else if d <= 0 || d > v.MaxShutdownTimeout {
			result.AddError("proxy.shutdown_timeout",
				fmt.Sprintf("must be between 0 and %s", v.MaxShutdownTimeout), cfg.ShutdownTimeout)
		}
	}
}

func (v *ConfigValidator) validateMetricsConfig(cfg *MetricsConfig, result *ValidationResult) {
	if !cfg.Enabled {
		return
	}
	if _, _, err := net.SplitHostPort(cfg.Listen); err != nil {
		result.AddError("metrics.listen", fmt.Sprintf("%v: %v", ferrors.ErrInvalidListenAddr, err), cfg.Listen)
	}
	if !strings.HasPrefix(cfg.Path, "/") {
		result.AddError("metrics.path", "must start with /", cfg.Path)
	}
}

// ShutdownTimeoutDuration parses proxy.shutdown_timeout, falling back to the default.
// ShutdownTimeoutDuration 解析 proxy.shutdown_timeout，失败时回退到默认值。
func (c ProxyConfig) ShutdownTimeoutDuration() time.Duration {
	if d, err := time.ParseDuration(c.ShutdownTimeout); err == nil && d > 0 {
		return d
	}
	d, _ := time.ParseDuration(DefaultShutdownTimeout)
	return d
}
