package config

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/netxfw/forbidlog/internal/utils/fileutil"
	"github.com/netxfw/forbidlog/internal/utils/logger"
)

// ConfigManager handles all configuration-related operations in a centralized manner
// ConfigManager 以集中方式处理所有配置相关操作
type ConfigManager struct {
	configPath string
	mutex      sync.RWMutex
	config     *GlobalConfig
}

var (
	// ConfigManagerInstance is the process-wide manager.
	// ConfigManagerInstance 是进程级的配置管理器。
	ConfigManagerInstance *ConfigManager
	instanceMu            sync.Mutex
)

// NewConfigManager creates a new configuration manager instance
// NewConfigManager 创建新的配置管理器实例
func NewConfigManager(configPath string) *ConfigManager {
	return &ConfigManager{
		configPath: configPath,
	}
}

// GetConfigManager returns the singleton manager bound to GetConfigPath().
// A changed path replaces the instance.
// GetConfigManager 返回绑定到 GetConfigPath() 的单例管理器，路径变化时替换实例。
func GetConfigManager() *ConfigManager {
	instanceMu.Lock()
	defer instanceMu.Unlock()

	if ConfigManagerInstance == nil || ConfigManagerInstance.configPath != GetConfigPath() {
		ConfigManagerInstance = NewConfigManager(GetConfigPath())
	}
	return ConfigManagerInstance
}

// LoadConfig loads the configuration from the specified path
// LoadConfig 从指定路径加载配置
func (cm *ConfigManager) LoadConfig() error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	config, err := LoadGlobalConfig(cm.configPath)
	if err != nil {
		return err
	}

	cm.config = config
	return nil
}

// LoadOrDefault loads the file, or keeps the defaults when the file does not exist.
// LoadOrDefault 加载配置文件，文件不存在时使用默认值。
func (cm *ConfigManager) LoadOrDefault() error {
	err := cm.LoadConfig()
	if err == nil {
		return nil
	}
	if os.IsNotExist(err) {
		cm.UpdateConfig(DefaultConfig())
		return nil
	}
	return err
}

// SaveConfig saves the current configuration to the specified path
// SaveConfig 将当前配置保存到指定路径
func (cm *ConfigManager) SaveConfig() error {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	if cm.config == nil {
		return nil
	}

	return SaveGlobalConfig(cm.configPath, cm.config)
}

// GetConfig returns a copy of the current configuration
// GetConfig 返回当前配置的副本
func (cm *ConfigManager) GetConfig() *GlobalConfig {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	if cm.config == nil {
		return nil
	}

	cfgCopy := *cm.config
	cfgCopy.Forbidden = cloneForbidden(cm.config.Forbidden)
	return &cfgCopy
}

// cloneForbidden copies c including its slices.
// cloneForbidden 复制 c，包括其中的切片。
func cloneForbidden(c ForbiddenConfig) ForbiddenConfig {
	c.TrustedProxies = slices.Clone(c.TrustedProxies)
	c.Ignore = slices.Clone(c.Ignore)
	return c
}

// UpdateConfig updates the current configuration
// UpdateConfig 更新当前配置
func (cm *ConfigManager) UpdateConfig(newConfig *GlobalConfig) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	cm.config = newConfig
}

// GetLoggingConfig returns the logging configuration
// GetLoggingConfig 返回日志配置
func (cm *ConfigManager) GetLoggingConfig() *logger.LoggingConfig {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	if cm.config == nil {
		return nil
	}

	loggingCfg := cm.config.Logging
	return &loggingCfg
}

// GetForbiddenConfig returns the forbidden-access logging configuration
// GetForbiddenConfig 返回禁止访问日志配置
func (cm *ConfigManager) GetForbiddenConfig() *ForbiddenConfig {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	if cm.config == nil {
		return nil
	}

	forbiddenCfg := cloneForbidden(cm.config.Forbidden)
	return &forbiddenCfg
}

// GetProxyConfig returns the reverse proxy configuration
// GetProxyConfig 返回反向代理配置
func (cm *ConfigManager) GetProxyConfig() *ProxyConfig {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	if cm.config == nil {
		return nil
	}

	proxyCfg := cm.config.Proxy
	return &proxyCfg
}

// GetMetricsConfig returns the metrics configuration
// GetMetricsConfig 返回指标配置
func (cm *ConfigManager) GetMetricsConfig() *MetricsConfig {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	if cm.config == nil {
		return nil
	}

	metricsCfg := cm.config.Metrics
	return &metricsCfg
}

// SetLoggingConfig updates the logging configuration
// SetLoggingConfig 更新日志配置
func (cm *ConfigManager) SetLoggingConfig(loggingConfig logger.LoggingConfig) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if cm.config != nil {
		cm.config.Logging = loggingConfig
	}
}

// SetForbiddenConfig updates the forbidden-access logging configuration
// SetForbiddenConfig 更新禁止访问日志配置
func (cm *ConfigManager) SetForbiddenConfig(forbiddenConfig ForbiddenConfig) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if cm.config != nil {
		cm.config.Forbidden = forbiddenConfig
	}
}

// SetProxyConfig updates the reverse proxy configuration
// SetProxyConfig 更新反向代理配置
func (cm *ConfigManager) SetProxyConfig(proxyConfig ProxyConfig) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if cm.config != nil {
		cm.config.Proxy = proxyConfig
	}
}

// SetMetricsConfig updates the metrics configuration
// SetMetricsConfig 更新指标配置
func (cm *ConfigManager) SetMetricsConfig(metricsConfig MetricsConfig) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if cm.config != nil {
		cm.config.Metrics = metricsConfig
	}
}

// GetConfigPath returns the configuration file path
// GetConfigPath 返回配置文件路径
func (cm *ConfigManager) GetConfigPath() string {
	return cm.configPath
}

// Validate validates the current configuration
// Validate 验证当前配置
func (cm *ConfigManager) Validate() error {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	if cm.config == nil {
		return nil
	}

	return NewConfigValidator().Validate(cm.config).Err()
}

// InitConfiguration writes the commented default configuration if the file does not exist.
// It reports whether a new file was created.
// InitConfiguration 如果配置文件不存在，则写入带注释的默认配置，并返回是否创建了新文件。
func InitConfiguration(ctx context.Context, configPath string) (bool, error) {
	log := logger.Get(ctx)
	configDir := filepath.Dir(configPath)

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return false, err
	}

	if _, err := os.Stat(configPath); err == nil {
		log.Infof("[INFO]  Config file already exists: %s", configPath)
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, err
	}

	if err := fileutil.AtomicWriteFile(configPath, []byte(DefaultConfigTemplate), 0600); err != nil {
		return false, err
	}
	log.Infof("[FILE] Created default config with comments: %s", configPath)
	return true, nil
}
