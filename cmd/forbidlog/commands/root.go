package commands

import (
	"fmt"

	"github.com/netxfw/forbidlog/internal/app"
	"github.com/netxfw/forbidlog/internal/config"
	"github.com/netxfw/forbidlog/internal/runtime"
	"github.com/netxfw/forbidlog/internal/utils/logger"
	"github.com/spf13/cobra"
)

var RootCmd = &cobra.Command{
	Use:   "forbidlog",
	Short: "Log 403 Forbidden responses for fail2ban",
	// Short: 为 fail2ban 记录 403 Forbidden 响应
	Long: `forbidlog writes one "Malicious traffic detected: 403_forbidden" line for every
403 Forbidden response, so fail2ban can ban clients that keep hitting forbidden paths.
forbidlog 为每个 403 Forbidden 响应写入一行 "Malicious traffic detected: 403_forbidden"，
以便 fail2ban 封禁反复访问禁止路径的客户端。`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Load configuration to get logging settings
		// 加载配置以获取日志设置
		globalCfg, err := config.LoadGlobalConfig(config.GetConfigPath())
		if err != nil {
			// If config fails to load, use default logging config (stderr only)
			// 如果加载配置失败，使用默认日志配置（仅 stderr）
			logger.Init(logger.LoggingConfig{
				Level: "info",
			})
		} else {
			logger.Init(globalCfg.Logging)
		}

		// Inject logger into context
		// 将 Logger 注入 Context
		ctx := logger.WithContext(cmd.Context(), logger.Get(nil))
		cmd.SetContext(ctx)
	},
}

func init() {
	// Config file path
	// 配置文件路径
	RootCmd.PersistentFlags().StringVarP(&runtime.ConfigPath, "config", "c", "", fmt.Sprintf("Path to configuration file (default: %s)", config.DefaultConfigPath))

	RootCmd.AddCommand(ProxyCmd)   // proxy - 运行反向代理
	RootCmd.AddCommand(EmitCmd)    // emit - 输出单行日志
	RootCmd.AddCommand(InitCmd)    // init - 初始化配置
	RootCmd.AddCommand(TestCmd)    // test - 测试配置
	RootCmd.AddCommand(FilterCmd)  // filter - 输出 fail2ban 过滤器
	RootCmd.AddCommand(VersionCmd) // version - 显示版本

	RootCmd.CompletionOptions.DisableDescriptions = true
}

// loadConfig loads the configured file, falling back to defaults when it does not exist.
// loadConfig 加载配置文件，文件不存在时回退到默认值。
func loadConfig() (*config.GlobalConfig, error) {
	cm := config.GetConfigManager()
	if err := cm.LoadOrDefault(); err != nil {
		return nil, err
	}
	return cm.GetConfig(), nil
}

// streams routes sink output through the command so tests can capture it.
// streams 通过命令路由 Sink 输出，便于测试捕获。
func streams(cmd *cobra.Command) app.Streams {
	return app.Streams{Stdout: cmd.OutOrStdout(), Stderr: cmd.ErrOrStderr()}
}
