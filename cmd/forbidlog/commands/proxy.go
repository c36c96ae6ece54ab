package commands

import (
	"os/signal"
	"syscall"

	"github.com/netxfw/forbidlog/internal/app"
	"github.com/netxfw/forbidlog/internal/config"
	"github.com/netxfw/forbidlog/internal/utils/logger"
	"github.com/spf13/cobra"
)

// ProxyCmd 实现 'proxy' 命令
// ProxyCmd implements the 'proxy' command
var ProxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Run the logging reverse proxy",
	// Short: 运行记录日志的反向代理
	Long: `Run a reverse proxy in front of the upstream web application and log every 403 it returns.
Stops on SIGINT or SIGTERM. SIGHUP reloads the ignore rules.
在上游 Web 应用前运行反向代理，并记录其返回的每个 403。
收到 SIGINT 或 SIGTERM 时停止，收到 SIGHUP 时重新加载忽略规则。`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if v, _ := cmd.Flags().GetString("listen"); v != "" {
			cfg.Proxy.Listen = v
		}
		if v, _ := cmd.Flags().GetString("upstream"); v != "" {
			cfg.Proxy.Upstream = v
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log := logger.Get(ctx)
		log.Infof("[START] Proxying %s -> %s", cfg.Proxy.Listen, cfg.Proxy.Upstream)
		if err := app.RunProxy(ctx, cfg, streams(cmd), app.ManagerReload(config.GetConfigManager())); err != nil {
			return err
		}
		log.Infof("[STOP] Proxy stopped")
		return nil
	},
}

func init() {
	ProxyCmd.Flags().String("listen", "", "Override proxy.listen")
	ProxyCmd.Flags().String("upstream", "", "Override proxy.upstream")
}
