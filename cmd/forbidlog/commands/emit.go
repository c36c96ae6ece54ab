package commands

import (
	"github.com/netxfw/forbidlog/internal/app"
	"github.com/spf13/cobra"
)

// EmitCmd 实现 'emit' 命令
// EmitCmd implements the 'emit' command
var EmitCmd = &cobra.Command{
	Use:   "emit <path> [loaded-file...]",
	Short: "Write one forbidden-access line",
	// Short: 写入一行禁止访问日志
	Long: `Write one forbidden-access line through the configured sink.
Only the first loaded file is reported. Useful with fail2ban-regex.
通过配置的 Sink 写入一行禁止访问日志。
只报告第一个加载的文件。可配合 fail2ban-regex 使用。`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if v, _ := cmd.Flags().GetString("sink"); v != "" {
			cfg.Forbidden.Sink = v
		}
		client, _ := cmd.Flags().GetString("client")

		return app.Emit(cmd.Context(), cfg, streams(cmd), args[0], args[1:], client)
	},
}

func init() {
	EmitCmd.Flags().String("client", "", "Client address for the [client <ip>] prefix")
	EmitCmd.Flags().String("sink", "", "Override forbidden.sink (logger, stderr, stdout)")
}
