package commands

import (
	"fmt"

	"github.com/netxfw/forbidlog/internal/forbidden"
	"github.com/spf13/cobra"
)

// FilterCmd 实现 'filter' 命令
// FilterCmd implements the 'filter' command
var FilterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Print a fail2ban filter definition",
	// Short: 输出 fail2ban 过滤器定义
	Long: `Print a fail2ban filter.d definition matching the emitted lines.
With --line, check a log line against the filter and print the banned host.
输出与日志行匹配的 fail2ban filter.d 定义。
使用 --line 时，用过滤器检查日志行并输出将被封禁的主机。`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		line, _ := cmd.Flags().GetString("line")
		if line == "" {
			fmt.Fprint(out, forbidden.Fail2banFilter())
			return nil
		}

		host := forbidden.MatchHost(forbidden.CompileFailRegex(), line)
		if host == "" {
			return fmt.Errorf("line does not match failregex: %q", line)
		}
		fmt.Fprintln(out, host)
		return nil
	},
}

func init() {
	FilterCmd.Flags().String("line", "", "Log line to check against the filter")
}
