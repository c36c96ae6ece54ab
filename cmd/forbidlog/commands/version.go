package commands

import (
	"fmt"

	"github.com/netxfw/forbidlog/internal/version"
	"github.com/spf13/cobra"
)

// VersionCmd 实现 'version' 命令
// VersionCmd implements the 'version' command
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	// Short: 显示版本信息
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "forbidlog version %s\n", version.Version)
	},
}
