package commands

import (
	"fmt"
	"os"

	"github.com/netxfw/forbidlog/internal/app"
	"github.com/netxfw/forbidlog/internal/config"
	"github.com/spf13/cobra"
)

// InitCmd 实现 'init' 命令
// InitCmd implements the 'init' command
var InitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	// Short: 初始化配置
	Long: `Write the commented default configuration file if it does not exist.
Override flags are then saved into the file, which drops its comments.`,
	// Long: 如果配置文件不存在，写入带注释的默认配置。随后将覆盖参数保存到文件中（注释会丢失）。
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.GetConfigPath()
		created, err := config.InitConfiguration(cmd.Context(), path)
		if err != nil {
			return err
		}
		if created {
			fmt.Fprintf(cmd.OutOrStdout(), "[OK] Configuration initialized: %s\n", path)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "[OK] Configuration already exists: %s\n", path)
		}

		overrides := initOverrides(cmd)
		if overrides.IsZero() {
			return nil
		}
		if err := app.ApplyOverrides(cmd.Context(), config.GetConfigManager(), overrides); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "[OK] Configuration updated: %s\n", path)
		return nil
	},
}

func initOverrides(cmd *cobra.Command) app.InitOverrides {
	get := func(name string) string {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	return app.InitOverrides{
		Listen:        get("listen"),
		Upstream:      get("upstream"),
		Entry:         get("entry"),
		Sink:          get("sink"),
		LogFile:       get("log-file"),
		MetricsListen: get("metrics-listen"),
	}
}

func init() {
	InitCmd.Flags().String("listen", "", "Set proxy.listen")
	InitCmd.Flags().String("upstream", "", "Set proxy.upstream")
	InitCmd.Flags().String("entry", "", "Set forbidden.entry")
	InitCmd.Flags().String("sink", "", "Set forbidden.sink (logger, stderr, stdout)")
	InitCmd.Flags().String("log-file", "", "Enable logging to this file")
	InitCmd.Flags().String("metrics-listen", "", "Enable metrics on this address")
}

// TestCmd 实现 'test' 命令
// TestCmd implements the 'test' command
var TestCmd = &cobra.Command{
	Use:   "test",
	Short: "Test configuration",
	// Short: 测试配置
	Long: `Check configuration syntax and semantics, including ignore rule expressions`,
	// Long: 检查配置语法和语义，包括忽略规则表达式
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.GetConfigPath()
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		validator := config.NewConfigValidator()
		if err := validator.ValidateSyntax(data).Err(); err != nil {
			return err
		}

		cfg, err := config.ParseGlobalConfig(data)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		result := validator.Validate(cfg)
		for _, w := range result.Warnings {
			fmt.Fprintf(out, "[WARN] %s: %s\n", w.Field, w.Message)
		}
		if err := result.Err(); err != nil {
			return err
		}

		fmt.Fprintf(out, "[OK] Configuration test passed: %s\n", path)
		return nil
	},
}
