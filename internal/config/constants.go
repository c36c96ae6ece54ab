package config

const (
	// DefaultConfigPath is the standard location for the forbidlog configuration file.
	// DefaultConfigPath 是 forbidlog 配置文件的标准位置。
	DefaultConfigPath = "/etc/forbidlog/config.yaml"

	// DefaultLogPath is where the diagnostic log is written when file logging is enabled.
	// Point the ban daemon's logpath at this file.
	// DefaultLogPath 是启用文件日志时诊断日志的写入位置，ban 守护进程应监视此文件。
	DefaultLogPath = "/var/log/forbidlog/forbidden.log"

	// Sink names
	// Sink 名称
	SinkLogger = "logger"
	SinkStderr = "stderr"
	SinkStdout = "stdout"

	DefaultProxyListen     = ":8080"
	DefaultMetricsListen   = ":9403"
	DefaultMetricsPath     = "/metrics"
	DefaultShutdownTimeout = "5s"
)
