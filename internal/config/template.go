package config

// DefaultConfigTemplate is written by "forbidlog init". Keep it in sync with DefaultConfig.
// DefaultConfigTemplate 由 "forbidlog init" 写入，需与 DefaultConfig 保持一致。
const DefaultConfigTemplate = `# forbidlog Configuration File / forbidlog 配置文件
#

# Diagnostic Log / 诊断日志
# Forbidden-access lines go here when forbidden.sink is "logger".
# 当 forbidden.sink 为 "logger" 时，禁止访问日志行写入此处。
logging:
  # Write to a rotated file instead of stderr.
  # 写入轮转文件而不是 stderr。
  enabled: false
  level: "info"
  path: "/var/log/forbidlog/forbidden.log"
  max_size: 10      # MB
  max_backups: 3
  max_age: 30       # days / 天
  compress: true

# Forbidden Access Logging / 禁止访问日志
forbidden:
  # Reported as the entry point ("<entry" at the end of the line). Empty = executable name.
  # 作为入口报告（行尾的 "<entry"）。为空时使用可执行文件名。
  entry: ""

  # Sink: logger | stderr | stdout
  sink: "logger"

  # Level used by the logger sink. The line is written regardless of logging.level.
  # logger sink 使用的级别，无论 logging.level 如何都会写入。
  level: "warn"

  # Prefix lines with "[client <ip>]" so fail2ban can extract <HOST>.
  # 在行首添加 "[client <ip>]"，便于 fail2ban 提取 <HOST>。
  client_prefix: true

  # Proxies whose X-Forwarded-For / X-Real-IP headers are trusted.
  # 信任其 X-Forwarded-For / X-Real-IP 头的代理。
  trusted_proxies: []

  # Ignore rules (expr syntax). Fields: Path, Method, Host, Client, UserAgent, Entry.
  # Functions: Header(name), InCIDR(cidr), Lower(s).
  # 忽略规则（expr 语法）。
  ignore: []
  #  - 'Path startsWith "/healthz"'
  #  - 'InCIDR("10.0.0.0/8")'

# Reverse Proxy / 反向代理
proxy:
  listen: ":8080"
  upstream: ""
  preserve_host: false
  shutdown_timeout: "5s"
  # Read PROXY protocol v1/v2 headers from forbidden.trusted_proxies (e.g. HAProxy send-proxy)
  # 从 forbidden.trusted_proxies 读取 PROXY 协议 v1/v2 头（如 HAProxy send-proxy）
  proxy_protocol: false

# Prometheus Metrics / Prometheus 指标
metrics:
  enabled: false
  listen: ":9403"
  path: "/metrics"
`
