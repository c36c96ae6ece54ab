package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/netxfw/forbidlog/internal/config"
	"github.com/netxfw/forbidlog/internal/forbidden"
	"github.com/netxfw/forbidlog/internal/metrics"
	"github.com/netxfw/forbidlog/internal/middleware"
	"github.com/netxfw/forbidlog/internal/proxy"
	"github.com/netxfw/forbidlog/internal/realip"
	"github.com/netxfw/forbidlog/internal/rules"
	"github.com/netxfw/forbidlog/internal/utils/logger"
	ferrors "github.com/netxfw/forbidlog/pkg/errors"
)

// Streams lets tests replace the process stdout / stderr.
// Streams 允许测试替换进程的 stdout / stderr。
type Streams struct {
	Stdout io.Writer
	Stderr io.Writer
}

// DefaultStreams returns the process streams.
func DefaultStreams() Streams {
	return Streams{Stdout: os.Stdout, Stderr: os.Stderr}
}

/**
 * BuildSink creates the sink named in cfg.
 * The logger sink writes through log, which Init may have pointed at a rotated file.
 * BuildSink 创建 cfg 中指定的 Sink。
 * logger sink 通过 log 写入，log 可能已由 Init 指向轮转文件。
 */
func BuildSink(cfg *config.ForbiddenConfig, log *zap.SugaredLogger, streams Streams) (forbidden.Sink, error) {
	switch cfg.Sink {
	case "", config.SinkLogger:
		return forbidden.NewZapSink(log, logger.ParseLevel(levelOrDefault(cfg.Level))), nil
	case config.SinkStderr:
		return forbidden.NewWriterSink(streams.Stderr), nil
	case config.SinkStdout:
		return forbidden.NewWriterSink(streams.Stdout), nil
	default:
		return nil, fmt.Errorf("%w: %q", ferrors.ErrInvalidSink, cfg.Sink)
	}
}

func levelOrDefault(level string) string {
	if level == "" {
		return "warn"
	}
	return level
}

/**
 * BuildMiddleware wires sink, real IP resolution and ignore rules from cfg.
 * BuildMiddleware 根据 cfg 组装 Sink、真实 IP 解析和忽略规则。
 */
func BuildMiddleware(ctx context.Context, cfg *config.GlobalConfig, streams Streams) (*middleware.Middleware, error) {
	log := logger.Get(ctx)

	sink, err := BuildSink(&cfg.Forbidden, log, streams)
	if err != nil {
		return nil, err
	}

	ignore, err := rules.NewSet(cfg.Forbidden.Ignore)
	if err != nil {
		return nil, err
	}

	return middleware.New(middleware.Options{
		Entry:  cfg.Forbidden.Entry,
		Logger: forbidden.NewLogger(sink, forbidden.WithClientPrefix(cfg.Forbidden.ClientPrefix)),
		RealIP: realip.NewManager(&realip.Config{TrustedProxies: cfg.Forbidden.TrustedProxies}),
		Ignore: ignore,
		Log:    log,
	}), nil
}

/**
 * Emit writes a single line through the configured sink, for checking ban daemon filters.
 * Emit 通过配置的 Sink 写入一行日志，用于检查 ban 守护进程的过滤器。
 */
func Emit(ctx context.Context, cfg *config.GlobalConfig, streams Streams, requestPath string, loadedFiles []string, client string) error {
	sink, err := BuildSink(&cfg.Forbidden, logger.Get(ctx), streams)
	if err != nil {
		return err
	}

	if len(loadedFiles) == 0 {
		entry := cfg.Forbidden.Entry
		if entry == "" {
			entry = middleware.DefaultEntry()
		}
		loadedFiles = []string{entry}
	}

	ev := forbidden.NewEvent(requestPath, loadedFiles)
	if client != "" {
		addr := realip.PeerAddr(client)
		if !addr.IsValid() {
			return ferrors.NewIPError(client)
		}
		ev.Client = addr
	}

	return forbidden.NewLogger(sink, forbidden.WithClientPrefix(cfg.Forbidden.ClientPrefix)).Log(ev)
}

// ReloadFunc re-reads the configuration for a running proxy.
// ReloadFunc 为运行中的代理重新读取配置。
type ReloadFunc func() (*config.GlobalConfig, error)

// ManagerReload reloads through cm and validates the result.
// ManagerReload 通过 cm 重新加载并验证配置。
func ManagerReload(cm *config.ConfigManager) ReloadFunc {
	return func() (*config.GlobalConfig, error) {
		if err := cm.LoadConfig(); err != nil {
			return nil, err
		}
		if err := cm.Validate(); err != nil {
			return nil, err
		}
		return cm.GetConfig(), nil
	}
}

/**
 * Reload swaps in the ignore rules of a freshly loaded configuration.
 * On any error the running rules stay active. Other settings need a restart.
 * Reload 替换为新加载配置中的忽略规则。
 * 出错时保留当前规则，其他设置需要重启后生效。
 */
func Reload(ctx context.Context, mw *middleware.Middleware, reload ReloadFunc) error {
	log := logger.Get(ctx)

	cfg, err := reload()
	if err != nil {
		log.Errorf("[ERROR] Reload failed, keeping current rules: %v", err)
		return err
	}
	if err := mw.Ignore().Update(cfg.Forbidden.Ignore); err != nil {
		log.Errorf("[ERROR] Reload failed, keeping current rules: %v", err)
		return err
	}

	log.Infof("[RELOAD] Ignore rules: %d", mw.Ignore().Len())
	return nil
}

// watchReload calls Reload on every SIGHUP until ctx is done.
// watchReload 在每次收到 SIGHUP 时调用 Reload，直到 ctx 结束。
func watchReload(ctx context.Context, mw *middleware.Middleware, reload ReloadFunc) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		defer signal.Stop(hup)
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				_ = Reload(ctx, mw, reload)
			}
		}
	}()
}

/**
 * RunProxy runs the reverse proxy (and the metrics server when enabled) until ctx is cancelled.
 * A non-nil reload is called on SIGHUP.
 * RunProxy 运行反向代理（以及启用时的指标服务器），直到 ctx 被取消。
 * reload 不为 nil 时，收到 SIGHUP 会调用它。
 */
func RunProxy(ctx context.Context, cfg *config.GlobalConfig, streams Streams, reload ReloadFunc) error {
	log := logger.Get(ctx)

	if cfg.Proxy.Upstream == "" {
		return ferrors.NewConfigError("proxy.upstream", cfg.Proxy.Upstream)
	}
	if err := config.NewConfigValidator().Validate(cfg).Err(); err != nil {
		return err
	}

	mw, err := BuildMiddleware(ctx, cfg, streams)
	if err != nil {
		return err
	}

	srv, err := proxy.NewServer(proxy.Config{
		Listen:          cfg.Proxy.Listen,
		Upstream:        cfg.Proxy.Upstream,
		PreserveHost:    cfg.Proxy.PreserveHost,
		ShutdownTimeout: cfg.Proxy.ShutdownTimeoutDuration(),
		ProxyProtocol:   cfg.Proxy.ProxyProtocol,
		Trusted:         mw.RealIP().IsTrustedProxy,
	}, mw, log)
	if err != nil {
		return err
	}

	stats := mw.RealIP().GetStats()
	log.Infof("[INFO]  Trusted proxy ranges: %v, ignore rules: %d", stats["trusted_proxy_ranges"], mw.Ignore().Len())

	if reload != nil {
		watchReload(ctx, mw, reload)
	}

	if cfg.Metrics.Enabled {
		ms := metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
		ms.Start(ctx)
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Proxy.ShutdownTimeoutDuration())
			defer cancel()
			if err := ms.Stop(stopCtx); err != nil {
				log.Warnf("[WARN]  Metrics server shutdown: %v", err)
			}
		}()
	}

	return srv.ListenAndServe(ctx)
}

// InitOverrides are values written over the defaults by 'init'. Empty fields are left alone.
// InitOverrides 是 'init' 写入并覆盖默认值的设置，空字段保持不变。
type InitOverrides struct {
	Listen        string
	Upstream      string
	Entry         string
	Sink          string
	LogFile       string
	MetricsListen string
}

// IsZero reports whether no override is set.
func (o InitOverrides) IsZero() bool {
	return o == InitOverrides{}
}

/**
 * ApplyOverrides loads cm, applies o, validates and saves the file.
 * Saving rewrites the file, so template comments are dropped.
 * ApplyOverrides 加载 cm，应用 o，验证后保存文件。
 * 保存会重写文件，模板中的注释将丢失。
 */
func ApplyOverrides(ctx context.Context, cm *config.ConfigManager, o InitOverrides) error {
	if o.IsZero() {
		return nil
	}
	if err := cm.LoadConfig(); err != nil {
		return err
	}

	proxyCfg := cm.GetProxyConfig()
	if o.Listen != "" {
		proxyCfg.Listen = o.Listen
	}
	if o.Upstream != "" {
		proxyCfg.Upstream = o.Upstream
	}
	cm.SetProxyConfig(*proxyCfg)

	forbiddenCfg := cm.GetForbiddenConfig()
	if o.Entry != "" {
		forbiddenCfg.Entry = o.Entry
	}
	if o.Sink != "" {
		forbiddenCfg.Sink = o.Sink
	}
	cm.SetForbiddenConfig(*forbiddenCfg)

	if o.LogFile != "" {
		loggingCfg := cm.GetLoggingConfig()
		loggingCfg.Enabled = true
		loggingCfg.Path = o.LogFile
		cm.SetLoggingConfig(*loggingCfg)
	}

	if o.MetricsListen != "" {
		metricsCfg := cm.GetMetricsConfig()
		metricsCfg.Enabled = true
		metricsCfg.Listen = o.MetricsListen
		cm.SetMetricsConfig(*metricsCfg)
	}

	if err := cm.Validate(); err != nil {
		return err
	}
	if err := cm.SaveConfig(); err != nil {
		return err
	}
	logger.Get(ctx).Infof("[FILE] Saved config overrides: %s", cm.GetConfigPath())
	return nil
}
