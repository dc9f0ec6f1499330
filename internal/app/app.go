// Package app wires configuration into the running gallery: logger, metrics,
// scanner, cache, status poller and HTTP handler.
package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"genart/internal/config"
	"genart/internal/gallery"
	"genart/internal/metrics"
	"genart/internal/schedule"
	"genart/internal/server"
	"genart/internal/status"
)

// MetricsNamespace prefixes every exported metric.
const MetricsNamespace = "genart"

// ResolveConfig loads genart.yml from workspace (defaults when absent) and
// applies flag and environment overrides from v before validating.
func ResolveConfig(workspace string, v *viper.Viper) (*config.Config, error) {
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if v != nil {
		ApplyOverrides(cfg, v)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EnvPrefix namespaces environment overrides: GENART_STATUS_URL sets status.url.
const EnvPrefix = "GENART"

// BindEnv makes v resolve config keys from GENART_* environment variables.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// ApplyOverrides copies every config key explicitly set in v onto cfg. Keys
// use the file's dotted names, e.g. status.url or GENART_STATUS_URL.
func ApplyOverrides(cfg *config.Config, v *viper.Viper) {
	set := func(key string, apply func(string)) {
		if v.IsSet(key) {
			apply(key)
		}
	}
	set("gallery.root", func(k string) { cfg.Gallery.Root = v.GetString(k) })
	set("gallery.revalidate", func(k string) { cfg.Gallery.Revalidate = v.GetDuration(k) })
	set("status.url", func(k string) { cfg.Status.URL = v.GetString(k) })
	set("status.interval", func(k string) { cfg.Status.Interval = v.GetDuration(k) })
	set("status.timeout", func(k string) { cfg.Status.Timeout = v.GetDuration(k) })
	set("status.idle_agent", func(k string) { cfg.Status.IdleAgent = v.GetString(k) })
	set("schedule.cycle", func(k string) { cfg.Schedule.Cycle = v.GetString(k) })
	set("server.addr", func(k string) { cfg.Server.Addr = v.GetString(k) })
	set("server.base_path", func(k string) { cfg.Server.BasePath = v.GetString(k) })
	set("site.title", func(k string) { cfg.Site.Title = v.GetString(k) })
	set("site.tagline", func(k string) { cfg.Site.Tagline = v.GetString(k) })
	set("log.level", func(k string) { cfg.Log.Level = v.GetString(k) })
	set("log.format", func(k string) { cfg.Log.Format = v.GetString(k) })
}

// NewLogger builds a zap logger for level (debug, info, warn, error) and
// format (json or console).
func NewLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	var zcfg zap.Config
	switch format {
	case "console":
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	case "json", "":
		zcfg = zap.NewProductionConfig()
		zcfg.EncoderConfig.TimeKey = "timestamp"
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zcfg.Sampling = nil
	default:
		return nil, fmt.Errorf("log format %q: want json or console", format)
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	return zcfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
}

// Runtime is the assembled gallery service. Poller is nil when no status URL
// is configured.
type Runtime struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Collector
	Scanner *gallery.Scanner
	Gallery *gallery.Cache
	Cycle   *schedule.Schedule
	Poller  *status.Poller
}

func NewRuntime(cfg *config.Config, logger *zap.Logger) (*Runtime, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cycle, err := schedule.Parse(cfg.Schedule.Cycle)
	if err != nil {
		return nil, err
	}
	collector := metrics.NewCollector(MetricsNamespace)
	scanner := gallery.NewScanner(cfg.Gallery.Root, logger)
	scanner.Observer = collector
	rt := &Runtime{
		Config:  cfg,
		Logger:  logger,
		Metrics: collector,
		Scanner: scanner,
		Gallery: gallery.NewCache(scanner, cfg.Gallery.Revalidate),
		Cycle:   cycle,
	}
	if cfg.Status.URL != "" {
		rt.Poller = status.New(status.NewHTTPFetcher(cfg.Status.URL, cfg.Status.Timeout), status.Options{
			Interval:  cfg.Status.Interval,
			IdleAgent: cfg.Status.IdleAgent,
			Logger:    logger,
			Observer:  collector,
		})
	}
	return rt, nil
}

// Handler builds the HTTP handler for the runtime.
func (rt *Runtime) Handler() (http.Handler, error) {
	return server.New(server.Config{
		Gallery:  rt.Gallery,
		Poller:   rt.Poller,
		Cycle:    rt.Cycle,
		BasePath: rt.Config.Server.BasePath,
		Site:     server.Site{Title: rt.Config.Site.Title, Tagline: rt.Config.Site.Tagline},
		Logger:   rt.Logger,
		Metrics:  rt.Metrics,
	})
}

// Start begins status polling, if configured.
func (rt *Runtime) Start(ctx context.Context) error {
	if rt.Poller == nil {
		rt.Logger.Info("status banner disabled; no status.url configured")
		return nil
	}
	return rt.Poller.Start(ctx)
}

// Stop ends status polling. Nothing is published after it returns.
func (rt *Runtime) Stop() {
	if rt.Poller != nil {
		rt.Poller.Stop()
	}
}
