package app

import (
	"context"
	"fmt"

	"hackwatch/internal/config"
	"hackwatch/internal/keywords"
	"hackwatch/internal/monitor"
	"hackwatch/internal/notifier"
	"hackwatch/internal/storage"
	"hackwatch/internal/telegram"
	"hackwatch/internal/twitter"
	logx "hackwatch/pkg/logx"
)

// App owns the wiring: config manager, log service, storage, the two network
// clients, and the monitor loop.
type App struct {
	cfgm *config.Manager
	logs *logx.Service
	log  logx.Logger

	store storage.Store
	mon   *monitor.Monitor
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logs, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))

	cfgm.SetLogger(logs.Logger().With(logx.String("comp", "config")))
	cfgm.SetValidator(func(ctx context.Context, c *config.Config) error {
		if err := c.Validate(); err != nil {
			return err
		}
		_, err := buildRegistry(c)
		return err
	})

	registry, err := buildRegistry(cfg)
	if err != nil {
		return nil, err
	}

	store, err := openStorage(cfg, logs.Logger().With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}
	log.Info("storage opened", logx.String("driver", cfg.Storage.Driver), logx.String("path", cfg.Storage.Path))

	twTimeout, err := config.ParseDurationField("twitter.timeout", cfg.Twitter.Timeout)
	if err != nil {
		return nil, err
	}
	search, err := twitter.New(twitter.Config{
		BearerToken: cfg.Twitter.BearerToken,
		Timeout:     twTimeout,
		RetryMax:    cfg.Twitter.RetryMax,
	}, logs.Logger().With(logx.String("comp", "twitter")))
	if err != nil {
		return nil, err
	}

	chatID, err := cfg.ChatID()
	if err != nil {
		return nil, err
	}
	tg, err := telegram.New(telegram.Config{
		Token:  cfg.Telegram.BotToken,
		ChatID: chatID,
	}, logs.Logger().With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, fmt.Errorf("telegram setup: %w", err)
	}

	notif := notifier.New(notifier.Config{
		RatePerSec: cfg.Telegram.RatePerSec,
		RetryMax:   cfg.Telegram.RetryMax,
	}, tg, store, logs.Logger().With(logx.String("comp", "notifier")))

	mon := monitor.New(monitorConfig(cfg), registry, search, notif, store,
		logs.Logger().With(logx.String("comp", "monitor")))

	return &App{
		cfgm:  cfgm,
		logs:  logs,
		log:   log,
		store: store,
		mon:   mon,
	}, nil
}

// Run executes either a single check or the continuous loop, blocking until
// done. Continuous mode also starts the config watcher so categories,
// interval, and log settings reload live.
func (a *App) Run(ctx context.Context, once bool) error {
	defer a.close()

	if once {
		return a.mon.RunOnce(ctx)
	}

	go func() {
		if err := a.cfgm.Watch(ctx); err != nil {
			a.log.Warn("config watcher exited", logx.Err(err))
		}
	}()
	go a.applyLoop(ctx)

	return a.mon.Run(ctx)
}

// applyLoop pushes validated config reloads into the running services.
// Credentials and storage are wired once at startup; what reloads live is
// the cycle interval, per-query limit, keyword categories, and log sinks.
func (a *App) applyLoop(ctx context.Context) {
	ch := a.cfgm.Subscribe(4)
	defer a.cfgm.Unsubscribe(ch)
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-ch:
			if !ok || cfg == nil {
				return
			}
			reg, err := buildRegistry(cfg)
			if err != nil {
				// Validator should have caught this; keep the old registry.
				a.log.Warn("reloaded categories rejected", logx.Err(err))
				reg = nil
			}
			a.mon.Apply(monitorConfig(cfg), reg)
			a.logs.Apply(logx.Config{
				Level:   cfg.Logging.Level,
				Console: cfg.Logging.Console,
				File: logx.FileConfig{
					Enabled: cfg.Logging.File.Enabled,
					Path:    cfg.Logging.File.Path,
				},
			})
			a.log.Info("config applied",
				logx.Duration("interval", cfg.Interval()),
				logx.Int("max_per_query", cfg.MaxResultsPerQuery))
		}
	}
}

func (a *App) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("storage close failed", logx.Err(err))
		}
	}
	_ = a.logs.Close()
}

func monitorConfig(cfg *config.Config) monitor.Config {
	notifyStartup := true
	if cfg.NotifyStartup != nil {
		notifyStartup = *cfg.NotifyStartup
	}
	return monitor.Config{
		Interval:      cfg.Interval(),
		MaxPerQuery:   cfg.MaxResultsPerQuery,
		NotifyStartup: notifyStartup,
	}
}

func buildRegistry(cfg *config.Config) (*keywords.Registry, error) {
	if len(cfg.Categories) == 0 {
		return keywords.Default(), nil
	}
	cats := make([]keywords.Category, 0, len(cfg.Categories))
	for _, c := range cfg.Categories {
		cats = append(cats, keywords.Category{
			Name:     c.Name,
			Priority: c.Priority,
			Phrases:  c.Phrases,
		})
	}
	return keywords.New(cats)
}

func openStorage(cfg *config.Config, log logx.Logger) (storage.Store, error) {
	sc := cfg.Storage
	if sc == nil {
		sc = config.Default().Storage
		cfg.Storage = sc
	}
	busy, err := config.ParseDurationField("storage.busy_timeout", sc.BusyTimeout)
	if err != nil {
		return nil, err
	}
	return storage.Open(storage.Config{
		Driver:      sc.Driver,
		Path:        sc.Path,
		BusyTimeout: busy,
	}, log)
}
