package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"hackwatch/internal/keywords"
	"hackwatch/internal/notifier"
	"hackwatch/internal/storage"
	"hackwatch/internal/twitter"
	logx "hackwatch/pkg/logx"
)

// Searcher is the read side of a cycle. Implemented by twitter.Client.
type Searcher interface {
	SearchAll(ctx context.Context, queries []twitter.Query, sinceID uint64, limit int) ([]twitter.Tweet, error)
}

// Deliverer is the write side of a cycle. Implemented by notifier.Service.
type Deliverer interface {
	DeliverBatch(ctx context.Context, tweets []twitter.Tweet) int
	DeliverSummary(ctx context.Context, total int, counts []notifier.CategoryCount) error
	DeliverStartup(ctx context.Context, interval time.Duration, categories []string) error
}

type Config struct {
	Interval      time.Duration // cycle period; default 15m
	MaxPerQuery   int           // per-category search limit; default 50
	NotifyStartup bool          // send banner when entering continuous mode
}

// Monitor runs the fetch→categorize→deliver→persist loop.
//
// One cycle completes (or aborts) before the next begins; continuous mode
// schedules cycles with cron's @every and skips a tick if the previous cycle
// is still running. Interval/registry changes from config reload are picked
// up between cycles.
type Monitor struct {
	search  Searcher
	deliver Deliverer
	store   storage.Store
	log     logx.Logger

	mu       sync.Mutex
	cfg      Config
	registry *keywords.Registry

	running bool // overlap guard for cron ticks

	reload chan struct{}
}

func New(cfg Config, registry *keywords.Registry, search Searcher, deliver Deliverer, store storage.Store, log logx.Logger) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.MaxPerQuery <= 0 {
		cfg.MaxPerQuery = 50
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Monitor{
		search:   search,
		deliver:  deliver,
		store:    store,
		log:      log,
		cfg:      cfg,
		registry: registry,
		reload:   make(chan struct{}, 1),
	}
}

// Apply swaps config and registry between cycles. Safe to call concurrently;
// a changed interval reschedules the continuous loop.
func (m *Monitor) Apply(cfg Config, registry *keywords.Registry) {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.MaxPerQuery <= 0 {
		cfg.MaxPerQuery = 50
	}

	m.mu.Lock()
	changed := cfg.Interval != m.cfg.Interval
	m.cfg = cfg
	if registry != nil {
		m.registry = registry
	}
	m.mu.Unlock()

	if changed {
		select {
		case m.reload <- struct{}{}:
		default:
		}
	}
}

func (m *Monitor) snapshot() (Config, *keywords.Registry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg, m.registry
}

// RunOnce executes a single cycle and exits.
func (m *Monitor) RunOnce(ctx context.Context) error {
	m.log.Info("running single check")
	return m.runCycle(ctx)
}

// Run executes cycles until ctx is cancelled. Cancellation is honored
// between cycles; the watermark write inside a cycle is never interrupted.
func (m *Monitor) Run(ctx context.Context) error {
	cfg, reg := m.snapshot()
	m.log.Info("starting continuous monitoring",
		logx.Duration("interval", cfg.Interval),
		logx.Int("categories", len(reg.Names())))

	if cfg.NotifyStartup {
		if err := m.deliver.DeliverStartup(ctx, cfg.Interval, reg.Names()); err != nil {
			m.log.Warn("startup notification failed", logx.Err(err))
		}
	}

	// First cycle immediately; cron only handles the repeats.
	m.tick(ctx)

	for {
		c := cron.New()
		cfg, _ = m.snapshot()
		if _, err := c.AddFunc("@every "+cfg.Interval.String(), func() { m.tick(ctx) }); err != nil {
			return err
		}
		c.Start()

		select {
		case <-ctx.Done():
			// Wait for an in-flight cycle before returning.
			<-c.Stop().Done()
			m.log.Info("monitor stopped")
			return nil
		case <-m.reload:
			<-c.Stop().Done()
			next, _ := m.snapshot()
			m.log.Info("check interval changed; rescheduling",
				logx.Duration("interval", next.Interval))
		}
	}
}

// tick runs one cycle unless the previous one is still going.
func (m *Monitor) tick(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		m.log.Warn("previous cycle still running; skipping this tick")
		return
	}
	m.running = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()

	if ctx.Err() != nil {
		return
	}
	if err := m.runCycle(ctx); err != nil {
		// Degrade to "skip and sleep": the watermark was not advanced, so
		// anything missed is re-fetched next cycle.
		m.log.Error("cycle failed", logx.Err(err))
	}
}
