// Package worker keeps the leaderboard snapshot current in the background.
// Refresh requests are coalesced through a single-slot queue:
// - an interval ticker recomputes periodically
// - filesystem changes in the data directory trigger a debounced refresh
// - manual triggers are dropped while one is already pending

package worker

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/gdlist/list-api/internal/models"
)

// Prometheus metrics
var (
	triggersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gdlist_refresh_triggers_total",
		Help: "Total number of refresh triggers by source",
	}, []string{"source"})

	triggersDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gdlist_refresh_triggers_dropped_total",
		Help: "Total number of refresh triggers coalesced into a pending refresh",
	})

	refreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gdlist_refresh_duration_seconds",
		Help:    "Duration of background snapshot refreshes",
		Buckets: prometheus.DefBuckets,
	})
)

// Trigger sources
const (
	SourceStartup  = "startup"
	SourceInterval = "interval"
	SourceWatch    = "watch"
	SourceManual   = "manual"
)

// Refreshable is the part of the list service the refresher drives
type Refreshable interface {
	Refresh(ctx context.Context) (*models.SnapshotInfo, error)
}

// RefresherConfig configures the refresher
type RefresherConfig struct {
	Service  Refreshable
	Interval time.Duration
	// WatchDir enables filesystem-triggered refreshes when non-empty
	WatchDir string
	Debounce time.Duration
	Timeout  time.Duration
	Logger   *zap.Logger
}

// Refresher recomputes the snapshot on a schedule and on demand
type Refresher struct {
	config  RefresherConfig
	pending chan string
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *zap.SugaredLogger
	watcher *dataWatcher
}

// NewRefresher creates a new refresher
func NewRefresher(cfg RefresherConfig) *Refresher {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Refresher{
		config:  cfg,
		pending: make(chan string, 1),
		logger:  cfg.Logger.Sugar(),
	}
}

// Start launches the refresh loop and, if configured, the data watcher.
// An initial refresh is queued immediately.
func (r *Refresher) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	if r.config.WatchDir != "" {
		w, err := newDataWatcher(r.config.WatchDir, r.config.Debounce, r.logger, func() {
			r.trigger(SourceWatch)
		})
		if err != nil {
			r.cancel()
			return err
		}
		r.watcher = w
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			w.run(r.ctx)
		}()
	}

	r.wg.Add(1)
	go r.loop()

	r.trigger(SourceStartup)

	r.logger.Infow("Refresher started",
		"interval", r.config.Interval,
		"watchDir", r.config.WatchDir,
	)
	return nil
}

// Stop cancels the loop and waits for an in-flight refresh to finish
func (r *Refresher) Stop() {
	r.logger.Info("Stopping refresher...")
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	if r.watcher != nil {
		r.watcher.close()
	}
	r.logger.Info("Refresher stopped")
}

// Trigger queues a manual refresh. It returns false when a refresh is
// already pending and this request was coalesced into it.
func (r *Refresher) Trigger() bool {
	return r.trigger(SourceManual)
}

func (r *Refresher) trigger(source string) bool {
	triggersTotal.WithLabelValues(source).Inc()
	select {
	case r.pending <- source:
		return true
	default:
		triggersDropped.Inc()
		return false
	}
}

func (r *Refresher) loop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case source := <-r.pending:
			r.refresh(source)

		case <-ticker.C:
			triggersTotal.WithLabelValues(SourceInterval).Inc()
			r.refresh(SourceInterval)

		case <-r.ctx.Done():
			return
		}
	}
}

func (r *Refresher) refresh(source string) {
	ctx, cancel := context.WithTimeout(r.ctx, r.config.Timeout)
	defer cancel()

	start := time.Now()
	info, err := r.config.Service.Refresh(ctx)
	refreshDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		r.logger.Errorw("Refresh failed", "source", source, "error", err)
		return
	}
	r.logger.Infow("Refresh complete",
		"source", source,
		"snapshot", info.ID,
		"players", info.Players,
		"errors", len(info.Errors),
		"duration", time.Since(start),
	)
}
