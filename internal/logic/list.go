package logic

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/gdlist/list-api/internal/cache"
	"github.com/gdlist/list-api/internal/leaderboard"
	"github.com/gdlist/list-api/internal/models"
	"github.com/gdlist/list-api/internal/scoring"
)

// SnapshotKey is the cache key the computed snapshot is stored under
const SnapshotKey = "gdlist:snapshot"

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

// retryBackoff caps how long readers are served a stale snapshot without
// another recompute attempt after one failed.
const retryBackoff = 30 * time.Second

var (
	ErrNoSnapshot       = errors.New("no snapshot available")
	ErrLevelNotFound    = errors.New("level not found")
	ErrLevelUnavailable = errors.New("level failed to load")
	ErrPlayerNotFound   = errors.New("player not found")
)

// Prometheus metrics
var (
	refreshesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gdlist_refreshes_total",
		Help: "Total number of snapshot recomputations",
	})

	refreshFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gdlist_refresh_failures_total",
		Help: "Total number of snapshot recomputations that failed",
	})

	aggregateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gdlist_aggregate_duration_seconds",
		Help:    "Duration of a leaderboard aggregation pass",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	})

	leaderboardPlayers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gdlist_leaderboard_players",
		Help: "Number of players on the current leaderboard",
	})

	skippedRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gdlist_skipped_records",
		Help: "Number of malformed records left out of the current leaderboard",
	})
)

// Snapshot is one computed view of the list and its leaderboard.
type Snapshot struct {
	ID          string
	GeneratedAt time.Time
	Levels      []models.LevelResult
	Editors     []models.Editor
	Result      leaderboard.Result

	// positions maps a case-folded user to its leaderboard index
	positions map[string]int
}

// ServiceConfig configures the list service
type ServiceConfig struct {
	Loader LevelLoader
	Cache  cache.Store
	TTL    time.Duration
	Logger *zap.Logger
}

type listService struct {
	loader LevelLoader
	store  cache.Store
	ttl    time.Duration
	logger *zap.SugaredLogger
	now    func() time.Time

	mu      sync.RWMutex
	current *Snapshot
	// retryAt is when a failed recompute may be attempted again
	retryAt time.Time

	// refreshMu collapses concurrent recomputations into one
	refreshMu sync.Mutex
}

func NewListService(cfg ServiceConfig) ListService {
	return newListService(cfg)
}

func newListService(cfg ServiceConfig) *listService {
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.NewMemoryStore(time.Minute)
	}
	return &listService{
		loader: cfg.Loader,
		store:  cfg.Cache,
		ttl:    cfg.TTL,
		logger: cfg.Logger.Sugar(),
		now:    time.Now,
	}
}

// GetList returns every list position with its level name or load error
func (s *listService) GetList(ctx context.Context) ([]models.ListItem, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]models.ListItem, 0, len(snap.Levels))
	for i, lr := range snap.Levels {
		item := models.ListItem{Rank: i + 1, Path: lr.Path, Legacy: scoring.Legacy(i + 1)}
		if lr.Failed() {
			item.Error = fmt.Sprintf("Failed to load level. (%s.json)", lr.Path)
		} else {
			item.Name = lr.Level.Name
		}
		items = append(items, item)
	}
	return items, nil
}

// GetLevel returns the level at rank with its points and qualification rule
func (s *listService) GetLevel(ctx context.Context, rank int) (*models.LevelDetail, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if rank < 1 || rank > len(snap.Levels) {
		return nil, fmt.Errorf("rank %d: %w", rank, ErrLevelNotFound)
	}

	lr := snap.Levels[rank-1]
	if lr.Failed() {
		return nil, fmt.Errorf("%s.json: %w", lr.Path, ErrLevelUnavailable)
	}

	return &models.LevelDetail{
		Rank:          rank,
		Points:        scoring.MaxScore(rank, lr.Level.PercentToQualify),
		Qualification: scoring.Qualification(rank, lr.Level.PercentToQualify),
		Level:         lr.Level,
	}, nil
}

// GetLeaderboard returns one page of the leaderboard
func (s *listService) GetLeaderboard(ctx context.Context, limit, page int) (*models.LeaderboardPage, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	if limit <= 0 || limit > MaxLimit {
		limit = DefaultLimit
	}
	if page <= 0 {
		page = 1
	}

	board := snap.Result.Leaderboard
	offset := len(board)
	// Compare before multiplying so huge pages cannot overflow.
	if page-1 <= len(board)/limit {
		offset = min((page-1)*limit, len(board))
	}
	end := min(offset+limit, len(board))

	rows := make([]models.LeaderboardRow, 0, end-offset)
	for i := offset; i < end; i++ {
		rows = append(rows, models.LeaderboardRow{Position: i + 1, PlayerEntry: board[i]})
	}

	return &models.LeaderboardPage{
		SnapshotID:  snap.ID,
		GeneratedAt: snap.GeneratedAt,
		Total:       len(board),
		Page:        page,
		Limit:       limit,
		Entries:     rows,
		Errors:      snap.Result.Errors,
	}, nil
}

// GetPlayer returns a player's leaderboard row; user is matched case-insensitively
func (s *listService) GetPlayer(ctx context.Context, user string) (*models.LeaderboardRow, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	idx, ok := snap.positions[leaderboard.Key(user)]
	if !ok {
		return nil, fmt.Errorf("%q: %w", user, ErrPlayerNotFound)
	}
	return &models.LeaderboardRow{Position: idx + 1, PlayerEntry: snap.Result.Leaderboard[idx]}, nil
}

// GetEditors returns the list staff
func (s *listService) GetEditors(ctx context.Context) ([]models.Editor, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Editors, nil
}

// Refresh recomputes the snapshot from the loader regardless of its age
func (s *listService) Refresh(ctx context.Context) (*models.SnapshotInfo, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	snap, err := s.rebuild(ctx)
	if err != nil {
		return nil, err
	}
	return snap.info(), nil
}

// Info describes the current snapshot without loading one
func (s *listService) Info() (*models.SnapshotInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, false
	}
	return s.current.info(), true
}

// snapshot returns a snapshot no older than the TTL, loading it from the
// cache or recomputing it when needed. A stale snapshot is served when
// recomputation fails.
func (s *listService) snapshot(ctx context.Context) (*Snapshot, error) {
	if snap := s.fresh(); snap != nil {
		return snap, nil
	}
	if snap := s.backingOff(); snap != nil {
		return snap, nil
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	// Another caller may have refreshed or failed while we waited
	if snap := s.fresh(); snap != nil {
		return snap, nil
	}
	if snap := s.backingOff(); snap != nil {
		return snap, nil
	}

	if snap, err := s.loadCached(ctx); err == nil {
		s.set(snap)
		return snap, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warnw("Failed to read cached snapshot", "error", err)
	}

	snap, err := s.rebuild(ctx)
	if err != nil {
		s.mu.Lock()
		stale := s.current
		if stale != nil {
			s.retryAt = s.now().Add(min(retryBackoff, s.ttl))
		}
		s.mu.Unlock()
		if stale != nil {
			s.logger.Warnw("Serving stale snapshot", "snapshot", stale.ID, "retry_in", min(retryBackoff, s.ttl), "error", err)
			return stale, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrNoSnapshot, err)
	}
	return snap, nil
}

func (s *listService) fresh() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current != nil && s.now().Sub(s.current.GeneratedAt) < s.ttl {
		return s.current
	}
	return nil
}

// backingOff returns the stale snapshot while a failed recompute is in its
// retry window.
func (s *listService) backingOff() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current != nil && s.now().Before(s.retryAt) {
		return s.current
	}
	return nil
}

func (s *listService) set(snap *Snapshot) {
	s.mu.Lock()
	s.current = snap
	s.retryAt = time.Time{}
	s.mu.Unlock()

	leaderboardPlayers.Set(float64(len(snap.Result.Leaderboard)))
	skippedRecords.Set(float64(len(snap.Result.Skipped)))
}

// rebuild fetches, aggregates, publishes and caches a new snapshot.
// Callers must hold refreshMu.
func (s *listService) rebuild(ctx context.Context) (*Snapshot, error) {
	refreshesTotal.Inc()

	levels, err := s.loader.FetchList(ctx)
	if err != nil {
		refreshFailures.Inc()
		s.logger.Errorw("Failed to load list", "error", err)
		return nil, err
	}

	editors, err := s.loader.FetchEditors(ctx)
	if err != nil {
		s.logger.Warnw("Failed to load editors", "error", err)
		editors = []models.Editor{}
	}

	start := time.Now()
	result := leaderboard.Aggregate(levels)
	aggregateDuration.Observe(time.Since(start).Seconds())

	for _, sk := range result.Skipped {
		s.logger.Warnw("Skipped malformed record",
			"rank", sk.Rank,
			"level", sk.Level,
			"user", sk.User,
			"percent", sk.Percent,
			"reason", sk.Reason,
		)
	}

	snap := newSnapshot(uuid.NewString(), s.now(), levels, editors, result)
	s.set(snap)

	s.logger.Infow("Snapshot computed",
		"snapshot", snap.ID,
		"levels", len(levels),
		"players", len(result.Leaderboard),
		"errors", len(result.Errors),
		"skipped", len(result.Skipped),
		"duration", time.Since(start),
	)

	if err := s.storeCached(ctx, snap); err != nil {
		s.logger.Warnw("Failed to cache snapshot", "snapshot", snap.ID, "error", err)
	}
	return snap, nil
}

func newSnapshot(id string, at time.Time, levels []models.LevelResult, editors []models.Editor, result leaderboard.Result) *Snapshot {
	positions := make(map[string]int, len(result.Leaderboard))
	for i, e := range result.Leaderboard {
		positions[leaderboard.Key(e.User)] = i
	}
	if editors == nil {
		editors = []models.Editor{}
	}
	return &Snapshot{
		ID:          id,
		GeneratedAt: at,
		Levels:      levels,
		Editors:     editors,
		Result:      result,
		positions:   positions,
	}
}

func (snap *Snapshot) info() *models.SnapshotInfo {
	return &models.SnapshotInfo{
		ID:          snap.ID,
		GeneratedAt: snap.GeneratedAt,
		Levels:      len(snap.Levels),
		Players:     len(snap.Result.Leaderboard),
		Errors:      snap.Result.Errors,
		Skipped:     len(snap.Result.Skipped),
	}
}
