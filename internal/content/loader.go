// Package content loads the list, its levels and its editors from a data
// source. Levels are fetched in parallel; a level that fails to load is
// reported in its slot instead of failing the whole list.
package content

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gdlist/list-api/internal/models"
)

const (
	ListDocument    = "list.json"
	EditorsDocument = "editors.json"
)

// Prometheus metrics
var (
	levelsLoaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gdlist_levels_loaded_total",
		Help: "Total number of level documents loaded successfully",
	})

	levelsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gdlist_levels_failed_total",
		Help: "Total number of level documents that failed to load",
	})

	listFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gdlist_list_fetch_duration_seconds",
		Help:    "Duration of a full list fetch including every level",
		Buckets: prometheus.DefBuckets,
	})
)

// LoaderConfig configures a Loader
type LoaderConfig struct {
	Source      Source
	Concurrency int
	Logger      *zap.Logger
}

// Loader is the retrieval side of the leaderboard: it turns a Source into
// the rank-ordered level sequence the aggregator consumes.
type Loader struct {
	source      Source
	concurrency int
	validate    *validator.Validate
	logger      *zap.SugaredLogger
}

// NewLoader creates a Loader
func NewLoader(cfg LoaderConfig) *Loader {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 16
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Loader{
		source:      cfg.Source,
		concurrency: cfg.Concurrency,
		validate:    validator.New(),
		logger:      cfg.Logger.Sugar(),
	}
}

// FetchList reads list.json and every level it names. The result has one
// entry per list position, in rank order. Only a failure to read or parse
// list.json itself is returned as an error.
func (l *Loader) FetchList(ctx context.Context) ([]models.LevelResult, error) {
	start := time.Now()
	defer func() { listFetchDuration.Observe(time.Since(start).Seconds()) }()

	paths, err := l.fetchPaths(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]models.LevelResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)

	for i, path := range paths {
		g.Go(func() error {
			level, err := l.FetchLevel(gctx, path)
			if err != nil {
				levelsFailed.Inc()
				l.logger.Warnw("Failed to load level", "rank", i+1, "path", path, "error", err)
				results[i] = models.LevelResult{Path: path, Err: err}
				return nil
			}
			levelsLoaded.Inc()
			results[i] = models.LevelResult{Path: path, Level: level}
			return nil
		})
	}

	// Per-level failures are captured in results; Wait never reports them.
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fetch list: %w", err)
	}
	return results, nil
}

// FetchLevel reads and decodes one level document. Records come back sorted
// by percent descending.
func (l *Loader) FetchLevel(ctx context.Context, path string) (*models.Level, error) {
	data, err := l.source.Read(ctx, path+".json")
	if err != nil {
		return nil, err
	}

	var level models.Level
	if err := json.Unmarshal(data, &level); err != nil {
		return nil, fmt.Errorf("decode %s.json: %w", path, err)
	}
	if err := l.validate.Struct(&level); err != nil {
		return nil, fmt.Errorf("validate %s.json: %w", path, err)
	}

	level.Path = path
	slices.SortStableFunc(level.Records, func(a, b models.Record) int {
		return cmp.Compare(b.Percent, a.Percent)
	})
	return &level, nil
}

// FetchEditors reads editors.json. A missing file is not an error.
func (l *Loader) FetchEditors(ctx context.Context) ([]models.Editor, error) {
	data, err := l.source.Read(ctx, EditorsDocument)
	if errors.Is(err, ErrNotFound) {
		return []models.Editor{}, nil
	}
	if err != nil {
		return nil, err
	}

	var editors []models.Editor
	if err := json.Unmarshal(data, &editors); err != nil {
		return nil, fmt.Errorf("decode %s: %w", EditorsDocument, err)
	}

	valid := make([]models.Editor, 0, len(editors))
	for _, e := range editors {
		if err := l.validate.Struct(&e); err != nil {
			l.logger.Warnw("Skipping invalid editor", "name", e.Name, "error", err)
			continue
		}
		valid = append(valid, e)
	}
	return valid, nil
}

// Validate exposes the loader's validator for record-level checks.
func (l *Loader) Validate(v any) error {
	return l.validate.Struct(v)
}

func (l *Loader) fetchPaths(ctx context.Context) ([]string, error) {
	data, err := l.source.Read(ctx, ListDocument)
	if err != nil {
		return nil, fmt.Errorf("fetch list: %w", err)
	}

	var paths []string
	if err := json.Unmarshal(data, &paths); err != nil {
		return nil, fmt.Errorf("fetch list: %s is not an array of paths: %w", ListDocument, err)
	}

	for i, p := range paths {
		paths[i] = strings.TrimSpace(p)
	}
	return paths, nil
}
