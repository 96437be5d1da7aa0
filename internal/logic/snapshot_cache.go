package logic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gdlist/list-api/internal/cache"
	"github.com/gdlist/list-api/internal/leaderboard"
	"github.com/gdlist/list-api/internal/models"
)

// snapshotDoc is the cached form of a Snapshot. Only the inputs are cached;
// the leaderboard is recomputed on load since aggregation is deterministic.
type snapshotDoc struct {
	ID          string          `json:"id"`
	GeneratedAt time.Time       `json:"generatedAt"`
	Levels      []levelDoc      `json:"levels"`
	Editors     []models.Editor `json:"editors"`
}

type levelDoc struct {
	Path  string        `json:"path"`
	Level *models.Level `json:"level,omitempty"`
	Error string        `json:"error,omitempty"`
}

func (s *listService) storeCached(ctx context.Context, snap *Snapshot) error {
	doc := snapshotDoc{
		ID:          snap.ID,
		GeneratedAt: snap.GeneratedAt,
		Levels:      make([]levelDoc, 0, len(snap.Levels)),
		Editors:     snap.Editors,
	}
	for _, lr := range snap.Levels {
		ld := levelDoc{Path: lr.Path}
		if lr.Failed() {
			ld.Error = "load failed"
			if lr.Err != nil {
				ld.Error = lr.Err.Error()
			}
		} else {
			ld.Level = lr.Level
		}
		doc.Levels = append(doc.Levels, ld)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return s.store.Set(ctx, SnapshotKey, data, s.ttl)
}

func (s *listService) loadCached(ctx context.Context) (*Snapshot, error) {
	data, err := s.store.Get(ctx, SnapshotKey)
	if err != nil {
		return nil, err
	}

	var doc snapshotDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if s.now().Sub(doc.GeneratedAt) >= s.ttl {
		return nil, cache.ErrMiss
	}

	levels := make([]models.LevelResult, 0, len(doc.Levels))
	for _, ld := range doc.Levels {
		lr := models.LevelResult{Path: ld.Path, Level: ld.Level}
		if ld.Error != "" || ld.Level == nil {
			lr.Level = nil
			lr.Err = errors.New(ld.Error)
		}
		levels = append(levels, lr)
	}

	return newSnapshot(doc.ID, doc.GeneratedAt, levels, doc.Editors, leaderboard.Aggregate(levels)), nil
}
