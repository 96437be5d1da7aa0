package logic

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gdlist/list-api/internal/cache"
	"github.com/gdlist/list-api/internal/models"
	"github.com/gdlist/list-api/internal/scoring"
)

// MockLoader implements LevelLoader for testing
type MockLoader struct {
	FetchListFunc    func(ctx context.Context) ([]models.LevelResult, error)
	FetchEditorsFunc func(ctx context.Context) ([]models.Editor, error)
	calls            atomic.Int32
}

func (m *MockLoader) FetchList(ctx context.Context) ([]models.LevelResult, error) {
	m.calls.Add(1)
	if m.FetchListFunc != nil {
		return m.FetchListFunc(ctx)
	}
	return nil, nil
}

func (m *MockLoader) FetchEditors(ctx context.Context) ([]models.Editor, error) {
	if m.FetchEditorsFunc != nil {
		return m.FetchEditorsFunc(ctx)
	}
	return nil, nil
}

func sampleLevels() []models.LevelResult {
	return []models.LevelResult{
		{Path: "a", Level: &models.Level{Name: "A", Path: "a", PercentToQualify: 60, Records: []models.Record{
			{User: "Alice", Percent: 100, Link: "a"},
		}}},
		{Path: "b", Level: &models.Level{Name: "B", Path: "b", PercentToQualify: 70, Records: []models.Record{
			{User: "alice", Percent: 80, Link: "b"},
			{User: "Bob", Percent: 100, Link: "c"},
		}}},
		{Path: "c", Err: errors.New("404")},
	}
}

func newTestService(loader LevelLoader) *listService {
	return newListService(ServiceConfig{Loader: loader, TTL: time.Minute})
}

func TestGetLeaderboard(t *testing.T) {
	svc := newTestService(&MockLoader{FetchListFunc: func(ctx context.Context) ([]models.LevelResult, error) {
		return sampleLevels(), nil
	}})

	page, err := svc.GetLeaderboard(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("GetLeaderboard: %v", err)
	}
	if page.Total != 2 || len(page.Entries) != 2 {
		t.Fatalf("Total = %d, entries = %d, want 2/2", page.Total, len(page.Entries))
	}
	if page.Limit != DefaultLimit || page.Page != 1 {
		t.Errorf("Limit/Page = %d/%d, want %d/1", page.Limit, page.Page, DefaultLimit)
	}
	if page.Entries[0].User != "Alice" || page.Entries[0].Position != 1 {
		t.Errorf("Entries[0] = %+v, want Alice at 1", page.Entries[0])
	}
	want := scoring.Round(scoring.Score(1, 100, 60) + scoring.Score(2, 80, 70))
	if page.Entries[0].Total != want {
		t.Errorf("Alice total = %v, want %v", page.Entries[0].Total, want)
	}
	if len(page.Errors) != 1 || page.Errors[0] != "c" {
		t.Errorf("Errors = %v, want [c]", page.Errors)
	}
	if page.SnapshotID == "" {
		t.Error("SnapshotID should be set")
	}
}

func TestGetLeaderboard_Pagination(t *testing.T) {
	svc := newTestService(&MockLoader{FetchListFunc: func(ctx context.Context) ([]models.LevelResult, error) {
		return sampleLevels(), nil
	}})

	page, err := svc.GetLeaderboard(context.Background(), 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Entries) != 1 || page.Entries[0].User != "Bob" || page.Entries[0].Position != 2 {
		t.Errorf("page 2 = %+v, want Bob at 2", page.Entries)
	}

	page, err = svc.GetLeaderboard(context.Background(), 10, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Entries) != 0 || page.Entries == nil {
		t.Errorf("past-the-end page = %#v, want empty non-nil", page.Entries)
	}
}

func TestGetLeaderboard_HugePage(t *testing.T) {
	svc := newTestService(&MockLoader{FetchListFunc: func(ctx context.Context) ([]models.LevelResult, error) {
		return sampleLevels(), nil
	}})

	for _, page := range []int{100000000000000001, math.MaxInt, math.MaxInt/MaxLimit + 2} {
		got, err := svc.GetLeaderboard(context.Background(), MaxLimit, page)
		if err != nil {
			t.Fatalf("page %d: %v", page, err)
		}
		if len(got.Entries) != 0 || got.Entries == nil {
			t.Errorf("page %d entries = %#v, want empty non-nil", page, got.Entries)
		}
		if got.Total != 2 || got.Page != page {
			t.Errorf("page %d: Total/Page = %d/%d", page, got.Total, got.Page)
		}
	}
}

func TestGetList_Legacy(t *testing.T) {
	levels := make([]models.LevelResult, scoring.ExtendedListSize+2)
	for i := range levels {
		path := fmt.Sprintf("l%d", i+1)
		levels[i] = models.LevelResult{Path: path, Level: &models.Level{Name: path, Path: path}}
	}
	svc := newTestService(&MockLoader{FetchListFunc: func(ctx context.Context) ([]models.LevelResult, error) {
		return levels, nil
	}})

	items, err := svc.GetList(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != len(levels) {
		t.Fatalf("items = %d, want %d", len(items), len(levels))
	}
	for _, item := range items {
		want := item.Rank > scoring.ExtendedListSize
		if item.Legacy != want {
			t.Errorf("rank %d Legacy = %v, want %v", item.Rank, item.Legacy, want)
		}
	}
}

func TestGetPlayer_CaseInsensitive(t *testing.T) {
	svc := newTestService(&MockLoader{FetchListFunc: func(ctx context.Context) ([]models.LevelResult, error) {
		return sampleLevels(), nil
	}})

	row, err := svc.GetPlayer(context.Background(), "ALICE")
	if err != nil {
		t.Fatalf("GetPlayer: %v", err)
	}
	if row.User != "Alice" || len(row.Completed) != 1 || len(row.Progressed) != 1 {
		t.Errorf("row = %+v", row)
	}

	_, err = svc.GetPlayer(context.Background(), "nobody")
	if !errors.Is(err, ErrPlayerNotFound) {
		t.Errorf("err = %v, want ErrPlayerNotFound", err)
	}
}

func TestGetLevelAndList(t *testing.T) {
	svc := newTestService(&MockLoader{FetchListFunc: func(ctx context.Context) ([]models.LevelResult, error) {
		return sampleLevels(), nil
	}})
	ctx := context.Background()

	detail, err := svc.GetLevel(ctx, 2)
	if err != nil {
		t.Fatalf("GetLevel: %v", err)
	}
	if detail.Level.Name != "B" || detail.Points != scoring.MaxScore(2, 70) {
		t.Errorf("detail = %+v", detail)
	}
	if detail.Qualification != "70% or better to qualify" {
		t.Errorf("Qualification = %q", detail.Qualification)
	}

	if _, err := svc.GetLevel(ctx, 3); !errors.Is(err, ErrLevelUnavailable) {
		t.Errorf("errored level: err = %v", err)
	}
	if _, err := svc.GetLevel(ctx, 4); !errors.Is(err, ErrLevelNotFound) {
		t.Errorf("out of range: err = %v", err)
	}
	if _, err := svc.GetLevel(ctx, 0); !errors.Is(err, ErrLevelNotFound) {
		t.Errorf("rank 0: err = %v", err)
	}

	items, err := svc.GetList(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 3 {
		t.Fatalf("items = %d, want 3", len(items))
	}
	if items[0].Name != "A" || items[2].Error != "Failed to load level. (c.json)" || items[2].Rank != 3 {
		t.Errorf("items = %+v", items)
	}
}

func TestSnapshot_ReusedWithinTTL(t *testing.T) {
	loader := &MockLoader{FetchListFunc: func(ctx context.Context) ([]models.LevelResult, error) {
		return sampleLevels(), nil
	}}
	svc := newTestService(loader)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.GetList(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if n := loader.calls.Load(); n != 1 {
		t.Errorf("FetchList called %d times, want 1", n)
	}

	if _, err := svc.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if n := loader.calls.Load(); n != 2 {
		t.Errorf("FetchList called %d times after Refresh, want 2", n)
	}
}

func TestSnapshot_ConcurrentCallersShareOneFetch(t *testing.T) {
	release := make(chan struct{})
	loader := &MockLoader{FetchListFunc: func(ctx context.Context) ([]models.LevelResult, error) {
		<-release
		return sampleLevels(), nil
	}}
	svc := newTestService(loader)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.GetLeaderboard(context.Background(), 10, 1); err != nil {
				t.Error(err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := loader.calls.Load(); n != 1 {
		t.Errorf("FetchList called %d times, want 1", n)
	}
}

func TestSnapshot_ServesStaleOnFailure(t *testing.T) {
	fail := false
	loader := &MockLoader{FetchListFunc: func(ctx context.Context) ([]models.LevelResult, error) {
		if fail {
			return nil, errors.New("list.json unreachable")
		}
		return sampleLevels(), nil
	}}
	svc := newTestService(loader)
	clock := time.Now()
	svc.now = func() time.Time { return clock }
	ctx := context.Background()

	first, err := svc.GetLeaderboard(ctx, 10, 1)
	if err != nil {
		t.Fatal(err)
	}

	fail = true
	clock = clock.Add(2 * time.Minute)
	// Drop the cached copy so the service must recompute
	svc.store.Del(ctx, SnapshotKey)

	second, err := svc.GetLeaderboard(ctx, 10, 1)
	if err != nil {
		t.Fatalf("expected stale snapshot, got %v", err)
	}
	if second.SnapshotID != first.SnapshotID {
		t.Errorf("SnapshotID = %s, want stale %s", second.SnapshotID, first.SnapshotID)
	}
}

func TestSnapshot_BacksOffAfterFailure(t *testing.T) {
	fail := false
	loader := &MockLoader{FetchListFunc: func(ctx context.Context) ([]models.LevelResult, error) {
		if fail {
			return nil, errors.New("list.json unreachable")
		}
		return sampleLevels(), nil
	}}
	svc := newTestService(loader)
	clock := time.Now()
	svc.now = func() time.Time { return clock }
	ctx := context.Background()

	if _, err := svc.GetList(ctx); err != nil {
		t.Fatal(err)
	}

	fail = true
	clock = clock.Add(2 * time.Minute)
	svc.store.Del(ctx, SnapshotKey)

	for i := 0; i < 5; i++ {
		if _, err := svc.GetList(ctx); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if got := loader.calls.Load(); got != 2 {
		t.Errorf("fetches = %d, want 2 (one success, one failed retry)", got)
	}

	// Past the retry window the service tries again.
	clock = clock.Add(retryBackoff)
	if _, err := svc.GetList(ctx); err != nil {
		t.Fatal(err)
	}
	if got := loader.calls.Load(); got != 3 {
		t.Errorf("fetches = %d, want 3 after backoff", got)
	}

	// A successful recompute clears the backoff.
	fail = false
	clock = clock.Add(retryBackoff)
	if _, err := svc.GetList(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok := svc.Info(); !ok || !svc.retryAt.IsZero() {
		t.Errorf("retryAt = %v, want cleared", svc.retryAt)
	}
}

func TestSnapshot_NoSnapshotOnFirstFailure(t *testing.T) {
	svc := newTestService(&MockLoader{FetchListFunc: func(ctx context.Context) ([]models.LevelResult, error) {
		return nil, errors.New("down")
	}})

	_, err := svc.GetList(context.Background())
	if !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("err = %v, want ErrNoSnapshot", err)
	}
	if _, ok := svc.Info(); ok {
		t.Error("Info should report no snapshot")
	}
}

func TestSnapshot_LoadedFromCache(t *testing.T) {
	store := cache.NewMemoryStore(time.Minute)
	ctx := context.Background()

	producer := newListService(ServiceConfig{
		Loader: &MockLoader{FetchListFunc: func(ctx context.Context) ([]models.LevelResult, error) {
			return sampleLevels(), nil
		}, FetchEditorsFunc: func(ctx context.Context) ([]models.Editor, error) {
			return []models.Editor{{Role: "owner", Name: "cyklik"}}, nil
		}},
		Cache: store,
		TTL:   time.Minute,
	})
	info, err := producer.Refresh(ctx)
	if err != nil {
		t.Fatal(err)
	}

	consumerLoader := &MockLoader{}
	consumer := newListService(ServiceConfig{Loader: consumerLoader, Cache: store, TTL: time.Minute})

	page, err := consumer.GetLeaderboard(ctx, 10, 1)
	if err != nil {
		t.Fatal(err)
	}
	if consumerLoader.calls.Load() != 0 {
		t.Error("consumer should not fetch when the cache is warm")
	}
	if page.SnapshotID != info.ID {
		t.Errorf("SnapshotID = %s, want %s", page.SnapshotID, info.ID)
	}
	if page.Total != 2 || len(page.Errors) != 1 || page.Errors[0] != "c" {
		t.Errorf("page = %+v", page)
	}

	editors, err := consumer.GetEditors(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(editors) != 1 || editors[0].Name != "cyklik" {
		t.Errorf("editors = %+v", editors)
	}
}

func TestRefresh_EditorsFailureIsNotFatal(t *testing.T) {
	svc := newTestService(&MockLoader{
		FetchListFunc: func(ctx context.Context) ([]models.LevelResult, error) {
			return sampleLevels(), nil
		},
		FetchEditorsFunc: func(ctx context.Context) ([]models.Editor, error) {
			return nil, errors.New("bad editors.json")
		},
	})

	info, err := svc.Refresh(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if info.Levels != 3 || info.Players != 2 || len(info.Errors) != 1 {
		t.Errorf("info = %+v", info)
	}

	editors, err := svc.GetEditors(context.Background())
	if err != nil || editors == nil || len(editors) != 0 {
		t.Errorf("editors = %#v, err = %v", editors, err)
	}
}
