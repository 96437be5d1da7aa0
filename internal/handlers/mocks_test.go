package handlers

import (
	"context"

	"github.com/gdlist/list-api/internal/models"
)

// MockListService
type MockListService struct {
	GetListFunc        func(ctx context.Context) ([]models.ListItem, error)
	GetLevelFunc       func(ctx context.Context, rank int) (*models.LevelDetail, error)
	GetLeaderboardFunc func(ctx context.Context, limit, page int) (*models.LeaderboardPage, error)
	GetPlayerFunc      func(ctx context.Context, user string) (*models.LeaderboardRow, error)
	GetEditorsFunc     func(ctx context.Context) ([]models.Editor, error)
	RefreshFunc        func(ctx context.Context) (*models.SnapshotInfo, error)
	InfoFunc           func() (*models.SnapshotInfo, bool)
}

func (m *MockListService) GetList(ctx context.Context) ([]models.ListItem, error) {
	if m.GetListFunc != nil {
		return m.GetListFunc(ctx)
	}
	return []models.ListItem{}, nil
}

func (m *MockListService) GetLevel(ctx context.Context, rank int) (*models.LevelDetail, error) {
	if m.GetLevelFunc != nil {
		return m.GetLevelFunc(ctx, rank)
	}
	return &models.LevelDetail{Rank: rank}, nil
}

func (m *MockListService) GetLeaderboard(ctx context.Context, limit, page int) (*models.LeaderboardPage, error) {
	if m.GetLeaderboardFunc != nil {
		return m.GetLeaderboardFunc(ctx, limit, page)
	}
	return &models.LeaderboardPage{Limit: limit, Page: page, Entries: []models.LeaderboardRow{}}, nil
}

func (m *MockListService) GetPlayer(ctx context.Context, user string) (*models.LeaderboardRow, error) {
	if m.GetPlayerFunc != nil {
		return m.GetPlayerFunc(ctx, user)
	}
	return &models.LeaderboardRow{Position: 1, PlayerEntry: models.PlayerEntry{User: user}}, nil
}

func (m *MockListService) GetEditors(ctx context.Context) ([]models.Editor, error) {
	if m.GetEditorsFunc != nil {
		return m.GetEditorsFunc(ctx)
	}
	return []models.Editor{}, nil
}

func (m *MockListService) Refresh(ctx context.Context) (*models.SnapshotInfo, error) {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx)
	}
	return &models.SnapshotInfo{ID: "mock"}, nil
}

func (m *MockListService) Info() (*models.SnapshotInfo, bool) {
	if m.InfoFunc != nil {
		return m.InfoFunc()
	}
	return &models.SnapshotInfo{ID: "mock"}, true
}
