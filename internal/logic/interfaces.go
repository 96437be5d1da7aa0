package logic

import (
	"context"

	"github.com/gdlist/list-api/internal/models"
)

// LevelLoader defines the retrieval collaborator the service aggregates over
type LevelLoader interface {
	FetchList(ctx context.Context) ([]models.LevelResult, error)
	FetchEditors(ctx context.Context) ([]models.Editor, error)
}

// ListService serves the list, the leaderboard and the editors
type ListService interface {
	GetList(ctx context.Context) ([]models.ListItem, error)
	GetLevel(ctx context.Context, rank int) (*models.LevelDetail, error)
	GetLeaderboard(ctx context.Context, limit, page int) (*models.LeaderboardPage, error)
	GetPlayer(ctx context.Context, user string) (*models.LeaderboardRow, error)
	GetEditors(ctx context.Context) ([]models.Editor, error)
	Refresh(ctx context.Context) (*models.SnapshotInfo, error)
	Info() (*models.SnapshotInfo, bool)
}
