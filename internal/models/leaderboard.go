package models

import "time"

// Contribution is one scored record attributed to a player.
// Percent is only set for progress (below 100%).
type Contribution struct {
	Rank    int     `json:"rank"`
	Level   string  `json:"level"`
	Percent float64 `json:"percent,omitempty"`
	Score   float64 `json:"score"`
	Link    string  `json:"link"`
}

// PlayerEntry is one row of the computed leaderboard.
type PlayerEntry struct {
	User       string         `json:"user"`
	Total      float64        `json:"total"`
	Completed  []Contribution `json:"completed"`
	Progressed []Contribution `json:"progressed"`
}

// LeaderboardRow is a PlayerEntry with its 1-based position on the board.
type LeaderboardRow struct {
	Position int `json:"position"`
	PlayerEntry
}

// LeaderboardPage is the paginated leaderboard response.
type LeaderboardPage struct {
	SnapshotID  string           `json:"id"`
	GeneratedAt time.Time        `json:"generatedAt"`
	Total       int              `json:"total"`
	Page        int              `json:"page"`
	Limit       int              `json:"limit"`
	Entries     []LeaderboardRow `json:"entries"`
	Errors      []string         `json:"errors"`
}

// ListItem is one row of the rank-ordered list.
type ListItem struct {
	Rank int    `json:"rank"`
	Path string `json:"path"`
	Name string `json:"name,omitempty"`
	// Legacy marks positions past the extended list; they show no rank.
	Legacy bool   `json:"legacy,omitempty"`
	Error  string `json:"error,omitempty"`
}

// LevelDetail is a level with the values the list page derives from its rank.
type LevelDetail struct {
	Rank          int     `json:"rank"`
	Points        float64 `json:"points"`
	Qualification string  `json:"qualification"`
	Level         *Level  `json:"level"`
}

// SnapshotInfo summarises a computed snapshot.
type SnapshotInfo struct {
	ID          string    `json:"id"`
	GeneratedAt time.Time `json:"generatedAt"`
	Levels      int       `json:"levels"`
	Players     int       `json:"players"`
	Errors      []string  `json:"errors"`
	Skipped     int       `json:"skipped"`
}
