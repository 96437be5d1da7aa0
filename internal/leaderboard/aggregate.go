// Package leaderboard folds every level's records into per-player totals.
package leaderboard

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/gdlist/list-api/internal/models"
	"github.com/gdlist/list-api/internal/scoring"
)

// Skip reasons reported for malformed records.
const (
	ReasonBlankUser    = "blank user"
	ReasonPercentRange = "percent outside (0,100]"
)

// SkippedRecord is a malformed record left out of the leaderboard.
type SkippedRecord struct {
	Rank    int     `json:"rank"`
	Level   string  `json:"level"`
	User    string  `json:"user"`
	Percent float64 `json:"percent"`
	Reason  string  `json:"reason"`
}

// Result is the outcome of one aggregation pass.
type Result struct {
	// Leaderboard is sorted by total descending; ties keep first-seen order.
	Leaderboard []models.PlayerEntry
	// Errors holds the path of every level that failed to load, in rank order.
	Errors []string
	// Skipped holds records that were malformed and contributed nothing.
	Skipped []SkippedRecord
}

type accumulator struct {
	completed  []models.Contribution
	progressed []models.Contribution
}

// Identities resolves user names to a canonical spelling. The first spelling
// seen for a case-insensitive class wins. Names are compared lower-cased,
// not case-folded: "Straße" and "STRASSE" are different players.
type Identities struct {
	caser     cases.Caser
	canonical map[string]string
}

// NewIdentities returns an empty identity index.
func NewIdentities() *Identities {
	return &Identities{
		caser:     cases.Lower(language.Und),
		canonical: make(map[string]string),
	}
}

// Resolve returns the canonical spelling for user, registering user as the
// canonical spelling when its class is new. The second result reports
// whether the class already existed.
func (ids *Identities) Resolve(user string) (string, bool) {
	key := ids.Key(user)
	if c, ok := ids.canonical[key]; ok {
		return c, true
	}
	ids.canonical[key] = user
	return user, false
}

// Key is the lower-cased form two spellings of the same player share.
func (ids *Identities) Key(user string) string {
	return ids.caser.String(user)
}

// Key lower-cases user with a fresh caser; safe for concurrent use.
func Key(user string) string {
	return cases.Lower(language.Und).String(user)
}

// Aggregate scores every record of every loaded level and returns the
// leaderboard, the paths of levels that failed to load and the records that
// were skipped as malformed. levels must be in rank order. Aggregate never
// panics on malformed input and always returns non-nil slices.
func Aggregate(levels []models.LevelResult) Result {
	res := Result{
		Leaderboard: []models.PlayerEntry{},
		Errors:      []string{},
		Skipped:     []SkippedRecord{},
	}

	ids := NewIdentities()
	players := make(map[string]*accumulator)
	var order []string

	for i, lr := range levels {
		rank := i + 1
		if lr.Failed() {
			res.Errors = append(res.Errors, lr.Path)
			continue
		}
		level := lr.Level

		for _, record := range sortedRecords(level.Records) {
			if reason := malformed(record); reason != "" {
				res.Skipped = append(res.Skipped, SkippedRecord{
					Rank:    rank,
					Level:   level.Name,
					User:    record.User,
					Percent: record.Percent,
					Reason:  reason,
				})
				continue
			}

			user, _ := ids.Resolve(record.User)
			acc, ok := players[user]
			if !ok {
				acc = &accumulator{}
				players[user] = acc
				order = append(order, user)
			}

			c := models.Contribution{
				Rank:  rank,
				Level: level.Name,
				Score: scoring.Score(rank, record.Percent, level.PercentToQualify),
				Link:  record.Link,
			}
			if record.Completed() {
				acc.completed = append(acc.completed, c)
				continue
			}
			c.Percent = record.Percent
			acc.progressed = append(acc.progressed, c)
		}
	}

	for _, user := range order {
		acc := players[user]
		total := 0.0
		for _, c := range acc.completed {
			total += c.Score
		}
		for _, c := range acc.progressed {
			total += c.Score
		}
		res.Leaderboard = append(res.Leaderboard, models.PlayerEntry{
			User:       user,
			Total:      scoring.Round(total),
			Completed:  nonNil(acc.completed),
			Progressed: nonNil(acc.progressed),
		})
	}

	slices.SortStableFunc(res.Leaderboard, func(a, b models.PlayerEntry) int {
		return cmp.Compare(b.Total, a.Total)
	})

	return res
}

// sortedRecords returns a copy of records ordered by percent descending.
func sortedRecords(records []models.Record) []models.Record {
	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b models.Record) int {
		return cmp.Compare(b.Percent, a.Percent)
	})
	return out
}

func malformed(r models.Record) string {
	if strings.TrimSpace(r.User) == "" {
		return ReasonBlankUser
	}
	if math.IsNaN(r.Percent) || r.Percent <= 0 || r.Percent > 100 {
		return ReasonPercentRange
	}
	return ""
}

func nonNil(c []models.Contribution) []models.Contribution {
	if c == nil {
		return []models.Contribution{}
	}
	return c
}
