package main

import (
	"fmt"

	"github.com/gdlist/list-api/internal/leaderboard"
	"github.com/gdlist/list-api/internal/models"
	"github.com/gdlist/list-api/internal/scoring"
)

// Problem is one issue found in the list data.
type Problem struct {
	Rank    int
	Path    string
	User    string
	Message string
}

func (p Problem) String() string {
	if p.User == "" {
		return fmt.Sprintf("#%d %s: %s", p.Rank, p.Path, p.Message)
	}
	return fmt.Sprintf("#%d %s: %s: %s", p.Rank, p.Path, p.User, p.Message)
}

// CheckLevels reports failed levels, records that fail validation, duplicate
// users on one level and records the level would not accept.
func CheckLevels(levels []models.LevelResult, validate func(any) error) []Problem {
	var problems []Problem

	for i, lr := range levels {
		rank := i + 1
		if lr.Failed() {
			msg := "level failed to load"
			if lr.Err != nil {
				msg = lr.Err.Error()
			}
			problems = append(problems, Problem{Rank: rank, Path: lr.Path, Message: msg})
			continue
		}

		level := lr.Level
		seen := make(map[string]string, len(level.Records))
		for _, r := range level.Records {
			if err := validate(&r); err != nil {
				problems = append(problems, Problem{Rank: rank, Path: lr.Path, User: r.User, Message: err.Error()})
				continue
			}

			key := leaderboard.Key(r.User)
			if first, ok := seen[key]; ok {
				problems = append(problems, Problem{
					Rank: rank, Path: lr.Path, User: r.User,
					Message: fmt.Sprintf("duplicate of %q", first),
				})
				continue
			}
			seen[key] = r.User

			switch {
			case rank > scoring.ExtendedListSize:
				problems = append(problems, Problem{Rank: rank, Path: lr.Path, User: r.User, Message: "legacy level has a record"})
			case rank > scoring.MainListSize && !r.Completed():
				problems = append(problems, Problem{Rank: rank, Path: lr.Path, User: r.User, Message: fmt.Sprintf("progress %.4g%% on an extended level", r.Percent)})
			case r.Percent < level.PercentToQualify:
				problems = append(problems, Problem{Rank: rank, Path: lr.Path, User: r.User, Message: fmt.Sprintf("%.4g%% is below the %.4g%% qualification", r.Percent, level.PercentToQualify)})
			}
		}
	}

	return problems
}
