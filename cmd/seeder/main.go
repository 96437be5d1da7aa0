package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/gdlist/list-api/internal/models"
	"github.com/gdlist/list-api/internal/scoring"
)

// Config
var (
	outDir     = flag.String("out", "./data", "directory to write list.json, level files and editors.json into")
	levelCount = flag.Int("levels", 100, "number of list positions")
	players    = flag.Int("players", 250, "size of the player pool")
	maxRecords = flag.Int("records", 40, "maximum records per level")
	brokenRate = flag.Float64("broken", 0.02, "fraction of list entries with no level file")
	seed       = flag.Uint64("seed", 1, "random seed")
)

var (
	adjectives = []string{"Bloodbath", "Sonic", "Slaughter", "Tartarus", "Acheron", "Silent", "Abyss", "Firework", "Kenos", "Zodiac", "Cataclysm", "Erebus"}
	suffixes   = []string{"", " II", " Rebirth", " Remix", " X", " Finale", " Origins"}
	handles    = []string{"Zoink", "Trick", "Dolphy", "Cursed", "Technical", "Wolfy", "Nexus", "Spaceuk", "Riot", "Sunix", "Npesta", "Cyclic", "Mbed", "Ryamu"}
)

func main() {
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync() //nolint:errcheck
	log := logger.Sugar()

	if err := seedData(*outDir, rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))); err != nil {
		log.Fatalw("Seeding failed", "error", err)
	}
	log.Infow("Seeded list data", "dir", *outDir, "levels", *levelCount, "players", *players)
}

func seedData(dir string, rng *rand.Rand) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	pool := playerPool(*players, rng)
	paths := make([]string, 0, *levelCount)

	for rank := 1; rank <= *levelCount; rank++ {
		name := fmt.Sprintf("%s%s", adjectives[rng.IntN(len(adjectives))], suffixes[rng.IntN(len(suffixes))])
		path := fmt.Sprintf("%03d_%s", rank, strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "_")))
		paths = append(paths, path)

		// Leave a dangling entry to exercise per-level failure handling.
		if rng.Float64() < *brokenRate {
			continue
		}

		level := newLevel(rank, name, pool, rng)
		if err := writeJSON(filepath.Join(dir, path+".json"), level); err != nil {
			return err
		}
	}

	if err := writeJSON(filepath.Join(dir, "list.json"), paths); err != nil {
		return err
	}

	editors := []models.Editor{
		{Role: "owner", Name: pool[0], Link: "https://example.com/" + pool[0]},
		{Role: "admin", Name: pool[1]},
		{Role: "helper", Name: pool[2]},
	}
	return writeJSON(filepath.Join(dir, "editors.json"), editors)
}

func playerPool(n int, rng *rand.Rand) []string {
	if n < 3 {
		n = 3
	}
	seen := make(map[string]bool, n)
	pool := make([]string, 0, n)
	for len(pool) < n {
		name := fmt.Sprintf("%s%d", handles[rng.IntN(len(handles))], rng.IntN(1000))
		if seen[name] {
			continue
		}
		seen[name] = true
		pool = append(pool, name)
	}
	return pool
}

func newLevel(rank int, name string, pool []string, rng *rand.Rand) models.Level {
	verifier := pool[rng.IntN(len(pool))]
	qualify := float64(50 + rng.IntN(50))

	level := models.Level{
		ID:               10_000_000 + rng.IntN(90_000_000),
		Name:             name,
		Author:           pool[rng.IntN(len(pool))],
		Creators:         []string{pool[rng.IntN(len(pool))]},
		Verifier:         verifier,
		Verification:     "https://youtu.be/" + randomToken(rng, 11),
		PercentToQualify: qualify,
		Records:          []models.Record{},
	}

	used := map[string]bool{verifier: true}
	count := rng.IntN(*maxRecords + 1)
	if rank > scoring.ExtendedListSize {
		count = 0
	}
	for i := 0; i < count; i++ {
		user := pool[rng.IntN(len(pool))]
		if used[user] {
			continue
		}
		used[user] = true

		percent := 100.0
		if rank <= scoring.MainListSize && rng.IntN(3) == 0 {
			percent = qualify + float64(rng.IntN(int(100-qualify)))
		}
		level.Records = append(level.Records, models.Record{
			User:    user,
			Percent: percent,
			Link:    "https://youtu.be/" + randomToken(rng, 11),
			Mobile:  rng.IntN(10) == 0,
		})
	}
	return level
}

func randomToken(rng *rand.Rand, n int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_"
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rng.IntN(len(alphabet))]
	}
	return string(b)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
