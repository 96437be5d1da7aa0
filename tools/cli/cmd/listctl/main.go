// Command listctl inspects list data offline: it prints the leaderboard a
// data directory produces, lints level files and scores single records.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/gdlist/list-api/internal/content"
	"github.com/gdlist/list-api/internal/leaderboard"
	"github.com/gdlist/list-api/internal/scoring"
)

const usage = `usage: listctl <command> [flags]

commands:
  leaderboard   print the leaderboard computed from the data
  validate      report malformed, duplicate or unqualified records
  score         score one record: listctl score <rank> <percent> [percentToQualify]
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	var err error
	switch args[0] {
	case "leaderboard":
		err = runLeaderboard(args[1:], stdout)
	case "validate":
		var problems int
		problems, err = runValidate(args[1:], stdout)
		if err == nil && problems > 0 {
			return 1
		}
	case "score":
		err = runScore(args[1:], stdout)
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	if err != nil {
		fmt.Fprintf(stderr, "listctl: %v\n", err)
		return 1
	}
	return 0
}

type sourceFlags struct {
	dir     string
	url     string
	timeout time.Duration
}

func (f *sourceFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.dir, "data", "./data", "data directory")
	fs.StringVar(&f.url, "url", "", "base URL of the data directory; overrides -data")
	fs.DurationVar(&f.timeout, "timeout", 30*time.Second, "overall fetch timeout")
}

func (f *sourceFlags) loader() (*content.Loader, error) {
	var src content.Source = content.NewFileSource(f.dir)
	if f.url != "" {
		httpSrc, err := content.NewHTTPSource(f.url, nil, f.timeout)
		if err != nil {
			return nil, err
		}
		src = httpSrc
	}
	return content.NewLoader(content.LoaderConfig{Source: src, Logger: zap.NewNop()}), nil
}

func runLeaderboard(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("leaderboard", flag.ContinueOnError)
	var sf sourceFlags
	sf.register(fs)
	limit := fs.Int("limit", 50, "rows to print, 0 for all")
	if err := fs.Parse(args); err != nil {
		return err
	}

	loader, err := sf.loader()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), sf.timeout)
	defer cancel()

	levels, err := loader.FetchList(ctx)
	if err != nil {
		return err
	}
	res := leaderboard.Aggregate(levels)

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tPLAYER\tPOINTS\tCOMPLETED\tPROGRESSED")
	for i, e := range res.Leaderboard {
		if *limit > 0 && i >= *limit {
			break
		}
		fmt.Fprintf(tw, "%d\t%s\t%.3f\t%d\t%d\n", i+1, e.User, e.Total, len(e.Completed), len(e.Progressed))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, path := range res.Errors {
		fmt.Fprintf(stdout, "failed to load level: %s.json\n", path)
	}
	if n := len(res.Skipped); n > 0 {
		fmt.Fprintf(stdout, "%d malformed record(s) skipped\n", n)
	}
	return nil
}

func runValidate(args []string, stdout io.Writer) (int, error) {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	var sf sourceFlags
	sf.register(fs)
	if err := fs.Parse(args); err != nil {
		return 0, err
	}

	loader, err := sf.loader()
	if err != nil {
		return 0, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), sf.timeout)
	defer cancel()

	levels, err := loader.FetchList(ctx)
	if err != nil {
		return 0, err
	}

	problems := CheckLevels(levels, loader.Validate)
	for _, p := range problems {
		fmt.Fprintln(stdout, p)
	}
	fmt.Fprintf(stdout, "%d level(s), %d problem(s)\n", len(levels), len(problems))
	return len(problems), nil
}

func runScore(args []string, stdout io.Writer) error {
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("score needs <rank> <percent> [percentToQualify]")
	}
	rank, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("rank: %w", err)
	}
	percent, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("percent: %w", err)
	}
	qualify := 100.0
	if len(args) == 3 {
		if qualify, err = strconv.ParseFloat(args[2], 64); err != nil {
			return fmt.Errorf("percentToQualify: %w", err)
		}
	}

	fmt.Fprintf(stdout, "%.3f\n", scoring.Score(rank, percent, qualify))
	return nil
}
