package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/riskfeed/internal/model"
	"github.com/ppiankov/riskfeed/internal/pipeline"
	"github.com/ppiankov/riskfeed/internal/users"
)

var (
	feedThreshold float64
	feedOut       string
	feedTop       int
)

// feedCmd represents the feed command
var feedCmd = &cobra.Command{
	Use:   "feed <labeled.json>",
	Short: "Build a user risk feed from labeled posts",
	Long: `Feed aggregates a JSON array of labeled posts into per-user risk
summaries, ranked riskiest first, and writes them as CSV.

Each record needs an "author" and a "violence_risk_score" field; a null
score is treated as zero.

Example:
  riskfeed feed data/user_history_labeled.json
  riskfeed feed posts.json --threshold 0.7 --out feed.csv --top 20`,
	Args: cobra.ExactArgs(1),
	RunE: runFeed,
}

func init() {
	rootCmd.AddCommand(feedCmd)

	feedCmd.Flags().Float64Var(&feedThreshold, "threshold", -1, "post risk threshold (defaults to labeling.post_risk_threshold)")
	feedCmd.Flags().StringVar(&feedOut, "out", "", "output CSV path (defaults to <data-dir>/"+pipeline.UsersRiskFile+")")
	feedCmd.Flags().IntVar(&feedTop, "top", 10, "number of users to print")
}

func runFeed(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup()
	if err != nil {
		return err
	}

	threshold := cfg.Labeling.PostRiskThreshold
	if feedThreshold >= 0 {
		threshold = feedThreshold
	}
	out := feedOut
	if out == "" {
		out = filepath.Join(cfg.Output.DataDir, pipeline.UsersRiskFile)
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open labeled posts: %w", err)
	}
	defer func() { _ = f.Close() }()

	feed, err := feedFromJSON(f, cfg.Users.ExcludedAuthors, threshold)
	if err != nil {
		return err
	}

	path, err := pipeline.NewRenderer(filepath.Dir(out)).WriteUsersCSV(filepath.Base(out), feed)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ Wrote %d users to %s\n\n", len(feed), path)

	w := cmd.OutOrStdout()
	for _, u := range users.Top(feed, feedTop) {
		fmt.Fprintf(w, "%-24s %.2f  %d/%d  %s\n", u.Username, u.UserRiskScore, u.HighRiskPostCount, u.TotalPostCount, u.Explanation)
	}
	return nil
}

// feedFromJSON decodes labeled rows and returns the ranked feed
func feedFromJSON(r io.Reader, excluded []string, threshold float64) ([]model.UserRiskSummary, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var rows []map[string]any
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode labeled posts: %w", err)
	}

	records, err := users.FromRows(rows)
	if err != nil {
		return nil, err
	}

	feed := users.NewAggregator(excluded...).BuildFeed(records, threshold)
	users.RankByRisk(feed)
	return feed, nil
}
