package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/riskfeed/internal/model"
	"github.com/ppiankov/riskfeed/internal/pipeline"
)

var (
	collectSubreddits []string
	collectLimit      int
	collectEnrichTop  int
	collectWorkers    int
	collectTimeout    time.Duration
	noModeration      bool
)

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect, label and aggregate posts into a user risk feed",
	Long: `Collect runs the full pipeline:
- Search each configured subreddit for each search-term group
- Label every post with profanity, a risk score, a violence type and an explanation
- Optionally cross-check high scores with the moderation model
- Aggregate scores per author into a ranked user risk feed
- Fetch recent history for the top users and label it

Artifacts are written to the data directory as CSV and JSON.

Example:
  riskfeed collect
  riskfeed collect --subreddits news,worldnews --limit 10
  riskfeed collect --no-moderation --enrich-top 5 --timeout 30m`,
	Args: cobra.NoArgs,
	RunE: runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)

	collectCmd.Flags().StringSliceVar(&collectSubreddits, "subreddits", nil, "subreddits to search (overrides config)")
	collectCmd.Flags().IntVar(&collectLimit, "limit", 0, "posts per subreddit and query (overrides config)")
	collectCmd.Flags().IntVar(&collectEnrichTop, "enrich-top", -1, "number of top users to enrich with history (overrides config)")
	collectCmd.Flags().IntVar(&collectWorkers, "workers", 0, "number of concurrent labeling workers (overrides config)")
	collectCmd.Flags().DurationVar(&collectTimeout, "timeout", 0, "total timeout for the run (0 means none)")
	collectCmd.Flags().BoolVar(&noModeration, "no-moderation", false, "skip the moderation cross-check")
}

// applyCollectFlags overrides config values with explicitly set flags
func applyCollectFlags(cfg *model.Config) {
	if len(collectSubreddits) > 0 {
		cfg.Collector.Subreddits = collectSubreddits
	}
	if collectLimit > 0 {
		cfg.Collector.LimitPerCombo = collectLimit
	}
	if collectEnrichTop >= 0 {
		cfg.Collector.EnrichTopUsers = collectEnrichTop
	}
	if collectWorkers > 0 {
		cfg.Concurrency.Workers = collectWorkers
	}
	if noModeration {
		cfg.Moderation.Enabled = false
	}
}

func runCollect(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	applyCollectFlags(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if collectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, collectTimeout)
		defer cancel()
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  riskfeed collection\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Subreddits:   %d\n", len(cfg.Collector.Subreddits))
	fmt.Fprintf(os.Stderr, "  Term groups:  %d\n", len(cfg.Collector.SearchTerms))
	fmt.Fprintf(os.Stderr, "  Per combo:    %d\n", cfg.Collector.LimitPerCombo)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Moderation:   %v\n", cfg.Moderation.Enabled)
	fmt.Fprintf(os.Stderr, "  Data dir:     %s\n", cfg.Output.DataDir)
	fmt.Fprintf(os.Stderr, "\n")

	components, err := pipeline.Build(cfg, logger)
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := pipeline.FromComponents(cfg, components, logger).Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Collection Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Run:          %s\n", res.RunID)
	fmt.Fprintf(os.Stderr, "  Posts:        %d\n", len(res.Raw))
	fmt.Fprintf(os.Stderr, "  Offensive:    %d\n", len(res.Offensive))
	fmt.Fprintf(os.Stderr, "  Users:        %d\n", len(res.Users))
	fmt.Fprintf(os.Stderr, "  History:      %d\n", len(res.Enriched))
	fmt.Fprintf(os.Stderr, "  Duration:     %v\n", time.Since(start).Round(time.Second))
	fmt.Fprintf(os.Stderr, "\n")

	for _, path := range res.Files {
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	return nil
}
