package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ppiankov/riskfeed/internal/model"
	"github.com/ppiankov/riskfeed/internal/reddit"
	"github.com/ppiankov/riskfeed/internal/users"
	"github.com/ppiankov/riskfeed/internal/worker"
)

// Artifact file names inside the output directory
const (
	RawPostsFile     = "raw_posts.csv"
	LabeledPostsFile = "raw_posts_labeled.csv"
	OffensiveFile    = "posts_offensive_subset.csv"
	UsersRiskFile    = "users_risk.csv"
	EnrichedCSVFile  = "users_enriched_history.csv"
	EnrichedJSONFile = "users_enriched_history.json"
)

const (
	topUsersToDisplay  = 10
	searchTermJoinWord = " OR "
)

// Collector fetches posts from the content source
type Collector interface {
	CollectTargeted(ctx context.Context, subreddits, queries []string, opts reddit.TargetOptions) ([]model.Post, error)
	EnrichUsers(ctx context.Context, usernames []string, since time.Time, maxPosts int) ([]model.Post, error)
}

// Pipeline orchestrates a complete collection run
type Pipeline struct {
	collector  Collector
	labeler    worker.Labeler
	historyLab worker.Labeler
	aggregator *users.Aggregator
	renderer   *Renderer
	config     *model.Config
	logger     logrus.FieldLogger
	now        func() time.Time
	newID      func() string
}

// NewPipeline creates a pipeline. historyLabeler labels enriched user history
// and is normally the main labeler without moderation.
func NewPipeline(cfg *model.Config, collector Collector, labeler, historyLabeler worker.Labeler, logger logrus.FieldLogger) *Pipeline {
	if historyLabeler == nil {
		historyLabeler = labeler
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Pipeline{
		collector:  collector,
		labeler:    labeler,
		historyLab: historyLabeler,
		aggregator: users.NewAggregator(cfg.Users.ExcludedAuthors...),
		renderer:   NewRenderer(cfg.Output.DataDir),
		config:     cfg,
		logger:     logger,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// FromComponents wires a pipeline from built components
func FromComponents(cfg *model.Config, c *Components, logger logrus.FieldLogger) *Pipeline {
	return NewPipeline(cfg, c.Collector, c.Labeler, c.Labeler.WithoutModeration(), logger)
}

// Result is everything a run produced
type Result struct {
	RunID     string
	Raw       []model.Post
	Labeled   []model.LabeledPost
	Offensive []model.LabeledPost
	Users     []model.UserRiskSummary // ranked by risk
	Enriched  []model.LabeledPost
	Files     []string
}

// Run collects, labels, aggregates and enriches, writing every artifact
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	cfg := p.config
	res := &Result{RunID: p.newID()}
	logger := p.logger.WithField("run_id", res.RunID)

	// 1. Collect
	queries := GroupedQueries(cfg.Collector.SearchTerms)
	logger.WithFields(logrus.Fields{
		"subreddits": len(cfg.Collector.Subreddits),
		"queries":    len(queries),
	}).Info("collecting posts")

	raw, err := p.collector.CollectTargeted(ctx, cfg.Collector.Subreddits, queries, reddit.TargetOptions{
		Sort:          cfg.Collector.Sort,
		TimeFilter:    cfg.Collector.TimeFilter,
		LimitPerCombo: cfg.Collector.LimitPerCombo,
		EnrichHTML:    cfg.Collector.EnrichHTML,
	})
	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}
	res.Raw = raw
	if err := p.record(res, func() (string, error) { return p.renderer.WritePostsCSV(RawPostsFile, raw) }); err != nil {
		return res, err
	}

	// 2. Label
	labeled, err := worker.NewBatchProcessor(p.labeler, cfg.Concurrency.Workers).ProcessPosts(ctx, raw)
	if err != nil {
		return res, fmt.Errorf("label: %w", err)
	}
	res.Labeled = labeled
	if err := p.record(res, func() (string, error) { return p.renderer.WriteLabeledCSV(LabeledPostsFile, labeled) }); err != nil {
		return res, err
	}

	// 3. Offensive subset
	res.Offensive = Offensive(labeled, cfg.Labeling.OffensiveThreshold)
	if err := p.record(res, func() (string, error) { return p.renderer.WriteLabeledCSV(OffensiveFile, res.Offensive) }); err != nil {
		return res, err
	}
	logger.WithField("posts", len(res.Offensive)).Info("offensive or high-risk posts")

	// 4. User feed
	feed := p.aggregator.BuildFeed(users.FromLabeled(labeled), cfg.Labeling.PostRiskThreshold)
	users.RankByRisk(feed)
	res.Users = feed
	if err := p.record(res, func() (string, error) { return p.renderer.WriteUsersCSV(UsersRiskFile, feed) }); err != nil {
		return res, err
	}
	for _, u := range users.Top(feed, topUsersToDisplay) {
		logger.WithFields(logrus.Fields{
			"user":            u.Username,
			"user_risk_score": fmt.Sprintf("%.2f", u.UserRiskScore),
			"high_risk_posts": u.HighRiskPostCount,
			"total_posts":     u.TotalPostCount,
		}).Info("top user")
	}

	// 5. Enrich top users with history
	top := users.Top(feed, cfg.Collector.EnrichTopUsers)
	if len(top) == 0 {
		return res, nil
	}

	names := make([]string, len(top))
	for i, u := range top {
		names[i] = u.Username
	}
	since := reddit.MonthsAgo(p.now(), cfg.Collector.HistoryMonths)
	history, err := p.collector.EnrichUsers(ctx, names, since, cfg.Collector.HistoryMaxPosts)
	if err != nil {
		return res, fmt.Errorf("enrich users: %w", err)
	}
	if len(history) == 0 {
		logger.Warn("no user history collected")
		return res, nil
	}

	enriched, err := worker.NewBatchProcessor(p.historyLab, cfg.Concurrency.Workers).ProcessPosts(ctx, history)
	if err != nil {
		return res, fmt.Errorf("label history: %w", err)
	}
	res.Enriched = enriched
	if err := p.record(res, func() (string, error) { return p.renderer.WriteLabeledCSV(EnrichedCSVFile, enriched) }); err != nil {
		return res, err
	}
	if err := p.record(res, func() (string, error) { return p.renderer.WriteJSON(EnrichedJSONFile, enriched) }); err != nil {
		return res, err
	}

	return res, nil
}

func (p *Pipeline) record(res *Result, write func() (string, error)) error {
	path, err := write()
	if err != nil {
		return err
	}
	res.Files = append(res.Files, path)
	p.logger.WithField("path", path).Info("wrote artifact")
	return nil
}

// GroupedQueries joins each category's search terms into one OR query,
// ordered by category name
func GroupedQueries(terms map[string][]string) []string {
	categories := make([]string, 0, len(terms))
	for c := range terms {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	queries := make([]string, 0, len(categories))
	for _, c := range categories {
		if len(terms[c]) == 0 {
			continue
		}
		queries = append(queries, strings.Join(terms[c], searchTermJoinWord))
	}
	return queries
}

// Offensive keeps posts with profanity, a risk score at or above threshold,
// or a moderation flag
func Offensive(posts []model.LabeledPost, threshold float64) []model.LabeledPost {
	out := make([]model.LabeledPost, 0)
	for _, p := range posts {
		if p.HasProfanity || p.ViolenceRiskScore >= threshold || p.ModerationFlagged {
			out = append(out, p)
		}
	}
	return out
}
