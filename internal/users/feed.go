// Package users rolls post-level risk verdicts up into per-author summaries.
package users

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ppiankov/riskfeed/internal/model"
	"github.com/ppiankov/riskfeed/internal/score"
)

// ScoreField is the record field holding a post's risk score
const ScoreField = "violence_risk_score"

// ErrMissingScoreField is returned when an input record has no risk score field.
// It signals a malformed call, not a runtime condition, and is never retried.
var ErrMissingScoreField = errors.New("record lacks " + ScoreField + " field")

// DefaultExcludedAuthors are account names that never belong in a user feed
var DefaultExcludedAuthors = []string{"[deleted]", "[removed]", "AutoModerator"}

// PostRecord is the minimum an aggregation needs from a scored post.
// A nil Score means the upstream value was undefined.
type PostRecord struct {
	Author string
	Score  *float64
}

// FromLabeled converts labeled posts into aggregation records
func FromLabeled(posts []model.LabeledPost) []PostRecord {
	records := make([]PostRecord, len(posts))
	for i := range posts {
		s := posts[i].ViolenceRiskScore
		records[i] = PostRecord{Author: posts[i].Author, Score: &s}
	}
	return records
}

// FromRows converts loosely typed rows (decoded JSON, CSV maps) into records.
// Every row must carry the score field; an explicit null or an empty string is
// allowed and means "undefined". A string score that is not a number is an error.
// Authors that are not strings become the empty identifier.
func FromRows(rows []map[string]any) ([]PostRecord, error) {
	records := make([]PostRecord, 0, len(rows))

	for i, row := range rows {
		raw, ok := row[ScoreField]
		if !ok {
			return nil, fmt.Errorf("row %d: %w", i, ErrMissingScoreField)
		}

		value, err := toFloat(raw)
		if err != nil {
			return nil, fmt.Errorf("row %d: %s: %w", i, ScoreField, err)
		}

		author, _ := row["author"].(string)
		records = append(records, PostRecord{
			Author: author,
			Score:  value,
		})
	}

	return records, nil
}

func toFloat(v any) (*float64, error) {
	var f float64
	switch n := v.(type) {
	case string:
		trimmed := strings.TrimSpace(n)
		if trimmed == "" {
			return nil, nil
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil, err
		}
		f = parsed
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case interface{ Float64() (float64, error) }:
		parsed, err := n.Float64()
		if err != nil {
			return nil, err
		}
		f = parsed
	default:
		return nil, nil
	}
	return &f, nil
}

// Aggregator builds user risk summaries
type Aggregator struct {
	excluded map[string]struct{}
}

// NewAggregator creates an aggregator excluding the given authors.
// With no names it falls back to DefaultExcludedAuthors.
func NewAggregator(excluded ...string) *Aggregator {
	if len(excluded) == 0 {
		excluded = DefaultExcludedAuthors
	}
	set := make(map[string]struct{}, len(excluded))
	for _, name := range excluded {
		set[name] = struct{}{}
	}
	return &Aggregator{excluded: set}
}

// IsExcluded reports whether author is not a valid identifier for a feed
func (a *Aggregator) IsExcluded(author string) bool {
	if author == "" {
		return true
	}
	_, ok := a.excluded[author]
	return ok
}

// BuildFeed groups records by author and summarizes each remaining group.
// The result is sorted by username; use RankByRisk for a ranked view.
func (a *Aggregator) BuildFeed(records []PostRecord, threshold float64) []model.UserRiskSummary {
	groups := make(map[string][]PostRecord)
	for _, r := range records {
		if a.IsExcluded(r.Author) {
			continue
		}
		groups[r.Author] = append(groups[r.Author], r)
	}

	feed := make([]model.UserRiskSummary, 0, len(groups))
	for author, group := range groups {
		feed = append(feed, summarize(author, group, threshold))
	}

	sort.Slice(feed, func(i, j int) bool {
		return feed[i].Username < feed[j].Username
	})
	return feed
}

func summarize(author string, group []PostRecord, threshold float64) model.UserRiskSummary {
	scores := make([]float64, len(group))
	high := 0

	for i, r := range group {
		scores[i] = sanitize(r.Score)
		if inRange(r.Score) && *r.Score >= threshold {
			high++
		}
	}

	return model.UserRiskSummary{
		Username:          author,
		UserRiskScore:     score.AggregateUserScore(scores),
		HighRiskPostCount: high,
		TotalPostCount:    len(group),
		Explanation: fmt.Sprintf(
			"%d posts analyzed; %d post(s) with violence_risk_score >= %.2f. User-level score emphasizes worst and average behavior.",
			len(group), high, threshold,
		),
	}
}

// sanitize maps undefined, non-finite and out-of-range scores to 0
func sanitize(s *float64) float64 {
	if !inRange(s) {
		return 0
	}
	return *s
}

// inRange reports whether s is a defined score in [0, 1]. NaN fails both comparisons.
func inRange(s *float64) bool {
	return s != nil && *s >= 0 && *s <= 1
}

// RankByRisk sorts summaries by user risk score, highest first; ties are broken by username
func RankByRisk(feed []model.UserRiskSummary) {
	sort.SliceStable(feed, func(i, j int) bool {
		if feed[i].UserRiskScore != feed[j].UserRiskScore {
			return feed[i].UserRiskScore > feed[j].UserRiskScore
		}
		return feed[i].Username < feed[j].Username
	})
}

// Top returns at most n summaries from a ranked feed
func Top(feed []model.UserRiskSummary, n int) []model.UserRiskSummary {
	if n < 0 || n >= len(feed) {
		return feed
	}
	return feed[:n]
}
