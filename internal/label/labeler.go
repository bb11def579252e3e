// Package label turns collected posts into labeled posts: profanity, the
// rule-based risk verdict, news-report suppression and an optional external
// moderation cross-check.
package label

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/riskfeed/internal/metrics"
	"github.com/ppiankov/riskfeed/internal/model"
	"github.com/ppiankov/riskfeed/internal/moderation"
	"github.com/ppiankov/riskfeed/internal/profanity"
	"github.com/ppiankov/riskfeed/internal/score"
)

const newsNote = "classified as news report (describing an external event, not advocating violence)"

// Config holds the labeling policy
type Config struct {
	// SuppressUpTo is the most severe type a news-like post can be downgraded from
	SuppressUpTo model.ViolenceType

	// Moderation is only consulted at or above MinModerationScore
	MinModerationScore float64

	// UnflaggedFactor scales the score of posts the classifier did not flag
	UnflaggedFactor float64
}

// ConfigFrom derives the labeling policy from the application config
func ConfigFrom(cfg *model.Config) (Config, error) {
	ceiling, err := model.ParseViolenceType(cfg.Labeling.NewsSuppressUpTo)
	if err != nil {
		return Config{}, fmt.Errorf("news_suppress_up_to: %w", err)
	}
	return Config{
		SuppressUpTo:       ceiling,
		MinModerationScore: cfg.Moderation.MinScore,
		UnflaggedFactor:    cfg.Moderation.UnflaggedFactor,
	}, nil
}

// Labeler labels posts. It never mutates its input and is safe for
// concurrent use as long as its collaborators are.
type Labeler struct {
	scorer     *score.RiskScorer
	detector   *profanity.Detector
	newsRule   PostRule
	classifier moderation.Classifier
	cfg        Config
	logger     logrus.FieldLogger
}

// NewLabeler creates a labeler. detector, newsRule and classifier may be nil.
func NewLabeler(
	scorer *score.RiskScorer,
	detector *profanity.Detector,
	newsRule PostRule,
	classifier moderation.Classifier,
	cfg Config,
	logger logrus.FieldLogger,
) *Labeler {
	if scorer == nil {
		scorer = score.NewScorer(nil)
	}
	if detector == nil {
		detector = profanity.NewDetector(nil)
	}
	if newsRule == nil {
		newsRule = RuleFunc(func(model.Post) bool { return false })
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Labeler{
		scorer:     scorer,
		detector:   detector,
		newsRule:   newsRule,
		classifier: classifier,
		cfg:        cfg,
		logger:     logger,
	}
}

// WithoutModeration returns a copy of the labeler that never calls the classifier
func (l *Labeler) WithoutModeration() *Labeler {
	cp := *l
	cp.classifier = nil
	return &cp
}

// Label computes every label for post
func (l *Labeler) Label(ctx context.Context, post model.Post) model.LabeledPost {
	out := model.LabeledPost{Post: post}

	out.HasProfanity, out.BadWords = l.detector.Analyze(post.Title, post.SelfText)

	verdict := l.scorer.ScoreText(post.Text())
	out.ViolenceRiskScore = verdict.RiskScore
	out.ViolenceType = verdict.ViolenceType
	out.ViolenceExplanation = verdict.Explanation

	out.IsNewsLike = l.newsRule.Matches(post)
	if out.IsNewsLike && !verdict.ViolenceType.MoreSevereThan(l.cfg.SuppressUpTo) {
		out.ViolenceRiskScore = 0
		out.ViolenceType = model.ViolenceNone
		out.ViolenceExplanation += " | " + newsNote
	}

	if l.classifier != nil && !out.IsNewsLike && out.ViolenceRiskScore >= l.cfg.MinModerationScore {
		l.crossCheck(ctx, &out)
	}

	metrics.ObservePost(out.ViolenceType.String(), out.ViolenceRiskScore)
	return out
}

func (l *Labeler) crossCheck(ctx context.Context, out *model.LabeledPost) {
	result, err := l.classifier.Classify(ctx, out.Text())
	if err != nil {
		l.logger.WithError(err).WithField("post_id", out.ID).Warn("moderation check failed, keeping rule-based score")
		return
	}

	out.ModerationFlagged = result.Flagged
	out.ModerationCategories = result.CategoryScores
	if !result.Flagged {
		out.ViolenceRiskScore *= l.cfg.UnflaggedFactor
	}
}
