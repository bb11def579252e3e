// Package monitor periodically re-checks high-risk users for new risky posts
// and raises alerts.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/riskfeed/internal/metrics"
	"github.com/ppiankov/riskfeed/internal/model"
	"github.com/ppiankov/riskfeed/internal/moderation"
	"github.com/ppiankov/riskfeed/internal/pipeline"
	"github.com/ppiankov/riskfeed/internal/score"
	"github.com/ppiankov/riskfeed/internal/users"
)

const previewChars = 200

// Source returns a user's posts created at or after since
type Source interface {
	RecentActivity(ctx context.Context, username string, since time.Time) ([]model.Post, error)
}

// Sink receives the alerts of one pass
type Sink interface {
	Publish(ctx context.Context, alerts []model.Alert) error
}

// Monitor checks flagged users for new high-risk content
type Monitor struct {
	source     Source
	scorer     *score.RiskScorer
	classifier moderation.Classifier
	sinks      []Sink
	cfg        model.MonitorConfig
	logger     logrus.FieldLogger

	now   func() time.Time
	newID func() string
}

// New creates a monitor. classifier may be nil.
func New(cfg model.MonitorConfig, source Source, scorer *score.RiskScorer, classifier moderation.Classifier, logger logrus.FieldLogger, sinks ...Sink) *Monitor {
	if scorer == nil {
		scorer = score.NewScorer(nil)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Monitor{
		source:     source,
		scorer:     scorer,
		classifier: classifier,
		sinks:      sinks,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// LoadFlaggedUsers reads a user feed and returns usernames scoring at least
// minScore, riskiest first, without excluded accounts, at most limit of them
func LoadFlaggedUsers(path string, minScore float64, limit int, excluded []string) ([]string, error) {
	feed, err := pipeline.ReadUsersCSV(path)
	if err != nil {
		return nil, err
	}

	agg := users.NewAggregator(excluded...)
	kept := feed[:0]
	for _, u := range feed {
		if u.UserRiskScore >= minScore && !agg.IsExcluded(u.Username) {
			kept = append(kept, u)
		}
	}
	users.RankByRisk(kept)

	names := make([]string, 0, len(kept))
	for _, u := range users.Top(kept, limit) {
		names = append(names, u.Username)
	}
	return names, nil
}

// Run checks every user once, publishes the alerts to the sinks and returns them.
// Users whose activity cannot be fetched are logged and skipped.
func (m *Monitor) Run(ctx context.Context, usernames []string) ([]model.Alert, error) {
	metrics.MonitorUsers.Set(float64(len(usernames)))
	if len(usernames) == 0 {
		return nil, nil
	}

	since := m.now().Add(-m.cfg.CheckWindow)
	perUser := make([][]model.Alert, len(usernames))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Workers)

	for i, username := range usernames {
		i, username := i, username
		g.Go(func() error {
			posts, err := m.source.RecentActivity(gctx, username, since)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				m.logger.WithError(err).WithField("user", username).Warn("fetch recent activity failed")
			}
			perUser[i] = m.check(gctx, username, posts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("monitor pass: %w", err)
	}

	var alerts []model.Alert
	for _, a := range perUser {
		alerts = append(alerts, a...)
	}

	m.logger.WithFields(logrus.Fields{
		"users":  len(usernames),
		"alerts": len(alerts),
	}).Info("monitor pass complete")

	if len(alerts) == 0 {
		return alerts, nil
	}

	var errs []error
	for _, sink := range m.sinks {
		if err := sink.Publish(ctx, alerts); err != nil {
			errs = append(errs, err)
		}
	}
	return alerts, errors.Join(errs...)
}

func (m *Monitor) check(ctx context.Context, username string, posts []model.Post) []model.Alert {
	var alerts []model.Alert

	for _, post := range posts {
		text := post.Text()
		verdict := m.scorer.ScoreText(text)
		if verdict.RiskScore < m.cfg.AlertThreshold {
			continue
		}

		alert := model.Alert{
			ID:           m.newID(),
			Username:     username,
			PostID:       post.ID,
			Subreddit:    post.Subreddit,
			TextPreview:  preview(text, previewChars),
			RiskScore:    verdict.RiskScore,
			ViolenceType: verdict.ViolenceType,
			Permalink:    post.Permalink,
			AlertTime:    m.now().UTC(),
		}

		if m.classifier != nil {
			result, err := m.classifier.Classify(ctx, text)
			if err != nil {
				m.logger.WithError(err).WithField("post_id", post.ID).Warn("moderation check failed")
			} else {
				alert.ModerationFlagged = result.Flagged
				alert.ModerationCategories = result.CategoryScores
			}
		}

		metrics.AlertsRaised.WithLabelValues(verdict.ViolenceType.String()).Inc()
		m.logger.WithFields(logrus.Fields{
			"user":          username,
			"post_id":       post.ID,
			"risk_score":    fmt.Sprintf("%.2f", verdict.RiskScore),
			"violence_type": verdict.ViolenceType.String(),
		}).Warn("alert")
		alerts = append(alerts, alert)
	}

	return alerts
}

// RunEvery runs a pass immediately and then once per interval until ctx is
// cancelled. load supplies the users for each pass so a refreshed feed is picked up.
func (m *Monitor) RunEvery(ctx context.Context, interval time.Duration, load func() ([]string, error)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		usernames, err := load()
		if err != nil {
			m.logger.WithError(err).Error("load flagged users failed")
		} else if _, err := m.Run(ctx, usernames); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.logger.WithError(err).Error("monitor pass failed")
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// preview returns at most n runes of s
func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

