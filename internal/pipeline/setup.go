package pipeline

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/riskfeed/internal/label"
	"github.com/ppiankov/riskfeed/internal/lexicon"
	"github.com/ppiankov/riskfeed/internal/model"
	"github.com/ppiankov/riskfeed/internal/moderation"
	"github.com/ppiankov/riskfeed/internal/profanity"
	"github.com/ppiankov/riskfeed/internal/reddit"
	"github.com/ppiankov/riskfeed/internal/score"
	"github.com/ppiankov/riskfeed/internal/worker"
)

// Components are the collaborators a run needs, built once from config
type Components struct {
	Scorer     *score.RiskScorer
	Detector   *profanity.Detector
	Classifier moderation.Classifier // nil when moderation is disabled
	Labeler    *label.Labeler
	Collector  *reddit.Client
}

// Build wires the components described by cfg. Moderation that is enabled
// without an API key is downgraded to disabled with a warning.
func Build(cfg *model.Config, logger logrus.FieldLogger) (*Components, error) {
	lex, err := lexicon.Load(lexicon.Files{
		ViolentVerbs: cfg.Lexicon.ViolentVerbsFile,
		StrongHate:   cfg.Lexicon.StrongHateFile,
		GenericHate:  cfg.Lexicon.GenericHateFile,
	})
	if err != nil {
		return nil, fmt.Errorf("load lexicon: %w", err)
	}
	scorer := score.NewScorer(lex)

	detector, err := loadDetector(cfg.Lexicon.BadWordsFile, logger)
	if err != nil {
		return nil, err
	}

	var classifier moderation.Classifier
	if cfg.Moderation.Enabled {
		client, err := moderation.NewClient(cfg.Moderation, nil, logger.WithField("component", "moderation"))
		switch {
		case errors.Is(err, moderation.ErrNoAPIKey):
			logger.Warn("moderation enabled but OPENAI_API_KEY is not set, continuing without it")
		case err != nil:
			return nil, fmt.Errorf("moderation client: %w", err)
		default:
			classifier = client
		}
	}

	labelCfg, err := label.ConfigFrom(cfg)
	if err != nil {
		return nil, err
	}
	labeler := label.NewLabeler(scorer, detector, label.NewsRuleFrom(cfg.Labeling), classifier, labelCfg,
		logger.WithField("component", "labeler"))

	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	collector := reddit.NewClient(cfg.HTTP, limiter, logger.WithField("component", "collector"))

	return &Components{
		Scorer:     scorer,
		Detector:   detector,
		Classifier: classifier,
		Labeler:    labeler,
		Collector:  collector,
	}, nil
}

// loadDetector reads the bad-word list; a missing file yields an empty detector
func loadDetector(path string, logger logrus.FieldLogger) (*profanity.Detector, error) {
	if path == "" {
		return profanity.NewDetector(nil), nil
	}
	detector, err := profanity.LoadBadWords(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.WithField("path", path).Warn("bad words file not found, profanity detection disabled")
		return profanity.NewDetector(nil), nil
	}
	if err != nil {
		return nil, err
	}
	return detector, nil
}
