package label

import (
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/riskfeed/internal/model"
)

// PostRule is a yes/no predicate over a post
type PostRule interface {
	Matches(post model.Post) bool
}

// RuleFunc adapts a function to the PostRule interface
type RuleFunc func(post model.Post) bool

// Matches calls f
func (f RuleFunc) Matches(post model.Post) bool {
	return f(post)
}

// NewsRule recognizes link posts in news communities whose headline reports an event
type NewsRule struct {
	subreddits   map[string]struct{}
	keywords     []string
	maxBodyChars int
}

// NewNewsRule creates a news rule. Subreddits and keywords are matched case-insensitively.
func NewNewsRule(subreddits, keywords []string, maxBodyChars int) *NewsRule {
	subs := make(map[string]struct{}, len(subreddits))
	for _, s := range subreddits {
		subs[strings.ToLower(s)] = struct{}{}
	}
	kws := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			kws = append(kws, k)
		}
	}
	return &NewsRule{subreddits: subs, keywords: kws, maxBodyChars: maxBodyChars}
}

// NewsRuleFrom builds the news rule from the labeling config
func NewsRuleFrom(cfg model.LabelingConfig) *NewsRule {
	return NewNewsRule(cfg.NewsSubreddits, cfg.NewsKeywords, cfg.NewsMaxBodyChars)
}

// Matches reports whether post looks like a news report
func (r *NewsRule) Matches(post model.Post) bool {
	if _, ok := r.subreddits[strings.ToLower(post.Subreddit)]; !ok {
		return false
	}
	if post.URL == "" {
		return false
	}
	if utf8.RuneCountInString(strings.TrimSpace(post.SelfText)) >= r.maxBodyChars {
		return false
	}

	title := strings.ToLower(post.Title)
	for _, k := range r.keywords {
		if strings.Contains(title, k) {
			return true
		}
	}
	return false
}
