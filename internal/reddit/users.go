package reddit

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/ppiankov/riskfeed/internal/model"
)

const (
	historyPageSize  = 100
	activityPageSize = 25
)

var placeholderAuthors = map[string]bool{
	"[deleted]":     true,
	"[removed]":     true,
	"AutoModerator": true,
}

// ValidUsername reports whether name refers to a real, fetchable account
func ValidUsername(name string) bool {
	return name != "" && !placeholderAuthors[name]
}

// History is one user's submissions and comments
type History struct {
	Submissions []model.Post
	Comments    []model.Post
}

// Posts returns submissions followed by comments
func (h History) Posts() []model.Post {
	out := make([]model.Post, 0, len(h.Submissions)+len(h.Comments))
	out = append(out, h.Submissions...)
	return append(out, h.Comments...)
}

type listingKind int

const (
	submissions listingKind = iota
	comments
)

func (k listingKind) path(username string) string {
	if k == comments {
		return "/user/" + url.PathEscape(username) + "/comments.json"
	}
	return "/user/" + url.PathEscape(username) + "/submitted.json"
}

// UserHistory pages back through a user's submissions and comments until
// items are older than since or maxPosts of each kind are collected.
// A missing or private profile yields ErrNotFound.
func (c *Client) UserHistory(ctx context.Context, username string, since time.Time, maxPosts int) (History, error) {
	if !ValidUsername(username) {
		return History{}, fmt.Errorf("%q: %w", username, ErrInvalidUsername)
	}

	var h History
	var err error

	h.Submissions, err = c.history(ctx, username, submissions, since, maxPosts)
	if err != nil {
		return h, fmt.Errorf("u/%s submissions: %w", username, err)
	}
	h.Comments, err = c.history(ctx, username, comments, since, maxPosts)
	if err != nil {
		return h, fmt.Errorf("u/%s comments: %w", username, err)
	}

	c.logger.WithField("user", username).
		WithField("submissions", len(h.Submissions)).
		WithField("comments", len(h.Comments)).
		Debug("fetched history")
	return h, nil
}

func (c *Client) history(ctx context.Context, username string, kind listingKind, since time.Time, maxPosts int) ([]model.Post, error) {
	cutoff := float64(since.Unix())
	var out []model.Post
	after := ""

	for len(out) < maxPosts {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(historyPageSize))
		if after != "" {
			params.Set("after", after)
		}

		var page listing
		if err := c.getJSON(ctx, kind.path(username), params, &page); err != nil {
			return out, err
		}

		children := page.things()
		if len(children) == 0 {
			break
		}

		reachedCutoff := false
		for _, t := range children {
			if t.created() < cutoff {
				reachedCutoff = true
				break
			}
			if post, ok := c.convert(t, username, kind); ok {
				out = append(out, post)
			}
		}
		if reachedCutoff {
			break
		}

		after = page.Data.After
		if after == "" {
			break
		}
	}

	if len(out) > maxPosts {
		out = out[:maxPosts]
	}
	return out, nil
}

// RecentActivity returns the user's submissions and comments created at or
// after since, looking at the newest page of each
func (c *Client) RecentActivity(ctx context.Context, username string, since time.Time) ([]model.Post, error) {
	if !ValidUsername(username) {
		return nil, fmt.Errorf("%q: %w", username, ErrInvalidUsername)
	}

	cutoff := float64(since.Unix())
	var out []model.Post

	for _, kind := range []listingKind{submissions, comments} {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(activityPageSize))

		var page listing
		if err := c.getJSON(ctx, kind.path(username), params, &page); err != nil {
			return out, fmt.Errorf("u/%s: %w", username, err)
		}
		for _, t := range page.things() {
			if t.created() < cutoff {
				continue
			}
			if post, ok := c.convert(t, username, kind); ok {
				out = append(out, post)
			}
		}
	}

	return out, nil
}

func (c *Client) convert(t thing, username string, kind listingKind) (model.Post, bool) {
	if kind == comments {
		return c.toComment(t, username), true
	}
	post, ok := c.toPost(t, "", "")
	if ok {
		post.Author = username
	}
	return post, ok
}

// EnrichUsers collects history for every user since the given time. Users
// that cannot be fetched are logged and skipped.
func (c *Client) EnrichUsers(ctx context.Context, usernames []string, since time.Time, maxPosts int) ([]model.Post, error) {
	var all []model.Post

	for i, username := range usernames {
		log := c.logger.WithField("user", username).WithField("progress", fmt.Sprintf("%d/%d", i+1, len(usernames)))

		h, err := c.UserHistory(ctx, username, since, maxPosts)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return all, ctxErr
			}
			if errors.Is(err, ErrInvalidUsername) || errors.Is(err, ErrNotFound) {
				log.WithError(err).Info("skipping user")
			} else {
				log.WithError(err).Warn("history fetch failed")
			}
		}
		all = append(all, h.Posts()...)
	}

	c.logger.WithField("posts", len(all)).WithField("users", len(usernames)).Info("collected user history")
	return all, nil
}

// MonthsAgo returns the cutoff for a history of the given length, counting 30 days a month
func MonthsAgo(now time.Time, months int) time.Time {
	return now.Add(-time.Duration(months) * 30 * 24 * time.Hour)
}
