package reddit

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/riskfeed/internal/model"
)

// maxPageSize is the largest page requested from search endpoints
const maxPageSize = 25

// SearchOptions narrows a search
type SearchOptions struct {
	Subreddit  string // empty searches the whole site
	Sort       string
	TimeFilter string
	Limit      int
	EnrichHTML bool
}

// Search pages through search results until Limit posts are collected or the
// listing runs out. On error the posts collected so far are returned with it.
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) ([]model.Post, error) {
	path := "/search.json"
	if opts.Subreddit != "" {
		path = "/r/" + url.PathEscape(opts.Subreddit) + "/search.json"
	}

	var posts []model.Post
	after := ""

	for len(posts) < opts.Limit {
		params := url.Values{}
		params.Set("q", query)
		if opts.Subreddit != "" {
			params.Set("restrict_sr", "1")
		}
		params.Set("sort", opts.Sort)
		params.Set("t", opts.TimeFilter)
		params.Set("limit", strconv.Itoa(min(maxPageSize, opts.Limit-len(posts))))
		if after != "" {
			params.Set("after", after)
		}

		var page listing
		if err := c.getJSON(ctx, path, params, &page); err != nil {
			return posts, fmt.Errorf("search %q: %w", query, err)
		}

		children := page.things()
		if len(children) == 0 {
			break
		}

		for _, t := range children {
			post, ok := c.toPost(t, query, opts.Subreddit)
			if !ok {
				continue
			}
			if opts.EnrichHTML {
				post = c.EnrichHTMLTitle(ctx, post)
			}
			posts = append(posts, post)
			if len(posts) >= opts.Limit {
				break
			}
		}

		after = page.Data.After
		if after == "" {
			break
		}
	}

	return posts, nil
}

// TargetOptions configures CollectTargeted
type TargetOptions struct {
	Sort          string
	TimeFilter    string
	LimitPerCombo int
	EnrichHTML    bool
}

// CollectTargeted searches every subreddit for every query and returns the
// distinct posts in discovery order. A failing combination is logged and
// skipped; only context cancellation stops the collection.
func (c *Client) CollectTargeted(ctx context.Context, subreddits, queries []string, opts TargetOptions) ([]model.Post, error) {
	var all []model.Post
	seen := make(map[string]bool)

	total := len(subreddits) * len(queries)
	current := 0

	for _, sub := range subreddits {
		for _, query := range queries {
			current++
			log := c.logger.WithFields(logrus.Fields{
				"subreddit": sub,
				"query":     query,
				"progress":  fmt.Sprintf("%d/%d", current, total),
			})

			posts, err := c.Search(ctx, query, SearchOptions{
				Subreddit:  sub,
				Sort:       opts.Sort,
				TimeFilter: opts.TimeFilter,
				Limit:      opts.LimitPerCombo,
				EnrichHTML: opts.EnrichHTML,
			})
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return all, ctxErr
				}
				if !errors.Is(err, ErrNotFound) {
					log.WithError(err).Warn("search failed")
				}
			}
			log.WithField("found", len(posts)).Debug("search complete")

			for _, p := range posts {
				if seen[p.ID] {
					continue
				}
				seen[p.ID] = true
				all = append(all, p)
			}
		}
	}

	c.logger.WithField("posts", len(all)).Info("collected unique posts")
	return all, nil
}
