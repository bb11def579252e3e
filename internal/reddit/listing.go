package reddit

import (
	"github.com/ppiankov/riskfeed/internal/model"
)

// listing is the envelope every JSON listing endpoint returns
type listing struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Kind string `json:"kind"`
			Data thing  `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// thing holds the fields shared by submissions (t3) and comments (t1)
type thing struct {
	ID          string   `json:"id"`
	Author      string   `json:"author"`
	Subreddit   string   `json:"subreddit"`
	Title       string   `json:"title"`
	SelfText    string   `json:"selftext"`
	Body        string   `json:"body"`
	CreatedUTC  *float64 `json:"created_utc"`
	Score       int      `json:"score"`
	NumComments int      `json:"num_comments"`
	Permalink   string   `json:"permalink"`
	URL         string   `json:"url"`
}

func (t thing) created() float64 {
	if t.CreatedUTC == nil {
		return 0
	}
	return *t.CreatedUTC
}

// things returns the listing's children in order
func (l *listing) things() []thing {
	out := make([]thing, len(l.Data.Children))
	for i, child := range l.Data.Children {
		out[i] = child.Data
	}
	return out
}

// toPost converts a submission. Records without an id, author or creation
// time are rejected.
func (c *Client) toPost(t thing, query, subreddit string) (model.Post, bool) {
	if t.ID == "" || t.Author == "" || t.CreatedUTC == nil {
		return model.Post{}, false
	}
	if t.Subreddit != "" {
		subreddit = t.Subreddit
	}
	return model.Post{
		ID:          t.ID,
		Subreddit:   subreddit,
		Query:       query,
		Author:      t.Author,
		Title:       t.Title,
		SelfText:    t.SelfText,
		CreatedUTC:  *t.CreatedUTC,
		Score:       t.Score,
		NumComments: t.NumComments,
		Permalink:   c.permalink(t.Permalink),
		URL:         t.URL,
	}, true
}

// toComment converts a comment made by username into a post record
func (c *Client) toComment(t thing, username string) model.Post {
	return model.Post{
		ID:         t.ID,
		Author:     username,
		Subreddit:  t.Subreddit,
		SelfText:   t.Body,
		CreatedUTC: t.created(),
		Score:      t.Score,
		Permalink:  c.permalink(t.Permalink),
		IsComment:  true,
	}
}
