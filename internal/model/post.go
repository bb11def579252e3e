package model

// Post is a submission or comment collected from the content API.
// Comments carry an empty Title and their body in SelfText.
type Post struct {
	ID          string  `json:"post_id"`
	Subreddit   string  `json:"subreddit"`
	Query       string  `json:"query"`
	Author      string  `json:"author"`
	Title       string  `json:"title"`
	SelfText    string  `json:"selftext"`
	CreatedUTC  float64 `json:"created_utc"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	Permalink   string  `json:"permalink"`
	URL         string  `json:"url"`
	HTMLTitle   string  `json:"html_title,omitempty"`
	IsComment   bool    `json:"is_comment,omitempty"`
}

// Text returns the text that gets scored: title and body joined by a space.
func (p Post) Text() string {
	return p.Title + " " + p.SelfText
}

// LabeledPost is a Post decorated with every label the pipeline computes.
// It is always a fresh value; labeling never mutates the source Post.
type LabeledPost struct {
	Post

	HasProfanity bool     `json:"has_profanity"`
	BadWords     []string `json:"bad_words"`

	ViolenceRiskScore   float64      `json:"violence_risk_score"`
	ViolenceType        ViolenceType `json:"violence_type"`
	ViolenceExplanation string       `json:"violence_explanation"`
	IsNewsLike          bool         `json:"is_news_like"`

	ModerationFlagged    bool               `json:"moderation_flagged"`
	ModerationCategories map[string]float64 `json:"moderation_categories,omitempty"`
}
