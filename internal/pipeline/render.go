package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ppiankov/riskfeed/internal/model"
)

var (
	postColumns = []string{
		"post_id", "subreddit", "query", "author", "title", "selftext",
		"created_utc", "score", "num_comments", "permalink", "url", "html_title", "is_comment",
	}
	labelColumns = []string{
		"has_profanity", "bad_words", "violence_risk_score", "violence_type",
		"violence_explanation", "is_news_like", "moderation_flagged", "moderation_categories",
	}
	userColumns = []string{
		"username", "user_risk_score", "high_risk_posts", "total_posts", "explanation",
	}
)

// Renderer writes run artifacts into a directory
type Renderer struct {
	dir string
}

// NewRenderer creates a renderer rooted at dir
func NewRenderer(dir string) *Renderer {
	return &Renderer{dir: dir}
}

// Path returns the location of a named artifact
func (r *Renderer) Path(name string) string {
	return filepath.Join(r.dir, name)
}

// WritePostsCSV writes collected posts
func (r *Renderer) WritePostsCSV(name string, posts []model.Post) (string, error) {
	rows := make([][]string, len(posts))
	for i, p := range posts {
		rows[i] = postRow(p)
	}
	return r.writeCSV(name, postColumns, rows)
}

// WriteLabeledCSV writes labeled posts
func (r *Renderer) WriteLabeledCSV(name string, posts []model.LabeledPost) (string, error) {
	header := append(append([]string{}, postColumns...), labelColumns...)

	rows := make([][]string, len(posts))
	for i, p := range posts {
		categories := ""
		if len(p.ModerationCategories) > 0 {
			b, err := json.Marshal(p.ModerationCategories)
			if err != nil {
				return "", fmt.Errorf("encode moderation categories: %w", err)
			}
			categories = string(b)
		}
		rows[i] = append(postRow(p.Post),
			strconv.FormatBool(p.HasProfanity),
			strings.Join(p.BadWords, ";"),
			formatFloat(p.ViolenceRiskScore),
			p.ViolenceType.String(),
			p.ViolenceExplanation,
			strconv.FormatBool(p.IsNewsLike),
			strconv.FormatBool(p.ModerationFlagged),
			categories,
		)
	}
	return r.writeCSV(name, header, rows)
}

// WriteUsersCSV writes a user risk feed
func (r *Renderer) WriteUsersCSV(name string, feed []model.UserRiskSummary) (string, error) {
	rows := make([][]string, len(feed))
	for i, u := range feed {
		rows[i] = []string{
			u.Username,
			formatFloat(u.UserRiskScore),
			strconv.Itoa(u.HighRiskPostCount),
			strconv.Itoa(u.TotalPostCount),
			u.Explanation,
		}
	}
	return r.writeCSV(name, userColumns, rows)
}

// WriteJSON writes v as indented JSON
func (r *Renderer) WriteJSON(name string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal JSON: %w", err)
	}
	return r.write(name, func(w io.Writer) error {
		_, err := w.Write(append(data, '\n'))
		return err
	})
}

func (r *Renderer) writeCSV(name string, header []string, rows [][]string) (string, error) {
	return r.write(name, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(header); err != nil {
			return err
		}
		if err := cw.WriteAll(rows); err != nil {
			return err
		}
		return cw.Error()
	})
}

// write creates name atomically via a temp file in the same directory
func (r *Renderer) write(name string, fill func(io.Writer) error) (string, error) {
	path := r.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := fill(tmp); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename %s: %w", name, err)
	}
	return path, nil
}

func postRow(p model.Post) []string {
	return []string{
		p.ID,
		p.Subreddit,
		p.Query,
		p.Author,
		p.Title,
		p.SelfText,
		formatFloat(p.CreatedUTC),
		strconv.Itoa(p.Score),
		strconv.Itoa(p.NumComments),
		p.Permalink,
		p.URL,
		p.HTMLTitle,
		strconv.FormatBool(p.IsComment),
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ReadUsersCSV loads a user feed written by WriteUsersCSV. Columns are
// located by header name; rows with an unparsable score are rejected.
func ReadUsersCSV(path string) ([]model.UserRiskSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open users file: %w", err)
	}
	defer func() { _ = f.Close() }()

	cr := csv.NewReader(f)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"username", "user_risk_score"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("users file lacks %q column", required)
		}
	}

	get := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	var feed []model.UserRiskSummary
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		score, err := strconv.ParseFloat(get(rec, "user_risk_score"), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: user_risk_score: %w", line, err)
		}
		high, _ := strconv.Atoi(get(rec, "high_risk_posts"))
		total, _ := strconv.Atoi(get(rec, "total_posts"))

		feed = append(feed, model.UserRiskSummary{
			Username:          get(rec, "username"),
			UserRiskScore:     score,
			HighRiskPostCount: high,
			TotalPostCount:    total,
			Explanation:       get(rec, "explanation"),
		})
	}
	return feed, nil
}
