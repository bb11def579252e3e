package pipeline

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/riskfeed/internal/label"
	"github.com/ppiankov/riskfeed/internal/model"
	"github.com/ppiankov/riskfeed/internal/profanity"
	"github.com/ppiankov/riskfeed/internal/reddit"
	"github.com/ppiankov/riskfeed/internal/score"
)

type fakeCollector struct {
	posts      []model.Post
	history    []model.Post
	collectErr error

	gotQueries []string
	gotUsers   []string
	gotSince   time.Time
	gotMax     int
}

func (f *fakeCollector) CollectTargeted(_ context.Context, _, queries []string, _ reddit.TargetOptions) ([]model.Post, error) {
	f.gotQueries = queries
	return f.posts, f.collectErr
}

func (f *fakeCollector) EnrichUsers(_ context.Context, usernames []string, since time.Time, maxPosts int) ([]model.Post, error) {
	f.gotUsers = usernames
	f.gotSince = since
	f.gotMax = maxPosts
	return f.history, nil
}

func testLabeler(t *testing.T) *label.Labeler {
	t.Helper()
	cfg, err := label.ConfigFrom(model.DefaultConfig())
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()
	return label.NewLabeler(score.NewScorer(nil), profanity.NewDetector([]string{"idiot"}),
		label.NewsRuleFrom(model.DefaultConfig().Labeling), nil, cfg, logger)
}

func testConfig(t *testing.T) *model.Config {
	cfg := model.DefaultConfig()
	cfg.Output.DataDir = t.TempDir()
	cfg.Concurrency.Workers = 2
	cfg.Collector.EnrichTopUsers = 1
	cfg.Collector.SearchTerms = map[string][]string{
		"violence": {"kill", "murder"},
		"abuse":    {"idiot"},
		"empty":    {},
	}
	return cfg
}

func TestRun_WritesAllArtifacts(t *testing.T) {
	cfg := testConfig(t)
	collector := &fakeCollector{
		posts: []model.Post{
			{ID: "1", Author: "alice", Title: "We should kill them all"},
			{ID: "2", Author: "alice", Title: "nice weather"},
			{ID: "3", Author: "bob", Title: "you idiot"},
			{ID: "4", Author: "[deleted]", Title: "KILL THEM ALL!!!"},
			{ID: "5", Author: "carol", Title: "lovely cat"},
		},
		history: []model.Post{
			{ID: "h1", Author: "alice", SelfText: "I want to kill myself", IsComment: true},
		},
	}
	logger, _ := test.NewNullLogger()
	lab := testLabeler(t)
	p := NewPipeline(cfg, collector, lab, lab.WithoutModeration(), logger)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"idiot", "kill OR murder"}, collector.gotQueries)

	require.Len(t, res.Labeled, 5)
	assert.Equal(t, "1", res.Labeled[0].ID, "labeling preserves input order")
	assert.Equal(t, model.ViolenceCallToViolence, res.Labeled[0].ViolenceType)

	offensiveIDs := ids(res.Offensive)
	assert.ElementsMatch(t, []string{"1", "3", "4"}, offensiveIDs)

	require.Len(t, res.Users, 3)
	assert.Equal(t, "alice", res.Users[0].Username, "feed is ranked by risk")
	assert.Equal(t, 1, res.Users[0].HighRiskPostCount)

	assert.Equal(t, []string{"alice"}, collector.gotUsers)
	assert.Equal(t, now.Add(-60*24*time.Hour), collector.gotSince)
	assert.Equal(t, 500, collector.gotMax)
	require.Len(t, res.Enriched, 1)
	assert.Equal(t, model.ViolenceSelfDirected, res.Enriched[0].ViolenceType)

	for _, name := range []string{RawPostsFile, LabeledPostsFile, OffensiveFile, UsersRiskFile, EnrichedCSVFile, EnrichedJSONFile} {
		assert.FileExists(t, filepath.Join(cfg.Output.DataDir, name))
	}
	assert.Len(t, res.Files, 6)
	assert.NotEmpty(t, res.RunID)

	data, err := os.ReadFile(filepath.Join(cfg.Output.DataDir, EnrichedJSONFile))
	require.NoError(t, err)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(data, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "self_directed", rows[0]["violence_type"])
	assert.Equal(t, "alice", rows[0]["author"])
}

func TestRun_UsersCSVRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	cfg.Collector.EnrichTopUsers = 0
	collector := &fakeCollector{posts: []model.Post{
		{ID: "1", Author: "alice", Title: "We should kill them all"},
		{ID: "2", Author: "bob", Title: "hello"},
	}}
	logger, _ := test.NewNullLogger()
	p := NewPipeline(cfg, collector, testLabeler(t), nil, logger)

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, collector.gotUsers, "no enrichment when disabled")

	feed, err := ReadUsersCSV(filepath.Join(cfg.Output.DataDir, UsersRiskFile))
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, res.Users[0].Username, feed[0].Username)
	assert.InDelta(t, res.Users[0].UserRiskScore, feed[0].UserRiskScore, 1e-9)
	assert.Equal(t, res.Users[0].Explanation, feed[0].Explanation)
}

func TestRun_CollectError(t *testing.T) {
	cfg := testConfig(t)
	boom := errors.New("boom")
	logger, _ := test.NewNullLogger()
	p := NewPipeline(cfg, &fakeCollector{collectErr: boom}, testLabeler(t), nil, logger)

	_, err := p.Run(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestLabeledCSVColumns(t *testing.T) {
	r := NewRenderer(t.TempDir())
	path, err := r.WriteLabeledCSV("labeled.csv", []model.LabeledPost{{
		Post:                 model.Post{ID: "x", Title: "t, with comma", Score: 4},
		BadWords:             []string{"a", "b"},
		ViolenceRiskScore:    0.25,
		ViolenceType:         model.ViolenceDescriptive,
		ModerationCategories: map[string]float64{"violence": 0.5},
	}})
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	row := map[string]string{}
	for i, name := range records[0] {
		row[name] = records[1][i]
	}
	assert.Equal(t, "t, with comma", row["title"])
	assert.Equal(t, "a;b", row["bad_words"])
	assert.Equal(t, "0.25", row["violence_risk_score"])
	assert.Equal(t, "descriptive", row["violence_type"])
	assert.Equal(t, `{"violence":0.5}`, row["moderation_categories"])
	assert.Equal(t, "4", row["score"])
}

func TestReadUsersCSV_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadUsersCSV(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)

	noScore := filepath.Join(dir, "noscore.csv")
	require.NoError(t, os.WriteFile(noScore, []byte("username,total_posts\nalice,3\n"), 0644))
	_, err = ReadUsersCSV(noScore)
	assert.ErrorContains(t, err, "user_risk_score")

	badScore := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(badScore, []byte("username,user_risk_score\nalice,high\n"), 0644))
	_, err = ReadUsersCSV(badScore)
	assert.ErrorContains(t, err, "line 2")
}

func TestGroupedQueries(t *testing.T) {
	got := GroupedQueries(map[string][]string{
		"threats":  {"deserve to die", "death threat"},
		"violence": {"kill"},
	})
	assert.Equal(t, []string{"deserve to die OR death threat", "kill"}, got)
	assert.Empty(t, GroupedQueries(nil))
}

func TestOffensive(t *testing.T) {
	posts := []model.LabeledPost{
		{Post: model.Post{ID: "profane"}, HasProfanity: true},
		{Post: model.Post{ID: "risky"}, ViolenceRiskScore: 0.6},
		{Post: model.Post{ID: "flagged"}, ModerationFlagged: true},
		{Post: model.Post{ID: "clean"}, ViolenceRiskScore: 0.59},
	}
	assert.Equal(t, []string{"profane", "risky", "flagged"}, ids(Offensive(posts, 0.6)))
	assert.NotNil(t, Offensive(nil, 0.6))
}

func TestBuild_DefaultsWithoutModeration(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Lexicon.BadWordsFile = filepath.Join(t.TempDir(), "missing.txt")
	cfg.Moderation.Enabled = true
	logger, hook := test.NewNullLogger()

	c, err := Build(cfg, logger)
	require.NoError(t, err)
	assert.Nil(t, c.Classifier, "no API key means no classifier")
	assert.Zero(t, c.Detector.Len())
	assert.NotNil(t, c.Labeler)
	assert.NotNil(t, c.Collector)
	assert.Len(t, hook.AllEntries(), 2)
}

func TestBuild_LexiconOverride(t *testing.T) {
	dir := t.TempDir()
	verbs := filepath.Join(dir, "verbs.txt")
	require.NoError(t, os.WriteFile(verbs, []byte("# verbs\nmaim\n"), 0644))

	cfg := model.DefaultConfig()
	cfg.Lexicon.ViolentVerbsFile = verbs
	cfg.Lexicon.BadWordsFile = ""
	logger, _ := test.NewNullLogger()

	c, err := Build(cfg, logger)
	require.NoError(t, err)
	assert.Equal(t, model.ViolenceCallToViolence, c.Scorer.ScoreText("we should maim them").ViolenceType)

	cfg.Lexicon.StrongHateFile = filepath.Join(dir, "nope.txt")
	_, err = Build(cfg, logger)
	assert.Error(t, err)
}

func ids(posts []model.LabeledPost) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}
