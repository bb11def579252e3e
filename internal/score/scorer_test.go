package score

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/riskfeed/internal/lexicon"
	"github.com/ppiankov/riskfeed/internal/model"
)

func TestScoreText_ReferenceSentences(t *testing.T) {
	scorer := NewScorer(nil)

	tests := []struct {
		name     string
		text     string
		wantType model.ViolenceType
		wantRisk float64
	}{
		{"self directed", "I want to kill myself", model.ViolenceSelfDirected, 0.18},
		{"call to violence", "We should kill them all", model.ViolenceCallToViolence, 0.78},
		{"dehumanizing", "They are subhuman vermin", model.ViolenceHateSpeech, 0.64},
		{"generic hate", "I hate Mondays", model.ViolenceNone, 0.02},
		{"neutral", "The weather is lovely today", model.ViolenceNone, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := scorer.ScoreText(tt.text)
			assert.Equal(t, tt.wantType, v.ViolenceType)
			assert.InDelta(t, tt.wantRisk, v.RiskScore, 1e-9)
		})
	}
}

func TestScoreText_ReferenceBounds(t *testing.T) {
	scorer := NewScorer(nil)

	self := scorer.ScoreText("I want to kill myself")
	assert.GreaterOrEqual(t, self.RiskScore, 0.15)
	assert.Less(t, self.RiskScore, 0.5)

	call := scorer.ScoreText("We should kill them all")
	assert.GreaterOrEqual(t, call.RiskScore, 0.7)

	hate := scorer.ScoreText("They are subhuman vermin")
	assert.GreaterOrEqual(t, hate.RiskScore, 0.5)
	assert.Equal(t, 2, hate.HateHitsStrong)

	generic := scorer.ScoreText("I hate Mondays")
	assert.Less(t, generic.RiskScore, 0.2)
	assert.Equal(t, 1, generic.HateHitsGeneric)
}

func TestScoreText_EmptyAndNonText(t *testing.T) {
	scorer := NewScorer(nil)

	for _, text := range []string{"", "   ", "12345 !!!", "... ??? !!!!!", "日本語のテキスト"} {
		v := scorer.ScoreText(text)
		assert.Equal(t, model.ViolenceNone, v.ViolenceType, "text %q", text)
		assert.Zero(t, v.RiskScore, "text %q", text)
	}

	c := scorer.ClassifyViolenceType("")
	assert.Equal(t, "no text", c.Details)
	assert.False(t, c.HasViolence)
}

func TestScoreText_IntensityIsMonotonic(t *testing.T) {
	scorer := NewScorer(nil)

	loud := scorer.ScoreText("KILL THEM ALL!!!")
	quiet := scorer.ScoreText("kill them all")

	assert.Equal(t, 2, loud.AllCapsWords)
	assert.Equal(t, 3, loud.Exclamations)
	assert.GreaterOrEqual(t, loud.RiskScore, quiet.RiskScore)
	assert.Contains(t, loud.Explanation, "intense tone (many ALL CAPS words)")
	assert.Contains(t, loud.Explanation, "emotional tone (many exclamation marks)")
}

func TestScoreText_CeilingGuard(t *testing.T) {
	scorer := NewScorer(nil)

	// One violent verb plus stylistic bonuses is not enough corroboration
	v := scorer.ScoreText("KILL THEM ALL!!!")
	assert.Equal(t, model.ViolenceCallToViolence, v.ViolenceType)
	assert.InDelta(t, 0.8, v.RiskScore, 1e-9)

	// Two violent verbs corroborate a high score
	v = scorer.ScoreText("KILL THEM ALL, SHOOT THEM!!!")
	assert.Equal(t, model.ViolenceCallToViolence, v.ViolenceType)
	assert.Equal(t, 2, v.ViolentHits)
	assert.InDelta(t, 0.91, v.RiskScore, 1e-9)
}

func TestScoreText_Bonuses(t *testing.T) {
	scorer := NewScorer(nil)

	// Bonus caps: 6 strong hate terms contribute at most 0.25
	v := scorer.ScoreText("vermin vermin vermin parasites parasites cockroaches")
	assert.Equal(t, model.ViolenceHateSpeech, v.ViolenceType)
	assert.Equal(t, 6, v.HateHitsStrong)
	assert.InDelta(t, 0.75, v.RiskScore, 1e-9)

	// Generic hate is capped at 0.10 and never escalates the type
	v = scorer.ScoreText(strings.Repeat("hate destroy ", 10))
	assert.Equal(t, model.ViolenceNone, v.ViolenceType)
	assert.InDelta(t, 0.10, v.RiskScore, 1e-9)
}

func TestClassifyViolenceType_Rules(t *testing.T) {
	scorer := NewScorer(nil)

	tests := []struct {
		name        string
		text        string
		wantType    model.ViolenceType
		wantDetails string
	}{
		{
			name:        "trigger phrase go kill",
			text:        "lets go kill the boss",
			wantType:    model.ViolenceCallToViolence,
			wantDetails: "violence type: call_to_violence; example windows: lets go kill the boss",
		},
		{
			name:        "trigger phrase kill all",
			text:        "kill all zombies",
			wantType:    model.ViolenceCallToViolence,
			wantDetails: "violence type: call_to_violence; example windows: kill all zombies",
		},
		{
			name:        "descriptive report",
			text:        "The police said the suspect tried to murder a clerk",
			wantType:    model.ViolenceDescriptive,
			wantDetails: "violence type: descriptive; example windows: suspect tried to murder a clerk",
		},
		{
			name:        "tied windows are all reported",
			text:        "kill bill. shoot the moon",
			wantType:    model.ViolenceDescriptive,
			wantDetails: "violence type: descriptive; example windows: kill bill shoot the | kill bill shoot the moon",
		},
		{
			name:        "generic only",
			text:        "I hate this and want to destroy it",
			wantType:    model.ViolenceNone,
			wantDetails: "only generic hate words in non-violent context",
		},
		{
			name:        "no terms",
			text:        "Nice picture of a cat",
			wantType:    model.ViolenceNone,
			wantDetails: "no violent or hate-related terms detected",
		},
		{
			name:        "strong hate without verb",
			text:        "those parasites again",
			wantType:    model.ViolenceHateSpeech,
			wantDetails: "dehumanizing expressions without explicit violent verb",
		},
		{
			name:        "no substring matching",
			text:        "The skillful bomber jacket",
			wantType:    model.ViolenceNone,
			wantDetails: "no violent or hate-related terms detected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := scorer.ClassifyViolenceType(tt.text)
			assert.Equal(t, tt.wantType, c.ViolenceType)
			assert.Equal(t, tt.wantDetails, c.Details)
			assert.Equal(t, tt.wantType != model.ViolenceNone, c.HasViolence)
		})
	}
}

func TestClassifyViolenceType_MostSevereWins(t *testing.T) {
	scorer := NewScorer(nil)

	// descriptive occurrence first, self-directed occurrence later
	c := scorer.ClassifyViolenceType("Soldiers attack villages far away from here. I want to kill myself")
	assert.Equal(t, model.ViolenceSelfDirected, c.ViolenceType)
	assert.Equal(t, "violence type: self_directed; example windows: i want to kill myself", c.Details)

	// self pronoun is checked before other pronouns in the same window
	c = scorer.ClassifyViolenceType("they made me kill")
	assert.Equal(t, model.ViolenceSelfDirected, c.ViolenceType)

	// call to violence outranks self-directed
	c = scorer.ClassifyViolenceType("I want to kill myself. Then honestly somebody should kill them")
	assert.Equal(t, model.ViolenceCallToViolence, c.ViolenceType)
}

func TestScoreText_Explanation(t *testing.T) {
	scorer := NewScorer(nil)

	v := scorer.ScoreText("I want to kill myself")
	parts := strings.Split(v.Explanation, " | ")
	require.GreaterOrEqual(t, len(parts), 6)
	assert.Equal(t, "violence_type=self_directed", parts[0])
	assert.Equal(t, "violent_hits=1", parts[2])
	assert.Equal(t, "hate_hits_strong=0", parts[3])
	assert.Equal(t, "hate_hits_generic=0", parts[4])
	assert.Contains(t, v.Explanation, "self-directed wording")

	v = scorer.ScoreText("The police said the suspect tried to murder a clerk")
	assert.Contains(t, v.Explanation, "descriptive context")
}

func TestCountAllCapsWords(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"STOP THIS NOW", 2},
		{"HELLO, WORLD", 1},
		{"Hello WORLD", 1},
		{"ÜBER GROSS", 2},
		{"I AM OK", 0},
		{"ABC1 ABCD", 1},
		{"", 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, countAllCapsWords(tt.text), "text %q", tt.text)
	}
}

func TestScorer_CustomLexicon(t *testing.T) {
	lex, err := lexicon.New([]string{"maim"}, []string{"rats"}, []string{"despise"})
	require.NoError(t, err)
	scorer := NewScorer(lex)

	v := scorer.ScoreText("we should maim them")
	assert.Equal(t, model.ViolenceCallToViolence, v.ViolenceType)
	assert.Equal(t, 1, v.ViolentHits)

	v = scorer.ScoreText("kill them")
	assert.Equal(t, model.ViolenceNone, v.ViolenceType, "default verbs are not in the custom lexicon")
	assert.Same(t, lex, scorer.Lexicon())
}

func TestScorer_ConcurrentUse(t *testing.T) {
	scorer := NewScorer(nil)
	want := scorer.ScoreText("We should kill them all")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				got := scorer.ScoreText("We should kill them all")
				if got != want {
					t.Errorf("non-deterministic verdict: %+v != %+v", got, want)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestScoreText_LongInput(t *testing.T) {
	scorer := NewScorer(nil)
	text := strings.Repeat("kill them vermin! ", 20000)

	v := scorer.ScoreText(text)
	assert.Equal(t, model.ViolenceCallToViolence, v.ViolenceType)
	assert.LessOrEqual(t, v.RiskScore, 1.0)
	assert.Equal(t, 20000, v.ViolentHits)
}

func TestAggregateUserScore(t *testing.T) {
	assert.Equal(t, 0.0, AggregateUserScore(nil))
	assert.Equal(t, 0.0, AggregateUserScore([]float64{}))
	assert.InDelta(t, 0.7*0.9+0.3*0.4, AggregateUserScore([]float64{0.1, 0.2, 0.9}), 1e-9)
	assert.InDelta(t, 0.75, AggregateUserScore([]float64{0.1, 0.2, 0.9}), 1e-9)
	assert.InDelta(t, 0.5, AggregateUserScore([]float64{0.5}), 1e-9)
	assert.InDelta(t, 0.0, AggregateUserScore([]float64{0, 0, 0}), 1e-9)
}
