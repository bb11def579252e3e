package score

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ppiankov/riskfeed/internal/lexicon"
	"github.com/ppiankov/riskfeed/internal/model"
)

const (
	// windowRadius is how many tokens on each side of a violent verb are inspected
	windowRadius = 3

	// uncorroborated verdicts never score above ceilingCap
	ceilingCap = 0.8
)

var (
	tokenPattern   = regexp.MustCompile(`[A-Za-z']+`)
	triggerPattern = regexp.MustCompile(`\bkill all\b|\bshoot all\b|\bwe should kill\b|\bgo kill\b`)
)

var baseByType = [...]float64{
	model.ViolenceNone:           0.00,
	model.ViolenceDescriptive:    0.05,
	model.ViolenceSelfDirected:   0.15,
	model.ViolenceHateSpeech:     0.50,
	model.ViolenceCallToViolence: 0.75,
}

// RiskScorer classifies text and computes a bounded, explainable risk score.
// It holds only an immutable lexicon and is safe for concurrent use.
type RiskScorer struct {
	lex *lexicon.Lexicon
}

// NewScorer creates a new scorer. A nil lexicon selects the built-in one.
func NewScorer(lex *lexicon.Lexicon) *RiskScorer {
	if lex == nil {
		lex = lexicon.Default()
	}
	return &RiskScorer{lex: lex}
}

// Lexicon returns the lexicon the scorer matches against
func (s *RiskScorer) Lexicon() *lexicon.Lexicon {
	return s.lex
}

type mention struct {
	kind   model.ViolenceType
	window string
}

// ClassifyViolenceType decides what kind of violence, if any, the text expresses
func (s *RiskScorer) ClassifyViolenceType(text string) model.ClassificationResult {
	return s.classify(tokenize(text))
}

func (s *RiskScorer) classify(tokens []string) model.ClassificationResult {
	if len(tokens) == 0 {
		return noViolence("no text")
	}

	var hasViolent, hasStrong, hasGeneric bool
	for _, tok := range tokens {
		hasViolent = hasViolent || s.lex.IsViolentVerb(tok)
		hasStrong = hasStrong || s.lex.IsStrongHate(tok)
		hasGeneric = hasGeneric || s.lex.IsGenericHate(tok)
	}

	if !hasViolent && !hasStrong && !hasGeneric {
		return noViolence("no violent or hate-related terms detected")
	}

	var mentions []mention
	for i, tok := range tokens {
		if !s.lex.IsViolentVerb(tok) {
			continue
		}
		window := contextWindow(tokens, i)
		mentions = append(mentions, mention{
			kind:   classifyWindow(window),
			window: strings.Join(window, " "),
		})
	}

	if len(mentions) == 0 {
		switch {
		case hasStrong:
			return model.ClassificationResult{
				ViolenceType: model.ViolenceHateSpeech,
				Details:      "dehumanizing expressions without explicit violent verb",
				HasViolence:  true,
			}
		case hasGeneric:
			return noViolence("only generic hate words in non-violent context")
		default:
			return noViolence("violent context unclear")
		}
	}

	chosen := model.ViolenceNone
	var windows []string
	for _, m := range mentions {
		switch {
		case m.kind.MoreSevereThan(chosen):
			chosen = m.kind
			windows = []string{m.window}
		case m.kind == chosen:
			windows = append(windows, m.window)
		}
	}

	return model.ClassificationResult{
		ViolenceType: chosen,
		Details:      fmt.Sprintf("violence type: %s; example windows: %s", chosen, strings.Join(windows, " | ")),
		HasViolence:  chosen != model.ViolenceNone,
	}
}

// classifyWindow applies the per-occurrence rules; first match wins
func classifyWindow(window []string) model.ViolenceType {
	for _, tok := range window {
		if lexicon.IsSelfPronoun(tok) {
			return model.ViolenceSelfDirected
		}
	}
	for _, tok := range window {
		if lexicon.IsOtherPronoun(tok) {
			return model.ViolenceCallToViolence
		}
	}
	if triggerPattern.MatchString(strings.Join(window, " ")) {
		return model.ViolenceCallToViolence
	}
	return model.ViolenceDescriptive
}

// ScoreText computes the risk verdict for a piece of text
func (s *RiskScorer) ScoreText(text string) model.RiskVerdict {
	tokens := tokenize(text)
	classification := s.classify(tokens)
	vType := classification.ViolenceType

	// 1. Token hits (exact membership)
	var violentHits, strongHits, genericHits int
	for _, tok := range tokens {
		switch {
		case s.lex.IsViolentVerb(tok):
			violentHits++
		case s.lex.IsStrongHate(tok):
			strongHits++
		case s.lex.IsGenericHate(tok):
			genericHits++
		}
	}

	// 2. Stylistic intensity on the raw text
	capsWords := countAllCapsWords(text)
	exclamations := strings.Count(text, "!")

	// 3. Base + capped bonus
	raw := baseByType[vType]
	if len(tokens) > 0 {
		raw += math.Min(float64(violentHits)*0.03, 0.15)
		raw += math.Min(float64(strongHits)*0.07, 0.25)
		raw += math.Min(float64(genericHits)*0.02, 0.10)
		if capsWords >= 2 {
			raw += 0.05
		}
		if exclamations >= 3 {
			raw += 0.05
		}
	}

	// 4. Clamp and guard
	risk := clamp01(raw)
	corroborated := (vType == model.ViolenceCallToViolence || vType == model.ViolenceHateSpeech) &&
		strongHits+violentHits >= 2
	// an uncorroborated verdict never scores above ceilingCap
	if risk > ceilingCap && !corroborated {
		risk = ceilingCap
	}

	// 5. Explanation
	parts := []string{
		"violence_type=" + vType.String(),
		classification.Details,
		fmt.Sprintf("violent_hits=%d", violentHits),
		fmt.Sprintf("hate_hits_strong=%d", strongHits),
		fmt.Sprintf("hate_hits_generic=%d", genericHits),
	}
	if capsWords >= 2 {
		parts = append(parts, "intense tone (many ALL CAPS words)")
	}
	if exclamations >= 3 {
		parts = append(parts, "emotional tone (many exclamation marks)")
	}
	switch vType {
	case model.ViolenceSelfDirected:
		parts = append(parts, "self-directed wording (e.g. 'kill me'), not a call to harm others but still potentially concerning")
	case model.ViolenceDescriptive:
		parts = append(parts, "violent words appear in descriptive context, not as a call to action")
	}

	return model.RiskVerdict{
		RiskScore:       risk,
		ViolenceType:    vType,
		ViolentHits:     violentHits,
		HateHitsStrong:  strongHits,
		HateHitsGeneric: genericHits,
		AllCapsWords:    capsWords,
		Exclamations:    exclamations,
		Explanation:     strings.Join(parts, " | "),
	}
}

// tokenize lowercases text and extracts runs of letters and apostrophes
func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

func contextWindow(tokens []string, i int) []string {
	start := i - windowRadius
	if start < 0 {
		start = 0
	}
	end := i + windowRadius + 1
	if end > len(tokens) {
		end = len(tokens)
	}
	return tokens[start:end]
}

// countAllCapsWords counts whitespace-delimited words made only of letters,
// with no lowercase letters, at least one uppercase letter and more than 3 characters
func countAllCapsWords(text string) int {
	count := 0
	for _, w := range strings.Fields(text) {
		if utf8.RuneCountInString(w) > 3 && isAllCaps(w) {
			count++
		}
	}
	return count
}

func isAllCaps(w string) bool {
	hasUpper := false
	for _, r := range w {
		if !unicode.IsLetter(r) || unicode.IsLower(r) || unicode.IsTitle(r) {
			return false
		}
		if unicode.IsUpper(r) {
			hasUpper = true
		}
	}
	return hasUpper
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func noViolence(details string) model.ClassificationResult {
	return model.ClassificationResult{
		ViolenceType: model.ViolenceNone,
		Details:      details,
	}
}
