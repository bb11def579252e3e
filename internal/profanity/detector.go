// Package profanity flags abusive vocabulary using a dictionary of bad words.
package profanity

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/riskfeed/internal/lexicon"
)

// Detector finds dictionary words in text
type Detector struct {
	words map[string]struct{}
}

// NewDetector creates a detector for the given words; they are lowercased
func NewDetector(words []string) *Detector {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			set[w] = struct{}{}
		}
	}
	return &Detector{words: set}
}

// LoadBadWords reads a word file (one term per line, '#' comments) into a detector
func LoadBadWords(path string) (*Detector, error) {
	words, err := lexicon.ReadTermsFile(path)
	if err != nil {
		return nil, fmt.Errorf("load bad words: %w", err)
	}
	return NewDetector(words), nil
}

// Len returns the dictionary size
func (d *Detector) Len() int {
	return len(d.words)
}

// Detect returns the distinct dictionary words found in text, sorted
func (d *Detector) Detect(text string) []string {
	if text == "" || len(d.words) == 0 {
		return nil
	}

	text = strings.Map(func(r rune) rune {
		if isASCIIPunct(r) {
			return ' '
		}
		return r
	}, strings.ToLower(text))

	seen := make(map[string]struct{})
	var matched []string
	for _, tok := range strings.Fields(text) {
		if _, ok := d.words[tok]; !ok {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		matched = append(matched, tok)
	}

	sort.Strings(matched)
	return matched
}

// Analyze checks a post's title and body together
func (d *Detector) Analyze(title, body string) (bool, []string) {
	matched := d.Detect(title + " " + body)
	return len(matched) > 0, matched
}

func isASCIIPunct(r rune) bool {
	return strings.ContainsRune("!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~", r)
}
