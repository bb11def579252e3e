// Package lexicon holds the fixed word lists the risk scorer matches tokens
// against. A Lexicon is immutable once built and safe for concurrent use.
package lexicon

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrOverlap is returned when a term appears in more than one category.
var ErrOverlap = errors.New("lexicon categories overlap")

var (
	defaultViolentVerbs = []string{
		"kill", "shoot", "attack", "bomb", "murder",
		"stab", "lynch", "slaughter", "execute",
	}

	defaultStrongHate = []string{
		"exterminate", "genocide",
		"subhuman", "vermin", "cockroach", "cockroaches",
		"parasite", "parasites",
	}

	// Weak sentiment words; never enough on their own to imply hate speech
	defaultGenericHate = []string{"hate", "destroy"}

	selfPronouns  = newSet([]string{"i", "me", "myself"})
	otherPronouns = newSet([]string{
		"you", "him", "her", "them", "they",
		"those", "these", "people",
	})
)

// Lexicon is the set of terms used for token-level classification
type Lexicon struct {
	violentVerbs map[string]struct{}
	strongHate   map[string]struct{}
	genericHate  map[string]struct{}
}

// Default returns the built-in English lexicon
func Default() *Lexicon {
	l, err := New(defaultViolentVerbs, defaultStrongHate, defaultGenericHate)
	if err != nil {
		panic(fmt.Sprintf("built-in lexicon is invalid: %v", err))
	}
	return l
}

// DefaultViolentVerbs returns a copy of the built-in violent verb list.
func DefaultViolentVerbs() []string { return append([]string(nil), defaultViolentVerbs...) }

// DefaultStrongHate returns a copy of the built-in dehumanizing term list.
func DefaultStrongHate() []string { return append([]string(nil), defaultStrongHate...) }

// DefaultGenericHate returns a copy of the built-in generic hate word list.
func DefaultGenericHate() []string { return append([]string(nil), defaultGenericHate...) }

// New builds a lexicon from the three term lists. Terms are lowercased and
// trimmed; blanks are dropped. The categories must be disjoint.
func New(violentVerbs, strongHate, genericHate []string) (*Lexicon, error) {
	l := &Lexicon{
		violentVerbs: newSet(violentVerbs),
		strongHate:   newSet(strongHate),
		genericHate:  newSet(genericHate),
	}

	if shared := intersect(l.violentVerbs, l.strongHate); len(shared) > 0 {
		return nil, fmt.Errorf("%w: violent verbs and strong hate share %v", ErrOverlap, shared)
	}
	if shared := intersect(l.violentVerbs, l.genericHate); len(shared) > 0 {
		return nil, fmt.Errorf("%w: violent verbs and generic hate share %v", ErrOverlap, shared)
	}
	if shared := intersect(l.strongHate, l.genericHate); len(shared) > 0 {
		return nil, fmt.Errorf("%w: strong hate and generic hate share %v", ErrOverlap, shared)
	}

	return l, nil
}

// IsViolentVerb reports whether tok is a violent action verb
func (l *Lexicon) IsViolentVerb(tok string) bool {
	_, ok := l.violentVerbs[tok]
	return ok
}

// IsStrongHate reports whether tok is a dehumanizing term
func (l *Lexicon) IsStrongHate(tok string) bool {
	_, ok := l.strongHate[tok]
	return ok
}

// IsGenericHate reports whether tok is a weak hate/sentiment word
func (l *Lexicon) IsGenericHate(tok string) bool {
	_, ok := l.genericHate[tok]
	return ok
}

// IsSelfPronoun reports whether tok refers to the author
func IsSelfPronoun(tok string) bool {
	_, ok := selfPronouns[tok]
	return ok
}

// IsOtherPronoun reports whether tok refers to someone other than the author
func IsOtherPronoun(tok string) bool {
	_, ok := otherPronouns[tok]
	return ok
}

// Size returns the number of terms in each category.
func (l *Lexicon) Size() (violent, strong, generic int) {
	return len(l.violentVerbs), len(l.strongHate), len(l.genericHate)
}

func newSet(terms []string) map[string]struct{} {
	set := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		set[t] = struct{}{}
	}
	return set
}

func intersect(a, b map[string]struct{}) []string {
	var shared []string
	for t := range a {
		if _, ok := b[t]; ok {
			shared = append(shared, t)
		}
	}
	sort.Strings(shared)
	return shared
}
