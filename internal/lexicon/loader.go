package lexicon

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadTerms reads one term per line. Lines starting with '#' are comments,
// blank lines are skipped, and every term is lowercased.
func ReadTerms(r io.Reader) ([]string, error) {
	var terms []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		terms = append(terms, strings.ToLower(line))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan terms: %w", err)
	}

	return terms, nil
}

// ReadTermsFile reads a term file from disk
func ReadTermsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open term file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ReadTerms(f)
}

// Files names optional override files for each category. An empty path keeps
// the built-in list for that category.
type Files struct {
	ViolentVerbs string
	StrongHate   string
	GenericHate  string
}

// Load builds a lexicon from the default lists, replacing each category whose
// file is set.
func Load(files Files) (*Lexicon, error) {
	violent, err := termsOrDefault(files.ViolentVerbs, defaultViolentVerbs)
	if err != nil {
		return nil, fmt.Errorf("violent verbs: %w", err)
	}
	strong, err := termsOrDefault(files.StrongHate, defaultStrongHate)
	if err != nil {
		return nil, fmt.Errorf("strong hate terms: %w", err)
	}
	generic, err := termsOrDefault(files.GenericHate, defaultGenericHate)
	if err != nil {
		return nil, fmt.Errorf("generic hate terms: %w", err)
	}

	return New(violent, strong, generic)
}

func termsOrDefault(path string, fallback []string) ([]string, error) {
	if path == "" {
		return fallback, nil
	}
	return ReadTermsFile(path)
}
