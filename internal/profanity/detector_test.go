package profanity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	d := NewDetector([]string{"idiot", "Moron", "scum"})

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", nil},
		{"clean", "What a lovely day", nil},
		{"single", "You idiot", []string{"idiot"}},
		{"case and punctuation", "MORON!!! you absolute moron...", []string{"moron"}},
		{"sorted distinct", "scum, idiot; scum-idiot", []string{"idiot", "scum"}},
		{"no substring", "idiotic behaviour", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.Detect(tt.text))
		})
	}
}

func TestAnalyze(t *testing.T) {
	d := NewDetector([]string{"idiot"})

	has, words := d.Analyze("Title", "what an idiot")
	assert.True(t, has)
	assert.Equal(t, []string{"idiot"}, words)

	// title and body are joined with a space
	has, _ = d.Analyze("idi", "ot")
	assert.False(t, has)

	has, words = d.Analyze("", "")
	assert.False(t, has)
	assert.Empty(t, words)
}

func TestLoadBadWords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.txt")
	require.NoError(t, os.WriteFile(path, []byte("# insults\nIdiot\n\n  scum \n"), 0o644))

	d, err := LoadBadWords(path)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Len())
	assert.Equal(t, []string{"idiot", "scum"}, d.Detect("Idiot and SCUM"))

	_, err = LoadBadWords(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestEmptyDictionary(t *testing.T) {
	assert.Nil(t, NewDetector(nil).Detect("anything at all"))
}
