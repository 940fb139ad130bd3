package moderation

import (
	"log/slog"
	"testing"
	"testing/fstest"

	"synergy/errors"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const replacementChar = '*'

// The dictionary uses specific words to avoid partial collisions (e.g., "he" inside "The")
func TestFilter_Scan(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	filter, err := NewFilter([]string{"badger", "snake", "mushroom"}, replacementChar, log)
	req.NoError(err)

	tests := []struct {
		name     string
		input    string
		expected string
		words    []string
	}{
		{"Simple word and space preservation", "The badger is here", "The ****** is here", []string{"badger"}},
		{"Multiple occurrences", "badger badger", "****** ******", []string{"badger", "badger"}},
		{"Leet speak and internal punctuation", "Look at B.4.d.g.€r now", "Look at ********** now", []string{"badger"}},
		{"Uppercase and noise", "S-N-A-K-E is here", "********* is here", []string{"snake"}},
		{"Accents are kept", "Un été avec un badger", "Un été avec un ******", []string{"badger"}},
		{"Nothing to censor", "hello team", "hello team", nil},
		{"Empty string", "", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, words := filter.Scan(tt.input)
			require.Equal(t, tt.expected, content)
			require.Equal(t, tt.words, words)
		})
	}
}

func TestFilter_Censor_Returns_Masked_Content(t *testing.T) {
	req := require.New(t)
	filter, err := NewFilter([]string{"badger"}, '#', logs.GetLoggerFromLevel(slog.LevelDebug))
	req.NoError(err)

	req.Equal("I love ######!", filter.Censor("I love badger!"))
}

func TestFilter_Requires_Words(t *testing.T) {
	req := require.New(t)
	_, err := NewFilter([]string{"...", ",,,", ""}, replacementChar, slog.Default())
	req.ErrorIs(err, errors.ErrEmptyWords)
}

func TestLoadDictionary(t *testing.T) {
	req := require.New(t)
	fsys := fstest.MapFS{
		"censored/en.txt":    {Data: []byte("badger\r\nsnake\n\n")},
		"censored/fr.txt":    {Data: []byte("blaireau\nbadger\n")},
		"censored/README.md": {Data: []byte("not a list")},
	}

	dictionary, err := LoadDictionary(fsys, "censored")

	req.NoError(err)
	req.ElementsMatch([]string{"en", "fr"}, dictionary.Languages)
	req.ElementsMatch([]string{"badger", "snake", "blaireau"}, dictionary.Words)
}

func TestLoadDictionary_Empty(t *testing.T) {
	req := require.New(t)
	fsys := fstest.MapFS{"censored/en.txt": {Data: []byte("\n  \n")}}

	_, err := LoadDictionary(fsys, "censored")
	req.ErrorIs(err, errors.ErrEmptyWords)
}
