// Package moderation masks censored words in chat content before it is persisted.
package moderation

import (
	"log/slog"
	"unicode"

	"synergy/errors"

	"github.com/abadojack/whatlanggo"
	goahocorasick "github.com/anknown/ahocorasick"
)

// leet maps look-alike characters back to letters before matching.
var leet = map[rune]rune{
	'4': 'a', '@': 'a',
	'3': 'e', '€': 'e',
	'1': 'i', '!': 'i', '|': 'i',
	'0': 'o',
	'5': 's', '$': 's',
}

// Filter finds censored words with an Aho-Corasick automaton built over normalized patterns.
// It is safe for concurrent use once built.
type Filter struct {
	matcher     *goahocorasick.Machine
	replacement rune
	log         *slog.Logger
}

// NewFilter builds the automaton. Words that normalize to nothing are skipped.
func NewFilter(words []string, replacement rune, log *slog.Logger) (*Filter, error) {
	patterns := make([][]rune, 0, len(words))
	for _, word := range words {
		if p := normalize([]rune(word), nil); len(p) > 0 {
			patterns = append(patterns, p)
		}
	}
	if len(patterns) == 0 {
		return nil, errors.ErrEmptyWords
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Filter{matcher: m, replacement: replacement, log: log}, nil
}

// Censor returns content with every censored word masked.
func (f *Filter) Censor(content string) string {
	masked, words := f.Scan(content)
	if len(words) > 0 {
		f.log.Info("Censored words masked",
			"count", len(words),
			"lang", whatlanggo.Detect(content).Lang.Iso6391())
	}
	return masked
}

// Scan masks matches in place, preserving spacing and punctuation around them,
// and reports the normalized words that were found.
func (f *Filter) Scan(content string) (string, []string) {
	original := []rune(content)
	var positions []int
	normalized := normalize(original, &positions)
	if len(normalized) == 0 {
		return content, nil
	}

	terms := f.matcher.MultiPatternSearch(normalized, false)
	if len(terms) == 0 {
		return content, nil
	}

	var found []string
	for _, term := range terms {
		end := term.Pos + len(term.Word)
		if term.Pos < 0 || end > len(positions) {
			continue
		}
		for i := positions[term.Pos]; i <= positions[end-1]; i++ {
			original[i] = f.replacement
		}
		found = append(found, string(term.Word))
	}
	return string(original), found
}

// normalize lowercases, folds leet characters and drops noise.
// When positions is not nil it records, for every kept rune, its index in input.
func normalize(input []rune, positions *[]int) []rune {
	out := make([]rune, 0, len(input))
	for i, r := range input {
		if simple, ok := leet[r]; ok {
			r = simple
		}
		if unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r) {
			continue
		}
		out = append(out, unicode.ToLower(r))
		if positions != nil {
			*positions = append(*positions, i)
		}
	}
	return out
}
