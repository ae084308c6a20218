package moderation

import (
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/pkg/errors"
)

// Screener finds blocked terms in message content. It never decides approval:
// matches only flag a message for the moderator and mask notification previews.
type Screener struct {
	matcher    *goahocorasick.Machine
	censorChar rune
}

type textMapping struct {
	normalized []rune
	origIdx    []int
}

// NewScreener builds the automaton from the normalized blocked terms.
// An empty term list yields a Screener that never matches.
func NewScreener(blockedTerms []string, censorChar rune) (*Screener, error) {
	patterns := make([][]rune, 0, len(blockedTerms))
	for _, term := range blockedTerms {
		if p := normalizeRunes([]rune(term)); len(p) > 0 {
			patterns = append(patterns, p)
		}
	}
	s := &Screener{censorChar: censorChar}
	if len(patterns) == 0 {
		return s, nil
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, errors.Wrap(err, "building blocked terms matcher")
	}
	s.matcher = m
	return s, nil
}

// Flags returns the distinct blocked terms found in text, in order of appearance.
func (s *Screener) Flags(text string) []string {
	if s == nil || s.matcher == nil {
		return nil
	}
	mapping := normalize(text)
	if len(mapping.normalized) == 0 {
		return nil
	}
	var flags []string
	seen := make(map[string]struct{})
	for _, term := range s.matcher.MultiPatternSearch(mapping.normalized, false) {
		word := string(term.Word)
		if _, ok := seen[word]; ok {
			continue
		}
		seen[word] = struct{}{}
		flags = append(flags, word)
	}
	return flags
}

// Censor replaces every blocked term occurrence in text, keeping the original spacing.
func (s *Screener) Censor(text string) string {
	if s == nil || s.matcher == nil {
		return text
	}
	mapping := normalize(text)
	if len(mapping.normalized) == 0 {
		return text
	}
	spans := s.matcher.MultiPatternSearch(mapping.normalized, false)
	if len(spans) == 0 {
		return text
	}

	orig := []rune(text)
	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(mapping.origIdx) {
			continue
		}
		for i := mapping.origIdx[start]; i <= mapping.origIdx[end-1]; i++ {
			orig[i] = s.censorChar
		}
	}
	return string(orig)
}

func normalize(input string) textMapping {
	orig := []rune(input)
	m := textMapping{
		normalized: make([]rune, 0, len(orig)),
		origIdx:    make([]int, 0, len(orig)),
	}
	for i, r := range orig {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		m.normalized = append(m.normalized, unicode.ToLower(clean))
		m.origIdx = append(m.origIdx, i)
	}
	return m
}

func normalizeRunes(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		out = append(out, unicode.ToLower(clean))
	}
	return out
}

// simplifyRune maps common leet substitutions back to letters.
func simplifyRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
