// Package server implements the profanity filter applied to chat text before
// it is stored and broadcast. Filtering is a pure function over the text, the
// room's filter level, and the configured word lists.
package server

import "strings"

// FilterLevel selects which word lists apply to a room's chat text.
type FilterLevel string

const (
	FilterNone   FilterLevel = "none"
	FilterSwears FilterLevel = "swears"
	FilterSlurs  FilterLevel = "slurs"
	FilterBoth   FilterLevel = "both"
)

// ParseFilterLevel maps a wire string to a FilterLevel, defaulting to none
// for empty or unrecognized values.
func ParseFilterLevel(s string) FilterLevel {
	switch FilterLevel(s) {
	case FilterSwears, FilterSlurs, FilterBoth:
		return FilterLevel(s)
	default:
		return FilterNone
	}
}

// FilterData holds the two word lists loaded from the filter store.
type FilterData struct {
	Swears []string `json:"swears"`
	Slurs  []string `json:"slurs"`
}

// FilterProfanity masks words in text that exactly match an entry of the word
// lists selected by level. Matching is case-insensitive and ignores
// punctuation inside the token: "Darn!" matches "darn" and becomes "****!".
// Only word characters are replaced, so the surrounding punctuation and all
// whitespace keep their positions. Exact matching (rather than substring)
// avoids the false positives a wildcard match produces on innocent words.
//
// The second return reports whether anything was masked.
func FilterProfanity(text string, level FilterLevel, data FilterData) (string, bool) {
	if level == FilterNone {
		return text, false
	}

	var words []string
	switch level {
	case FilterSwears:
		words = data.Swears
	case FilterSlurs:
		words = data.Slurs
	case FilterBoth:
		words = make([]string, 0, len(data.Swears)+len(data.Slurs))
		words = append(words, data.Swears...)
		words = append(words, data.Slurs...)
	default:
		return text, false
	}
	if len(words) == 0 {
		return text, false
	}

	banned := make(map[string]struct{}, len(words))
	for _, w := range words {
		banned[strings.ToLower(w)] = struct{}{}
	}

	tokens := splitKeepingWhitespace(text)
	filtered := false
	for i, tok := range tokens {
		if isWhitespace(tok) {
			continue
		}
		masked, hit := maskToken(tok, banned)
		if hit {
			tokens[i] = masked
			filtered = true
		}
	}
	if !filtered {
		return text, false
	}
	return strings.Join(tokens, ""), true
}

// maskToken strips the token down to its word characters, case-folds them,
// and tests exact equality against the banned set. On a hit every word
// character in the token is replaced with '*'. Exact equality means the
// asterisk count equals the matched filter word's length.
func maskToken(token string, banned map[string]struct{}) (string, bool) {
	var bare strings.Builder
	for _, r := range token {
		if isWordRune(r) {
			bare.WriteRune(toLowerRune(r))
		}
	}
	if bare.Len() == 0 {
		return token, false
	}
	if _, hit := banned[bare.String()]; !hit {
		return token, false
	}

	masked := []rune(token)
	for i, r := range masked {
		if isWordRune(r) {
			masked[i] = '*'
		}
	}
	return string(masked), true
}

// splitKeepingWhitespace breaks text into alternating runs of whitespace and
// non-whitespace so the original spacing survives reassembly verbatim.
func splitKeepingWhitespace(text string) []string {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	var tokens []string
	start := 0
	inSpace := isSpaceRune(runes[0])
	for i := 1; i < len(runes); i++ {
		if isSpaceRune(runes[i]) != inSpace {
			tokens = append(tokens, string(runes[start:i]))
			start = i
			inSpace = !inSpace
		}
	}
	return append(tokens, string(runes[start:]))
}

func isWhitespace(token string) bool {
	for _, r := range token {
		if !isSpaceRune(r) {
			return false
		}
	}
	return token != ""
}

// Word characters are ASCII letters, digits, and underscore.
func isWordRune(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}

func isSpaceRune(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

func toLowerRune(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}
