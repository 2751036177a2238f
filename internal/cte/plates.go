package cte

import (
	"regexp"
	"unicode"
	"unicode/utf8"

	"github.com/rpattn/ctedash/internal/domain"
)

// platePattern approximates Brazilian plates: three capital letters, one to
// four digits and up to three trailing letters or digits. It accepts both the
// old and the Mercosul layouts without telling them apart, so it can match
// words that are not plates and miss plates written with separators
// ("ABC-1234"). Results are tagged domain.PlateProvenanceHeuristic.
//
// Go's \b only knows ASCII word characters, so the word boundaries are checked
// in standsOnItsOwn against Unicode letters and numbers instead.
var platePattern = regexp.MustCompile(`[A-Z]{3}\p{Nd}{1,4}[A-Z0-9]{0,3}`)

// ExtractPlates scans the observation text left to right and returns every
// plate-shaped token in scan order, duplicates included.
func ExtractPlates(observation *string) domain.Plates {
	if observation == nil || *observation == "" {
		return domain.HeuristicPlates(nil)
	}

	text := *observation
	var tokens []string
	for _, loc := range platePattern.FindAllStringIndex(text, -1) {
		if standsOnItsOwn(text, loc[0], loc[1]) {
			tokens = append(tokens, text[loc[0]:loc[1]])
		}
	}
	return domain.HeuristicPlates(tokens)
}

// standsOnItsOwn reports whether text[start:end] is not glued to a word
// character on either side. Every rune of a match is itself a word character,
// so a rejected match cannot hide a valid one starting inside it.
func standsOnItsOwn(text string, start, end int) bool {
	if start > 0 {
		if before, _ := utf8.DecodeLastRuneInString(text[:start]); isWordRune(before) {
			return false
		}
	}
	if end < len(text) {
		if after, _ := utf8.DecodeRuneInString(text[end:]); isWordRune(after) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}
