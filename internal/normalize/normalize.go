// Package normalize turns freeform form input into consistently capitalized
// display strings.
package normalize

import (
	"strings"
	"unicode"

	"ms-registration/internal/models"
)

// abbreviations are rendered fully upper-case wherever they appear as a word
// or as one hyphen-delimited part of a word.
var abbreviations = map[string]struct{}{}

func init() {
	for _, group := range [][]string{
		// Canadian provinces and territories
		{"bc", "ab", "sk", "mb", "on", "qc", "nb", "ns", "pe", "pei", "nl", "yt", "nt", "nu"},
		// US states seen on past entries
		{"wa", "ca", "nv", "az", "mt", "tx", "ny", "fl", "nm", "ut"},
		// countries and generic abbreviations
		{"usa", "us", "uk", "gmc", "bmw", "amc", "mg", "vw", "suv"},
		// trim and performance codes
		{"ss", "rs", "gt", "gto", "gti", "gtx", "srt", "srt8", "svt", "amg", "rt", "r/t", "t/a",
			"z28", "z/28", "zl1", "zr1", "z06", "z71", "ls", "lt", "ltz", "se", "xl", "xlt",
			"sc", "v6", "v8", "v12", "4x4", "cj", "cj5", "cj7", "hd"},
		// roman numerals
		{"ii", "iii", "iv"},
	} {
		for _, abbr := range group {
			abbreviations[abbr] = struct{}{}
		}
	}
}

// IsAbbreviation reports whether word is rendered fully upper-case.
func IsAbbreviation(word string) bool {
	_, ok := abbreviations[strings.ToLower(word)]
	return ok
}

// ToDisplay title-cases text word by word. Runs of whitespace collapse to a
// single space. Applying it twice yields the same result as applying it once.
func ToDisplay(text string) string {
	if text == "" {
		return text
	}
	words := strings.Fields(strings.ToLower(text))
	for i, word := range words {
		words[i] = displayWord(word)
	}
	return strings.Join(words, " ")
}

func displayWord(word string) string {
	if IsAbbreviation(word) {
		return strings.ToUpper(word)
	}
	if idx := strings.IndexRune(word, '\''); idx >= 0 {
		if idx == 1 {
			// o'brien -> O'Brien
			runes := []rune(word)
			runes[0] = unicode.ToUpper(runes[0])
			if len(runes) > 2 {
				runes[2] = unicode.ToUpper(runes[2])
			}
			return string(runes)
		}
		// mcdonald's -> Mcdonald's
		return capitalize(word)
	}
	if strings.Contains(word, "-") {
		parts := strings.Split(word, "-")
		for i, part := range parts {
			if IsAbbreviation(part) {
				parts[i] = strings.ToUpper(part)
				continue
			}
			parts[i] = capitalize(part)
		}
		return strings.Join(parts, "-")
	}
	return capitalize(word)
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(word string) string {
	if word == "" {
		return word
	}
	runes := []rune(strings.ToLower(word))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// Email lower-cases and trims an address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// PostalCode upper-cases and trims a postal or ZIP code.
func PostalCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Registration normalizes every display field of raw. Empty fields pass
// through unchanged; year is trimmed but keeps its case.
func Registration(raw models.RegistrationFields) models.RegistrationFields {
	return models.RegistrationFields{
		FirstName:  ToDisplay(raw.FirstName),
		LastName:   ToDisplay(raw.LastName),
		Email:      Email(raw.Email),
		Country:    ToDisplay(raw.Country),
		Province:   ToDisplay(raw.Province),
		City:       ToDisplay(raw.City),
		PostalCode: PostalCode(raw.PostalCode),
		Year:       strings.TrimSpace(raw.Year),
		Make:       ToDisplay(raw.Make),
		Model:      ToDisplay(raw.Model),
		ClubName:   ToDisplay(raw.ClubName),
	}
}
