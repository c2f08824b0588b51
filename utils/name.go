package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	folder   = cases.Fold()
	unaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// NameKey normalizes a place name into a comparison key: accents removed,
// case folded, inner whitespace collapsed. "São José do Rio Preto" and
// "sao jose  do rio preto" share a key.
func NameKey(name string) string {
	stripped, _, err := transform.String(unaccent, name)
	if err != nil {
		stripped = name
	}
	return strings.Join(strings.Fields(folder.String(stripped)), " ")
}

// EnNameToKey - normalize a place name into all small case with underscore
func EnNameToKey(str string) string {
	return strings.Replace(NameKey(str), " ", "_", -1)
}

// FileName keeps a unit name readable on disk while removing path
// separators and control characters.
func FileName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == ':':
			return '-'
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, norm.NFC.String(strings.TrimSpace(name)))

	if cleaned == "" || cleaned == "." || cleaned == ".." {
		return "_"
	}
	return cleaned
}
