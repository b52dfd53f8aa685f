// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

// Package slug derives URL-safe identifiers from event titles.
package slug

import (
	"fmt"
	"strings"
	"unicode"
)

// translit maps characters the catalogue sees in Finnish and Swedish titles
// to ASCII. Anything not covered here and not alphanumeric becomes a hyphen.
var translit = map[rune]string{
	'ä': "a", 'å': "a", 'ö': "o", 'ü': "u",
	'é': "e", 'è': "e", 'ê': "e",
	'á': "a", 'à': "a", 'â': "a",
	'ó': "o", 'ò': "o", 'ô': "o",
	'í': "i", 'ì': "i",
	'ç': "c", 'ñ': "n",
	'ß': "ss",
	'&': "ja",
}

// Make converts a title into a lowercase hyphenated slug.
// Make is idempotent: Make(Make(s)) == Make(s).
func Make(title string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphens

	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if repl, ok := translit[r]; ok {
				b.WriteString(repl)
				lastHyphen = false
				continue
			}
			if unicode.IsLetter(r) || unicode.IsNumber(r) {
				// Unmapped letters pass through so non-Latin titles still
				// produce a usable slug.
				b.WriteRune(r)
				lastHyphen = false
				continue
			}
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	return strings.TrimRight(b.String(), "-")
}

// WithSuffix appends a numeric disambiguation suffix.
func WithSuffix(s string, n int) string {
	return fmt.Sprintf("%s-%d", s, n)
}
