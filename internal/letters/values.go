// internal/letters/values.go
//
// Scrabble-style letter values used for word scoring.
// Lookups are case-insensitive; anything outside A–Z is worth 0.

package letters

import "unicode"

// values maps an uppercase letter to its point value.
var values = map[rune]int{
	'A': 1, 'B': 3, 'C': 3, 'D': 2, 'E': 1, 'F': 4, 'G': 2, 'H': 4, 'I': 1,
	'J': 8, 'K': 5, 'L': 1, 'M': 3, 'N': 1, 'O': 1, 'P': 3, 'Q': 10, 'R': 1,
	'S': 1, 'T': 1, 'U': 1, 'V': 4, 'W': 4, 'X': 8, 'Y': 4, 'Z': 10,
}

// Value returns the point value of r, or 0 for unknown runes.
func Value(r rune) int {
	return values[unicode.ToUpper(r)]
}

// IsLetter reports whether r is an ASCII letter A–Z (either case).
func IsLetter(r rune) bool {
	r = unicode.ToUpper(r)
	return r >= 'A' && r <= 'Z'
}
