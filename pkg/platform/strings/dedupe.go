// Package strings provides string manipulation utilities.
package strings

import (
	"strings"
	"unicode"
)

// DedupeAndTrimLower trims and lowercases each element, dropping empties and
// duplicates. Order is preserved.
//
// Example:
//
//	DedupeAndTrimLower([]string{"  BRANDON ", "bickford", "Brandon"})
//	// Returns: []string{"brandon", "bickford"}
func DedupeAndTrimLower(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.ToLower(strings.TrimSpace(v))
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}

// AllTokensAlpha reports whether s has at least one whitespace-separated token
// and every token consists solely of letters.
//
// Example:
//
//	AllTokensAlpha("Brandon Bickford") // true
//	AllTokensAlpha("Brandon 4567")     // false
//	AllTokensAlpha("O'Neil")           // false
func AllTokensAlpha(s string) bool {
	tokens := strings.Fields(s)
	if len(tokens) == 0 {
		return false
	}
	for _, tok := range tokens {
		for _, r := range tok {
			if !unicode.IsLetter(r) {
				return false
			}
		}
	}
	return true
}
