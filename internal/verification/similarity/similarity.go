// Package similarity decides whether two free-text person names refer to the
// same name, tolerating small spelling and transliteration differences.
//
// Both names are folded (NFKD, combining marks removed, lowercased) and split
// into letter-only tokens. The name with fewer tokens must have every token
// paired with a distinct token of the other name whose normalized Levenshtein
// similarity is at least Threshold. Tokens shorter than MinFuzzyLen runes must
// match exactly. The predicate is symmetric.
package similarity

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// Threshold is the minimum 1 - distance/maxLen for two tokens to pair.
	Threshold = 0.8
	// MinFuzzyLen is the shortest token length compared with edit distance.
	MinFuzzyLen = 4
)

// IsSimilar reports whether a and b name the same person.
func IsSimilar(a, b string) bool {
	ta, tb := Tokens(a), Tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return false
	}
	small, large := ta, tb
	if len(tb) < len(ta) {
		small, large = tb, ta
	}
	return pairAll(small, large)
}

// TokenSimilarity is 1 - levenshtein(a, b) / max(runeLen(a), runeLen(b)).
// Two empty tokens are identical.
func TokenSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

func tokensMatch(a, b string) bool {
	if a == b {
		return true
	}
	if utf8.RuneCountInString(a) < MinFuzzyLen || utf8.RuneCountInString(b) < MinFuzzyLen {
		return false
	}
	return TokenSimilarity(a, b) >= Threshold
}

// Tokens folds s and returns its letter-only tokens in order. Repeated tokens
// are kept so that each one needs its own partner when pairing.
func Tokens(s string) []string {
	return strings.FieldsFunc(fold(s), func(r rune) bool { return !unicode.IsLetter(r) })
}

func fold(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// pairAll finds a matching that covers every token of small with a distinct
// token of large (augmenting paths over the compatibility graph).
func pairAll(small, large []string) bool {
	adj := make([][]int, len(small))
	for i, s := range small {
		for j, l := range large {
			if tokensMatch(s, l) {
				adj[i] = append(adj[i], j)
			}
		}
		if len(adj[i]) == 0 {
			return false
		}
	}

	owner := make([]int, len(large))
	for j := range owner {
		owner[j] = -1
	}
	var augment func(i int, visited []bool) bool
	augment = func(i int, visited []bool) bool {
		for _, j := range adj[i] {
			if visited[j] {
				continue
			}
			visited[j] = true
			if owner[j] == -1 || augment(owner[j], visited) {
				owner[j] = i
				return true
			}
		}
		return false
	}
	for i := range small {
		if !augment(i, make([]bool, len(large))) {
			return false
		}
	}
	return true
}
