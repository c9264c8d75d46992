package matcher

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Ratio returns the normalized Levenshtein similarity of two strings in
// [0,1]. Two empty strings are identical.
func Ratio(a, b string) float64 {
	if a == b {
		return 1.0
	}

	runesA := []rune(a)
	runesB := []rune(b)
	maxLen := len(runesA)
	if len(runesB) > maxLen {
		maxLen = len(runesB)
	}
	if maxLen == 0 {
		return 1.0
	}

	distance := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(distance)/float64(maxLen)
}

// PartialRatio returns the best Ratio of the shorter string against every
// same-length window of the longer string. It rewards one description being
// embedded in a noisier one.
func PartialRatio(a, b string) float64 {
	shorter, longer := []rune(a), []rune(b)
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}

	if len(shorter) == 0 {
		if len(longer) == 0 {
			return 1.0
		}
		return 0.0
	}

	best := 0.0
	for i := 0; i+len(shorter) <= len(longer); i++ {
		window := string(longer[i : i+len(shorter)])
		if score := Ratio(string(shorter), window); score > best {
			best = score
			if best == 1.0 {
				break
			}
		}
	}
	return best
}

// TokenSortRatio tokenizes both strings, sorts the tokens and compares the
// rejoined forms. It neutralizes word-order differences.
func TokenSortRatio(a, b string) float64 {
	return Ratio(sortedTokenJoin(a), sortedTokenJoin(b))
}

// TokenSetRatio compares the sorted token intersection against each side's
// intersection-plus-remainder. It rewards shared vocabulary even when one
// side carries extra tokens.
func TokenSetRatio(a, b string) float64 {
	tokensA := tokenSet(a)
	tokensB := tokenSet(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0.0
	}

	var intersection, diffA, diffB []string
	for token := range tokensA {
		if tokensB[token] {
			intersection = append(intersection, token)
		} else {
			diffA = append(diffA, token)
		}
	}
	for token := range tokensB {
		if !tokensA[token] {
			diffB = append(diffB, token)
		}
	}

	sort.Strings(intersection)
	sort.Strings(diffA)
	sort.Strings(diffB)

	t0 := strings.Join(intersection, " ")
	t1 := strings.TrimSpace(t0 + " " + strings.Join(diffA, " "))
	t2 := strings.TrimSpace(t0 + " " + strings.Join(diffB, " "))

	best := Ratio(t0, t1)
	if score := Ratio(t0, t2); score > best {
		best = score
	}
	if score := Ratio(t1, t2); score > best {
		best = score
	}
	return best
}

// BestSimilarity returns the maximum of all four similarity strategies,
// already normalized to [0,1].
func BestSimilarity(a, b string) float64 {
	best := Ratio(a, b)
	if best == 1.0 {
		return best
	}
	if score := PartialRatio(a, b); score > best {
		best = score
	}
	if score := TokenSortRatio(a, b); score > best {
		best = score
	}
	if score := TokenSetRatio(a, b); score > best {
		best = score
	}
	return best
}

func sortedTokenJoin(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, token := range strings.Fields(s) {
		set[token] = true
	}
	return set
}
