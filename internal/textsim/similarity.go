// Package textsim holds the lexical scoring primitives used by the classifier:
// sequence and word-set similarity, a small domain synonym table, and the
// industry/occupation keyword vocabularies.
//
// Every function is pure. Word sets are returned sorted so that floating point
// sums over them come out the same on every run.
package textsim

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/text/unicode/norm"
)

// Normalize applies NFKC and lower-cases s.
func Normalize(s string) string {
	return strings.ToLower(norm.NFKC.String(s))
}

// Words returns the distinct whitespace-separated words of s, lower-cased and sorted.
func Words(s string) []string {
	fields := strings.Fields(Normalize(s))
	if len(fields) == 0 {
		return nil
	}
	sort.Strings(fields)
	out := fields[:1]
	for _, f := range fields[1:] {
		if f != out[len(out)-1] {
			out = append(out, f)
		}
	}
	return out
}

// SequenceRatio is the Ratcliff/Obershelp matching ratio of the lower-cased
// strings, compared character by character.
func SequenceRatio(a, b string) float64 {
	a, b = Normalize(a), Normalize(b)
	if a == "" && b == "" {
		return 1
	}
	m := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
	return m.Ratio()
}

// Jaccard returns |a ∩ b| / |a ∪ b| for two sorted word sets.
func Jaccard(a, b []string) float64 {
	inter := intersectCount(a, b)
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// SimilarityScore blends the character sequence ratio (0.4) with the word
// Jaccard similarity (0.6). When either side has no words only the sequence
// ratio is returned.
func SimilarityScore(a, b string) float64 {
	ratio := SequenceRatio(a, b)
	wa, wb := Words(a), Words(b)
	if len(wa) == 0 || len(wb) == 0 {
		return ratio
	}
	return ratio*0.4 + Jaccard(wa, wb)*0.6
}

// EnhancedTextMatch scores how well target covers search using exact word
// overlap (0.5), partial substring overlap between words of four or more
// characters (0.3) and the synonym score (0.2). Result is clamped to 1.
func EnhancedTextMatch(search, target string) float64 {
	sw, tw := Words(search), Words(target)
	if len(sw) == 0 || len(tw) == 0 {
		return 0
	}
	return MatchWords(sw, tw)
}

// MatchWords is EnhancedTextMatch over word sets already produced by Words.
// Callers scoring one query against many rows use it to split each text once.
func MatchWords(sw, tw []string) float64 {
	if len(sw) == 0 || len(tw) == 0 {
		return 0
	}
	n := float64(len(sw))
	exact := float64(intersectCount(sw, tw)) / n

	partial := 0
	for _, s := range sw {
		if utf8.RuneCountInString(s) < 4 {
			continue
		}
		for _, t := range tw {
			if utf8.RuneCountInString(t) >= 4 && (strings.Contains(t, s) || strings.Contains(s, t)) {
				partial++
				break
			}
		}
	}

	score := exact*0.5 + (float64(partial)/n)*0.3 + synonymScore(sw, tw)*0.2
	return Clamp01(score)
}

// Clamp01 bounds v to [0, 1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// intersectCount counts common elements of two sorted, deduplicated slices.
func intersectCount(a, b []string) int {
	i, j, n := 0, 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			n++
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return n
}
