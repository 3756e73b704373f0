// Package suggest proposes merges between canonical ids that look like the
// same product spelled differently.
//
// Suggestions are advisory. Nothing here touches the registry; callers act on
// a suggestion through skumap.Registry.AcceptSuggestion.
package suggest

import (
	"cmp"
	"slices"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// DefaultThreshold is the minimum similarity a pair needs to be suggested.
const DefaultThreshold = 0.95

// Suggestion is a proposed merge of B into A. A precedes B in the input order.
type Suggestion struct {
	A     string  `json:"a"`
	B     string  `json:"b"`
	Score float64 `json:"score"`
}

// Strategy holds the matching heuristics.
type Strategy interface {
	// Normalize reduces an id to the form that is compared. An empty result
	// excludes the id from every suggestion.
	Normalize(id string) string
	// Bucket returns the bucket of a normalized id. Only ids sharing a bucket are compared.
	Bucket(normalized string) string
	// Similarity scores two normalized ids in [0, 1].
	Similarity(a, b string) float64
	// Threshold is the minimum score that is suggested.
	Threshold() float64
}

// Heuristic is the default Strategy: strip unit tokens, keep [a-z0-9],
// bucket by first character and score with the Ratcliff/Obershelp ratio.
type Heuristic struct {
	MinScore          float64
	StripTokens       []string
	BucketByFirstChar bool
}

// DefaultHeuristic returns the heuristic tuned for the product catalogue.
func DefaultHeuristic() Heuristic {
	return Heuristic{
		MinScore:          DefaultThreshold,
		StripTokens:       []string{"gal"},
		BucketByFirstChar: true,
	}
}

// Normalize lower-cases id, removes every strip token and then drops every
// character outside [a-z0-9].
func (h Heuristic) Normalize(id string) string {
	s := strings.ToLower(id)
	for _, token := range h.StripTokens {
		if token != "" {
			s = strings.ReplaceAll(s, strings.ToLower(token), "")
		}
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Bucket returns the first character, or a single shared bucket when
// bucketing is disabled.
func (h Heuristic) Bucket(normalized string) string {
	if !h.BucketByFirstChar || normalized == "" {
		return ""
	}
	return normalized[:1]
}

// Similarity returns 1 for identical strings and 2*M/T otherwise.
func (h Heuristic) Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	return difflib.NewMatcher(splitChars(a), splitChars(b)).Ratio()
}

// Threshold returns MinScore.
func (h Heuristic) Threshold() float64 {
	return h.MinScore
}

func splitChars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

type scoredPair struct {
	i, j  int
	score float64
}

// SuggestMerges compares every pair of ids sharing a bucket and returns the
// pairs scoring at or above the strategy threshold, best first. Pairs with
// equal scores keep input order.
func SuggestMerges(ids []string, strategy Strategy) []Suggestion {
	normalized := make([]string, len(ids))
	buckets := make(map[string][]int)
	var bucketOrder []string

	for i, id := range ids {
		n := strategy.Normalize(id)
		normalized[i] = n
		if n == "" {
			continue
		}
		key := strategy.Bucket(n)
		if _, ok := buckets[key]; !ok {
			bucketOrder = append(bucketOrder, key)
		}
		buckets[key] = append(buckets[key], i)
	}

	threshold := strategy.Threshold()
	var pairs []scoredPair
	for _, key := range bucketOrder {
		members := buckets[key]
		for x := 0; x < len(members); x++ {
			for y := x + 1; y < len(members); y++ {
				i, j := members[x], members[y]
				if ids[i] == ids[j] {
					continue
				}
				score := strategy.Similarity(normalized[i], normalized[j])
				if score >= threshold {
					pairs = append(pairs, scoredPair{i: i, j: j, score: score})
				}
			}
		}
	}

	slices.SortFunc(pairs, func(a, b scoredPair) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		if c := cmp.Compare(a.i, b.i); c != 0 {
			return c
		}
		return cmp.Compare(a.j, b.j)
	})

	out := make([]Suggestion, len(pairs))
	for k, p := range pairs {
		out[k] = Suggestion{A: ids[p.i], B: ids[p.j], Score: p.score}
	}
	return out
}

// Suggest runs SuggestMerges with the default heuristic at the given threshold.
func Suggest(ids []string, threshold float64) []Suggestion {
	h := DefaultHeuristic()
	h.MinScore = threshold
	return SuggestMerges(ids, h)
}
