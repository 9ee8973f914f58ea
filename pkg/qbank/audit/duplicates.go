package audit

import (
	"math"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// DefaultNearThreshold is the similarity ratio at which two different texts
// count as near-duplicates.
const DefaultNearThreshold = 0.92

// signatureTokens is how many leading tokens form the bucket signature.
const signatureTokens = 4

// NearDuplicate is a pair of entries with similar but not identical text.
type NearDuplicate struct {
	Similarity float64      `json:"similarity"`
	A          EntrySummary `json:"a"`
	B          EntrySummary `json:"b"`
}

// DuplicateIDs groups entries sharing a non-empty question id. Only groups
// with more than one member are returned.
func DuplicateIDs(entries []QEntry) map[string][]EntrySummary {
	return groupBy(entries, func(e QEntry) string { return e.QuestionID })
}

// ExactDuplicates groups entries sharing a non-empty normalized text. Only
// groups with more than one member are returned.
func ExactDuplicates(entries []QEntry) map[string][]EntrySummary {
	return groupBy(entries, func(e QEntry) string { return e.Norm })
}

func groupBy(entries []QEntry, key func(QEntry) string) map[string][]EntrySummary {
	groups := make(map[string][]EntrySummary)
	for _, e := range entries {
		k := key(e)
		if k == "" {
			continue
		}
		groups[k] = append(groups[k], e.Summary())
	}
	for k, g := range groups {
		if len(g) < 2 {
			delete(groups, k)
		}
	}
	return groups
}

// SortedKeys returns the keys of a duplicate group map in ascending order.
func SortedKeys(groups map[string][]EntrySummary) []string {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Similarity returns the longest-matching-blocks ratio of two strings,
// compared character by character.
func Similarity(a, b string) float64 {
	return difflib.NewMatcher(chars(a), chars(b)).Ratio()
}

func chars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

type bucketKey struct {
	signature string
	length    int
}

// NearDuplicates compares entries only within buckets keyed by their first
// four tokens and token-count quartile. Pairs with ratio >= threshold and
// different normalized text are reported once each, most similar first.
func NearDuplicates(entries []QEntry, threshold float64) []NearDuplicate {
	buckets := make(map[bucketKey][]int)
	var order []bucketKey
	for i, e := range entries {
		sig := e.Tokens
		if len(sig) > signatureTokens {
			sig = sig[:signatureTokens]
		}
		key := bucketKey{signature: strings.Join(sig, " "), length: len(e.Tokens) / 4}
		if _, ok := buckets[key]; !ok {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], i)
	}

	out := []NearDuplicate{}
	for _, key := range order {
		members := buckets[key]
		for i := 0; i < len(members); i++ {
			a := entries[members[i]]
			if a.Norm == "" {
				continue
			}
			for j := i + 1; j < len(members); j++ {
				b := entries[members[j]]
				if b.Norm == "" || a.Norm == b.Norm {
					continue
				}
				ratio := Similarity(a.Norm, b.Norm)
				if ratio < threshold {
					continue
				}
				out = append(out, NearDuplicate{
					Similarity: math.Round(ratio*10000) / 10000,
					A:          a.Summary(),
					B:          b.Summary(),
				})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	return out
}
