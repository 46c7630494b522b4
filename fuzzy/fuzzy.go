// Package fuzzy resolves an unknown input string against a set of known
// canonical names using classical Levenshtein distance and Jaro-Winkler
// similarity, with an exact-match and alias-list short-circuit ahead of
// either algorithm. Distance and similarity primitives are pulled from two
// real ecosystem packages rather than hand-rolled, matching how the iota-sdk
// pack repo depends on exactly this pair for fuzzy name resolution.
package fuzzy

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/xrash/smetrics"
)

// Algorithm names the method used for a particular match, recorded in the
// trace so callers can tell "exact"/"alias" hits from genuinely fuzzy ones.
type Algorithm string

const (
	AlgorithmExact      Algorithm = "exact"
	AlgorithmAlias      Algorithm = "alias"
	AlgorithmLevenshtein Algorithm = "levenshtein"
	AlgorithmJaroWinkler Algorithm = "jaro_winkler"
)

const jaroWinklerPrefixScale = 0.1

// Match is one scored candidate.
type Match struct {
	Candidate  string
	Similarity float64
	Algorithm  Algorithm
}

// LevenshteinSimilarity returns the normalized similarity
// 1 - distance/max(len1,len2) for nonempty lower-cased inputs: 1 if
// identical, 0 if either input is empty.
func LevenshteinSimilarity(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if a == b {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	return 1 - float64(dist)/float64(maxLen)
}

// JaroWinklerSimilarity computes Jaro similarity with the standard
// length-4-prefix Winkler bonus, scaling factor 0.1, over lower-cased
// inputs.
func JaroWinklerSimilarity(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	if a == b {
		return 1
	}
	return smetrics.JaroWinkler(a, b, jaroWinklerPrefixScale, 4)
}

// Options configures a matching pass.
type Options struct {
	Algorithm Algorithm // default AlgorithmJaroWinkler
	Threshold float64   // default 0.7
	Aliases   map[string]string // alias (lower) -> canonical (any case)
}

func (o Options) algorithm() Algorithm {
	if o.Algorithm == "" {
		return AlgorithmJaroWinkler
	}
	return o.Algorithm
}

func similarity(alg Algorithm, a, b string) float64 {
	if alg == AlgorithmLevenshtein {
		return LevenshteinSimilarity(a, b)
	}
	return JaroWinklerSimilarity(a, b)
}

// Best finds the best match for input among candidates. Order of
// resolution: (1) exact case-insensitive match; (2) alias-list lookup;
// (3) fuzzy comparison under the selected algorithm, keeping only matches
// at or above the threshold.
func Best(input string, candidates []string, opts Options) (Match, bool) {
	matches := TopN(input, candidates, opts, 1)
	if len(matches) == 0 {
		return Match{}, false
	}
	return matches[0], true
}

// TopN returns up to n matches sorted by descending similarity.
func TopN(input string, candidates []string, opts Options, n int) []Match {
	lowerInput := strings.ToLower(input)

	for _, c := range candidates {
		if strings.ToLower(c) == lowerInput {
			return []Match{{Candidate: c, Similarity: 1, Algorithm: AlgorithmExact}}
		}
	}

	if canonical, ok := opts.Aliases[lowerInput]; ok {
		return []Match{{Candidate: canonical, Similarity: 0.95, Algorithm: AlgorithmAlias}}
	}

	threshold := opts.Threshold
	if threshold == 0 {
		threshold = 0.7
	}
	alg := opts.algorithm()

	var out []Match
	for _, c := range candidates {
		sim := similarity(alg, input, c)
		if sim >= threshold {
			out = append(out, Match{Candidate: c, Similarity: sim, Algorithm: alg})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// ToolResolver performs the full tool-name resolution cascade: direct
// case-insensitive registry lookup, the registry's custom alias map, a
// static built-in tool-alias map, then fuzzy matching over registered
// names.
type ToolResolver struct {
	Threshold    float64
	StaticAliases map[string]string
}

// DefaultStaticToolAliases is the built-in tool-alias map consulted after a
// registry's own custom aliases and before fuzzy comparison.
func DefaultStaticToolAliases() map[string]string {
	return map[string]string{
		"rect":       "create_rectangle",
		"rectangle":  "create_rectangle",
		"fill":       "set_fill_color",
		"color":      "set_fill_color",
		"shadow":     "add_drop_shadow",
		"dropshadow": "add_drop_shadow",
		"translate":  "move",
	}
}

// Resolve implements the §4.5 tool-matching order. registryLookup performs
// the direct case-insensitive name lookup and registryAlias performs the
// registry's own alias lookup; both return ("", false) on a miss.
func (r ToolResolver) Resolve(input string, names []string, registryLookup func(string) (string, bool), registryAlias func(string) (string, bool)) (Match, bool) {
	if canonical, ok := registryLookup(input); ok {
		return Match{Candidate: canonical, Similarity: 1, Algorithm: AlgorithmExact}, true
	}
	if canonical, ok := registryAlias(strings.ToLower(input)); ok {
		return Match{Candidate: canonical, Similarity: 0.95, Algorithm: AlgorithmAlias}, true
	}
	opts := Options{Threshold: r.Threshold, Aliases: r.StaticAliases}
	return Best(input, names, opts)
}
