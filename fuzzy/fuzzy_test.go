package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevenshteinSimilarityIdenticalAndEmpty(t *testing.T) {
	assert.Equal(t, 1.0, LevenshteinSimilarity("move", "move"))
	assert.Equal(t, 0.0, LevenshteinSimilarity("", "move"))
}

func TestJaroWinklerRewardsSharedPrefix(t *testing.T) {
	sim := JaroWinklerSimilarity("create_rect", "create_rectangle")
	assert.Greater(t, sim, 0.8)
}

func TestBestExactMatchShortCircuits(t *testing.T) {
	m, ok := Best("Move", []string{"move", "rotate"}, Options{})
	require.True(t, ok)
	assert.Equal(t, "move", m.Candidate)
	assert.Equal(t, AlgorithmExact, m.Algorithm)
	assert.Equal(t, 1.0, m.Similarity)
}

func TestBestAliasShortCircuits(t *testing.T) {
	m, ok := Best("rect", []string{"create_rectangle", "rotate"}, Options{
		Aliases: map[string]string{"rect": "create_rectangle"},
	})
	require.True(t, ok)
	assert.Equal(t, "create_rectangle", m.Candidate)
	assert.Equal(t, AlgorithmAlias, m.Algorithm)
}

func TestBestFuzzyBelowThresholdFails(t *testing.T) {
	_, ok := Best("zzz", []string{"move", "rotate"}, Options{Threshold: 0.9})
	assert.False(t, ok)
}

func TestTopNOrdersDescending(t *testing.T) {
	matches := TopN("mov", []string{"move", "rotate", "mover"}, Options{Threshold: 0.3}, 5)
	require.NotEmpty(t, matches)
	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Similarity, matches[i].Similarity)
	}
}

func TestToolResolverCascade(t *testing.T) {
	registryLookup := func(name string) (string, bool) {
		if name == "move" {
			return "move", true
		}
		return "", false
	}
	registryAlias := func(string) (string, bool) { return "", false }

	resolver := ToolResolver{Threshold: 0.7, StaticAliases: DefaultStaticToolAliases()}

	m, ok := resolver.Resolve("move", nil, registryLookup, registryAlias)
	require.True(t, ok)
	assert.Equal(t, AlgorithmExact, m.Algorithm)

	m, ok = resolver.Resolve("rect", []string{"create_rectangle"}, registryLookup, registryAlias)
	require.True(t, ok)
	assert.Equal(t, "create_rectangle", m.Candidate)
	assert.Equal(t, AlgorithmAlias, m.Algorithm)

	m, ok = resolver.Resolve("creat_rectangel", []string{"create_rectangle", "rotate"}, registryLookup, registryAlias)
	require.True(t, ok)
	assert.Equal(t, "create_rectangle", m.Candidate)
}
