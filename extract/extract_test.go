package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localrivet/llmtoolparse/json5"
	"github.com/localrivet/llmtoolparse/jsonvalue"
)

func TestExtractMarkdownCodeblock(t *testing.T) {
	text := "Sure, here you go:\n```json\n{\"tool\": \"create_rectangle\", \"x\": 10}\n```\nLet me know if that works."
	cands := Extract(text, DefaultOptions())
	require.NotEmpty(t, cands)
	assert.Equal(t, MethodMarkdownCodeblock, cands[0].Method)
	name, ok := cands[0].Value.Get("tool")
	require.True(t, ok)
	s, _ := name.String()
	assert.Equal(t, "create_rectangle", s)
}

func TestExtractBalancedFindsBareObject(t *testing.T) {
	text := `I'll call {"tool": "move", "params": {"x": 1, "y": 2}} now.`
	cands := Extract(text, DefaultOptions())
	require.NotEmpty(t, cands)
	found := false
	for _, c := range cands {
		if c.Method == MethodASTBalanced {
			found = true
		}
	}
	assert.True(t, found)
}

func TestExtractDedupesOverlappingSpans(t *testing.T) {
	text := `{"tool": "move", "x": 1}`
	cands := Extract(text, DefaultOptions())
	seen := map[[2]int]bool{}
	for _, c := range cands {
		key := [2]int{c.Start, c.End}
		assert.False(t, seen[key], "duplicate span returned")
		seen[key] = true
	}
}

func TestExtractRepairPassRecoversMalformedJSON(t *testing.T) {
	// "undefined" is not part of the JSON5 grammar (unlike single quotes,
	// unquoted keys or trailing commas, which extractBalanced already
	// recovers on its own via json5.Parse), so only the named repair rule
	// table's undefined_to_null rule can make this candidate parse.
	text := `The call is {tool: 'move', x: 1, y: undefined} done.`
	cands := Extract(text, DefaultOptions())
	require.NotEmpty(t, cands)
	var repaired bool
	for _, c := range cands {
		if c.Method == MethodRepaired {
			repaired = true
			assert.Contains(t, c.AppliedRepairs, "undefined_to_null")
		}
	}
	assert.True(t, repaired)
}

func TestExtractFiltersBelowMinConfidence(t *testing.T) {
	opts := DefaultOptions()
	opts.MinConfidence = 0.99
	cands := Extract(`{"tool": "move"}`, opts)
	assert.Empty(t, cands)
}

func TestLooksLikeToolCall(t *testing.T) {
	assert.True(t, LooksLikeToolCall(mustParse(t, `{"tool": "move"}`)))
	assert.True(t, LooksLikeToolCall(mustParse(t, `{"name": "move"}`)))
	assert.False(t, LooksLikeToolCall(mustParse(t, `{"random": "field"}`)))
}

func TestSelectBestCandidatePrefersToolShapedNoRepairs(t *testing.T) {
	toolShaped := mustParse(t, `{"tool": "move", "x": 1}`)
	plain := mustParse(t, `{"random": "field"}`)
	cands := []Candidate{
		{Value: plain, Method: MethodRegexFullJSON, Confidence: 0.75, Start: 0, End: 10},
		{Value: toolShaped, Method: MethodASTBalanced, Confidence: 0.75, Start: 20, End: 40},
	}
	best, ok := SelectBestCandidate(cands)
	require.True(t, ok)
	assert.True(t, LooksLikeToolCall(best.Value))
	assert.Equal(t, 1, best.AlternativeCount)
}

func mustParse(t *testing.T, s string) jsonvalue.Value {
	t.Helper()
	v, err := json5.ParseStrict(s)
	require.NoError(t, err)
	return v
}
