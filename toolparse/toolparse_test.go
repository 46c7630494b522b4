package toolparse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localrivet/llmtoolparse/registry"
)

func rectRegistry() *registry.Registry {
	r := registry.New()
	r.Register(registry.Schema{
		Name:    "create_rectangle",
		Aliases: []string{"rect"},
		Properties: map[string]registry.Property{
			"x":     {Type: registry.TypeNumber},
			"y":     {Type: registry.TypeNumber},
			"width": {Type: registry.TypeNumber},
		},
		Required: []string{"x", "y", "width"},
	})
	return r
}

func TestParsePrimaryPathCleanJSON(t *testing.T) {
	text := "```json\n{\"tool\": \"create_rectangle\", \"x\": 10, \"y\": 20, \"width\": 100}\n```"
	ctx := &ParseContext{Registry: rectRegistry()}
	res := Parse(text, ctx, New())

	require.True(t, res.Ok)
	require.Len(t, res.Calls, 1)
	assert.Equal(t, "create_rectangle", res.Calls[0].Tool)
	assert.Equal(t, StrategyPrimary, res.Success.FallbackStrategy)
	assert.NotEmpty(t, res.Calls[0].ID)
}

func TestParseRecoversRelaxedSyntax(t *testing.T) {
	text := `{tool: 'create_rectangle', x: 10, y: 20, width: 100,}`
	ctx := &ParseContext{Registry: rectRegistry()}
	res := Parse(text, ctx, New())

	require.True(t, res.Ok)
	require.Len(t, res.Calls, 1)
	assert.Equal(t, "create_rectangle", res.Calls[0].Tool)
	assert.LessOrEqual(t, res.Calls[0].Confidence, 1.0)
}

func TestParseNoCandidatesFailure(t *testing.T) {
	ctx := &ParseContext{Registry: rectRegistry()}
	res := Parse("just plain prose, no structure here at all", ctx, New())
	require.False(t, res.Ok)
	assert.NotEmpty(t, res.Failure.ErrorMessage)
}

func TestParseTimeoutFailure(t *testing.T) {
	ctx := &ParseContext{Registry: rectRegistry()}
	opts := New(WithTimeout(1 * time.Nanosecond))
	res := Parse(`{"tool": "create_rectangle", "x": 1, "y": 2, "width": 3}`, ctx, opts)
	require.False(t, res.Ok)
	assert.Equal(t, "parse timed out", res.Failure.ErrorMessage)
}

func TestParseExhaustionFailureCarriesPartialCall(t *testing.T) {
	text := `{"tool": "unregistered_tool_xyz", "x": 1}`
	ctx := &ParseContext{Registry: rectRegistry()}
	res := Parse(text, ctx, New(WithFuzzyThreshold(0.99)))
	require.False(t, res.Ok)
	require.NotEmpty(t, res.Failure.PartialCalls)
	assert.Equal(t, "unregistered_tool_xyz", res.Failure.PartialCalls[0].Tool)
}

func TestParseSyncReturnsNilOnFailure(t *testing.T) {
	ctx := &ParseContext{Registry: rectRegistry()}
	calls := ParseSync("no json here", ctx, New())
	assert.Nil(t, calls)
}

func TestCanParseReflectsSuccess(t *testing.T) {
	ctx := &ParseContext{Registry: rectRegistry()}
	ok := CanParse(`{"tool": "create_rectangle", "x": 1, "y": 2, "width": 3}`, ctx, New())
	assert.True(t, ok)
}
