package repair

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localrivet/llmtoolparse/json5"
)

func TestRunFixesPythonBooleansAndTrailingComma(t *testing.T) {
	res := Run(`{"tool": "move", "animate": True, "retries": None, "x": 1,}`, nil)
	require.True(t, res.Success)
	assert.Contains(t, res.AppliedRule, "python_booleans")
	assert.Contains(t, res.AppliedRule, "trailing_comma_object")

	v, err := json5.ParseStrict(res.Text)
	require.NoError(t, err)
	animate, _ := v.Get("animate")
	b, _ := animate.Bool()
	assert.True(t, b)
}

func TestRunFixesSingleQuotesAndUnquotedKeys(t *testing.T) {
	res := Run(`{tool: 'set_fill_color', color: 'red'}`, nil)
	require.True(t, res.Success)
	assert.Contains(t, res.AppliedRule, "single_quotes")
	assert.Contains(t, res.AppliedRule, "unquoted_keys")
}

func TestRunStopsAtFirstSuccess(t *testing.T) {
	res := Run(`{"tool": "noop"}`, nil)
	assert.True(t, res.Success)
	assert.Empty(t, res.AppliedRule)
}

func TestRunGivesUpOnUnfixableGarbage(t *testing.T) {
	res := Run(`not json at all ???`, nil)
	assert.False(t, res.Success)
}

func TestModelPackRunsBeforeGenericRules(t *testing.T) {
	pack := NewModelPack(ModelRule{
		Pattern: regexp.MustCompile(`CLOSE_PAREN`),
		Fix: func(s string) string {
			return regexp.MustCompile(`CLOSE_PAREN`).ReplaceAllString(s, "}")
		},
		Label: "model_specific_close_paren",
	})
	res := Run(`{"tool": "noop"CLOSE_PAREN`, pack)
	require.True(t, res.Success)
	assert.Contains(t, res.AppliedRule, "model_specific_close_paren")
}

func TestCloseTruncationClosesOpenBracketsAndStrings(t *testing.T) {
	out := CloseTruncation(`{"tool": "move", "params": {"x": 1, "y": "unterm`)
	v, err := json5.ParseStrict(out)
	require.NoError(t, err)
	assert.True(t, v.IsObject())
}

func TestCloseTruncationLeavesCompleteInputUnchanged(t *testing.T) {
	in := `{"tool": "move"}`
	assert.Equal(t, in, CloseTruncation(in))
}
