package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localrivet/llmtoolparse/registry"
	"github.com/localrivet/llmtoolparse/toolparse"
)

func rectRegistry() *registry.Registry {
	r := registry.New()
	r.Register(registry.Schema{
		Name: "create_rectangle",
		Properties: map[string]registry.Property{
			"x": {Type: registry.TypeNumber},
		},
		Required: []string{"x"},
	})
	return r
}

func TestFeedEmitsIncrementalProgress(t *testing.T) {
	d := New(0, toolparse.New(), &toolparse.ParseContext{Registry: rectRegistry()})
	var last *Progress
	for _, c := range `{"tool": "cr` {
		last = d.Feed(c)
	}
	require.NotNil(t, last)
	assert.Equal(t, ProgressIncremental, last.Kind)
	assert.True(t, last.InString)
}

func TestFeedDetectsPartialToolCallName(t *testing.T) {
	d := New(0, toolparse.New(), &toolparse.ParseContext{Registry: rectRegistry()})
	for _, c := range `{"tool": "create_rectangle"` {
		d.Feed(c)
	}
	p := d.snapshot(ProgressIncremental)
	require.NotNil(t, p.PartialToolCall)
	assert.Equal(t, "create_rectangle", p.PartialToolCall.Name)
}

func TestFeedRecognizesCompleteObject(t *testing.T) {
	d := New(time.Hour, toolparse.New(), &toolparse.ParseContext{Registry: rectRegistry()})
	var last *Progress
	for _, c := range `{"tool": "create_rectangle", "x": 1}` {
		if p := d.Feed(c); p != nil {
			last = p
		}
	}
	require.NotNil(t, last)
	assert.Equal(t, 1, last.CompletedCount)
}

func TestAttemptCompletionClosesOpenStructure(t *testing.T) {
	d := New(0, toolparse.New(), &toolparse.ParseContext{Registry: rectRegistry()})
	for _, c := range `{"tool": "create_rectangle", "x": 1` {
		d.Feed(c)
	}
	p := d.AttemptCompletion()
	require.NotNil(t, p.Result)
	if p.Result.Ok {
		require.Len(t, p.Result.Calls, 1)
		assert.Less(t, p.Result.Calls[0].Confidence, 1.0)
	}
}

func TestFinishAlwaysReturnsCompleteKind(t *testing.T) {
	d := New(0, toolparse.New(), &toolparse.ParseContext{Registry: rectRegistry()})
	for _, c := range `garbage, no structure` {
		d.Feed(c)
	}
	p := d.Finish()
	assert.Equal(t, ProgressComplete, p.Kind)
	assert.Equal(t, StateComplete, p.State)
}

func TestResetClearsState(t *testing.T) {
	d := New(0, toolparse.New(), &toolparse.ParseContext{Registry: rectRegistry()})
	for _, c := range `{"tool": "x"` {
		d.Feed(c)
	}
	d.Reset()
	assert.Equal(t, 0, d.buffer.Len())
	assert.Nil(t, d.partial)
}
