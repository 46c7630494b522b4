package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() Schema {
	return Schema{
		Name:    "create_rectangle",
		Aliases: []string{"rect"},
		Properties: map[string]Property{
			"x": {Type: TypeNumber},
		},
	}
}

func TestRegisterAndGetCaseInsensitive(t *testing.T) {
	r := New()
	r.Register(sample())

	s, ok := r.Get("Create_Rectangle")
	require.True(t, ok)
	assert.Equal(t, "create_rectangle", s.Name)
}

func TestGetResolvesSchemaAlias(t *testing.T) {
	r := New()
	r.Register(sample())

	s, ok := r.Get("rect")
	require.True(t, ok)
	assert.Equal(t, "create_rectangle", s.Name)
}

func TestAddAliasNoOpForUnknownCanonical(t *testing.T) {
	r := New()
	r.AddAlias("foo", "does_not_exist")
	_, ok := r.Get("foo")
	assert.False(t, ok)
}

func TestRemoveDropsSchemaAndAliases(t *testing.T) {
	r := New()
	r.Register(sample())
	r.Remove("create_rectangle")

	_, ok := r.Get("create_rectangle")
	assert.False(t, ok)
	_, ok = r.Get("rect")
	assert.False(t, ok)
	assert.Empty(t, r.GetToolNames())
}

func TestGetToolNamesPreservesRegistrationOrder(t *testing.T) {
	r := New()
	r.Register(Schema{Name: "b"})
	r.Register(Schema{Name: "a"})
	r.Register(Schema{Name: "c"})

	assert.Equal(t, []string{"b", "a", "c"}, r.GetToolNames())
}

func TestCloneIsIndependent(t *testing.T) {
	r := New()
	r.Register(sample())
	clone := r.Clone()

	r.Register(Schema{Name: "move"})

	assert.Len(t, clone.GetToolNames(), 1)
	assert.Len(t, r.GetToolNames(), 2)
}

func TestClearRemovesEverything(t *testing.T) {
	r := New()
	r.Register(sample())
	r.Clear()
	assert.Empty(t, r.GetAllSchemas())
	_, ok := r.Get("rect")
	assert.False(t, ok)
}
