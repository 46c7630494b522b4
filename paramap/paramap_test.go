package paramap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localrivet/llmtoolparse/jsonvalue"
	"github.com/localrivet/llmtoolparse/registry"
)

func rectSchema() registry.Schema {
	return registry.Schema{
		Name: "create_rectangle",
		Properties: map[string]registry.Property{
			"x":      {Type: registry.TypeNumber},
			"y":      {Type: registry.TypeNumber},
			"width":  {Type: registry.TypeNumber},
			"height": {Type: registry.TypeNumber},
			"color":  {Type: registry.TypeString},
		},
		Required: []string{"x", "y", "width"},
		Defaults: map[string]interface{}{"width": float64(100)},
	}
}

func TestMapDirectAndCaseInsensitive(t *testing.T) {
	input := jsonvalue.NewObject()
	input.Set("X", jsonvalue.Number(10))
	input.Set("y", jsonvalue.Number(20))

	res := Map(input, rectSchema(), Options{TypeCoercion: true, InjectDefaults: true})
	x, ok := res.Parameters.Get("x")
	require.True(t, ok)
	n, _ := x.Number()
	assert.Equal(t, float64(10), n)

	var xWasDirect, yWasDirect bool
	for _, m := range res.Mappings {
		if m.InputKey == "X" && m.Method == MethodDirect {
			xWasDirect = true
		}
		if m.InputKey == "y" && m.Method == MethodDirect {
			yWasDirect = true
		}
	}
	assert.False(t, xWasDirect, "\"X\" should resolve case-insensitively, not directly, against schema key \"x\"")
	assert.True(t, yWasDirect)
}

func TestMapInjectsDefaultForMissingRequired(t *testing.T) {
	input := jsonvalue.NewObject()
	input.Set("x", jsonvalue.Number(1))
	input.Set("y", jsonvalue.Number(2))

	res := Map(input, rectSchema(), Options{InjectDefaults: true})
	width, ok := res.Parameters.Get("width")
	require.True(t, ok)
	n, _ := width.Number()
	assert.Equal(t, float64(100), n)
	assert.Empty(t, res.MissingRequired)
}

func TestMapReportsMissingRequiredWithoutDefaults(t *testing.T) {
	input := jsonvalue.NewObject()
	input.Set("x", jsonvalue.Number(1))

	res := Map(input, rectSchema(), Options{InjectDefaults: false})
	assert.Contains(t, res.MissingRequired, "y")
	assert.Contains(t, res.MissingRequired, "width")
}

func TestMapStaticAlias(t *testing.T) {
	input := jsonvalue.NewObject()
	input.Set("w", jsonvalue.Number(50))
	input.Set("x", jsonvalue.Number(1))
	input.Set("y", jsonvalue.Number(2))

	res := Map(input, rectSchema(), Options{ParameterAliases: DefaultParameterAliases()})
	width, ok := res.Parameters.Get("width")
	require.True(t, ok)
	n, _ := width.Number()
	assert.Equal(t, float64(50), n)
}

func TestCoerceNumberFromUnitSuffixedString(t *testing.T) {
	input := jsonvalue.NewObject()
	input.Set("x", jsonvalue.String("10px"))
	input.Set("y", jsonvalue.Number(1))
	input.Set("width", jsonvalue.Number(1))

	res := Map(input, rectSchema(), Options{TypeCoercion: true})
	x, ok := res.Parameters.Get("x")
	require.True(t, ok)
	n, _ := x.Number()
	assert.Equal(t, float64(10), n)
	require.Len(t, res.Coercions, 1)
	assert.Equal(t, "string->number", res.Coercions[0].Type)
}

func TestCoerceColorObjectToRGB(t *testing.T) {
	color := jsonvalue.NewObject()
	color.Set("r", jsonvalue.Number(1))
	color.Set("g", jsonvalue.Number(0.5))
	color.Set("b", jsonvalue.Number(0))

	input := jsonvalue.NewObject()
	input.Set("color", color)
	input.Set("x", jsonvalue.Number(1))
	input.Set("y", jsonvalue.Number(1))
	input.Set("width", jsonvalue.Number(1))

	res := Map(input, rectSchema(), Options{TypeCoercion: true})
	c, ok := res.Parameters.Get("color")
	require.True(t, ok)
	s, ok := c.String()
	require.True(t, ok)
	assert.Equal(t, "rgb(255,127,0)", s)
}

func TestMapUnknownKeyDroppedWithWarningWhenNotStrict(t *testing.T) {
	input := jsonvalue.NewObject()
	input.Set("x", jsonvalue.Number(1))
	input.Set("y", jsonvalue.Number(1))
	input.Set("width", jsonvalue.Number(1))
	input.Set("mystery", jsonvalue.Number(1))

	res := Map(input, rectSchema(), Options{})
	assert.Contains(t, res.Unmapped, "mystery")
	assert.NotEmpty(t, res.Warnings)
}

func TestDecodeIntoStruct(t *testing.T) {
	params := jsonvalue.NewObject()
	params.Set("x", jsonvalue.Number(3))
	params.Set("y", jsonvalue.Number(4))
	params.Set("color", jsonvalue.String("red"))

	type target struct {
		X     float64 `json:"x"`
		Y     float64 `json:"y"`
		Color string  `json:"color"`
	}
	var out target
	require.NoError(t, Decode(params, &out))
	assert.Equal(t, float64(3), out.X)
	assert.Equal(t, float64(4), out.Y)
	assert.Equal(t, "red", out.Color)
}
