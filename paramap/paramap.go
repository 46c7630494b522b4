// Package paramap resolves an input parameter map's keys against a tool
// schema's declared property names and coerces values to the schema's
// declared types. Name resolution and the numeric/string/boolean coercion
// rules are grounded on the teacher's util/conversion ToString/ToBool/
// ToFloat64 family and util/schema.Converter's type-directed dispatch,
// regrown here to carry a trace (mapping method, similarity, coercions)
// instead of silently reflecting into a Go struct.
package paramap

import (
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/localrivet/llmtoolparse/fuzzy"
	"github.com/localrivet/llmtoolparse/jsonvalue"
	"github.com/localrivet/llmtoolparse/registry"
)

// MappingMethod names how an input key resolved to a schema property.
type MappingMethod string

const (
	MethodDirect         MappingMethod = "direct"
	MethodCaseInsensitive MappingMethod = "case_insensitive"
	MethodAlias          MappingMethod = "alias"
	MethodFuzzy          MappingMethod = "fuzzy"
)

// Mapping records how one input key was resolved to a schema property.
type Mapping struct {
	InputKey    string
	SchemaKey   string
	Method      MappingMethod
	Similarity  float64
}

// Coercion records a single value's conversion from its input runtime type
// to the schema's declared type.
type Coercion struct {
	Key      string
	Original jsonvalue.Value
	Coerced  jsonvalue.Value
	Type     string // coercion-type label, e.g. "string->number"
}

// Warning is a non-fatal mapping note (default injected, unknown key
// dropped, etc).
type Warning struct {
	Path    []string
	Message string
}

// Options configures a single mapping pass.
type Options struct {
	FuzzyEnabled     bool
	FuzzyThreshold   float64
	TypeCoercion     bool
	InjectDefaults   bool
	Strict           bool
	PassThroughUnknown bool
	ParameterAliases map[string]string // static alias -> schema property name
}

// Result is the mapper's full output contract.
type Result struct {
	Parameters jsonvalue.Value // mapped, coerced, object value
	Mappings   []Mapping
	Coercions  []Coercion
	Warnings   []Warning
	Unmapped   []string
	MissingRequired []string
}

// DefaultParameterAliases is the static parameter-alias canonicalization
// table consulted before fuzzy matching.
func DefaultParameterAliases() map[string]string {
	return map[string]string{
		"x_pos": "x", "xpos": "x", "x_position": "x",
		"y_pos": "y", "ypos": "y", "y_position": "y",
		"w": "width", "h": "height",
		"colour": "color", "fill_color": "color", "fillcolor": "color",
	}
}

// Map transforms input into a schema-conformant parameter map.
func Map(input jsonvalue.Value, schema registry.Schema, opts Options) Result {
	res := Result{Parameters: jsonvalue.NewObject()}
	if !input.IsObject() {
		input = jsonvalue.NewObject()
	}

	propNames := schema.PropertyNames()
	matched := map[string]bool{}

	for _, key := range input.Keys() {
		val, _ := input.Get(key)
		schemaKey, mapping, ok := resolveName(key, propNames, opts)
		if !ok {
			res.Unmapped = append(res.Unmapped, key)
			if opts.Strict {
				continue // handled as schema_mismatch by the caller (validator)
			}
			if opts.PassThroughUnknown {
				res.Parameters.Set(key, val)
			} else {
				res.Warnings = append(res.Warnings, Warning{Path: []string{key}, Message: "unknown parameter dropped: " + key})
			}
			continue
		}
		matched[schemaKey] = true
		res.Mappings = append(res.Mappings, mapping)
		prop := schema.Properties[schemaKey]
		coerced, coercion := coerceValue(schemaKey, val, prop, opts)
		if coercion != nil {
			res.Coercions = append(res.Coercions, *coercion)
		}
		res.Parameters.Set(schemaKey, coerced)
	}

	for _, req := range schema.Required {
		if matched[req] {
			continue
		}
		if opts.InjectDefaults {
			if def, ok := schema.Defaults[req]; ok {
				res.Parameters.Set(req, jsonvalue.FromNative(def))
				res.Warnings = append(res.Warnings, Warning{Path: []string{req}, Message: "injected default for missing required parameter: " + req})
				continue
			}
			if prop, ok := schema.Properties[req]; ok && prop.Default != nil {
				res.Parameters.Set(req, jsonvalue.FromNative(prop.Default))
				res.Warnings = append(res.Warnings, Warning{Path: []string{req}, Message: "injected default for missing required parameter: " + req})
				continue
			}
		}
		res.MissingRequired = append(res.MissingRequired, req)
	}

	return res
}

// Decode materializes an already-mapped parameter object into a
// caller-supplied Go struct, for callers that want typed tool arguments
// instead of walking a jsonvalue.Value by hand. It uses mapstructure's
// weakly-typed decoding (string "3" into an int field, etc.) and matches
// struct fields case-insensitively against the parameter keys, mirroring
// the same forgiving-name-matching posture as Map itself.
func Decode(parameters jsonvalue.Value, target interface{}) error {
	native, _ := parameters.Native().(map[string]interface{})
	if native == nil {
		native = map[string]interface{}{}
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           target,
		TagName:          "json",
	})
	if err != nil {
		return err
	}
	return dec.Decode(native)
}

func resolveName(inputKey string, propNames []string, opts Options) (string, Mapping, bool) {
	lowerInput := strings.ToLower(inputKey)

	for _, p := range propNames {
		if p == inputKey {
			return p, Mapping{InputKey: inputKey, SchemaKey: p, Method: MethodDirect, Similarity: 1}, true
		}
	}
	for _, p := range propNames {
		if strings.ToLower(p) == lowerInput {
			return p, Mapping{InputKey: inputKey, SchemaKey: p, Method: MethodCaseInsensitive, Similarity: 1}, true
		}
	}
	if opts.ParameterAliases != nil {
		if canonical, ok := opts.ParameterAliases[lowerInput]; ok {
			for _, p := range propNames {
				if strings.ToLower(p) == strings.ToLower(canonical) {
					return p, Mapping{InputKey: inputKey, SchemaKey: p, Method: MethodAlias, Similarity: 0.95}, true
				}
			}
		}
	}
	if opts.FuzzyEnabled {
		threshold := opts.FuzzyThreshold
		if threshold == 0 {
			threshold = 0.7
		}
		if m, ok := fuzzy.Best(inputKey, propNames, fuzzy.Options{Threshold: threshold}); ok {
			return m.Candidate, Mapping{InputKey: inputKey, SchemaKey: m.Candidate, Method: MethodFuzzy, Similarity: m.Similarity}, true
		}
	}
	return "", Mapping{}, false
}

var unitSuffixes = []string{"px", "%", "rem", "em", "pt", "deg"}

// coerceValue converts val to prop's declared type when its runtime type
// differs, returning the (possibly unchanged) value and a Coercion record
// if a conversion actually happened.
func coerceValue(key string, val jsonvalue.Value, prop registry.Property, opts Options) (jsonvalue.Value, *Coercion) {
	if !opts.TypeCoercion {
		return val, nil
	}
	if val.IsNull() {
		return val, nil // null accepted in lieu of any declared type
	}
	if typeMatches(val, prop.Type) {
		return val, nil
	}
	var coerced jsonvalue.Value
	ok := false
	switch prop.Type {
	case registry.TypeNumber:
		coerced, ok = toNumber(val)
	case registry.TypeString:
		coerced, ok = toStringValue(val)
	case registry.TypeBoolean:
		coerced, ok = toBoolean(val)
	case registry.TypeArray:
		coerced, ok = toArray(val)
	default:
		return val, nil
	}
	if !ok {
		return val, nil
	}
	return coerced, &Coercion{
		Key: key, Original: val, Coerced: coerced,
		Type: val.TypeName() + "->" + string(prop.Type),
	}
}

func typeMatches(val jsonvalue.Value, t registry.PropertyType) bool {
	switch t {
	case registry.TypeString:
		return val.Kind() == jsonvalue.KindString
	case registry.TypeNumber:
		return val.Kind() == jsonvalue.KindNumber
	case registry.TypeBoolean:
		return val.Kind() == jsonvalue.KindBool
	case registry.TypeArray:
		return val.Kind() == jsonvalue.KindArray
	case registry.TypeObject:
		return val.Kind() == jsonvalue.KindObject
	default:
		return true
	}
}

func toNumber(val jsonvalue.Value) (jsonvalue.Value, bool) {
	s, ok := val.String()
	if !ok {
		return jsonvalue.Value{}, false
	}
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return jsonvalue.Number(f), true
	}
	for _, unit := range unitSuffixes {
		if strings.HasSuffix(s, unit) {
			numPart := strings.TrimSpace(strings.TrimSuffix(s, unit))
			if f, err := strconv.ParseFloat(numPart, 64); err == nil {
				return jsonvalue.Number(f), true
			}
		}
	}
	return jsonvalue.Value{}, false
}

func toStringValue(val jsonvalue.Value) (jsonvalue.Value, bool) {
	switch val.Kind() {
	case jsonvalue.KindNumber:
		n, _ := val.Number()
		return jsonvalue.String(formatNumber(n)), true
	case jsonvalue.KindBool:
		b, _ := val.Bool()
		return jsonvalue.String(strconv.FormatBool(b)), true
	case jsonvalue.KindObject:
		if s, ok := formatColorObject(val); ok {
			return jsonvalue.String(s), true
		}
		return jsonvalue.Value{}, false
	default:
		return jsonvalue.Value{}, false
	}
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// formatColorObject implements the §4.6 color-object-to-CSS-string rule:
// {r,g,b,a?} -> rgb()/rgba(), auto-scaling 0-1 inputs to 0-255; {h,s,l,a?}
// -> hsl()/hsla(), auto-scaling s/l to percent.
func formatColorObject(val jsonvalue.Value) (string, bool) {
	if _, hasR := val.Get("r"); hasR {
		g, hasG := val.Get("g")
		b, hasB := val.Get("b")
		r, _ := val.Get("r")
		if !hasG || !hasB {
			return "", false
		}
		rf, _ := r.Number()
		gf, _ := g.Number()
		bf, _ := b.Number()
		if rf <= 1 && gf <= 1 && bf <= 1 {
			rf *= 255
			gf *= 255
			bf *= 255
		}
		ri, gi, bi := int(rf), int(gf), int(bf)
		if aVal, hasA := val.Get("a"); hasA {
			af, _ := aVal.Number()
			return "rgba(" + strconv.Itoa(ri) + "," + strconv.Itoa(gi) + "," + strconv.Itoa(bi) + "," + formatNumber(af) + ")", true
		}
		return "rgb(" + strconv.Itoa(ri) + "," + strconv.Itoa(gi) + "," + strconv.Itoa(bi) + ")", true
	}
	if _, hasH := val.Get("h"); hasH {
		s, hasS := val.Get("s")
		l, hasL := val.Get("l")
		h, _ := val.Get("h")
		if !hasS || !hasL {
			return "", false
		}
		hf, _ := h.Number()
		sf, _ := s.Number()
		lf, _ := l.Number()
		if sf <= 1 {
			sf *= 100
		}
		if lf <= 1 {
			lf *= 100
		}
		if aVal, hasA := val.Get("a"); hasA {
			af, _ := aVal.Number()
			return "hsla(" + formatNumber(hf) + "," + formatNumber(sf) + "%," + formatNumber(lf) + "%," + formatNumber(af) + ")", true
		}
		return "hsl(" + formatNumber(hf) + "," + formatNumber(sf) + "%," + formatNumber(lf) + "%)", true
	}
	return "", false
}

func toBoolean(val jsonvalue.Value) (jsonvalue.Value, bool) {
	switch val.Kind() {
	case jsonvalue.KindString:
		s, _ := val.String()
		switch strings.ToLower(s) {
		case "true", "yes", "1":
			return jsonvalue.Bool(true), true
		case "false", "no", "0":
			return jsonvalue.Bool(false), true
		}
		return jsonvalue.Value{}, false
	case jsonvalue.KindNumber:
		n, _ := val.Number()
		return jsonvalue.Bool(n != 0), true
	default:
		return jsonvalue.Value{}, false
	}
}

func toArray(val jsonvalue.Value) (jsonvalue.Value, bool) {
	if val.IsNull() {
		return jsonvalue.Value{}, false
	}
	if val.IsArray() {
		return val, false
	}
	return jsonvalue.Array([]jsonvalue.Value{val}), true
}
