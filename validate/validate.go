// Package validate combines fuzzy tool-name resolution, parameter mapping
// and per-property schema checks into a single pass over one raw call,
// producing a NormalizedToolCall or a structured error/warning set. It is
// grounded on the teacher's util/schema.Validator and ValidateConstraints/
// ValidateType (Required/Min/Max/Enum/Format checks), regrown to emit typed
// Error/Warning values instead of a Go error.
package validate

import (
	"regexp"
	"strings"
	"time"

	"github.com/localrivet/llmtoolparse/format"
	"github.com/localrivet/llmtoolparse/fuzzy"
	"github.com/localrivet/llmtoolparse/json5"
	"github.com/localrivet/llmtoolparse/jsonvalue"
	"github.com/localrivet/llmtoolparse/paramap"
	"github.com/localrivet/llmtoolparse/registry"
)

// ErrorKind is the closed set of validation error kinds from the error
// handling design.
type ErrorKind string

const (
	ErrInvalidJSONStructure    ErrorKind = "invalid_json_structure"
	ErrUnknownTool             ErrorKind = "unknown_tool"
	ErrRequiredParameterMissing ErrorKind = "required_parameter_missing"
	ErrSchemaMismatch          ErrorKind = "schema_mismatch"
	ErrInvalidType             ErrorKind = "invalid_type"
	ErrInvalidEnumValue        ErrorKind = "invalid_enum_value"
	ErrNumberOutOfRange        ErrorKind = "number_out_of_range"
	ErrStringPatternMismatch   ErrorKind = "string_pattern_mismatch"
)

var criticalKinds = map[ErrorKind]bool{
	ErrUnknownTool:             true,
	ErrRequiredParameterMissing: true,
}

// Error is a single validation error: never thrown, always returned.
type Error struct {
	Kind      ErrorKind
	Path      []string
	Message   string
	Suggested string
	Expected  string
	Received  string
}

// Warning is a non-fatal accompaniment to a (possibly still successful)
// validation.
type Warning struct {
	Path       []string
	Message    string
	Suggestion string
}

// FuzzyMatchTrace records that a tool or parameter name needed fuzzy
// resolution, kept as a concrete exported type (rather than a loose
// metadata map) per the closed-sum-type discipline applied to
// ParsingResult metadata.
type FuzzyMatchTrace struct {
	OriginalName string
	MatchedName  string
	Similarity   float64
	Algorithm    fuzzy.Algorithm
}

// ParameterMappingTrace mirrors FuzzyMatchTrace for the parameter mapper's
// per-key resolution record.
type ParameterMappingTrace struct {
	Mappings  []paramap.Mapping
	Coercions []paramap.Coercion
}

// NormalizedToolCall is the unit of output: a canonical, validated record.
type NormalizedToolCall struct {
	ID         string
	Tool       string
	Parameters jsonvalue.Value
	Confidence float64
	Format     format.Name
	Raw        format.RawCall
	FuzzyMatch *FuzzyMatchTrace
	ParamTrace ParameterMappingTrace
	Warnings   []Warning
	Timestamp  time.Time
}

// Options configures a single validation pass.
type Options struct {
	StrictMode       bool
	FuzzyToolMatching bool
	FuzzyThreshold   float64
	SemanticParamMapping bool
	TypeCoercion     bool
	InjectDefaults   bool
	ValidateSchema   bool
	ParameterAliases map[string]string
}

// Validate runs the full §4.7 pipeline over one raw call against reg.
func Validate(raw format.RawCall, reg *registry.Registry, opts Options) (NormalizedToolCall, []Error, []Warning, bool) {
	var errs []Error
	var warns []Warning

	if !raw.HasTool || strings.TrimSpace(raw.ToolName) == "" {
		errs = append(errs, Error{Kind: ErrInvalidJSONStructure, Path: []string{"tool"}, Message: "no tool name present in candidate"})
		return NormalizedToolCall{}, errs, warns, false
	}

	names := reg.GetToolNames()
	var fuzzyTrace *FuzzyMatchTrace
	canonical, exact := reg.Get(raw.ToolName)
	var toolName string
	if exact {
		toolName = canonical.Name
		if !strings.EqualFold(canonical.Name, raw.ToolName) {
			fuzzyTrace = &FuzzyMatchTrace{OriginalName: raw.ToolName, MatchedName: canonical.Name, Similarity: 0.95, Algorithm: fuzzy.AlgorithmAlias}
		}
	} else if opts.FuzzyToolMatching {
		resolver := fuzzy.ToolResolver{Threshold: opts.FuzzyThreshold, StaticAliases: fuzzy.DefaultStaticToolAliases()}
		m, ok := resolver.Resolve(raw.ToolName, names, reg.LookupExact, reg.LookupAlias)
		if ok {
			toolName = m.Candidate
			fuzzyTrace = &FuzzyMatchTrace{OriginalName: raw.ToolName, MatchedName: m.Candidate, Similarity: m.Similarity, Algorithm: m.Algorithm}
		}
	}
	if toolName == "" {
		suggestions := fuzzy.TopN(raw.ToolName, names, fuzzy.Options{Threshold: 0}, 3)
		var sugNames []string
		for _, s := range suggestions {
			sugNames = append(sugNames, s.Candidate)
		}
		errs = append(errs, Error{
			Kind: ErrUnknownTool, Path: []string{"tool"},
			Message:   "tool \"" + raw.ToolName + "\" did not resolve to the registry",
			Suggested: strings.Join(sugNames, ", "),
		})
		return NormalizedToolCall{}, errs, warns, false
	}

	schema, _ := reg.Get(toolName)
	params := raw.Parameters
	if !params.IsObject() {
		if s, ok := params.String(); ok {
			if v, err := json5.Parse(s); err == nil && v.IsObject() {
				params = v
			} else {
				params = jsonvalue.NewObject()
			}
		} else {
			params = jsonvalue.NewObject()
		}
	}

	mapOpts := paramap.Options{
		FuzzyEnabled:       opts.SemanticParamMapping,
		FuzzyThreshold:     0.7,
		TypeCoercion:       opts.TypeCoercion,
		InjectDefaults:     opts.InjectDefaults,
		Strict:             opts.StrictMode,
		ParameterAliases:   opts.ParameterAliases,
		PassThroughUnknown: false,
	}
	if mapOpts.ParameterAliases == nil {
		mapOpts.ParameterAliases = paramap.DefaultParameterAliases()
	}
	mapped := paramap.Map(params, schema, mapOpts)
	for _, w := range mapped.Warnings {
		warns = append(warns, Warning{Path: w.Path, Message: w.Message})
	}
	if opts.StrictMode {
		for _, key := range mapped.Unmapped {
			errs = append(errs, Error{Kind: ErrSchemaMismatch, Path: []string{key}, Message: "unknown parameter in strict mode: " + key})
		}
	}

	if opts.ValidateSchema {
		for key, prop := range schema.Properties {
			val, ok := mapped.Parameters.Get(key)
			if !ok || val.IsNull() {
				continue
			}
			errs = append(errs, checkProperty(key, val, prop)...)
		}
	}

	for _, missing := range mapped.MissingRequired {
		errs = append(errs, Error{Kind: ErrRequiredParameterMissing, Path: []string{missing}, Message: "required parameter missing: " + missing})
	}

	valid := true
	if opts.StrictMode {
		valid = len(errs) == 0
	} else {
		for _, e := range errs {
			if criticalKinds[e.Kind] {
				valid = false
				break
			}
		}
	}
	if !valid {
		return NormalizedToolCall{}, errs, warns, false
	}

	call := NormalizedToolCall{
		Tool:       schema.Name,
		Parameters: mapped.Parameters,
		Format:     "",
		Raw:        raw,
		FuzzyMatch: fuzzyTrace,
		ParamTrace: ParameterMappingTrace{Mappings: mapped.Mappings, Coercions: mapped.Coercions},
		Warnings:   warns,
	}
	return call, errs, warns, true
}

func checkProperty(key string, val jsonvalue.Value, prop registry.Property) []Error {
	var errs []Error
	if prop.Type != "" && !propertyTypeMatches(val, prop.Type) {
		errs = append(errs, Error{
			Kind: ErrInvalidType, Path: []string{key},
			Message:  "parameter \"" + key + "\" type mismatch",
			Expected: string(prop.Type), Received: val.TypeName(),
		})
		return errs // further checks assume the declared type
	}
	if prop.Type == registry.TypeNumber {
		if n, ok := val.Number(); ok {
			if prop.Minimum != nil && n < *prop.Minimum {
				errs = append(errs, Error{Kind: ErrNumberOutOfRange, Path: []string{key}, Message: "value below minimum"})
			}
			if prop.Maximum != nil && n > *prop.Maximum {
				errs = append(errs, Error{Kind: ErrNumberOutOfRange, Path: []string{key}, Message: "value above maximum"})
			}
		}
	}
	if prop.Type == registry.TypeString && prop.Pattern != "" {
		if s, ok := val.String(); ok {
			if re, err := regexp.Compile(prop.Pattern); err == nil && !re.MatchString(s) {
				errs = append(errs, Error{Kind: ErrStringPatternMismatch, Path: []string{key}, Message: "value does not match pattern"})
			}
		}
	}
	if len(prop.Enum) > 0 {
		native := val.Native()
		found := false
		for _, e := range prop.Enum {
			if e == native {
				found = true
				break
			}
		}
		if !found {
			errs = append(errs, Error{Kind: ErrInvalidEnumValue, Path: []string{key}, Message: "value not in declared enum"})
		}
	}
	return errs
}

func propertyTypeMatches(val jsonvalue.Value, t registry.PropertyType) bool {
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
	case registry.TypeNull:
		return val.IsNull()
	default:
		return true
	}
}
