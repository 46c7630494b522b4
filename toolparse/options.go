// Package toolparse is the top-level entry point: it sequences extraction,
// selection, format detection/normalization, and schema validation into one
// parse() call with a bounded two-stage fallback ladder, plus parseSync and
// canParse convenience wrappers. Grounded on the teacher's package-level
// constructor style (gomcp.go's configured-value entry points) and its
// *_options.go functional-options convention (resource_options.go,
// auth_options.go) for Options/Option.
package toolparse

import (
	"time"

	"github.com/localrivet/llmtoolparse/extract"
	"github.com/localrivet/llmtoolparse/logx"
	"github.com/localrivet/llmtoolparse/registry"
	"github.com/localrivet/llmtoolparse/repair"
)

// ModelType is a closed set of model-family tags a caller may supply in a
// ParseContext, used only to select a known-issues pack; the parser never
// calls a model.
type ModelType string

const (
	ModelUnspecified ModelType = ""
	ModelClaude      ModelType = "claude"
	ModelOpenAI      ModelType = "openai"
	ModelOllama      ModelType = "ollama"
	ModelQwen        ModelType = "qwen"
	ModelLlama       ModelType = "llama"
	ModelGemini      ModelType = "gemini"
)

// Options is the closed configuration surface from the external-interfaces
// contract.
type Options struct {
	StrictMode              bool
	AllowPartial            bool
	AttemptRepairs          bool
	UseFallbacks            bool
	MaxRepairAttempts       int
	Timeout                 time.Duration
	EnableJSON5             bool
	FuzzyToolMatching       bool
	FuzzyMatchThreshold     float64
	SemanticParamMapping    bool
	TypeCoercion            bool
	ExtractionMethods       []extract.Method
	MinExtractionConfidence float64
	InjectDefaults          bool
	ValidateSchema          bool
	CoerceTypes             bool
	MaxSnippetLength        int
	Logger                  logx.Logger
}

// Option mutates an Options value during construction.
type Option func(*Options)

// DefaultOptions returns the documented default table.
func DefaultOptions() Options {
	return Options{
		StrictMode:          false,
		AllowPartial:        true,
		AttemptRepairs:      true,
		UseFallbacks:        true,
		MaxRepairAttempts:   3,
		Timeout:             5000 * time.Millisecond,
		EnableJSON5:         true,
		FuzzyToolMatching:   true,
		FuzzyMatchThreshold: 0.7,
		SemanticParamMapping: true,
		TypeCoercion:        true,
		ExtractionMethods: []extract.Method{
			extract.MethodMarkdownCodeblock, extract.MethodASTBalanced, extract.MethodJSON5Parse,
			extract.MethodRegexFullJSON, extract.MethodInlineJSON, extract.MethodRegexPartial,
		},
		MinExtractionConfidence: 0.5,
		InjectDefaults:          true,
		ValidateSchema:          true,
		CoerceTypes:             true,
		MaxSnippetLength:        200,
		Logger:                  logx.NoOp(),
	}
}

func WithStrictMode(v bool) Option        { return func(o *Options) { o.StrictMode = v } }
func WithAllowPartial(v bool) Option      { return func(o *Options) { o.AllowPartial = v } }
func WithAttemptRepairs(v bool) Option    { return func(o *Options) { o.AttemptRepairs = v } }
func WithUseFallbacks(v bool) Option      { return func(o *Options) { o.UseFallbacks = v } }
func WithMaxRepairAttempts(n int) Option  { return func(o *Options) { o.MaxRepairAttempts = n } }
func WithTimeout(d time.Duration) Option  { return func(o *Options) { o.Timeout = d } }
func WithEnableJSON5(v bool) Option       { return func(o *Options) { o.EnableJSON5 = v } }
func WithFuzzyToolMatching(v bool) Option { return func(o *Options) { o.FuzzyToolMatching = v } }
func WithFuzzyThreshold(t float64) Option { return func(o *Options) { o.FuzzyMatchThreshold = t } }
func WithSemanticParamMapping(v bool) Option {
	return func(o *Options) { o.SemanticParamMapping = v }
}
func WithTypeCoercion(v bool) Option { return func(o *Options) { o.TypeCoercion = v; o.CoerceTypes = v } }
func WithExtractionMethods(methods ...extract.Method) Option {
	return func(o *Options) { o.ExtractionMethods = methods }
}
func WithMinExtractionConfidence(c float64) Option {
	return func(o *Options) { o.MinExtractionConfidence = c }
}
func WithInjectDefaults(v bool) Option   { return func(o *Options) { o.InjectDefaults = v } }
func WithValidateSchema(v bool) Option   { return func(o *Options) { o.ValidateSchema = v } }
func WithMaxSnippetLength(n int) Option  { return func(o *Options) { o.MaxSnippetLength = n } }
func WithLogger(l logx.Logger) Option    { return func(o *Options) { o.Logger = l } }

// New builds an Options value from DefaultOptions with the given overrides
// applied in order.
func New(opts ...Option) Options {
	o := DefaultOptions()
	for _, apply := range opts {
		apply(&o)
	}
	if o.Logger == nil {
		o.Logger = logx.NoOp()
	}
	return o
}

func (o Options) extractOptions(pack *repair.KnownIssuesPack) extract.Options {
	methods := map[extract.Method]bool{}
	for _, m := range o.ExtractionMethods {
		methods[m] = true
	}
	return extract.Options{
		EnableRepair:   o.AttemptRepairs,
		MaxCandidates:  5,
		MinConfidence:  o.MinExtractionConfidence,
		ModelPack:      pack,
		EnabledMethods: methods,
	}
}

// ParseContext carries per-call context: model identity, a caller-tuned
// known-issues pack, the registry to validate against, and the internal
// fallback-level counter.
type ParseContext struct {
	ModelType     ModelType
	ModelVersion  string
	KnownIssues   *repair.KnownIssuesPack
	Registry      *registry.Registry
	fallbackLevel int
}
