package toolparse

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/localrivet/llmtoolparse/extract"
	"github.com/localrivet/llmtoolparse/format"
	"github.com/localrivet/llmtoolparse/logx"
	"github.com/localrivet/llmtoolparse/registry"
	"github.com/localrivet/llmtoolparse/repair"
	"github.com/localrivet/llmtoolparse/validate"
)

// Strategy names which path of the §4.8 sequence produced a result.
type Strategy string

const (
	StrategyPrimary           Strategy = "primary"
	StrategyAutoRepair        Strategy = "auto_repair"
	StrategyLenientExtraction Strategy = "lenient_extraction"
)

// SuccessMetadata accompanies a successful ParsingResult.
type SuccessMetadata struct {
	ParseTime        time.Duration
	ExtractionMethod extract.Method
	Format           format.Name
	Confidence       float64
	Coercions        []validate.Coercion
	Warnings         []validate.Warning
	RawOutputSnippet string
	FallbackStrategy Strategy
	AppliedRepairs   []string
}

// FailureMetadata accompanies a failed ParsingResult.
type FailureMetadata struct {
	ErrorMessage    string
	Errors          []validate.Error
	Suggestions     []string
	PartialCalls    []validate.NormalizedToolCall
	PartialMetadata map[string]interface{}
}

// ParsingResult is a tagged variant: exactly one of Success or Failure is
// populated, signaled by Ok.
type ParsingResult struct {
	Ok       bool
	Calls    []validate.NormalizedToolCall
	Success  SuccessMetadata
	Failure  FailureMetadata
}

// Parse is the primary entry point: extraction -> selection ->
// normalization -> validation -> fallbacks, bounded by a timeout.
func Parse(rawText string, ctx *ParseContext, opts Options) ParsingResult {
	start := time.Now()
	if ctx == nil {
		ctx = &ParseContext{}
	}
	deadline := start.Add(opts.Timeout)
	log := opts.Logger
	if log == nil {
		log = logx.NoOp()
	}

	reg := ctx.Registry
	if reg == nil {
		reg = registry.New()
	}

	snippet := rawText
	if opts.MaxSnippetLength > 0 && len(snippet) > opts.MaxSnippetLength {
		snippet = snippet[:opts.MaxSnippetLength]
	}

	timedOut := func() bool { return opts.Timeout > 0 && time.Now().After(deadline) }

	extractOpts := opts.extractOptions(ctx.KnownIssues)
	candidates := extract.Extract(rawText, extractOpts)
	log.Debug("extraction complete", logx.Fields{"candidates": len(candidates)})

	if len(candidates) == 0 && opts.AttemptRepairs && !timedOut() {
		if res, ok := stageAutoRepair(rawText, ctx, opts, reg, log, start); ok {
			return res
		}
	}
	if len(candidates) == 0 {
		if timedOut() {
			return timeoutFailure()
		}
		return noCandidatesFailure()
	}

	if timedOut() {
		return timeoutFailure()
	}

	best, ok := extract.SelectBestCandidate(candidates)
	if !ok {
		return noCandidatesFailure()
	}
	calls, meta, allErrs := normalizeAndValidate(best, reg, opts)

	if len(calls) > 0 {
		meta.ParseTime = time.Since(start)
		meta.RawOutputSnippet = snippet
		meta.FallbackStrategy = StrategyPrimary
		return ParsingResult{Ok: true, Calls: calls, Success: meta}
	}

	if opts.UseFallbacks && !timedOut() {
		if res, ok := stageLenientExtraction(rawText, ctx, opts, reg, log, start, snippet); ok {
			return res
		}
	}

	return exhaustionFailure(allErrs, best)
}

func normalizeAndValidate(candidate extract.Candidate, reg *registry.Registry, opts Options) ([]validate.NormalizedToolCall, SuccessMetadata, []validate.Error) {
	det := format.Detect(candidate.Source, candidate.Value)
	rawCalls := format.ExtractRawCalls(det, candidate.Value)

	vOpts := validate.Options{
		StrictMode:           opts.StrictMode,
		FuzzyToolMatching:    opts.FuzzyToolMatching,
		FuzzyThreshold:       opts.FuzzyMatchThreshold,
		SemanticParamMapping: opts.SemanticParamMapping,
		TypeCoercion:         opts.TypeCoercion && opts.CoerceTypes,
		InjectDefaults:       opts.InjectDefaults,
		ValidateSchema:       opts.ValidateSchema,
	}

	var calls []validate.NormalizedToolCall
	var allErrs []validate.Error
	var allCoercions []validate.Coercion
	var allWarnings []validate.Warning

	for i := range rawCalls {
		call, errs, warns, ok := validate.Validate(rawCalls[i], reg, vOpts)
		allErrs = append(allErrs, errs...)
		allWarnings = append(allWarnings, warns...)
		if !ok {
			continue
		}
		call.ID = uuid.NewString()
		call.Format = det.Format
		call.Confidence = candidate.Confidence
		call.Timestamp = time.Now()
		allCoercions = append(allCoercions, call.ParamTrace.Coercions...)
		calls = append(calls, call)
	}

	meta := SuccessMetadata{
		ExtractionMethod: candidate.Method,
		Format:           det.Format,
		Confidence:       candidate.Confidence,
		Coercions:        allCoercions,
		Warnings:         allWarnings,
		AppliedRepairs:   candidate.AppliedRepairs,
	}
	return calls, meta, allErrs
}

func stageAutoRepair(rawText string, ctx *ParseContext, opts Options, reg *registry.Registry, log logx.Logger, start time.Time) (ParsingResult, bool) {
	ctx.fallbackLevel++
	res := repair.Run(rawText, ctx.KnownIssues)
	if len(res.AppliedRule) == 0 {
		return ParsingResult{}, false
	}
	log.Debug("auto_repair stage applied rules", logx.Fields{"rules": res.AppliedRule})
	candidates := extract.Extract(res.Text, opts.extractOptions(ctx.KnownIssues))
	if len(candidates) == 0 {
		return ParsingResult{}, false
	}
	best, ok := extract.SelectBestCandidate(candidates)
	if !ok {
		return ParsingResult{}, false
	}
	calls, meta, _ := normalizeAndValidate(best, reg, opts)
	if len(calls) == 0 {
		return ParsingResult{}, false
	}
	meta.Confidence *= 0.8
	for i := range calls {
		calls[i].Confidence *= 0.8
	}
	meta.ParseTime = time.Since(start)
	meta.FallbackStrategy = StrategyAutoRepair
	meta.AppliedRepairs = res.AppliedRule
	snippet := rawText
	if opts.MaxSnippetLength > 0 && len(snippet) > opts.MaxSnippetLength {
		snippet = snippet[:opts.MaxSnippetLength]
	}
	meta.RawOutputSnippet = snippet
	return ParsingResult{Ok: true, Calls: calls, Success: meta}, true
}

func stageLenientExtraction(rawText string, ctx *ParseContext, opts Options, reg *registry.Registry, log logx.Logger, start time.Time, snippet string) (ParsingResult, bool) {
	ctx.fallbackLevel++
	lenientExtractOpts := extract.Options{
		EnableRepair:  true,
		MaxCandidates: 10,
		MinConfidence: 0.3,
		ModelPack:     ctx.KnownIssues,
	}
	candidates := extract.Extract(rawText, lenientExtractOpts)
	if len(candidates) == 0 {
		return ParsingResult{}, false
	}
	best, ok := extract.SelectBestCandidate(candidates)
	if !ok {
		return ParsingResult{}, false
	}
	calls, meta, _ := normalizeAndValidate(best, reg, opts)
	if len(calls) == 0 {
		return ParsingResult{}, false
	}
	log.Debug("lenient_extraction stage succeeded", logx.Fields{"method": best.Method})
	meta.Confidence *= 0.6
	for i := range calls {
		calls[i].Confidence *= 0.6
	}
	meta.ParseTime = time.Since(start)
	meta.FallbackStrategy = StrategyLenientExtraction
	meta.RawOutputSnippet = snippet
	return ParsingResult{Ok: true, Calls: calls, Success: meta}, true
}

func noCandidatesFailure() ParsingResult {
	return ParsingResult{
		Ok: false,
		Failure: FailureMetadata{
			ErrorMessage: "no JSON content found",
			Suggestions:  []string{"ensure the model output contains a JSON object or fenced code block"},
		},
	}
}

func timeoutFailure() ParsingResult {
	return ParsingResult{
		Ok: false,
		Failure: FailureMetadata{
			ErrorMessage: "parse timed out",
			Suggestions:  []string{"increase the configured timeout or simplify the input"},
		},
	}
}

func exhaustionFailure(errs []validate.Error, best extract.Candidate) ParsingResult {
	var sugs []string
	for _, e := range errs {
		if e.Suggested != "" {
			sugs = append(sugs, e.Suggested)
		}
	}
	sugs = append(sugs, "check tool and parameter names against the registry")
	var partial []validate.NormalizedToolCall
	if best.Value.IsObject() {
		if nameVal, _, ok := best.Value.GetFirst("tool", "name", "function", "action"); ok {
			name, _ := nameVal.String()
			if name != "" {
				partial = append(partial, validate.NormalizedToolCall{
					Tool:       name,
					Parameters: best.Value,
					Confidence: 0.1,
				})
			}
		}
	}
	msg := "validation failed for all extracted candidates"
	if len(errs) > 0 {
		msg = errs[0].Message
	}
	return ParsingResult{
		Ok: false,
		Failure: FailureMetadata{
			ErrorMessage: msg,
			Errors:       errs,
			Suggestions:  dedupeStrings(sugs),
			PartialCalls: partial,
		},
	}
}

func dedupeStrings(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// ParseSync is the best-effort synchronous variant: an empty list on any
// failure, never an error.
func ParseSync(rawText string, ctx *ParseContext, opts Options) []validate.NormalizedToolCall {
	res := Parse(rawText, ctx, opts)
	if !res.Ok {
		return nil
	}
	return res.Calls
}

// CanParse reports whether extraction + normalization would yield at least
// one call, without side effects (it runs the same pipeline and discards
// the result).
func CanParse(rawText string, ctx *ParseContext, opts Options) bool {
	res := Parse(rawText, ctx, opts)
	return res.Ok && len(res.Calls) > 0
}
