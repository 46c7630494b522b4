// Package extract locates ranked candidate JSON values inside mixed
// free-form text. It runs several independent strategies — markdown code
// fences, a balanced bracket/string scan, a bounded regex, inline tool-call
// probes, and a full repair pass — and scores the results so the caller can
// pick the most likely candidate. The strategy-list shape (try each handler
// in turn, first success per handler wins) is grounded on the "ai-team"
// agent's ToolCallFormatHandler chain; the balanced-scan walk and the
// outermost-span repair pass are grounded on the PromptCLI JSON extractor's
// bracket-stack walk.
package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/localrivet/llmtoolparse/json5"
	"github.com/localrivet/llmtoolparse/jsonvalue"
	"github.com/localrivet/llmtoolparse/repair"
)

// Method tags which strategy produced a candidate and drives its base
// confidence.
type Method string

const (
	MethodMarkdownCodeblock Method = "markdown_codeblock"
	MethodASTBalanced       Method = "ast_balanced"
	MethodRegexFullJSON     Method = "regex_full_json"
	MethodRegexPartial      Method = "regex_partial"
	MethodInlineJSON        Method = "inline_json"
	MethodJSON5Parse        Method = "json5_parse"
	MethodRepaired          Method = "repaired"
)

var baseConfidence = map[Method]float64{
	MethodMarkdownCodeblock: 0.95,
	MethodASTBalanced:       0.85,
	MethodJSON5Parse:        0.80,
	MethodRegexFullJSON:     0.75,
	MethodInlineJSON:        0.70,
	MethodRepaired:          0.60,
	MethodRegexPartial:      0.50,
}

// Candidate is one extracted, parsed value with provenance.
type Candidate struct {
	Value           jsonvalue.Value
	Source          string
	Start, End      int
	Method          Method
	Confidence      float64
	AppliedRepairs  []string
	ValidationErrs  []string
	AlternativeCount int
	Reason          string
}

// Options configures which strategies run and how many candidates survive.
type Options struct {
	EnableRepair     bool
	MaxCandidates    int
	MinConfidence    float64
	ModelPack        *repair.KnownIssuesPack
	EnabledMethods   map[Method]bool // nil means "all enabled"
}

// DefaultOptions mirrors the top-level parser's default extractor
// configuration.
func DefaultOptions() Options {
	return Options{
		EnableRepair:  true,
		MaxCandidates: 5,
		MinConfidence: 0.5,
	}
}

func (o Options) methodEnabled(m Method) bool {
	if o.EnabledMethods == nil {
		return true
	}
	return o.EnabledMethods[m]
}

var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)```")

// Extract runs every enabled strategy over text and returns deduplicated,
// confidence-filtered candidates, highest confidence first.
func Extract(text string, opts Options) []Candidate {
	var all []Candidate
	seen := map[[2]int]bool{}

	add := func(c Candidate) {
		key := [2]int{c.Start, c.End}
		if seen[key] {
			return
		}
		seen[key] = true
		all = append(all, c)
	}

	if opts.methodEnabled(MethodMarkdownCodeblock) {
		for _, c := range extractMarkdown(text, opts) {
			add(c)
		}
	}
	if opts.methodEnabled(MethodASTBalanced) {
		for _, c := range extractBalanced(text) {
			add(c)
		}
	}
	if opts.methodEnabled(MethodRegexFullJSON) {
		for _, c := range extractRegexFull(text) {
			add(c)
		}
	}
	if opts.methodEnabled(MethodInlineJSON) {
		for _, c := range extractInlineProbes(text) {
			add(c)
		}
	}
	if opts.methodEnabled(MethodJSON5Parse) {
		for _, c := range extractJSON5Whole(text) {
			add(c)
		}
	}
	if opts.methodEnabled(MethodRegexPartial) {
		for _, c := range extractRegexPartial(text) {
			add(c)
		}
	}
	if opts.EnableRepair {
		if c, ok := extractRepairPass(text, opts.ModelPack); ok {
			add(c)
		}
	}

	var kept []Candidate
	for _, c := range all {
		c.Confidence = clamp01(c.Confidence)
		if c.Confidence >= opts.MinConfidence {
			kept = append(kept, c)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Confidence > kept[j].Confidence
	})
	if opts.MaxCandidates > 0 && len(kept) > opts.MaxCandidates {
		kept = kept[:opts.MaxCandidates]
	}
	return kept
}

func extractMarkdown(text string, opts Options) []Candidate {
	var out []Candidate
	for _, m := range fencedBlock.FindAllStringSubmatchIndex(text, -1) {
		bodyStart, bodyEnd := m[2], m[3]
		body := text[bodyStart:bodyEnd]
		trimmed := strings.TrimSpace(body)
		if trimmed == "" {
			continue
		}
		if v, err := json5.Parse(trimmed); err == nil {
			out = append(out, Candidate{
				Value: v, Source: trimmed, Start: bodyStart, End: bodyEnd,
				Method: MethodMarkdownCodeblock, Confidence: baseConfidence[MethodMarkdownCodeblock],
			})
			continue
		}
		if opts.EnableRepair {
			res := repair.Run(trimmed, opts.ModelPack)
			if res.Success {
				if v, err := json5.Parse(res.Text); err == nil {
					out = append(out, Candidate{
						Value: v, Source: res.Text, Start: bodyStart, End: bodyEnd,
						Method: MethodMarkdownCodeblock, Confidence: baseConfidence[MethodMarkdownCodeblock] * 0.9,
						AppliedRepairs: res.AppliedRule,
					})
				}
			}
		}
	}
	return out
}

// extractBalanced walks every '{'/'[' start point, tracking nesting depth,
// in-string state and backslash escapes, stopping at the first close that
// drops depth to zero.
func extractBalanced(text string) []Candidate {
	var out []Candidate
	for i := 0; i < len(text); i++ {
		open := text[i]
		if open != '{' && open != '[' {
			continue
		}
		end, ok := scanBalancedSpan(text, i)
		if !ok {
			continue
		}
		sub := text[i:end]
		if v, err := json5.Parse(sub); err == nil {
			out = append(out, Candidate{
				Value: v, Source: sub, Start: i, End: end,
				Method: MethodASTBalanced, Confidence: baseConfidence[MethodASTBalanced],
			})
		}
	}
	return out
}

func scanBalancedSpan(text string, start int) (int, bool) {
	var stack []byte
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch c {
		case '{', '[':
			stack = append(stack, c)
		case '}':
			if len(stack) > 0 && stack[len(stack)-1] == '{' {
				stack = stack[:len(stack)-1]
				if len(stack) == 0 {
					return i + 1, true
				}
			}
		case ']':
			if len(stack) > 0 && stack[len(stack)-1] == '[' {
				stack = stack[:len(stack)-1]
				if len(stack) == 0 {
					return i + 1, true
				}
			}
		}
	}
	return 0, false
}

var reFullJSONSmall = regexp.MustCompile(`(?s)\{[^{}]{0,400}\}`)

func extractRegexFull(text string) []Candidate {
	if len(text) > 2000 {
		return nil // performance shortcut only applies to small inputs
	}
	var out []Candidate
	for _, loc := range reFullJSONSmall.FindAllStringIndex(text, -1) {
		sub := text[loc[0]:loc[1]]
		if v, err := json5.Parse(sub); err == nil {
			out = append(out, Candidate{
				Value: v, Source: sub, Start: loc[0], End: loc[1],
				Method: MethodRegexFullJSON, Confidence: baseConfidence[MethodRegexFullJSON],
			})
		}
	}
	return out
}

var inlineProbes = []*regexp.Regexp{
	regexp.MustCompile(`\{\s*"tool"\s*:\s*"`),
	regexp.MustCompile(`\{\s*"name"\s*:\s*"`),
	regexp.MustCompile(`\{\s*"function"\s*:\s*"`),
	regexp.MustCompile(`\{\s*"action"\s*:\s*"`),
}

func extractInlineProbes(text string) []Candidate {
	var out []Candidate
	for _, probe := range inlineProbes {
		for _, loc := range probe.FindAllStringIndex(text, -1) {
			start := loc[0]
			end, ok := scanBalancedSpan(text, start)
			if !ok {
				continue
			}
			sub := text[start:end]
			if v, err := json5.Parse(sub); err == nil {
				out = append(out, Candidate{
					Value: v, Source: sub, Start: start, End: end,
					Method: MethodInlineJSON, Confidence: baseConfidence[MethodInlineJSON],
				})
			}
		}
	}
	return out
}

// extractJSON5Whole treats the entire trimmed input as a single JSON5
// document, with no bracket scanning at all. It exists for the case
// extractBalanced's bracket-stack walk cannot handle correctly: that walk
// only tracks double-quoted strings, so a value using single-quoted strings
// that happen to contain a literal '{'/'}' character would desynchronize its
// nesting count and report a false match boundary or none at all. Handing
// the whole candidate to the real JSON5 tokenizer sidesteps that, at the
// cost of requiring the candidate to be the entire text with no surrounding
// prose.
func extractJSON5Whole(text string) []Candidate {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	v, err := json5.Parse(trimmed)
	if err != nil {
		return nil
	}
	start := strings.Index(text, trimmed)
	if start < 0 {
		start = 0
	}
	return []Candidate{{
		Value: v, Source: trimmed, Start: start, End: start + len(trimmed),
		Method: MethodJSON5Parse, Confidence: baseConfidence[MethodJSON5Parse],
	}}
}

// partialToolRegex finds a tool/name/function/action key even when the rest
// of the surrounding structure is too broken for any other strategy to
// recover, and partialParamRegex pulls flat "key": value pairs out of the
// text that follows it.
var partialToolRegex = regexp.MustCompile(`"(?:tool|name|function|action)"\s*:\s*"([A-Za-z0-9_\-.]+)"`)
var partialParamRegex = regexp.MustCompile(`"([A-Za-z0-9_\-]+)"\s*:\s*("(?:\\.|[^"\\])*"|-?\d+(?:\.\d+)?|true|false|null)`)

// extractRegexPartial is the last-resort strategy: it never requires the
// surrounding text to be well-formed. It reconstructs a minimal tool-call
// object purely from a matched tool-name field and whatever flat key/value
// pairs follow it within a bounded window, rather than trying to locate and
// parse a real JSON span.
func extractRegexPartial(text string) []Candidate {
	var out []Candidate
	for _, m := range partialToolRegex.FindAllStringSubmatchIndex(text, -1) {
		name := text[m[2]:m[3]]
		windowEnd := m[1] + 300
		if windowEnd > len(text) {
			windowEnd = len(text)
		}
		window := text[m[1]:windowEnd]
		var params []string
		for _, pm := range partialParamRegex.FindAllStringSubmatch(window, -1) {
			if pm[1] == "tool" || pm[1] == "name" || pm[1] == "function" || pm[1] == "action" {
				continue
			}
			params = append(params, fmt.Sprintf(`"%s":%s`, pm[1], pm[2]))
		}
		reconstructed := fmt.Sprintf(`{"tool":%q`, name)
		if len(params) > 0 {
			reconstructed += `,"params":{` + strings.Join(params, ",") + `}`
		}
		reconstructed += "}"
		v, err := json5.Parse(reconstructed)
		if err != nil {
			continue
		}
		out = append(out, Candidate{
			Value: v, Source: reconstructed, Start: m[0], End: windowEnd,
			Method: MethodRegexPartial, Confidence: baseConfidence[MethodRegexPartial],
		})
	}
	return out
}

func extractRepairPass(text string, pack *repair.KnownIssuesPack) (Candidate, bool) {
	firstOpen := strings.IndexAny(text, "{[")
	if firstOpen == -1 {
		return Candidate{}, false
	}
	// A missing closing bracket after the opening one means the candidate was
	// cut off mid-structure (streaming truncation); take the rest of the text
	// as the span and let CloseTruncation below supply the missing closers,
	// rather than giving up outright.
	lastClose := strings.LastIndexAny(text, "}]")
	end := len(text)
	if lastClose != -1 && lastClose >= firstOpen {
		end = lastClose + 1
	}
	span := text[firstOpen:end]
	res := repair.Run(span, pack)
	finalText := res.Text
	if !res.Success {
		finalText = repair.CloseTruncation(res.Text)
	}
	v, err := json5.Parse(finalText)
	if err != nil {
		return Candidate{}, false
	}
	return Candidate{
		Value: v, Source: finalText, Start: firstOpen, End: end,
		Method: MethodRepaired, Confidence: baseConfidence[MethodRepaired],
		AppliedRepairs: res.AppliedRule,
	}, true
}

// LooksLikeToolCall implements the spec's precise "looks like a tool call"
// predicate used by selection scoring.
func LooksLikeToolCall(v jsonvalue.Value) bool {
	return looksLikeToolCall(v, 0)
}

var toolCallKeys = map[string]bool{
	"tool": true, "name": true, "function": true, "actions": true,
	"commands": true, "tools": true, "tool_calls": true, "choices": true,
}

func looksLikeToolCall(v jsonvalue.Value, depth int) bool {
	if depth > 6 {
		return false
	}
	switch v.Kind() {
	case jsonvalue.KindObject:
		for _, k := range v.Keys() {
			if toolCallKeys[k] {
				return true
			}
		}
		if content, ok := v.Get("content"); ok {
			if elems, isArr := content.Array(); isArr {
				for _, e := range elems {
					if e.IsObject() {
						if _, hasType := e.Get("type"); hasType {
							return true
						}
					}
				}
			}
		}
		return false
	case jsonvalue.KindArray:
		elems, _ := v.Array()
		for _, e := range elems {
			if looksLikeToolCall(e, depth+1) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// SelectBestCandidate scores every candidate per the spec's weighting and
// returns the winner along with its recorded alternative count and reason.
func SelectBestCandidate(candidates []Candidate) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}
	type scored struct {
		c     Candidate
		score float64
	}
	var arr []scored
	for _, c := range candidates {
		score := c.Confidence
		reasonBits := []string{}
		if LooksLikeToolCall(c.Value) {
			score += 0.10
			reasonBits = append(reasonBits, "looks like a tool call")
		}
		if len(c.AppliedRepairs) == 0 {
			score += 0.05
			reasonBits = append(reasonBits, "no repairs applied")
		}
		score -= 0.10 * float64(len(c.ValidationErrs))
		offsetPenalty := float64(c.Start) / 10000.0
		if offsetPenalty > 0.05 {
			offsetPenalty = 0.05
		}
		score -= offsetPenalty
		score = clamp01(score)
		c.Reason = strings.Join(reasonBits, "; ")
		arr = append(arr, scored{c, score})
	}
	sort.SliceStable(arr, func(i, j int) bool {
		if arr[i].score != arr[j].score {
			return arr[i].score > arr[j].score
		}
		return arr[i].c.Start < arr[j].c.Start
	})
	winner := arr[0].c
	winner.Confidence = arr[0].score
	winner.AlternativeCount = len(arr) - 1
	if winner.Reason == "" {
		winner.Reason = "highest scoring candidate"
	}
	return winner, true
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
