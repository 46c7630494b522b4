// Package format detects which LLM-provider envelope family a candidate
// value came from and pulls the embedded tool-call pairs out of it. The
// detection cues and per-family field names are grounded on the teacher's
// protocol.Tool / CallToolRequestParams envelope handling (Claude tool_use,
// OpenAI tool_calls/function.arguments already modeled there) plus
// sashabaranov/go-openai's FunctionCall shape for the OpenAI arguments
// string, and the PromptCLI extractor's Action/ToolCall/FunctionCall shape
// for the Ollama/Qwen/Llama command family.
package format

import (
	"encoding/json"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/localrivet/llmtoolparse/json5"
	"github.com/localrivet/llmtoolparse/jsonvalue"
)

// Name is the closed set of provider-family tags.
type Name string

const (
	ClaudeToolUse        Name = "claude_tool_use"
	OpenAIFunctionCall    Name = "openai_function_call"
	AnthropicBetaTools    Name = "anthropic_beta_tools"
	OllamaJSON            Name = "ollama_json"
	QwenStructured        Name = "qwen_structured"
	LlamaJSON             Name = "llama_json"
	GeminiFunctionCall    Name = "gemini_function_call"
	CustomStructured      Name = "custom_structured"
	MarkdownJSON          Name = "markdown_json"
	InlineJSON            Name = "inline_json"
	Unknown               Name = "unknown"
)

// Detected is the format detector's output.
type Detected struct {
	Format     Name
	Confidence float64
	Version    string
	Metadata   map[string]string
}

type detectionRule struct {
	format     Name
	confidence float64
	match      func(text string) bool
}

var fence = regexp.MustCompile("```")
var reToolUse = regexp.MustCompile(`"type"\s*:\s*"tool_use"`)
var reToolCalls = regexp.MustCompile(`"tool_calls"\s*:\s*\[`)
var reFunctionName = regexp.MustCompile(`"function"\s*:\s*\{[^}]*"name"`)
var reArgumentsString = regexp.MustCompile(`"arguments"\s*:\s*"\{`)
var reFunctionCall = regexp.MustCompile(`"functionCall"\s*:\s*\{`)
var reFunctionResponse = regexp.MustCompile(`"functionResponse"\s*:`)
var reCommands = regexp.MustCompile(`"commands"\s*:\s*\[`)
var reToolField = regexp.MustCompile(`"tool"\s*:\s*"`)
var reThinking = regexp.MustCompile(`"thinking"\s*:`)
var reActionsArr = regexp.MustCompile(`"actions?"\s*:\s*\[`)
var reToolsArr = regexp.MustCompile(`"tools?"\s*:\s*\[`)

var detectionRules = []detectionRule{
	{MarkdownJSON, 0.80, func(t string) bool { return fence.MatchString(t) }},
	{ClaudeToolUse, 0.95, func(t string) bool { return reToolUse.MatchString(t) }},
	{OpenAIFunctionCall, 0.95, func(t string) bool {
		return reToolCalls.MatchString(t) || reFunctionName.MatchString(t) || reArgumentsString.MatchString(t)
	}},
	{GeminiFunctionCall, 0.90, func(t string) bool {
		return reFunctionCall.MatchString(t) || reFunctionResponse.MatchString(t)
	}},
	{OllamaJSON, 0.85, func(t string) bool {
		return reCommands.MatchString(t) || reToolField.MatchString(t) || reThinking.MatchString(t)
	}},
	{CustomStructured, 0.70, func(t string) bool {
		return reActionsArr.MatchString(t) || reToolsArr.MatchString(t)
	}},
}

// Detect runs the fixed priority-ordered regex table against the raw text
// of a candidate and returns the first hit. If nothing matches, an object
// value is tagged inline_json; anything else is unknown at confidence 0.
func Detect(text string, value jsonvalue.Value) Detected {
	for _, rule := range detectionRules {
		if rule.match(text) {
			return Detected{Format: rule.format, Confidence: rule.confidence}
		}
	}
	if value.IsObject() {
		return Detected{Format: InlineJSON, Confidence: 0.60}
	}
	return Detected{Format: Unknown, Confidence: 0.0}
}

// RawCall is a provider-agnostic, pre-validation {tool, parameters} pair.
// ToolName is empty when no candidate name slot was present.
type RawCall struct {
	ToolName   string
	HasTool    bool
	Parameters jsonvalue.Value
}

// ExtractRawCalls pulls zero or more RawCalls out of value according to the
// rules for the detected format family.
func ExtractRawCalls(det Detected, value jsonvalue.Value) []RawCall {
	switch det.Format {
	case ClaudeToolUse:
		return extractClaude(value)
	case OpenAIFunctionCall:
		return extractOpenAI(value)
	case OllamaJSON, QwenStructured, LlamaJSON:
		return extractOllamaFamily(value)
	case GeminiFunctionCall:
		return extractGemini(value)
	case CustomStructured, InlineJSON:
		return extractCustomOrInline(value)
	case MarkdownJSON:
		return extractMarkdownFences(value)
	default:
		return nil
	}
}

func extractClaude(value jsonvalue.Value) []RawCall {
	var out []RawCall
	if content, ok := value.Get("content"); ok {
		if elems, isArr := content.Array(); isArr {
			for _, e := range elems {
				if !e.IsObject() {
					continue
				}
				typ, _ := e.Get("type")
				typStr, _ := typ.String()
				if typStr != "tool_use" {
					continue
				}
				out = append(out, rawCallFrom(e, "name", "input"))
			}
		}
	}
	if typ, ok := value.Get("type"); ok {
		typStr, _ := typ.String()
		if typStr == "tool_use" {
			out = append(out, rawCallFrom(value, "name", "input"))
		}
	}
	return out
}

func rawCallFrom(e jsonvalue.Value, nameKey, paramsKey string) RawCall {
	nameVal, hasName := e.Get(nameKey)
	name, _ := nameVal.String()
	params, hasParams := e.Get(paramsKey)
	if !hasParams || !params.IsObject() {
		params = jsonvalue.NewObject()
	}
	return RawCall{ToolName: name, HasTool: hasName, Parameters: params}
}

// extractOpenAI decodes each tool_calls element through go-openai's own
// ToolCall/FunctionCall structs (round-tripped via its native map form)
// rather than reading the function/name/arguments keys by hand, so the
// field names and the legacy single function_call shape stay pinned to
// the library's definition instead of a second hand-maintained copy.
func extractOpenAI(value jsonvalue.Value) []RawCall {
	var out []RawCall
	collect := func(toolCalls jsonvalue.Value) {
		elems, ok := toolCalls.Array()
		if !ok {
			return
		}
		for _, tc := range elems {
			call, ok := decodeOpenAIToolCall(tc)
			if !ok {
				continue
			}
			out = append(out, call)
		}
	}
	collectLegacy := func(fc jsonvalue.Value) {
		call, ok := decodeOpenAIFunctionCall(fc)
		if ok {
			out = append(out, call)
		}
	}
	if choices, ok := value.Get("choices"); ok {
		if elems, isArr := choices.Array(); isArr {
			for _, choice := range elems {
				msg, hasMsg := choice.Get("message")
				if !hasMsg {
					continue
				}
				if tc, ok := msg.Get("tool_calls"); ok {
					collect(tc)
				}
				if fc, ok := msg.Get("function_call"); ok {
					collectLegacy(fc)
				}
			}
		}
	}
	if tc, ok := value.Get("tool_calls"); ok {
		collect(tc)
	}
	if fc, ok := value.Get("function_call"); ok {
		collectLegacy(fc)
	}
	return out
}

func decodeOpenAIToolCall(tc jsonvalue.Value) (RawCall, bool) {
	raw, err := json.Marshal(tc.Native())
	if err != nil {
		return RawCall{}, false
	}
	var parsed openai.ToolCall
	if err := json.Unmarshal(raw, &parsed); err != nil || parsed.Function.Name == "" {
		return RawCall{}, false
	}
	return RawCall{
		ToolName:   parsed.Function.Name,
		HasTool:    true,
		Parameters: parseArguments(jsonvalue.String(parsed.Function.Arguments)),
	}, true
}

func decodeOpenAIFunctionCall(fc jsonvalue.Value) (RawCall, bool) {
	raw, err := json.Marshal(fc.Native())
	if err != nil {
		return RawCall{}, false
	}
	var parsed openai.FunctionCall
	if err := json.Unmarshal(raw, &parsed); err != nil || parsed.Name == "" {
		return RawCall{}, false
	}
	return RawCall{
		ToolName:   parsed.Name,
		HasTool:    true,
		Parameters: parseArguments(jsonvalue.String(parsed.Arguments)),
	}, true
}

func parseArguments(args jsonvalue.Value) jsonvalue.Value {
	if args.IsObject() {
		return args
	}
	if s, ok := args.String(); ok {
		if v, err := json5.Parse(s); err == nil && v.IsObject() {
			return v
		}
	}
	return jsonvalue.NewObject()
}

func extractOllamaFamily(value jsonvalue.Value) []RawCall {
	var out []RawCall
	if cmds, ok := value.Get("commands"); ok {
		if elems, isArr := cmds.Array(); isArr {
			for _, e := range elems {
				nameVal, _, hasName := e.GetFirst("tool", "name", "action")
				name, _ := nameVal.String()
				paramsVal, _, hasParams := e.GetFirst("params", "parameters", "args")
				if !hasParams || !paramsVal.IsObject() {
					paramsVal = jsonvalue.NewObject()
				}
				out = append(out, RawCall{ToolName: name, HasTool: hasName, Parameters: paramsVal})
			}
		}
	}
	if _, _, has := value.GetFirst("tool", "name", "action"); has {
		nameVal, _, _ := value.GetFirst("tool", "name", "action")
		name, _ := nameVal.String()
		paramsVal, _, hasParams := value.GetFirst("params", "parameters", "args")
		if !hasParams || !paramsVal.IsObject() {
			paramsVal = jsonvalue.NewObject()
		}
		out = append(out, RawCall{ToolName: name, HasTool: true, Parameters: paramsVal})
	}
	return out
}

func extractGemini(value jsonvalue.Value) []RawCall {
	var out []RawCall
	if fc, ok := value.Get("functionCall"); ok {
		out = append(out, rawCallFrom(fc, "name", "args"))
	}
	if parts, ok := value.Get("parts"); ok {
		if elems, isArr := parts.Array(); isArr {
			for _, e := range elems {
				if fc, ok := e.Get("functionCall"); ok {
					out = append(out, rawCallFrom(fc, "name", "args"))
				}
			}
		}
	}
	return out
}

var containerKeys = []string{"actions", "tools", "commands", "calls", "operations"}

func extractCustomOrInline(value jsonvalue.Value) []RawCall {
	for _, key := range containerKeys {
		if arr, ok := value.Get(key); ok {
			if elems, isArr := arr.Array(); isArr {
				var out []RawCall
				for _, e := range elems {
					if call, ok := singleCall(e); ok {
						out = append(out, call)
					}
				}
				if len(out) > 0 {
					return out
				}
			}
		}
	}
	if call, ok := singleCall(value); ok {
		return []RawCall{call}
	}
	return nil
}

func extractMarkdownFences(value jsonvalue.Value) []RawCall {
	if call, ok := singleCall(value); ok {
		return []RawCall{call}
	}
	return extractCustomOrInline(value)
}

// singleCall reads a tool name from the first present of
// tool|name|function|action|type and parameters from the first present of
// parameters|params|arguments|args|input, rejecting non-string tool names.
func singleCall(e jsonvalue.Value) (RawCall, bool) {
	if !e.IsObject() {
		return RawCall{}, false
	}
	nameVal, _, hasName := e.GetFirst("tool", "name", "function", "action", "type")
	if !hasName {
		return RawCall{}, false
	}
	name, isString := nameVal.String()
	if !isString {
		return RawCall{}, false
	}
	paramsVal, _, hasParams := e.GetFirst("parameters", "params", "arguments", "args", "input")
	if !hasParams {
		paramsVal = jsonvalue.NewObject()
	} else if !paramsVal.IsObject() {
		if s, ok := paramsVal.String(); ok {
			if v, err := json5.Parse(s); err == nil && v.IsObject() {
				paramsVal = v
			} else {
				paramsVal = jsonvalue.NewObject()
			}
		} else {
			paramsVal = jsonvalue.NewObject()
		}
	}
	return RawCall{ToolName: name, HasTool: true, Parameters: paramsVal}, true
}

// LooksLikeFence reports whether raw text contains a fenced block.
func LooksLikeFence(text string) bool {
	return strings.Contains(text, "```")
}
