// Package repair applies a deterministic, priority-ordered pipeline of
// textual rewrites to a JSON-ish candidate until it parses as strict JSON or
// the rule set is exhausted, plus a bracket/string-stack truncation closure
// for cut-off input. It is grounded on the bracket-stack closure and
// regex-based argument repair found in the community "PromptCLI" JSON
// extractor, generalized from a single ad hoc fixup into an ordered,
// named, individually-reported rule table.
package repair

import (
	"regexp"
	"sort"
	"strings"

	"github.com/localrivet/llmtoolparse/json5"
)

// Rule is one named, prioritized textual rewrite. Higher Priority runs
// first; ties break by Name, ascending, for determinism.
type Rule struct {
	Priority int
	Name     string
	Apply    func(string) (string, bool)
}

// KnownIssuesPack is a caller-supplied, model-specific set of rules applied
// before the generic table. Built with NewModelPack.
type KnownIssuesPack struct {
	rules []ModelRule
}

// ModelRule is a single caller-supplied (pattern, fix, label) tuple tuned to
// a specific model's known quirks.
type ModelRule struct {
	Pattern *regexp.Regexp
	Fix     func(string) string
	Label   string
}

// NewModelPack builds a KnownIssuesPack from a list of tuples, the
// constructor the spec's prose shape left unstated; modeled on the
// teacher's functional small-typed-builder-over-a-slice convention.
func NewModelPack(rules ...ModelRule) *KnownIssuesPack {
	return &KnownIssuesPack{rules: append([]ModelRule(nil), rules...)}
}

// Result is the pipeline's output contract.
type Result struct {
	Success     bool
	Text        string
	AppliedRule []string
	SoftErrors  []string
}

var genericRules = buildGenericRules()

func buildGenericRules() []Rule {
	rules := []Rule{
		{100, "python_booleans", pythonBooleans},
		{95, "single_quotes", singleQuotes},
		{90, "unquoted_keys", unquotedKeys},
		{85, "trailing_comma_object", trailingCommaObject},
		{85, "trailing_comma_array", trailingCommaArray},
		{80, "missing_comma_between_properties", missingCommaBetweenProperties},
		{75, "missing_comma_after_value", missingCommaAfterValue},
		{70, "missing_comma_after_brace", missingCommaAfterBrace},
		{60, "nan_infinity", nanInfinity},
		{60, "undefined_to_null", undefinedToNull},
		{50, "remove_comments_single", removeCommentsSingle},
		{50, "remove_comments_multi", removeCommentsMulti},
		{10, "normalize_whitespace", normalizeWhitespace},
	}
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}
		return rules[i].Name < rules[j].Name
	})
	return rules
}

// Run applies the optional model pack, then the generic rule table in
// priority order, stopping as soon as the accumulated text parses as strict
// JSON. A rule panic or internal regex failure is caught per-rule and
// recorded as a soft error without aborting the pipeline.
func Run(candidate string, pack *KnownIssuesPack) Result {
	text := candidate
	var applied []string
	var soft []string

	tryApply := func(name string, fn func(string) (string, bool)) {
		defer func() {
			if r := recover(); r != nil {
				soft = append(soft, name+": recovered panic")
			}
		}()
		next, changed := fn(text)
		if changed {
			text = next
			applied = append(applied, name)
		}
	}

	if pack != nil {
		for _, mr := range pack.rules {
			label := mr.Label
			if mr.Pattern != nil && !mr.Pattern.MatchString(text) {
				continue
			}
			func() {
				defer func() {
					if r := recover(); r != nil {
						soft = append(soft, label+": recovered panic")
					}
				}()
				next := mr.Fix(text)
				if next != text {
					text = next
					applied = append(applied, label)
				}
			}()
			if _, err := json5.ParseStrict(text); err == nil {
				return Result{true, text, applied, soft}
			}
		}
	}

	for _, rule := range genericRules {
		tryApply(rule.Name, rule.Apply)
		if _, err := json5.ParseStrict(text); err == nil {
			return Result{true, text, applied, soft}
		}
	}

	return Result{false, text, applied, soft}
}

// CloseTruncation walks the candidate once, tracking in-string state and a
// LIFO stack of open braces/brackets, and appends whatever closing
// punctuation is needed to balance it: a closing quote first if the walk
// ends inside a string, then one closer per still-open structure.
func CloseTruncation(text string) string {
	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
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
			}
		case ']':
			if len(stack) > 0 && stack[len(stack)-1] == '[' {
				stack = stack[:len(stack)-1]
			}
		}
	}
	var b strings.Builder
	b.WriteString(text)
	if inString {
		b.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		switch stack[i] {
		case '{':
			b.WriteByte('}')
		case '[':
			b.WriteByte(']')
		}
	}
	return b.String()
}

// --- generic rules ---

var rePythonTrue = regexp.MustCompile(`\bTrue\b`)
var rePythonFalse = regexp.MustCompile(`\bFalse\b`)
var rePythonNone = regexp.MustCompile(`\bNone\b`)

func pythonBooleans(s string) (string, bool) {
	out := rePythonTrue.ReplaceAllString(s, "true")
	out = rePythonFalse.ReplaceAllString(out, "false")
	out = rePythonNone.ReplaceAllString(out, "null")
	return out, out != s
}

var reSingleQuoted = regexp.MustCompile(`'((?:\\.|[^'\\])*)'`)

func singleQuotes(s string) (string, bool) {
	changed := false
	out := reSingleQuoted.ReplaceAllStringFunc(s, func(m string) string {
		changed = true
		inner := m[1 : len(m)-1]
		inner = strings.ReplaceAll(inner, `\'`, `'`)
		inner = strings.ReplaceAll(inner, `"`, `\"`)
		return `"` + inner + `"`
	})
	return out, changed
}

var reUnquotedKey = regexp.MustCompile(`([{,]\s*)([A-Za-z_$][A-Za-z0-9_$]*)(\s*:)`)

func unquotedKeys(s string) (string, bool) {
	changed := false
	out := reUnquotedKey.ReplaceAllStringFunc(s, func(m string) string {
		parts := reUnquotedKey.FindStringSubmatch(m)
		changed = true
		return parts[1] + `"` + parts[2] + `"` + parts[3]
	})
	return out, changed
}

var reTrailingCommaObject = regexp.MustCompile(`,(\s*)\}`)

func trailingCommaObject(s string) (string, bool) {
	out := reTrailingCommaObject.ReplaceAllString(s, "$1}")
	return out, out != s
}

var reTrailingCommaArray = regexp.MustCompile(`,(\s*)\]`)

func trailingCommaArray(s string) (string, bool) {
	out := reTrailingCommaArray.ReplaceAllString(s, "$1]")
	return out, out != s
}

var reMissingCommaBetweenProps = regexp.MustCompile(`"(\s*\n\s*)"`)

func missingCommaBetweenProperties(s string) (string, bool) {
	out := reMissingCommaBetweenProps.ReplaceAllString(s, "\",\n  \"")
	return out, out != s
}

var reMissingCommaAfterValue = regexp.MustCompile(`(-?\d+(?:\.\d+)?|true|false|null|"(?:\\.|[^"\\])*")(\s+)"`)

func missingCommaAfterValue(s string) (string, bool) {
	out := reMissingCommaAfterValue.ReplaceAllString(s, "$1,$2\"")
	return out, out != s
}

var reMissingCommaAfterBrace = regexp.MustCompile(`([}\]])(\s*)([{\[])`)

func missingCommaAfterBrace(s string) (string, bool) {
	out := reMissingCommaAfterBrace.ReplaceAllString(s, "$1, $3")
	return out, out != s
}

var reNanInfinity = regexp.MustCompile(`-?\b(?:NaN|Infinity)\b`)

func nanInfinity(s string) (string, bool) {
	out := reNanInfinity.ReplaceAllString(s, "null")
	return out, out != s
}

var reUndefined = regexp.MustCompile(`\bundefined\b`)

func undefinedToNull(s string) (string, bool) {
	out := reUndefined.ReplaceAllString(s, "null")
	return out, out != s
}

var reLineComment = regexp.MustCompile(`//[^\n]*`)

func removeCommentsSingle(s string) (string, bool) {
	out := reLineComment.ReplaceAllString(s, "")
	return out, out != s
}

var reBlockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)

func removeCommentsMulti(s string) (string, bool) {
	out := reBlockComment.ReplaceAllString(s, "")
	return out, out != s
}

var reBlankLines = regexp.MustCompile(`\n{3,}`)

func normalizeWhitespace(s string) (string, bool) {
	out := reBlankLines.ReplaceAllString(s, "\n\n")
	return out, out != s
}
