// Package json5 implements a hand-written, deterministic tokenizer and
// recursive-descent parser for a JSON5-flavored relaxation of JSON: trailing
// commas, single- or double-quoted strings, unquoted identifier keys, the
// extra keyword aliases None/True/False, leading/trailing-decimal and hex
// numeric literals, and line/block comments. No published JSON5 library
// matches this exact dialect (it also accepts the Python-style keyword
// aliases), so the relaxed grammar is implemented directly rather than
// pulled from an external module; only the strict-JSON fast path delegates
// to goccy/go-json.
package json5

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	gojson "github.com/goccy/go-json"

	"github.com/localrivet/llmtoolparse/jsonvalue"
)

// ParseError carries the byte offset of the failure alongside a message, per
// the "structured error carrying the offending offset" contract.
type ParseError struct {
	Offset  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("json5: %s (at offset %d)", e.Message, e.Offset)
}

// Parse attempts a strict JSON parse first (the fast path), then falls back
// to the relaxed JSON5 grammar. It never returns a partial value: on error
// the returned Value is the zero Value and must be ignored.
func Parse(text string) (jsonvalue.Value, error) {
	if v, err := parseStrict(text); err == nil {
		return v, nil
	}
	return parseJSON5(text)
}

// ParseStrict attempts only the strict-JSON grammar (no relaxations),
// exposed so callers that already know a candidate is well-formed JSON can
// skip the JSON5 fallback attempt entirely. It is backed by goccy/go-json,
// a drop-in faster encoding/json replacement, rather than the hand-written
// tokenizer, since strict JSON needs no custom grammar work.
func ParseStrict(text string) (jsonvalue.Value, error) {
	return parseStrict(text)
}

func parseStrict(text string) (jsonvalue.Value, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return jsonvalue.Value{}, &ParseError{0, "empty input"}
	}
	var native interface{}
	dec := gojson.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&native); err != nil {
		return jsonvalue.Value{}, &ParseError{0, "strict JSON decode failed: " + err.Error()}
	}
	return fromDecoded(native), nil
}

// fromDecoded converts go-json's decoded tree (which uses json.Number for
// numerics when UseNumber is set) into a jsonvalue.Value.
func fromDecoded(in interface{}) jsonvalue.Value {
	switch v := in.(type) {
	case nil:
		return jsonvalue.Null()
	case bool:
		return jsonvalue.Bool(v)
	case string:
		return jsonvalue.String(v)
	case gojson.Number:
		f, _ := v.Float64()
		return jsonvalue.Number(f)
	case []interface{}:
		items := make([]jsonvalue.Value, len(v))
		for i, e := range v {
			items[i] = fromDecoded(e)
		}
		return jsonvalue.Array(items)
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make(map[string]jsonvalue.Value, len(v))
		for k, e := range v {
			fields[k] = fromDecoded(e)
		}
		return jsonvalue.Object(keys, fields)
	default:
		return jsonvalue.FromNative(v)
	}
}

func parseJSON5(text string) (jsonvalue.Value, error) {
	p := &parser{toks: tokenize(text, true), text: text}
	if len(p.toks) == 0 {
		return jsonvalue.Value{}, &ParseError{0, "empty input"}
	}
	v, err := p.parseValue()
	if err != nil {
		return jsonvalue.Value{}, err
	}
	if p.pos < len(p.toks) {
		return jsonvalue.Value{}, &ParseError{p.toks[p.pos].offset, "trailing content after value"}
	}
	return v, nil
}

// LooksLikeJSON5 reports whether the text exhibits any JSON5-only surface
// feature, without attempting a full parse. Upstream callers use this to
// decide whether to bother with the JSON5 fallback path at all.
func LooksLikeJSON5(text string) bool {
	if strings.Contains(text, "//") || strings.Contains(text, "/*") {
		return true
	}
	if strings.Contains(text, "'") {
		return true
	}
	if hasTrailingComma(text) {
		return true
	}
	if hasUnquotedKey(text) {
		return true
	}
	if hasHexNumber(text) {
		return true
	}
	if strings.Contains(text, "Infinity") || strings.Contains(text, "NaN") {
		return true
	}
	return false
}

func hasTrailingComma(text string) bool {
	for i := 0; i < len(text); i++ {
		if text[i] != ',' {
			continue
		}
		j := i + 1
		for j < len(text) && isJSONWhitespace(text[j]) {
			j++
		}
		if j < len(text) && (text[j] == '}' || text[j] == ']') {
			return true
		}
	}
	return false
}

func hasUnquotedKey(text string) bool {
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '{' && c != ',' {
			continue
		}
		j := i + 1
		for j < len(text) && isJSONWhitespace(text[j]) {
			j++
		}
		if j >= len(text) || !isIdentStart(rune(text[j])) {
			continue
		}
		k := j
		for k < len(text) && isIdentPart(rune(text[k])) {
			k++
		}
		for k < len(text) && isJSONWhitespace(text[k]) {
			k++
		}
		if k < len(text) && text[k] == ':' {
			return true
		}
	}
	return false
}

func hasHexNumber(text string) bool {
	for i := 0; i+1 < len(text); i++ {
		if text[i] == '0' && (text[i+1] == 'x' || text[i+1] == 'X') {
			return true
		}
	}
	return false
}

func isJSONWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// --- tokenizer ---

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokLBrace
	tokRBrace
	tokLBracket
	tokRBracket
	tokColon
	tokComma
	tokString
	tokNumber
	tokTrue
	tokFalse
	tokNull
	tokIdent // unquoted identifier, JSON5 only
)

type token struct {
	kind   tokenKind
	text   string
	num    float64
	offset int
}

// tokenize is bounded linearly in input length: every branch advances the
// cursor by at least one rune, so pathological input cannot loop.
func tokenize(text string, json5 bool) []token {
	var toks []token
	i := 0
	n := len(text)
	for i < n {
		c := text[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case json5 && c == '/' && i+1 < n && text[i+1] == '/':
			for i < n && text[i] != '\n' {
				i++
			}
		case json5 && c == '/' && i+1 < n && text[i+1] == '*':
			i += 2
			for i+1 < n && !(text[i] == '*' && text[i+1] == '/') {
				i++
			}
			i += 2
			if i > n {
				i = n
			}
		case c == '{':
			toks = append(toks, token{kind: tokLBrace, offset: i})
			i++
		case c == '}':
			toks = append(toks, token{kind: tokRBrace, offset: i})
			i++
		case c == '[':
			toks = append(toks, token{kind: tokLBracket, offset: i})
			i++
		case c == ']':
			toks = append(toks, token{kind: tokRBracket, offset: i})
			i++
		case c == ':':
			toks = append(toks, token{kind: tokColon, offset: i})
			i++
		case c == ',':
			toks = append(toks, token{kind: tokComma, offset: i})
			i++
		case c == '"' || (json5 && c == '\''):
			s, next, ok := scanString(text, i, c)
			if !ok {
				return toks // tokenizer gives up; parser will report trailing/unexpected EOF
			}
			toks = append(toks, token{kind: tokString, text: s, offset: i})
			i = next
		case c == '-' || c == '+' || (c >= '0' && c <= '9') || (json5 && c == '.'):
			num, text2, next, ok := scanNumber(text, i, json5)
			if !ok {
				i++
				continue
			}
			if text2 != "" {
				toks = append(toks, token{kind: tokIdent, text: text2, offset: i})
			} else {
				toks = append(toks, token{kind: tokNumber, num: num, offset: i})
			}
			i = next
		case isIdentStart(rune(c)):
			start := i
			for i < n && isIdentPart(rune(text[i])) {
				i++
			}
			word := text[start:i]
			toks = append(toks, identToken(word, start, json5))
		default:
			// Unknown byte: skip it rather than abort tokenizing the whole
			// candidate, so a single stray character doesn't sink parsing of
			// otherwise well-formed surrounding structure.
			i++
		}
	}
	return toks
}

func identToken(word string, offset int, json5 bool) token {
	switch word {
	case "true":
		return token{kind: tokTrue, offset: offset}
	case "false":
		return token{kind: tokFalse, offset: offset}
	case "null":
		return token{kind: tokNull, offset: offset}
	}
	if json5 {
		switch word {
		case "True":
			return token{kind: tokTrue, offset: offset}
		case "False":
			return token{kind: tokFalse, offset: offset}
		case "None":
			return token{kind: tokNull, offset: offset}
		case "Infinity":
			return token{kind: tokNumber, num: posInf(), offset: offset}
		case "NaN":
			return token{kind: tokNumber, num: nan(), offset: offset}
		}
	}
	return token{kind: tokIdent, text: word, offset: offset}
}

func posInf() float64 { var f float64 = 1; return f / zero() }
func zero() float64   { return 0 }
func nan() float64    { return posInf() - posInf() }

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}

func scanString(text string, start int, quote byte) (string, int, bool) {
	var b strings.Builder
	i := start + 1
	n := len(text)
	for i < n {
		c := text[i]
		if c == quote {
			return b.String(), i + 1, true
		}
		if c == '\\' && i+1 < n {
			esc := text[i+1]
			switch esc {
			case 'n':
				b.WriteByte('\n')
				i += 2
			case 't':
				b.WriteByte('\t')
				i += 2
			case 'r':
				b.WriteByte('\r')
				i += 2
			case 'b':
				b.WriteByte('\b')
				i += 2
			case 'f':
				b.WriteByte('\f')
				i += 2
			case '"', '\'', '\\', '/':
				b.WriteByte(esc)
				i += 2
			case '\n':
				i += 2 // line continuation
			case '\r':
				i += 2
				if i < n && text[i] == '\n' {
					i++
				}
			case 'u':
				if i+5 < n {
					if r, err := strconv.ParseUint(text[i+2:i+6], 16, 32); err == nil {
						b.WriteRune(rune(r))
						i += 6
						continue
					}
				}
				b.WriteByte(esc)
				i += 2
			case 'x':
				if i+3 < n {
					if r, err := strconv.ParseUint(text[i+2:i+4], 16, 16); err == nil {
						b.WriteRune(rune(r))
						i += 4
						continue
					}
				}
				b.WriteByte(esc)
				i += 2
			default:
				b.WriteByte(esc)
				i += 2
			}
			continue
		}
		r, size := utf8.DecodeRuneInString(text[i:])
		b.WriteRune(r)
		i += size
	}
	return b.String(), i, false
}

// scanNumber returns either a parsed float (text2=="") or, if the lexeme
// isn't a legal number but starts like one (bare "-" etc.), falls through
// to identifier-style handling by the caller via a non-ok result.
func scanNumber(text string, start int, json5 bool) (float64, string, int, bool) {
	i := start
	n := len(text)
	if i < n && (text[i] == '+' || text[i] == '-') {
		i++
	}
	if json5 && strings.HasPrefix(text[i:], "Infinity") {
		i += len("Infinity")
		if text[start] == '-' {
			return negInf(), "", i, true
		}
		return posInf(), "", i, true
	}
	digitsStart := i
	if i+1 < n && text[i] == '0' && (text[i+1] == 'x' || text[i+1] == 'X') {
		i += 2
		hexStart := i
		for i < n && isHexDigit(text[i]) {
			i++
		}
		if i == hexStart {
			return 0, "", start, false
		}
		v, err := strconv.ParseUint(text[digitsStart+2:i], 16, 64)
		if err != nil {
			return 0, "", start, false
		}
		f := float64(v)
		if text[start] == '-' {
			f = -f
		}
		return f, "", i, true
	}
	hasDigits := false
	for i < n && text[i] >= '0' && text[i] <= '9' {
		i++
		hasDigits = true
	}
	if i < n && text[i] == '.' {
		i++
		for i < n && text[i] >= '0' && text[i] <= '9' {
			i++
			hasDigits = true
		}
	}
	if !hasDigits {
		return 0, "", start, false
	}
	if i < n && (text[i] == 'e' || text[i] == 'E') {
		j := i + 1
		if j < n && (text[j] == '+' || text[j] == '-') {
			j++
		}
		expStart := j
		for j < n && text[j] >= '0' && text[j] <= '9' {
			j++
		}
		if j > expStart {
			i = j
		}
	}
	lexeme := text[start:i]
	f, err := strconv.ParseFloat(lexeme, 64)
	if err != nil {
		return 0, "", start, false
	}
	return f, "", i, true
}

func negInf() float64 { return -posInf() }

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// --- recursive-descent parser ---

type parser struct {
	toks []token
	pos  int
	text string
}

func (p *parser) peek() token {
	if p.pos >= len(p.toks) {
		return token{kind: tokEOF, offset: len(p.text)}
	}
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *parser) parseValue() (jsonvalue.Value, error) {
	t := p.peek()
	switch t.kind {
	case tokLBrace:
		return p.parseObject()
	case tokLBracket:
		return p.parseArray()
	case tokString:
		p.next()
		return jsonvalue.String(t.text), nil
	case tokNumber:
		p.next()
		return jsonvalue.Number(t.num), nil
	case tokTrue:
		p.next()
		return jsonvalue.Bool(true), nil
	case tokFalse:
		p.next()
		return jsonvalue.Bool(false), nil
	case tokNull:
		p.next()
		return jsonvalue.Null(), nil
	default:
		return jsonvalue.Value{}, &ParseError{t.offset, "unexpected token, expected a value"}
	}
}

func (p *parser) parseObject() (jsonvalue.Value, error) {
	p.next() // consume {
	obj := jsonvalue.NewObject()
	if p.peek().kind == tokRBrace {
		p.next()
		return obj, nil
	}
	for {
		keyTok := p.next()
		var key string
		switch keyTok.kind {
		case tokString:
			key = keyTok.text
		case tokIdent:
			key = keyTok.text
		default:
			return jsonvalue.Value{}, &ParseError{keyTok.offset, "expected object key"}
		}
		if p.peek().kind != tokColon {
			return jsonvalue.Value{}, &ParseError{p.peek().offset, "expected ':' after object key"}
		}
		p.next()
		val, err := p.parseValue()
		if err != nil {
			return jsonvalue.Value{}, err
		}
		obj.Set(key, val)
		switch p.peek().kind {
		case tokComma:
			p.next()
			if p.peek().kind == tokRBrace {
				p.next() // trailing comma
				return obj, nil
			}
		case tokRBrace:
			p.next()
			return obj, nil
		default:
			return jsonvalue.Value{}, &ParseError{p.peek().offset, "expected ',' or '}' in object"}
		}
	}
}

func (p *parser) parseArray() (jsonvalue.Value, error) {
	p.next() // consume [
	var elems []jsonvalue.Value
	if p.peek().kind == tokRBracket {
		p.next()
		return jsonvalue.Array(elems), nil
	}
	for {
		val, err := p.parseValue()
		if err != nil {
			return jsonvalue.Value{}, err
		}
		elems = append(elems, val)
		switch p.peek().kind {
		case tokComma:
			p.next()
			if p.peek().kind == tokRBracket {
				p.next() // trailing comma
				return jsonvalue.Array(elems), nil
			}
		case tokRBracket:
			p.next()
			return jsonvalue.Array(elems), nil
		default:
			return jsonvalue.Value{}, &ParseError{p.peek().offset, "expected ',' or ']' in array"}
		}
	}
}
