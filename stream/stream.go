// Package stream drives the incremental parser from a character stream: it
// tracks bracket/string state, emits progress events, and invokes the
// top-level parser when a full object appears or the caller requests a
// completion attempt. Grounded on the teacher's session/transport read-loop
// shape (a caller-fed byte loop carrying a small amount of state) adapted
// away from network I/O into a pure in-memory state machine, since
// transports are an explicit external collaborator.
package stream

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/localrivet/llmtoolparse/json5"
	"github.com/localrivet/llmtoolparse/toolparse"
	"github.com/localrivet/llmtoolparse/validate"
)

// ProgressKind is the closed set of streaming update kinds, each carrying
// its own precise payload rather than a loose `data: unknown` field.
type ProgressKind string

const (
	ProgressIncremental ProgressKind = "incremental"
	ProgressComplete    ProgressKind = "complete"
	ProgressError       ProgressKind = "error"
)

// State is the incremental state tag.
type State string

const (
	StateIdle     State = "idle"
	StatePartial  State = "partial"
	StateComplete State = "complete"
	StateError    State = "error"
)

// PartialToolCall is a tentative record recognized before the enclosing
// object has closed.
type PartialToolCall struct {
	Name       string
	Confidence float64
}

// Progress is the driver's only output payload; Kind determines which
// other fields are meaningful.
type Progress struct {
	Kind            ProgressKind
	State           State
	Depth           int
	InString        bool
	Buffer          string
	CompletedCount  int
	PartialToolCall *PartialToolCall
	Result          *toolparse.ParsingResult // set only on ProgressComplete
	Err             string                   // set only on ProgressError
}

var partialProbes = []*regexp.Regexp{
	regexp.MustCompile(`"tool"\s*:\s*"([^"]*)"`),
	regexp.MustCompile(`"name"\s*:\s*"([^"]*)"`),
	regexp.MustCompile(`"function"\s*:\s*"([^"]*)"`),
	regexp.MustCompile(`"action"\s*:\s*"([^"]*)"`),
}

// Driver is the caller-fed incremental state machine. It performs no
// background work: all of its behavior happens synchronously inside Feed /
// AttemptCompletion / Finish.
type Driver struct {
	stack    []byte
	inString bool
	escaped  bool
	buffer   strings.Builder
	completedObjects []string
	partial  *PartialToolCall

	progressInterval time.Duration
	lastEmit         time.Time

	Options       toolparse.Options
	ParseContext  *toolparse.ParseContext
}

// New returns a fresh Driver. progressInterval bounds how often an
// incremental update is emitted absent a completed object.
func New(progressInterval time.Duration, opts toolparse.Options, ctx *toolparse.ParseContext) *Driver {
	return &Driver{progressInterval: progressInterval, Options: opts, ParseContext: ctx}
}

// Reset clears all state, the driver's cooperative cancellation mechanism.
func (d *Driver) Reset() {
	d.stack = nil
	d.inString = false
	d.escaped = false
	d.buffer.Reset()
	d.completedObjects = nil
	d.partial = nil
	d.lastEmit = time.Time{}
}

// Feed consumes one character and returns a Progress update if one is due:
// an incremental update at most every progressInterval, plus whenever a
// complete top-level object is recognized.
func (d *Driver) Feed(c rune) *Progress {
	d.buffer.WriteRune(c)
	d.transition(c)

	trimmed := strings.TrimSpace(d.buffer.String())
	if len(d.stack) == 0 && !d.inString && trimmed != "" {
		if idx := strings.IndexAny(trimmed, "{["); idx >= 0 {
			candidate := trimmed[idx:]
			if v, err := json5.ParseStrict(candidate); err == nil {
				_ = v
				d.completedObjects = append(d.completedObjects, candidate)
				d.scanPartial()
				if d.partial != nil {
					d.partial.Confidence = 0.9
				}
				p := d.snapshot(ProgressIncremental)
				d.lastEmit = time.Now()
				return &p
			}
		}
	}

	d.scanPartial()

	if d.progressInterval <= 0 || time.Since(d.lastEmit) >= d.progressInterval {
		d.lastEmit = time.Now()
		p := d.snapshot(ProgressIncremental)
		return &p
	}
	return nil
}

func (d *Driver) transition(c rune) {
	if d.inString {
		if d.escaped {
			d.escaped = false
			return
		}
		if c == '\\' {
			d.escaped = true
			return
		}
		if c == '"' {
			d.inString = false
		}
		return
	}
	switch c {
	case '"':
		d.inString = true
	case '{', '[':
		d.stack = append(d.stack, byte(c))
	case '}':
		if len(d.stack) > 0 && d.stack[len(d.stack)-1] == '{' {
			d.stack = d.stack[:len(d.stack)-1]
		}
	case ']':
		if len(d.stack) > 0 && d.stack[len(d.stack)-1] == '[' {
			d.stack = d.stack[:len(d.stack)-1]
		}
	}
}

func (d *Driver) scanPartial() {
	if d.partial != nil {
		return
	}
	buf := d.buffer.String()
	bestIdx := -1
	var bestName string
	for _, re := range partialProbes {
		loc := re.FindStringSubmatchIndex(buf)
		if loc == nil {
			continue
		}
		if bestIdx == -1 || loc[0] < bestIdx {
			bestIdx = loc[0]
			bestName = buf[loc[2]:loc[3]]
		}
	}
	if bestIdx >= 0 {
		d.partial = &PartialToolCall{Name: bestName, Confidence: 0.5}
	}
}

func (d *Driver) snapshot(kind ProgressKind) Progress {
	return Progress{
		Kind:           kind,
		State:          d.stateTag(),
		Depth:          len(d.stack),
		InString:       d.inString,
		Buffer:         d.buffer.String(),
		CompletedCount: len(d.completedObjects),
		PartialToolCall: d.partial,
	}
}

func (d *Driver) stateTag() State {
	if len(d.completedObjects) > 0 && len(d.stack) == 0 && !d.inString {
		return StateComplete
	}
	if d.buffer.Len() == 0 {
		return StateIdle
	}
	return StatePartial
}

// AttemptCompletion closes whatever brackets/strings are still open and
// strict-JSON-parses the result, per the on-demand completion contract.
// Confidence of any tool calls derived this way is multiplied by 0.7 and a
// "parsed from incomplete JSON" warning is appended to each call. A panic inside
// the underlying parse surfaces as a ProgressError update instead of
// propagating, since the caller is mid-stream and has no other point to
// recover at.
func (d *Driver) AttemptCompletion() Progress {
	closed := closeBuffer(d.buffer.String(), d.stack, d.inString)
	res, panicMsg, recovered := d.safeParse(closed)
	if recovered {
		return Progress{Kind: ProgressError, State: StateError, Buffer: closed, Err: panicMsg}
	}
	if res.Ok {
		for i := range res.Calls {
			res.Calls[i].Confidence *= 0.7
			res.Calls[i].Warnings = append(res.Calls[i].Warnings, validate.Warning{Message: "parsed from incomplete JSON"})
		}
	}
	return Progress{Kind: ProgressComplete, State: d.stateTag(), Buffer: closed, Result: &res}
}

// Finish signals end-of-stream: it always emits a final update carrying the
// top-level parser's result over the whole accumulated buffer, regardless of
// whether the buffer was well-formed, except when the parse itself panics —
// that surfaces as a ProgressError update rather than crashing the caller.
func (d *Driver) Finish() Progress {
	full := d.buffer.String()
	res, panicMsg, recovered := d.safeParse(full)
	if recovered {
		return Progress{Kind: ProgressError, State: StateError, Buffer: full, Err: panicMsg}
	}
	return Progress{Kind: ProgressComplete, State: StateComplete, Buffer: full, Result: &res}
}

// safeParse runs the top-level parser behind a recover so a panic deep in
// extraction/repair (e.g. a malformed candidate tripping an unanticipated
// index) ends the stream with an error update instead of taking the caller's
// process down with it.
func (d *Driver) safeParse(text string) (res toolparse.ParsingResult, panicMsg string, recovered bool) {
	defer func() {
		if r := recover(); r != nil {
			recovered = true
			panicMsg = fmt.Sprintf("panic during parse: %v", r)
		}
	}()
	res = toolparse.Parse(text, d.ParseContext, d.Options)
	return
}

func closeBuffer(buf string, stack []byte, inString bool) string {
	var b strings.Builder
	b.WriteString(buf)
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
