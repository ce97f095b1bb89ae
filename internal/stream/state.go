// Package stream implements the unified-diff stream state machine: it
// classifies each input line as a file-header component, a hunk header, a
// body line, or an inter-hunk separator, and drives stanza lifecycle
// transitions. One Step call consumes exactly one input line.
package stream

import "fmt"

// State is the stream parser's current expectation.
type State int

const (
	// WaitDashes awaits a "--- " file-header line.
	WaitDashes State = iota
	// MustPlusPlus requires the next line to be "+++ ".
	MustPlusPlus
	// MustHunkHeader requires the next line to be "@@ ".
	MustHunkHeader
	// HunkOrDashes accepts either a new "@@ " hunk or a new "--- " file
	// header. No transition in Step enters this state (the fixdiff.c
	// transition table never reaches it either); it is kept distinct to
	// mirror DSS_AA_OR_MMM.
	HunkOrDashes
	// InBody is inside a stanza body, consuming ' '/'-'/'+' lines.
	InBody
)

func (s State) String() string {
	switch s {
	case WaitDashes:
		return "WaitDashes"
	case MustPlusPlus:
		return "MustPlusPlus"
	case MustHunkHeader:
		return "MustHunkHeader"
	case HunkOrDashes:
		return "HunkOrDashes"
	case InBody:
		return "InBody"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// LineKind classifies a single stanza body line.
type LineKind int

const (
	LineOther LineKind = iota
	LineContext
	LineMinus
	LinePlus
)

// Action tells the caller (internal/engine) what to do after Step.
type Action int

const (
	// ActionNone: the line was consumed; no lifecycle event occurred.
	ActionNone Action = iota
	// ActionRecordPath: a "+++ " line was parsed; the target path is in
	// Result.Path.
	ActionRecordPath
	// ActionStanzaStart: a new stanza begins; Result.Header holds the raw
	// "@@ ..." header bytes.
	ActionStanzaStart
	// ActionStanzaEnd: the current stanza must be finalized and emitted
	// before any further action. When combined with ActionStanzaStart
	// (see Result.Chained), the new stanza starts immediately after.
	ActionStanzaEnd
	// ActionBodyLine: an ordinary ' '/'-'/'+' body line; Result.Kind holds
	// its classification.
	ActionBodyLine
	// ActionSkip: a stray blank line tolerated near end of input; the line
	// is dropped, not appended to the stanza buffer.
	ActionSkip
)

// Result carries the side-channel data produced by a Step call.
type Result struct {
	Action Action
	Path   string   // set by ActionRecordPath
	Header []byte   // set by ActionStanzaStart
	Kind   LineKind // set by ActionBodyLine
	// Chained is true when ActionStanzaEnd is immediately followed, in the
	// same Step call, by ActionStanzaStart (the "@@ " arriving mid-body
	// case). The caller must finalize the old stanza, THEN start the new
	// one using Result.Header.
	Chained bool
}

// Machine drives the state machine described in spec.md §4.2.
type Machine struct {
	state State
}

// NewMachine returns a machine in its initial state (awaiting "--- ").
func NewMachine() *Machine {
	return &Machine{state: WaitDashes}
}

// State returns the machine's current state.
func (m *Machine) State() State { return m.state }

// ParseError reports a structural violation of the unified-diff grammar.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string { return e.Reason }

// Step consumes one input line (including its trailing terminator) and
// returns the action the caller must take. line must be non-empty (a
// terminal-newline-only line is only valid inside InBody, tolerated as a
// stray blank).
func (m *Machine) Step(line []byte) (Result, error) {
	switch m.state {
	case WaitDashes:
		if hasPrefix(line, "--- ") {
			m.state = MustPlusPlus
		}
		return Result{Action: ActionNone}, nil

	case MustPlusPlus:
		if hasPrefix(line, "+++ ") {
			path := stripLeadingComponent(line[4:])
			m.state = MustHunkHeader
			return Result{Action: ActionRecordPath, Path: path}, nil
		}
		return Result{}, &ParseError{Reason: "+++ required but not found"}

	case MustHunkHeader:
		if len(line) < 3 {
			return Result{}, &ParseError{Reason: "@@ required but missing"}
		}
		if hasPrefix(line, "@@ ") {
			m.state = InBody
			hdr := append([]byte(nil), line...)
			return Result{Action: ActionStanzaStart, Header: hdr}, nil
		}
		return Result{}, &ParseError{Reason: "@@ required but missing"}

	case HunkOrDashes:
		if hasPrefix(line, "--- ") {
			m.state = MustPlusPlus
			return Result{Action: ActionNone}, nil
		}
		if hasPrefix(line, "@@ ") {
			hdr := append([]byte(nil), line...)
			m.state = InBody
			return Result{Action: ActionStanzaStart, Header: hdr}, nil
		}
		return Result{Action: ActionNone}, nil

	case InBody:
		return m.stepInBody(line)
	}

	return Result{}, &ParseError{Reason: "unreachable state"}
}

func (m *Machine) stepInBody(line []byte) (Result, error) {
	if len(line) < 1 {
		return Result{}, &ParseError{Reason: "blank line in stanza"}
	}

	switch line[0] {
	case ' ':
		return Result{Action: ActionBodyLine, Kind: LineContext}, nil

	case '-':
		// "---" + ' ' (triple-dash, new file header) takes priority over a
		// bare single '-' body line: the two share the minus prefix, and
		// the priority order (space, triple-dash, plus, "diff ", "@@") is
		// part of the contract per spec.md §9.
		if len(line) >= 4 && line[1] == '-' && line[2] == '-' && line[3] == ' ' {
			// The state transitions to MustPlusPlus BEFORE the current
			// stanza is finalized — preserved exactly per spec.md §9.
			m.state = MustPlusPlus
			return Result{Action: ActionStanzaEnd}, nil
		}
		return Result{Action: ActionBodyLine, Kind: LineMinus}, nil

	case '+':
		return Result{Action: ActionBodyLine, Kind: LinePlus}, nil

	case '\n':
		return Result{Action: ActionSkip}, nil

	case 'd':
		if hasPrefix(line, "diff ") {
			m.state = WaitDashes
			return Result{Action: ActionStanzaEnd}, nil
		}
		return Result{}, &ParseError{Reason: "unexpected character in stanza"}

	case '@':
		if hasPrefix(line, "@@ ") {
			hdr := append([]byte(nil), line...)
			// Stay in InBody: the new stanza starts immediately.
			return Result{Action: ActionStanzaEnd, Chained: true, Header: hdr}, nil
		}
		return Result{}, &ParseError{Reason: "unexpected character in stanza"}

	default:
		return Result{}, &ParseError{Reason: "unexpected character in stanza"}
	}
}

func hasPrefix(line []byte, prefix string) bool {
	if len(line) < len(prefix) {
		return false
	}
	for i := 0; i < len(prefix); i++ {
		if line[i] != prefix[i] {
			return false
		}
	}
	return true
}

// stripLeadingComponent removes the first "dir/" component from a +++
// path, e.g. "a/src/Foo.java\n" -> "src/Foo.java" (the line terminator is
// dropped). Matches the original's single-component strip.
func stripLeadingComponent(p []byte) string {
	for i := 0; i < len(p); i++ {
		if p[i] == '/' {
			rest := string(p[i+1:])
			if nl := indexByte(rest, '\n'); nl >= 0 {
				rest = rest[:nl]
			}
			if cr := indexByte(rest, '\r'); cr >= 0 {
				rest = rest[:cr]
			}
			return rest
		}
	}
	s := string(p)
	if nl := indexByte(s, '\n'); nl >= 0 {
		s = s[:nl]
	}
	return s
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}
