package anchor

import "bytes"

// eolKind classifies a line's terminator.
type eolKind int

const (
	eolNone eolKind = iota
	eolLF
	eolCRLF
)

func classifyEOL(line []byte) eolKind {
	if n := len(line); n >= 2 && line[n-2] == '\r' && line[n-1] == '\n' {
		return eolCRLF
	}
	if n := len(line); n >= 1 && line[n-1] == '\n' {
		return eolLF
	}
	return eolNone
}

func stripEOL(line []byte, k eolKind) []byte {
	switch k {
	case eolCRLF:
		return line[:len(line)-2]
	case eolLF:
		return line[:len(line)-1]
	default:
		return line
	}
}

func isSpaceOrTab(b byte) bool {
	return b == ' ' || b == '\t'
}

// whitespaceCollapseEqual compares a and b (already terminator-stripped),
// collapsing any run of spaces/tabs on either side to a single token. Both
// sides must agree on the presence of whitespace at each token boundary and
// on every non-whitespace byte.
//
// Correctly parenthesized per spec.md §9 (the original's `*p == ' ' || *p
// == '\t' && p < p_end` binds && tighter than ||, a bug this
// reimplementation does not reproduce).
func whitespaceCollapseEqual(a, b []byte) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		aw := isSpaceOrTab(a[i])
		bw := isSpaceOrTab(b[j])
		if aw != bw {
			return false
		}
		if aw {
			for i < len(a) && isSpaceOrTab(a[i]) {
				i++
			}
			for j < len(b) && isSpaceOrTab(b[j]) {
				j++
			}
			continue
		}
		if a[i] != b[j] {
			return false
		}
		i++
		j++
	}
	return i == len(a) && j == len(b)
}

// compareResult is the outcome of tolerantCompare.
type compareResult struct {
	matched   bool
	rewritten bool  // true if the match only succeeded via whitespace collapse
	srcBody   []byte // source content with its terminator stripped
}

// tolerantCompare implements spec.md §4.4's tolerant comparison: line-ending
// independence, then (on strict mismatch) a whitespace-collapse retry.
func tolerantCompare(stanzaContent, srcLine []byte) compareResult {
	ka := classifyEOL(stanzaContent)
	kb := classifyEOL(srcLine)

	if (ka == eolNone) != (kb == eolNone) {
		// one side has no terminator, the other does: mismatch, full stop.
		return compareResult{}
	}

	ca := stripEOL(stanzaContent, ka)
	cb := stripEOL(srcLine, kb)

	if bytes.Equal(ca, cb) {
		return compareResult{matched: true, srcBody: cb}
	}
	if whitespaceCollapseEqual(ca, cb) {
		return compareResult{matched: true, rewritten: true, srcBody: cb}
	}
	return compareResult{}
}
