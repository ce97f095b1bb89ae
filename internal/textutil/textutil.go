// Package textutil holds small line-level byte helpers used by the repair
// engine's input-side tidying. Adapted from the teacher's generic
// line-ending/whitespace helpers (bytes.ReplaceAll-based normalization) into
// the one spec-mandated transform: collapsing whitespace-only added lines.
package textutil

// ClassifyTerminator splits content into its body and terminator. term is
// nil and hasTerm is false if content has no trailing "\n" or "\r\n".
func ClassifyTerminator(content []byte) (body, term []byte, hasTerm bool) {
	if n := len(content); n >= 2 && content[n-2] == '\r' && content[n-1] == '\n' {
		return content[:n-2], content[n-2:], true
	}
	if n := len(content); n >= 1 && content[n-1] == '\n' {
		return content[:n-1], content[n-1:], true
	}
	return content, nil, false
}

// IsWhitespaceOnly reports whether body consists exclusively of space and
// tab bytes (vacuously true for an empty body).
func IsWhitespaceOnly(body []byte) bool {
	for _, b := range body {
		if b != ' ' && b != '\t' {
			return false
		}
	}
	return true
}

// CollapseWhitespaceAddition implements spec.md §4.5's whitespace-only
// added-line collapse: a '+'-prefixed line whose payload is nothing but
// spaces/tabs has its payload dropped, keeping only the marker and
// terminator. A line with no terminator at all (whitespace-only content
// at true end-of-file) is dropped entirely: keep reports false and the
// caller must not append it to the stanza buffer or count it toward post.
//
// line must be a full body line including its leading '+' marker. Lines
// that are not whitespace-only-added are returned unchanged with keep
// true.
func CollapseWhitespaceAddition(line []byte) (out []byte, keep bool) {
	if len(line) == 0 {
		return line, true
	}
	marker := line[0]
	content := line[1:]
	body, term, hasTerm := ClassifyTerminator(content)
	if !IsWhitespaceOnly(body) {
		return line, true
	}
	if !hasTerm {
		return nil, false
	}
	collapsed := make([]byte, 0, 1+len(term))
	collapsed = append(collapsed, marker)
	collapsed = append(collapsed, term...)
	return collapsed, true
}
