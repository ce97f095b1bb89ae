package stanza

// Rewrite is a recorded per-line replacement, triggered when whitespace-only
// divergence let the anchor locator accept a source line that didn't
// byte-for-byte match the stanza's own line. Keyed by the stanza-buffer
// relative line index (0-based, counting lines from the buffer's effective
// start). A slice stands in for the spec's singly-linked list — see
// spec.md §9, "a map from index to replacement bytes is equally valid".
type Rewrite struct {
	Index int
	Bytes []byte
}

const maxHeaderBytes = 128

// Record is a stanza's bookkeeping, reset at every stanza start.
type Record struct {
	// OriginalHeader holds the raw "@@ ..." bytes as read, capped at 128.
	OriginalHeader []byte

	// EffectiveStart is the byte offset into the Buffer at which the
	// stanza's body effectively begins; it advances forward when the
	// locator discards excess lead-in.
	EffectiveStart int64

	Pre  int // pre-image line count
	Post int // post-image line count

	LeadIn          int  // consecutive context lines accumulated at the head
	LeadInActive    bool // still accumulating lead-in
	LeadInCorrected int  // lead-in lines discarded by the locator

	CxActive int // consecutive context lines at the current tail

	Rewrites []Rewrite
}

// NewRecord starts a fresh stanza record from the raw header bytes.
func NewRecord(header []byte) *Record {
	h := header
	if len(h) > maxHeaderBytes {
		h = h[:maxHeaderBytes]
	}
	cp := make([]byte, len(h))
	copy(cp, h)
	return &Record{
		OriginalHeader: cp,
		LeadInActive:   true,
		CxActive:       0,
	}
}

// ObserveContext accounts for a ' '-prefixed body line.
func (r *Record) ObserveContext() {
	r.Pre++
	r.Post++
	if r.LeadInActive {
		r.LeadIn++
	}
	r.CxActive++
}

// ObserveMinus accounts for a '-'-prefixed body line.
func (r *Record) ObserveMinus() {
	r.Pre++
	r.LeadInActive = false
	r.CxActive = 0
}

// ObservePlus accounts for a '+'-prefixed body line.
func (r *Record) ObservePlus() {
	r.Post++
	r.LeadInActive = false
	r.CxActive = 0
}

// AddRewrite records a whitespace-only-divergence line rewrite.
func (r *Record) AddRewrite(idx int, bytes []byte) {
	r.Rewrites = append(r.Rewrites, Rewrite{Index: idx, Bytes: bytes})
}

// RewriteFor returns the replacement bytes recorded for buffer-relative
// index idx, if any.
func (r *Record) RewriteFor(idx int) ([]byte, bool) {
	for _, rw := range r.Rewrites {
		if rw.Index == idx {
			return rw.Bytes, true
		}
	}
	return nil, false
}
