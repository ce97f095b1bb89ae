// Package stanza holds the scratch store for the current hunk's body
// lines (the "stanza buffer") and the stanza's own bookkeeping record.
package stanza

import (
	"fmt"
	"io"
	"os"

	"fixdiff/internal/lineio"
)

// Buffer is a scoped, file-backed byte buffer holding a stanza's body in
// arrival order. Opened with create/truncate semantics at stanza start,
// removed when the stanza is finalized or aborted. Random-access reads use
// Seek + lineio.Reader; appends always go to the end.
//
// Grounded on the teacher's atomic-temp-file idiom
// (internal/cache/snapshot.go's createTempFile) and fixdiff.c's
// _mkstemp/fd_temp side buffer.
type Buffer struct {
	f    *os.File
	path string
}

// NewBuffer creates a new temp-file-backed stanza buffer in dir, named
// with prefix followed by the process id (spec.md §4.3).
func NewBuffer(dir, prefix string) (*Buffer, error) {
	name := fmt.Sprintf("%s%d", prefix, os.Getpid())
	path := name
	if dir != "" {
		path = dir + string(os.PathSeparator) + name
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("stanza: create temp buffer: %w", err)
	}
	return &Buffer{f: f, path: path}, nil
}

// Path returns the backing temp file's path (for cleanup on fatal exit).
func (b *Buffer) Path() string { return b.path }

// Append writes line verbatim to the end of the buffer.
func (b *Buffer) Append(line []byte) error {
	if _, err := b.f.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("stanza: seek to end: %w", err)
	}
	if _, err := b.f.Write(line); err != nil {
		return fmt.Errorf("stanza: append: %w", err)
	}
	return nil
}

// Reader returns a lineio.Reader positioned at offset within the buffer.
func (b *Buffer) Reader(offset int64) (*lineio.Reader, error) {
	if _, err := b.f.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("stanza: seek: %w", err)
	}
	return lineio.New(b.f, b.path), nil
}

// Close closes and removes the backing temp file.
func (b *Buffer) Close() error {
	_ = b.f.Close()
	return os.Remove(b.path)
}
