// Package engine wires lineio, stream, stanza, anchor and config together
// into the end-to-end stanza repair pipeline. It is the direct analogue of
// the teacher's main.go orchestration (walkwalk -> index -> bundle ->
// output), rewired for a streaming single-pass repair instead of a batch
// bundle write.
package engine

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"fixdiff/internal/anchor"
	"fixdiff/internal/config"
	"fixdiff/internal/lineio"
	"fixdiff/internal/stanza"
	"fixdiff/internal/stream"
	"fixdiff/internal/textutil"
)

const maxLineBytes = 4096

// nopSeeker adapts a plain io.Reader (standard input, in tests a
// bytes.Reader or strings.Reader already satisfies io.Seeker, but callers
// may hand in any io.Reader) to lineio.ReadSeeker. The engine's main input
// pass never seeks, so Seek is never actually invoked in practice; it
// exists solely to satisfy lineio.New's contract.
type nopSeeker struct {
	io.Reader
}

func (nopSeeker) Seek(offset int64, whence int) (int64, error) {
	return 0, fmt.Errorf("engine: standard input is not seekable")
}

func asReadSeeker(r io.Reader) lineio.ReadSeeker {
	if rs, ok := r.(lineio.ReadSeeker); ok {
		return rs
	}
	return nopSeeker{r}
}

// Run drives the whole pipeline: reads lines from in, steps the stream
// state machine, buffers stanza bodies, locates each stanza's anchor
// against the live source tree rooted at srcRoot, rewrites headers, and
// writes the repaired patch to out. Diagnostics go to errOut. Returns a
// *FatalError on any unrecoverable condition; the caller is responsible
// for turning that into a process exit code.
func Run(in io.Reader, out io.Writer, errOut io.Writer, srcRoot string, cfg config.Config) error {
	reader := lineio.New(asReadSeeker(in), "stdin")
	machine := stream.NewMachine()

	var rec *stanza.Record
	var buf *stanza.Buffer
	var srcPath string

	delta := 0
	stanzaNum := 0
	badHeaders := 0

	tmp := make([]byte, maxLineBytes)

	cleanup := func() {
		if buf != nil {
			_ = buf.Close()
		}
	}

	finalize := func(lineNo int, lastLine string) error {
		stanzaNum++
		a, err := anchor.Locate(rec, buf, filepath.Join(srcRoot, srcPath), cfg, stanzaNum, errOut)
		if err != nil {
			if ae, ok := err.(*anchor.Error); ok {
				return newAnchorError(lineNo, lastLine, ae.Error())
			}
			return newIOError(lineNo, lastLine, err)
		}

		if !validHeaderPrefix(rec.OriginalHeader) {
			return newHeaderFormatError(lineNo, lastLine)
		}

		b := a + delta
		formatted := []byte(fmt.Sprintf("@@ -%d,%d +%d,%d @@\n", a, rec.Pre, b, rec.Post))
		if !headerBytesEqual(formatted, rec.OriginalHeader) {
			badHeaders++
			fmt.Fprintf(errOut, "Stanza %d: header changed: %q -> %q\n",
				stanzaNum, trimEOL(string(rec.OriginalHeader)), trimEOL(string(formatted)))
		}

		if _, err := out.Write(formatted); err != nil {
			return newIOError(lineNo, lastLine, err)
		}
		if err := replayStanza(buf, rec, out); err != nil {
			return newIOError(lineNo, lastLine, err)
		}

		delta += rec.Post - rec.Pre
		if err := buf.Close(); err != nil {
			return newIOError(lineNo, lastLine, err)
		}
		buf = nil
		rec = nil
		return nil
	}

	startStanza := func(header []byte) error {
		var err error
		buf, err = stanza.NewBuffer(srcRoot, cfg.TempFilePrefix)
		if err != nil {
			return newIOError(reader.LineNo(), string(header), err)
		}
		rec = stanza.NewRecord(header)
		return nil
	}

	var lastLine string
	for {
		n, err := reader.ReadLine(tmp)
		if err != nil {
			cleanup()
			return newIOError(reader.LineNo(), lastLine, err)
		}
		if n == 0 {
			break
		}
		line := append([]byte(nil), tmp[:n]...)
		lastLine = trimEOL(string(line))

		res, serr := machine.Step(line)
		if serr != nil {
			cleanup()
			return newParseError(reader.LineNo(), lastLine, serr.Error())
		}

		switch res.Action {
		case stream.ActionRecordPath:
			srcPath = res.Path
			fmt.Fprintf(errOut, "Filepath: %s\n", srcPath)
			if rec == nil {
				if _, err := out.Write(line); err != nil {
					cleanup()
					return newIOError(reader.LineNo(), lastLine, err)
				}
			}

		case stream.ActionStanzaStart:
			if err := startStanza(res.Header); err != nil {
				cleanup()
				return err
			}

		case stream.ActionStanzaEnd:
			if err := finalize(reader.LineNo(), lastLine); err != nil {
				cleanup()
				return err
			}
			if res.Chained {
				if err := startStanza(res.Header); err != nil {
					cleanup()
					return err
				}
			} else if _, err := out.Write(line); err != nil {
				cleanup()
				return newIOError(reader.LineNo(), lastLine, err)
			}

		case stream.ActionBodyLine:
			if rec == nil {
				cleanup()
				return newParseError(reader.LineNo(), lastLine, "body line outside stanza")
			}
			toAppend := line
			keep := true
			if res.Kind == stream.LinePlus {
				toAppend, keep = textutil.CollapseWhitespaceAddition(line)
			}
			if !keep {
				break
			}
			if err := buf.Append(toAppend); err != nil {
				cleanup()
				return newIOError(reader.LineNo(), lastLine, err)
			}
			switch res.Kind {
			case stream.LineContext:
				rec.ObserveContext()
			case stream.LineMinus:
				rec.ObserveMinus()
			case stream.LinePlus:
				rec.ObservePlus()
			}

		case stream.ActionSkip:
			// tolerated stray blank line: dropped entirely.

		case stream.ActionNone:
			if rec == nil {
				if _, err := out.Write(line); err != nil {
					cleanup()
					return newIOError(reader.LineNo(), lastLine, err)
				}
			}
		}
	}

	if rec != nil {
		if err := finalize(reader.LineNo(), lastLine); err != nil {
			cleanup()
			return err
		}
	}

	fmt.Fprintf(errOut, "Completed: %d / %d stanza headers repaired\n", badHeaders, stanzaNum)
	return nil
}

func validHeaderPrefix(header []byte) bool {
	return len(header) >= 8 && header[0] == '@' && header[1] == '@' && header[2] == ' ' && header[3] == '-'
}

func headerBytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func trimEOL(s string) string {
	s = strings.TrimSuffix(s, "\n")
	s = strings.TrimSuffix(s, "\r")
	return s
}

// replayStanza emits the stanza buffer from its effective start, applying
// any recorded per-line rewrites, per spec.md §4.5 step 5.
func replayStanza(buf *stanza.Buffer, rec *stanza.Record, out io.Writer) error {
	r, err := buf.Reader(rec.EffectiveStart)
	if err != nil {
		return err
	}
	tmp := make([]byte, maxLineBytes)
	idx := 0
	for {
		n, err := r.ReadLine(tmp)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		if rw, ok := rec.RewriteFor(idx); ok {
			if _, err := out.Write(rw); err != nil {
				return err
			}
		} else {
			if _, err := out.Write(tmp[:n]); err != nil {
				return err
			}
		}
		idx++
	}
}
