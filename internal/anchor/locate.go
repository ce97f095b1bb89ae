// Package anchor implements the anchor locator: given a stanza's buffered
// body and a candidate source file, it finds the source line at which the
// stanza's pre-image actually begins, tolerating drift in the hunk header's
// claimed line number. Grounded on fixdiff.c's fixdiff_find_original and
// fixdiff_strcmp/fixdiff_assess_eol.
package anchor

import (
	"fmt"
	"io"
	"os"

	"fixdiff/internal/config"
	"fixdiff/internal/lineio"
	"fixdiff/internal/stanza"
)

const maxLineBytes = 4096

// Error is returned when no candidate source line reproduces the stanza.
// It carries the diagnostics spec.md §4.4 step 3 calls for: the longest
// matched run across all candidates tried, and the pair of lines at which
// that best run first diverged.
type Error struct {
	Stanza      int
	BestRun     int
	LastMatched string
	Diverged    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("stanza %d: unable to find original (best run %d lines); last matched: %q; diverged at: %q",
		e.Stanza, e.BestRun, e.LastMatched, e.Diverged)
}

// Locate finds the 1-based source line at which rec's pre-image begins,
// trims excess lead-in, and (on success) pads the stanza with trailing
// context recovered from end-of-file. It mutates rec in place: EffectiveStart
// and the Pre/Post/LeadIn counters may shrink (lead-in trim) or grow
// (trailing-context pad), and Rewrites gains an entry per whitespace-only
// divergence the match accepted.
func Locate(rec *stanza.Record, buf *stanza.Buffer, sourcePath string, cfg config.Config, stanzaNum int, errOut io.Writer) (int, error) {
	if err := trimLeadIn(rec, buf, cfg, stanzaNum, errOut); err != nil {
		return 0, err
	}

	outer, err := os.Open(sourcePath)
	if err != nil {
		return 0, fmt.Errorf("anchor: open source: %w", err)
	}
	defer outer.Close()
	outerReader := lineio.New(outer, sourcePath)

	candidateOffset := int64(0)
	candidateLine := 1
	tmp := make([]byte, maxLineBytes)

	best := 0
	var bestLastMatched, bestDiverged []byte

	for {
		res, err := tryCandidate(sourcePath, candidateOffset, buf, rec.EffectiveStart)
		if err != nil {
			return 0, err
		}
		if res.hit {
			committed := res.rewrites
			for _, rw := range committed {
				rec.AddRewrite(rw.Index, rw.Bytes)
				fmt.Fprintf(errOut, "Stanza %d: whitespace-only fixup at buffer line %d\n", stanzaNum, rw.Index)
			}
			if err := fillTrailingContext(sourcePath, res.matchEnd, buf, rec, cfg, stanzaNum, errOut); err != nil {
				return 0, err
			}
			return candidateLine, nil
		}
		if res.run > best {
			best = res.run
			bestLastMatched = res.lastMatched
			bestDiverged = res.diverged
		}

		n, err := outerReader.ReadLine(tmp)
		if err != nil {
			return 0, fmt.Errorf("anchor: scan source: %w", err)
		}
		if n == 0 {
			return 0, &Error{
				Stanza:      stanzaNum,
				BestRun:     best,
				LastMatched: renderDiag(bestLastMatched),
				Diverged:    renderDiag(bestDiverged),
			}
		}
		candidateOffset += int64(n)
		candidateLine++
	}
}

// trimLeadIn discards lead-in lines beyond cfg.LeadInMax from the front of
// the stanza buffer, per spec.md §4.4 step 1.
func trimLeadIn(rec *stanza.Record, buf *stanza.Buffer, cfg config.Config, stanzaNum int, errOut io.Writer) error {
	tmp := make([]byte, maxLineBytes)
	for rec.LeadIn > cfg.LeadInMax {
		r, err := buf.Reader(rec.EffectiveStart)
		if err != nil {
			return err
		}
		n, err := r.ReadLine(tmp)
		if err != nil {
			return fmt.Errorf("anchor: trim lead-in: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("anchor: trim lead-in: stanza buffer exhausted early")
		}
		fmt.Fprintf(errOut, "Stanza %d: removing extra lead-in\n", stanzaNum)
		rec.LeadIn--
		rec.LeadInCorrected++
		rec.Pre--
		rec.Post--
		rec.EffectiveStart += int64(n)
	}
	return nil
}

type candidateResult struct {
	hit         bool
	matchEnd    int64
	run         int
	lastMatched []byte
	diverged    []byte
	rewrites    []stanza.Rewrite
}

// tryCandidate attempts to match the stanza buffer (starting at
// effectiveStart) against the source starting at offset. It checks stanza
// exhaustion before pulling another source line, so a stanza whose last
// line coincides with the source's final line still matches without
// requiring a confirmatory line beyond end-of-file.
func tryCandidate(sourcePath string, offset int64, buf *stanza.Buffer, effectiveStart int64) (candidateResult, error) {
	f, err := os.Open(sourcePath)
	if err != nil {
		return candidateResult{}, fmt.Errorf("anchor: open source: %w", err)
	}
	defer f.Close()

	src := lineio.New(f, sourcePath)
	if err := src.Seek(offset); err != nil {
		return candidateResult{}, fmt.Errorf("anchor: seek source: %w", err)
	}

	stRdr, err := buf.Reader(effectiveStart)
	if err != nil {
		return candidateResult{}, err
	}

	srcBuf := make([]byte, maxLineBytes)
	stBuf := make([]byte, maxLineBytes)

	pos := offset
	stLineIndex := -1
	run := 0
	var lastMatched, diverged []byte
	var rewrites []stanza.Rewrite

	for {
		// Pull the next non-'+' stanza line.
		var stLine []byte
		exhausted := false
		for {
			m, serr := stRdr.ReadLine(stBuf)
			if serr != nil {
				return candidateResult{}, fmt.Errorf("anchor: read stanza: %w", serr)
			}
			stLineIndex++
			if m == 0 {
				exhausted = true
				break
			}
			if stBuf[0] == '+' {
				continue
			}
			stLine = append([]byte(nil), stBuf[:m]...)
			break
		}
		if exhausted {
			return candidateResult{hit: true, matchEnd: pos, run: run, rewrites: rewrites}, nil
		}

		n, serr := src.ReadLine(srcBuf)
		if serr != nil {
			return candidateResult{}, fmt.Errorf("anchor: read source: %w", serr)
		}
		if n == 0 {
			// Source exhausted before the stanza: this candidate fails.
			diverged = append([]byte(nil), stLine...)
			return candidateResult{run: run, lastMatched: lastMatched, diverged: diverged}, nil
		}
		srcLine := srcBuf[:n]

		cmp := tolerantCompare(stLine[1:], srcLine)
		if !cmp.matched {
			diverged = append([]byte(nil), srcLine...)
			return candidateResult{run: run, lastMatched: lastMatched, diverged: diverged}, nil
		}
		if cmp.rewritten {
			rewrite := make([]byte, 0, len(cmp.srcBody)+2)
			rewrite = append(rewrite, stLine[0])
			rewrite = append(rewrite, cmp.srcBody...)
			rewrite = append(rewrite, '\n')
			rewrites = append(rewrites, stanza.Rewrite{Index: stLineIndex, Bytes: rewrite})
		}

		pos += int64(n)
		run++
		lastMatched = append([]byte(nil), srcLine...)
	}
}

// fillTrailingContext pads a stanza that ends with no trailing context: it
// appends up to cfg.TrailingContextMin source lines, starting at
// fromOffset, to the stanza buffer as ' '-prefixed context, stopping early
// at end-of-file. A stanza that already ends with one or more context lines
// is left unchanged. Grounded on fixdiff.c's EOF-pad loop in
// fixdiff_find_original.
func fillTrailingContext(sourcePath string, fromOffset int64, buf *stanza.Buffer, rec *stanza.Record, cfg config.Config, stanzaNum int, errOut io.Writer) error {
	if rec.CxActive != 0 {
		return nil
	}

	f, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("anchor: open source for EOF pad: %w", err)
	}
	defer f.Close()

	r := lineio.New(f, sourcePath)
	if err := r.Seek(fromOffset); err != nil {
		return fmt.Errorf("anchor: seek for EOF pad: %w", err)
	}

	tmp := make([]byte, maxLineBytes)
	added := 0
	for rec.CxActive < cfg.TrailingContextMin {
		n, err := r.ReadLine(tmp)
		if err != nil {
			return fmt.Errorf("anchor: read source for EOF pad: %w", err)
		}
		if n == 0 {
			break
		}
		k := classifyEOL(tmp[:n])
		body := stripEOL(tmp[:n], k)

		line := make([]byte, 0, len(body)+2)
		line = append(line, ' ')
		line = append(line, body...)
		line = append(line, '\n')

		if err := buf.Append(line); err != nil {
			return err
		}
		rec.Pre++
		rec.Post++
		rec.CxActive++
		added++
	}

	if added > 0 {
		fmt.Fprintf(errOut, "Stanza %d: detected patch at EOF: added %d context at end\n", stanzaNum, added)
	}
	return nil
}

func renderDiag(b []byte) string {
	if b == nil {
		return ""
	}
	out := make([]byte, len(b))
	for i, c := range b {
		if c == '\t' {
			out[i] = '>'
		} else {
			out[i] = c
		}
	}
	return string(out)
}
