package anchor

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"fixdiff/internal/config"
	"fixdiff/internal/diff"
	"fixdiff/internal/stanza"
)

var oracleHunkHeader = regexp.MustCompile(`^@@ -(\d+),(\d+) \+(\d+),(\d+) @@`)

// splitOracleHunk parses a single-hunk unified diff produced by
// diff.Unified into its claimed start line, pre/post counts, lead-in
// length, trailing-context length, and body lines (still carrying their
// leading ' '/'-'/'+' markers), so it can seed a stanza.Record/Buffer pair
// exactly the way internal/stream and internal/stanza would from real
// patch text.
func splitOracleHunk(t *testing.T, oracle string) (startA, pre, post, leadIn, cxActive int, header string, body []string) {
	t.Helper()
	for _, l := range strings.SplitAfter(oracle, "\n") {
		if l == "" {
			continue
		}
		if strings.HasPrefix(l, "@@") {
			header = l
			continue
		}
		if header != "" {
			body = append(body, l)
		}
	}
	m := oracleHunkHeader.FindStringSubmatch(header)
	if m == nil {
		t.Fatalf("no hunk header found in oracle diff:\n%s", oracle)
	}
	startA, _ = strconv.Atoi(m[1])
	pre, _ = strconv.Atoi(m[2])
	post, _ = strconv.Atoi(m[4])

	for _, l := range body {
		if !strings.HasPrefix(l, " ") {
			break
		}
		leadIn++
	}
	for i := len(body) - 1; i >= 0 && strings.HasPrefix(body[i], " "); i-- {
		cxActive++
	}
	return startA, pre, post, leadIn, cxActive, header, body
}

// The repaired anchor is checked against a fixture built by go-difflib
// itself (internal/diff.Unified) rather than a hand-written literal,
// keeping that package genuinely exercised as the oracle this engine is
// checked against.
func TestLocateMatchesDifflibOracleStanzaBody(t *testing.T) {
	dir := t.TempDir()
	a := "alpha\nbeta\ngamma\ndelta\nepsilon\nzeta\n"
	b := "alpha\nbeta\nGAMMA\ndelta\nepsilon\nzeta\n"
	src := writeSource(t, dir, "src.txt", a)

	oracle, err := diff.Unified("a/src.txt", "b/src.txt", []byte(a), []byte(b))
	if err != nil {
		t.Fatalf("diff.Unified: %v", err)
	}
	startA, pre, post, leadIn, cxActive, header, body := splitOracleHunk(t, oracle)

	buf := newTestBuffer(t, dir)
	appendLines(t, buf, body...)

	rec := stanza.NewRecord([]byte(header))
	rec.LeadIn = leadIn
	rec.Pre = pre
	rec.Post = post
	rec.CxActive = cxActive

	cfg := config.Default()
	var diag bytes.Buffer
	anchorLine, err := Locate(rec, buf, src, cfg, 1, &diag)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if anchorLine != startA {
		t.Fatalf("anchor = %d, want %d (difflib's own claimed start, unambiguous content)", anchorLine, startA)
	}
}

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return path
}

func newTestBuffer(t *testing.T, dir string) *stanza.Buffer {
	t.Helper()
	buf, err := stanza.NewBuffer(dir, ".fixdiff-anchor-test")
	if err != nil {
		t.Fatalf("new buffer: %v", err)
	}
	t.Cleanup(func() { buf.Close() })
	return buf
}

func appendLines(t *testing.T, buf *stanza.Buffer, lines ...string) {
	t.Helper()
	for _, l := range lines {
		if err := buf.Append([]byte(l)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
}

// S1: header renumbering — the claimed anchor is wrong but the content
// uniquely matches source line 2.
func TestLocateRenumbersHeader(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "src.txt", "one\ntwo\nthree\nfour\nfive\n")

	buf := newTestBuffer(t, dir)
	appendLines(t, buf, " two\n", " three\n", "-four\n", "+FOUR\n", " five\n")

	rec := stanza.NewRecord([]byte("@@ -1,4 +1,4 @@\n"))
	rec.LeadIn = 2
	rec.Pre = 4
	rec.Post = 4
	rec.CxActive = 1

	cfg := config.Default()
	var diag bytes.Buffer
	anchorLine, err := Locate(rec, buf, src, cfg, 1, &diag)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if anchorLine != 2 {
		t.Fatalf("anchor = %d, want 2", anchorLine)
	}
}

// S2: wrong claimed anchor, unambiguous correct one elsewhere in the file.
func TestLocateFindsShiftedAnchor(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "src.txt", "alpha\nbeta\ngamma\ndelta\nepsilon\n")

	buf := newTestBuffer(t, dir)
	appendLines(t, buf, " gamma\n", "-delta\n", "+DELTA\n", " epsilon\n")

	rec := stanza.NewRecord([]byte("@@ -1,3 +1,3 @@\n"))
	rec.LeadIn = 1
	rec.Pre = 3
	rec.Post = 3
	rec.CxActive = 1

	cfg := config.Default()
	var diag bytes.Buffer
	anchorLine, err := Locate(rec, buf, src, cfg, 1, &diag)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if anchorLine != 3 {
		t.Fatalf("anchor = %d, want 3", anchorLine)
	}
}

// S4: over-long lead-in gets trimmed to the configured maximum before the
// scan begins.
func TestLocateTrimsExcessLeadIn(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "src.txt", "a\nb\nc\nd\ne\nf\n")

	buf := newTestBuffer(t, dir)
	appendLines(t, buf, " a\n", " b\n", " c\n", " d\n", "-e\n", "+E\n")

	rec := stanza.NewRecord([]byte("@@ -1,5 +1,5 @@\n"))
	rec.LeadIn = 4
	rec.Pre = 5
	rec.Post = 5
	rec.CxActive = 0

	cfg := config.Default() // LeadInMax 3
	var diag bytes.Buffer
	anchorLine, err := Locate(rec, buf, src, cfg, 1, &diag)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if anchorLine != 2 {
		t.Fatalf("anchor = %d, want 2 (trimmed past the dropped 'a' lead-in line)", anchorLine)
	}
	if rec.LeadIn != 3 || rec.LeadInCorrected != 1 {
		t.Fatalf("lead-in bookkeeping = %d/%d, want 3/1", rec.LeadIn, rec.LeadInCorrected)
	}
	if diag.Len() == 0 {
		t.Fatalf("expected a lead-in trim diagnostic")
	}
}

// S5: the stanza's last real line coincides with the source's last line,
// with no room for trailing context.
func TestLocateMatchesAtEndOfFile(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "src.txt", "one\ntwo\nthree\nfour\nfive\n")

	buf := newTestBuffer(t, dir)
	appendLines(t, buf, " three\n", "-four\n", "+FOUR\n", " five\n")

	rec := stanza.NewRecord([]byte("@@ -3,3 +3,3 @@\n"))
	rec.LeadIn = 1
	rec.Pre = 3
	rec.Post = 3
	rec.CxActive = 1

	cfg := config.Default()
	var diag bytes.Buffer
	anchorLine, err := Locate(rec, buf, src, cfg, 1, &diag)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if anchorLine != 3 {
		t.Fatalf("anchor = %d, want 3", anchorLine)
	}
	if rec.CxActive != 1 {
		t.Fatalf("cxActive = %d, want 1 (no room for trailing pad)", rec.CxActive)
	}
}

// S5 variant: room for exactly two lines of trailing context pad.
func TestLocatePadsTrailingContextAtEOF(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "src.txt", "one\ntwo\nthree\nfour\nfive\n")

	buf := newTestBuffer(t, dir)
	appendLines(t, buf, " two\n", "-three\n", "+THREE\n")

	rec := stanza.NewRecord([]byte("@@ -2,2 +2,2 @@\n"))
	rec.LeadIn = 1
	rec.Pre = 2
	rec.Post = 2
	rec.CxActive = 0

	cfg := config.Default()
	var diag bytes.Buffer
	anchorLine, err := Locate(rec, buf, src, cfg, 1, &diag)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if anchorLine != 2 {
		t.Fatalf("anchor = %d, want 2", anchorLine)
	}
	if rec.CxActive != 2 {
		t.Fatalf("cxActive = %d, want 2 (padded with 'four' and 'five')", rec.CxActive)
	}
	if rec.Pre != 4 || rec.Post != 4 {
		t.Fatalf("pre/post = %d/%d, want 4/4 after padding", rec.Pre, rec.Post)
	}
	if diag.Len() == 0 {
		t.Fatalf("expected an EOF pad diagnostic")
	}
}

// S6: whitespace-only divergence is accepted and recorded as a rewrite.
func TestLocateAcceptsWhitespaceOnlyDivergence(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "src.txt", "one\ntwo   three\nfour\n")

	buf := newTestBuffer(t, dir)
	// Stanza's context line collapses "two three" with a single space,
	// while the source has a run of three spaces there.
	appendLines(t, buf, " two three\n", "-four\n", "+FOUR\n")

	rec := stanza.NewRecord([]byte("@@ -2,2 +2,2 @@\n"))
	rec.LeadIn = 1
	rec.Pre = 2
	rec.Post = 2
	rec.CxActive = 0

	cfg := config.Default()
	var diag bytes.Buffer
	anchorLine, err := Locate(rec, buf, src, cfg, 1, &diag)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if anchorLine != 2 {
		t.Fatalf("anchor = %d, want 2", anchorLine)
	}
	if len(rec.Rewrites) != 1 {
		t.Fatalf("rewrites = %d, want 1", len(rec.Rewrites))
	}
	want := " two   three\n"
	if string(rec.Rewrites[0].Bytes) != want {
		t.Fatalf("rewrite bytes = %q, want %q", rec.Rewrites[0].Bytes, want)
	}
	if !strings.Contains(diag.String(), "whitespace-only fixup") {
		t.Fatalf("expected a whitespace-only-fixup diagnostic, got:\n%s", diag.String())
	}
}

// Total failure: no candidate position reproduces the stanza anywhere in
// the source.
func TestLocateFailsWhenNoCandidateMatches(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "src.txt", "one\ntwo\nthree\n")

	buf := newTestBuffer(t, dir)
	appendLines(t, buf, " nine\n", "-ten\n", "+TEN\n")

	rec := stanza.NewRecord([]byte("@@ -9,2 +9,2 @@\n"))
	rec.LeadIn = 1
	rec.Pre = 2
	rec.Post = 2
	rec.CxActive = 0

	cfg := config.Default()
	var diag bytes.Buffer
	_, err := Locate(rec, buf, src, cfg, 1, &diag)
	if err == nil {
		t.Fatalf("expected Locate to fail")
	}
	if _, ok := err.(*Error); !ok {
		t.Fatalf("error type = %T, want *anchor.Error", err)
	}
}

func TestTolerantCompareWhitespaceCollapse(t *testing.T) {
	cases := []struct {
		a, b  string
		match bool
	}{
		{"foo bar\n", "foo   bar\n", true},
		{"foo\tbar\n", "foo bar\n", true},
		{"foo bar\n", "foobar\n", false},
		{"foobar\n", "foo bar\n", false},
		{"foo\n", "foo\r\n", true}, // EOL kind differs but both present: content still matches
	}
	for _, c := range cases {
		got := tolerantCompare([]byte(c.a), []byte(c.b))
		if got.matched != c.match {
			t.Errorf("tolerantCompare(%q, %q) matched = %v, want %v", c.a, c.b, got.matched, c.match)
		}
	}
}
