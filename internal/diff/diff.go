// Package diff renders classic unified diffs for use as the repair
// engine's test-fixture oracle. It solves the opposite problem from the
// rest of this module (generating a correct diff rather than repairing a
// broken one), so tests use it to build known-good patches, corrupt them,
// run them through internal/engine, and check the repaired output against
// what this package would have produced for the clean pair.
//
// Adapted from the teacher's internal/diff.Unified: the batch-oriented
// knobs (MaxBytes guardrail, Added/no-old-version variant, a/-b/ prefix
// policy, oversize placeholder) serve a bundle-export use case this module
// doesn't have, so they are dropped; the difflib call and line-splitting
// idiom are kept.
package diff

import (
	"strings"

	difflib "github.com/pmezard/go-difflib/difflib"
)

// Context is the canonical unified-diff context width (spec.md §4.4's
// lead-in/lead-out threshold of 3), used for every fixture this package
// generates.
const Context = 3

// Unified renders a classic unified diff (---/+++ headers, @@ hunks) for
// a -> b, named fromName/toName.
func Unified(fromName, toName string, a, b []byte) (string, error) {
	u := difflib.UnifiedDiff{
		A:        splitLinesKeepNL(string(a)),
		B:        splitLinesKeepNL(string(b)),
		FromFile: fromName,
		ToFile:   toName,
		Context:  Context,
	}
	return difflib.GetUnifiedDiffString(u)
}

func splitLinesKeepNL(s string) []string {
	if s == "" {
		return nil
	}
	return strings.SplitAfter(s, "\n")
}
