// Command fixdiff reads a unified diff on standard input, repairs any
// stanza whose context has drifted from the on-disk source in the named
// directory, and writes the corrected diff to standard output.
//
// Usage:
//
//	fixdiff [src_dir]
//
// src_dir defaults to the current directory. fixdiff declares no
// operational flags beyond the ones cobra provides for free (--help);
// all tuning lives in the FIXDIFF_CONFIG environment variable, not the
// command line (spec.md §6).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fixdiff/internal/config"
	"fixdiff/internal/engine"
)

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "fixdiff [src_dir]",
		Short:         "Repair unified-diff stanzas against a live source tree",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			if err := os.Chdir(dir); err != nil {
				return fmt.Errorf("line 0: fatal exit: cannot chdir to %q: %v", dir, err)
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("line 0: fatal exit: cannot load config: %v", err)
			}

			return engine.Run(os.Stdin, os.Stdout, os.Stderr, ".", cfg)
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
