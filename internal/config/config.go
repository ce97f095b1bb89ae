// Package config holds the small set of tunables the repair engine exposes
// — the lead-in/trailing-context thresholds spec.md §9 calls out as
// "should be a named constant", plus the stanza temp-file prefix.
//
// Loading is additive ambient plumbing only: it never introduces a CLI
// flag, so it does not change the tool's "no flags" external contract
// (spec.md §6). Grounded on
// _examples/deepak-highbeam-who-wrote-it/internal/config.Load (same
// Default()-then-optional-JSON-override shape).
package config

import (
	"encoding/json"
	"os"
)

// EnvPath is the environment variable naming an optional JSON config file.
const EnvPath = "FIXDIFF_CONFIG"

// Config holds the engine's tunable thresholds.
type Config struct {
	// LeadInMax is the canonical unified-diff lead-in length; stanzas with
	// more leading context than this have the excess trimmed by the
	// anchor locator (spec.md §4.4 step 1).
	LeadInMax int `json:"leadInMax"`

	// TrailingContextMin is how many trailing context lines the anchor
	// locator restores from the source for a stanza that ends with no
	// trailing context, fewer if end-of-file comes first (spec.md §4.4
	// step 4).
	TrailingContextMin int `json:"trailingContextMin"`

	// TempFilePrefix names the per-stanza side-buffer temp file, followed
	// by the process id (spec.md §4.3).
	TempFilePrefix string `json:"tempFilePrefix"`
}

// Default returns the spec-mandated defaults (lead-in/trailing-context 3,
// temp prefix ".fixdiff").
func Default() Config {
	return Config{
		LeadInMax:          3,
		TrailingContextMin: 3,
		TempFilePrefix:     ".fixdiff",
	}
}

// Load returns Default() overridden by the JSON file named by the
// FIXDIFF_CONFIG environment variable, if set and present. A missing file
// is not an error — callers fall back to defaults exactly like
// who-wrote-it's config.Load.
func Load() (Config, error) {
	cfg := Default()

	path := os.Getenv(EnvPath)
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
