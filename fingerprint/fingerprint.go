// Package fingerprint gates manifest rebuilds on a persisted snapshot of the
// resolved configuration. A build can be skipped only when every expected
// output already exists and the stored snapshot is value-equal to the
// current config; anything else, including an unreadable snapshot, forces a
// rebuild. Over-invalidation is fine, a stale manifest silently reused is
// not.
package fingerprint

import (
	"bytes"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/avasant/corpusprep/options"
	"github.com/avasant/corpusprep/store"
)

// snapshot wraps the canonical config serialization so the stored file stays
// a plain YAML document.
type snapshot struct {
	Options options.Config `yaml:"options"`
}

// ShouldSkip reports whether a build with cfg can be skipped. True iff every
// path in outputs exists, the snapshot at path loads, and it matches cfg.
func ShouldSkip(outputs []string, path string, cfg options.Config) bool {
	for _, out := range outputs {
		if _, err := os.Stat(out); err != nil {
			return false
		}
	}

	stored, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	current, err := canonical(cfg)
	if err != nil {
		return false
	}
	return bytes.Equal(stored, current)
}

// Persist writes the config snapshot at path. Callers must invoke this only
// after every manifest of the run has been fully written, otherwise a crash
// could mark an incomplete build as complete.
func Persist(path string, cfg options.Config) error {
	return store.Save(path, snapshot{Options: cfg})
}

func canonical(cfg options.Config) ([]byte, error) {
	return yaml.Marshal(snapshot{Options: cfg})
}
