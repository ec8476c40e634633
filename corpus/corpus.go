// Package corpus defines the contract corpus-specific preparers implement
// and the shared manifest builder they delegate to. A preparer owns the full
// pipeline for its corpus kind: fingerprint gate, structure validation,
// per-split discovery, record building, and manifest emission.
package corpus

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/avasant/corpusprep/options"
)

// Preparer turns a raw on-disk corpus into manifest files.
type Preparer interface {
	// Name is the corpus kind used on the command line.
	Name() string

	// Schema declares the options the preparer accepts.
	Schema() options.Schema

	// Prepare runs the full preparation pipeline for the resolved config.
	Prepare(ctx context.Context, cfg options.Config, logger *log.Logger) error
}

// StructureError reports that a corpus root is missing an expected sub-path.
// Validators return it before any discovery so a malformed root is diagnosed
// with an actionable path instead of surfacing as empty manifests.
type StructureError struct {
	Path string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("expected corpus path %s does not exist", e.Path)
}

// ThresholdError reports that too many utterances had no external label.
// The corpus is considered inconsistent with its label source and no partial
// manifest can be trusted.
type ThresholdError struct {
	Missing int
	Total   int
	Limit   float64
}

func (e *ThresholdError) Error() string {
	return fmt.Sprintf("%d of %d utterances have no alignment label (limit %.2f); check the corpus and the label source", e.Missing, e.Total, e.Limit)
}
