package corpus

import (
	"fmt"
	"math"

	"github.com/charmbracelet/log"

	"github.com/avasant/corpusprep/audio"
	"github.com/avasant/corpusprep/labels"
	"github.com/avasant/corpusprep/manifest"
)

// Derived carries the corpus-specific parts of a record: the utterance ID
// and the typed fields in their fixed per-corpus order.
type Derived struct {
	ID     string
	Fields []manifest.Field
}

// DeriveFunc maps one discovered audio file to its ID and fields.
type DeriveFunc func(path string) (Derived, error)

// Builder turns a discovered file list into manifest records. Duration,
// external label handling, the missing-label threshold, and select-n
// truncation are shared across corpora; everything corpus-specific goes
// through the DeriveFunc.
type Builder struct {
	// SampleRate is the corpus-declared rate used to convert sample
	// counts to seconds.
	SampleRate int

	// Labels, when set, is consulted per utterance ID. Hits are persisted
	// as artifacts under ArtifactDir and attached to the record; misses
	// exclude the record and count toward the threshold.
	Labels      *labels.Store
	ArtifactDir string

	// MissingRatio bounds the tolerated fraction of label misses. A build
	// with more than ceil(MissingRatio*total) misses is fatal.
	MissingRatio float64

	// SelectN, when positive, truncates the build after that many emitted
	// records. Used for debugging on a reduced subset.
	SelectN int

	Logger *log.Logger
}

// Build processes files in discovery order and returns one record per file,
// minus label misses and select-n truncation.
func (b *Builder) Build(files []string, derive DeriveFunc) ([]manifest.Record, error) {
	var records []manifest.Record
	missing := 0

	for _, path := range files {
		d, err := derive(path)
		if err != nil {
			return nil, fmt.Errorf("derive record for %s: %w", path, err)
		}

		var labelPath string
		if b.Labels != nil {
			if _, ok := b.Labels.Lookup(d.ID); !ok {
				missing++
				b.Logger.Debug("utterance has no alignment label", "id", d.ID)
				continue
			}
			labelPath, err = b.Labels.SaveArtifact(b.ArtifactDir, d.ID)
			if err != nil {
				return nil, err
			}
		}

		duration, err := audio.Duration(path, b.SampleRate)
		if err != nil {
			return nil, fmt.Errorf("read audio %s: %w", path, err)
		}

		rec := manifest.Record{ID: d.ID, Duration: duration, Fields: d.Fields}
		if labelPath != "" {
			rec.Fields = append(rec.Fields, manifest.Field{Key: "ali", Value: labelPath, Type: "yaml"})
		}
		records = append(records, rec)

		if b.SelectN > 0 && len(records) == b.SelectN {
			break
		}
	}

	if b.Labels != nil && len(files) > 0 {
		allowed := int(math.Ceil(b.MissingRatio * float64(len(files))))
		if missing > allowed {
			return nil, &ThresholdError{Missing: missing, Total: len(files), Limit: b.MissingRatio}
		}
	}

	return records, nil
}
