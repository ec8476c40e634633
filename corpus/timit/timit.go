// Package timit prepares manifests for the TIMIT corpus. Utterances live as
// <root>/<split-tree>/<dialect>/<speaker>/<sentence>.wav with .wrd and .phn
// sibling files; dev and test are carved out of the on-disk test tree by the
// standard speaker lists, and the sa1/sa2 calibration sentences are excluded
// everywhere.
package timit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/avasant/corpusprep/corpus"
	"github.com/avasant/corpusprep/discover"
	"github.com/avasant/corpusprep/fingerprint"
	"github.com/avasant/corpusprep/labels"
	"github.com/avasant/corpusprep/manifest"
	"github.com/avasant/corpusprep/options"
)

const sampleRate = 16000

// avoidSentences are the calibration sentences spoken by every speaker.
var avoidSentences = []string{"sa1", "sa2"}

// phoneRelabel maps corpus symbols to their manifest form; h# marks silence
// at utterance edges.
var phoneRelabel = map[string]string{"h#": "sil"}

// testSpeakers is the standard 24-speaker core test set.
var testSpeakers = []string{
	"fdhc0", "felc0", "fjlm0", "fmgd0", "fmld0", "fnlp0", "fpas0", "fpkt0",
	"mbpm0", "mcmj0", "mdab0", "mgrt0", "mjdh0", "mjln0", "mjmp0", "mklt0",
	"mlll0", "mlnt0", "mnjm0", "mpam0", "mtas1", "mtls0", "mwbt0", "mwew0",
}

// devSpeakers is the standard 50-speaker development set.
var devSpeakers = []string{
	"fadg0", "faks0", "fcal1", "fcmh0", "fdac1", "fdms0", "fdrw0", "fedw0",
	"fgjd0", "fjem0", "fjmg0", "fjsj0", "fkms0", "fmah0", "fmml0", "fnmr0",
	"frew0", "fsem0", "majc0", "mbdg0", "mbns0", "mbwm0", "mcsh0", "mdlf0",
	"mdls0", "mdvc0", "mers0", "mgjf0", "mglb0", "mgwt0", "mjar0", "mjfc0",
	"mjsw0", "mmdb1", "mmdm2", "mmjr0", "mmwh0", "mpdf0", "mrcs0", "mreb0",
	"mrjm4", "mrjr0", "mroa0", "mrtk0", "mrws1", "mtaa0", "mtdt0", "mteb0",
	"mthc0", "mwjg0",
}

// Preparer implements corpus.Preparer for TIMIT.
type Preparer struct{}

func (Preparer) Name() string { return "timit" }

func (Preparer) Schema() options.Schema {
	return options.Schema{
		{Name: "data_folder", Kind: options.Dir, Required: true},
		{Name: "splits", Kind: options.EnumList, Required: true, Values: []string{"train", "dev", "test"}},
		{Name: "save_folder", Kind: options.String, Required: true},
		{Name: "ali_train", Kind: options.Dir, Default: ""},
		{Name: "ali_dev", Kind: options.Dir, Default: ""},
		{Name: "ali_test", Kind: options.Dir, Default: ""},
		{Name: "lab_missing_ratio", Kind: options.Float, Default: 0.05},
	}
}

// Prepare runs the TIMIT pipeline: fingerprint gate, structure validation,
// then per-split discovery, building, and emission. A failed split does not
// stop the remaining splits, but any failure prevents the fingerprint from
// being persisted.
func (p Preparer) Prepare(ctx context.Context, cfg options.Config, logger *log.Logger) error {
	dataDir := cfg.String("data_folder")
	saveDir := cfg.String("save_folder")
	splits := cfg.Strings("splits")

	if err := os.MkdirAll(saveDir, 0o755); err != nil {
		return fmt.Errorf("create save folder: %w", err)
	}

	fpPath := filepath.Join(saveDir, "opt_timit_prepare.yaml")
	var outputs []string
	for _, split := range splits {
		outputs = append(outputs, manifestPath(saveDir, split))
	}

	if fingerprint.ShouldSkip(outputs, fpPath, cfg) {
		logger.Info("manifests are up to date, skipping preparation", "save_folder", saveDir)
		return nil
	}

	if err := validate(dataDir); err != nil {
		return err
	}

	var errs []error
	for _, split := range splits {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.prepareSplit(split, cfg, logger); err != nil {
			logger.Error("split preparation failed", "split", split, "err", err)
			errs = append(errs, fmt.Errorf("split %s: %w", split, err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return fingerprint.Persist(fpPath, cfg)
}

// validate asserts the root has the TIMIT shape before any discovery runs.
func validate(root string) error {
	for _, sub := range []string{filepath.Join("test", "dr1"), filepath.Join("train", "dr1")} {
		path := filepath.Join(root, sub)
		if _, err := os.Stat(path); err != nil {
			return &corpus.StructureError{Path: path}
		}
	}
	return nil
}

func (p Preparer) prepareSplit(split string, cfg options.Config, logger *log.Logger) error {
	dataDir := cfg.String("data_folder")
	saveDir := cfg.String("save_folder")

	matchAll, matchAny := splitPredicates(split)
	files, err := discover.Files(dataDir, matchAll, matchAny, avoidSentences)
	if err != nil {
		return fmt.Errorf("discover %s files: %w", split, err)
	}
	logger.Debug("discovered utterances", "split", split, "count", len(files))

	builder := &corpus.Builder{
		SampleRate:   sampleRate,
		MissingRatio: cfg.Float("lab_missing_ratio"),
		Logger:       logger,
	}
	if aliDir := cfg.String("ali_" + split); aliDir != "" {
		st, err := labels.Load(aliDir)
		if err != nil {
			return fmt.Errorf("load %s alignments: %w", split, err)
		}
		builder.Labels = st
		builder.ArtifactDir = filepath.Join(saveDir, "labels")
	}

	records, err := builder.Build(files, func(path string) (corpus.Derived, error) {
		return deriveRecord(path, logger)
	})
	if err != nil {
		return err
	}

	out := manifestPath(saveDir, split)
	if err := manifest.WriteFile(records, out); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	logger.Info("manifest created", "split", split, "path", out, "records", len(records))
	return nil
}

// splitPredicates returns the discovery tokens for a split. The dev and test
// splits both live under the on-disk test tree and are separated by speaker.
func splitPredicates(split string) (matchAll, matchAny []string) {
	switch split {
	case "train":
		return []string{".wav", "train"}, nil
	case "dev":
		return []string{".wav", "test"}, devSpeakers
	default:
		return []string{".wav", "test"}, testSpeakers
	}
}

// deriveRecord maps a wav path to its record parts: speaker from the parent
// directory, sentence from the filename stem, transcript and phoneme fields
// from the .wrd/.phn siblings.
func deriveRecord(path string, logger *log.Logger) (corpus.Derived, error) {
	speaker := filepath.Base(filepath.Dir(path))
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	id := speaker + "_" + stem

	words := readSibling(path, ".wrd", nil, logger)
	phones := readSibling(path, ".phn", phoneRelabel, logger)

	return corpus.Derived{
		ID: id,
		Fields: []manifest.Field{
			{Key: "wav", Value: path, Type: "wav"},
			{Key: "spk_id", Value: speaker, Type: "string"},
			{Key: "phn", Value: phones, Type: "string"},
			{Key: "wrd", Value: words, Type: "string"},
		},
	}, nil
}

// readSibling reads the annotation file next to the wav (same stem, given
// extension), takes the third column of each line, applies the relabel
// table, and joins with underscores. A missing sibling degrades the field to
// empty; the utterance is still emitted.
func readSibling(wavPath, ext string, relabel map[string]string, logger *log.Logger) string {
	path := strings.TrimSuffix(wavPath, filepath.Ext(wavPath)) + ext
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("annotation file missing, emitting degraded record", "path", path, "err", err)
		return ""
	}

	var tokens []string
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		tok := fields[2]
		if mapped, ok := relabel[tok]; ok {
			tok = mapped
		}
		tokens = append(tokens, tok)
	}
	return strings.Join(tokens, "_")
}

func manifestPath(saveDir, split string) string {
	return filepath.Join(saveDir, split+".scp")
}
