// Package libri prepares manifests for the LibriSpeech corpus. Each split is
// a directory of <speaker>/<chapter>/<id>.flac files with chapter-level
// trans.txt transcript files mapping utterance IDs to text.
package libri

import (
	"bufio"
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
	"github.com/avasant/corpusprep/manifest"
	"github.com/avasant/corpusprep/options"
)

const sampleRate = 16000

var splitNames = []string{
	"dev-clean", "dev-other", "test-clean", "test-other",
	"train-clean-100", "train-clean-360", "train-other-500",
}

// Preparer implements corpus.Preparer for LibriSpeech.
type Preparer struct{}

func (Preparer) Name() string { return "libri" }

func (Preparer) Schema() options.Schema {
	return options.Schema{
		{Name: "data_folder", Kind: options.Dir, Required: true},
		{Name: "splits", Kind: options.EnumList, Required: true, Values: splitNames},
		{Name: "save_folder", Kind: options.String, Required: true},
		{Name: "select_n", Kind: options.IntList, Min: 1, Max: options.Unbounded},
	}
}

// Prepare runs the LibriSpeech pipeline. select_n, when set, lists one
// record cap per requested split, in the same order as splits.
func (p Preparer) Prepare(ctx context.Context, cfg options.Config, logger *log.Logger) error {
	dataDir := cfg.String("data_folder")
	saveDir := cfg.String("save_folder")
	splits := cfg.Strings("splits")
	selectN := cfg.Ints("select_n")

	if len(selectN) > 0 && len(selectN) != len(splits) {
		return &options.ResolveError{
			Option: "select_n",
			Reason: fmt.Sprintf("got %d entries for %d splits", len(selectN), len(splits)),
		}
	}

	if err := os.MkdirAll(saveDir, 0o755); err != nil {
		return fmt.Errorf("create save folder: %w", err)
	}

	fpPath := filepath.Join(saveDir, "opt_libri_prepare.yaml")
	var outputs []string
	for _, split := range splits {
		outputs = append(outputs, manifestPath(saveDir, split))
	}

	if fingerprint.ShouldSkip(outputs, fpPath, cfg) {
		logger.Info("manifests are up to date, skipping preparation", "save_folder", saveDir)
		return nil
	}

	if err := validate(dataDir, splits); err != nil {
		return err
	}

	var errs []error
	for i, split := range splits {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := 0
		if len(selectN) > 0 {
			n = selectN[i]
		}
		if err := p.prepareSplit(split, n, cfg, logger); err != nil {
			logger.Error("split preparation failed", "split", split, "err", err)
			errs = append(errs, fmt.Errorf("split %s: %w", split, err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return fingerprint.Persist(fpPath, cfg)
}

// validate asserts every requested split directory exists under the root.
func validate(root string, splits []string) error {
	for _, split := range splits {
		path := filepath.Join(root, split)
		if _, err := os.Stat(path); err != nil {
			return &corpus.StructureError{Path: path}
		}
	}
	return nil
}

func (p Preparer) prepareSplit(split string, selectN int, cfg options.Config, logger *log.Logger) error {
	splitDir := filepath.Join(cfg.String("data_folder"), split)
	saveDir := cfg.String("save_folder")

	files, err := discover.Files(splitDir, []string{".flac"}, nil, nil)
	if err != nil {
		return fmt.Errorf("discover flac files: %w", err)
	}
	logger.Debug("discovered utterances", "split", split, "count", len(files))

	transFiles, err := discover.Files(splitDir, []string{"trans.txt"}, nil, nil)
	if err != nil {
		return fmt.Errorf("discover transcript files: %w", err)
	}
	text, err := textDict(transFiles)
	if err != nil {
		return err
	}

	builder := &corpus.Builder{
		SampleRate: sampleRate,
		SelectN:    selectN,
		Logger:     logger,
	}
	records, err := builder.Build(files, func(path string) (corpus.Derived, error) {
		return deriveRecord(path, text, logger)
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

// textDict parses trans.txt files into an utterance-ID to text mapping.
// Each line is "<id> <word> <word> ..."; words are underscore-joined so the
// payload carries no spaces.
func textDict(paths []string) (map[string]string, error) {
	text := make(map[string]string)
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open transcript file: %w", err)
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			fields := strings.Fields(scanner.Text())
			if len(fields) < 2 {
				continue
			}
			text[fields[0]] = strings.Join(fields[1:], "_")
		}
		err = scanner.Err()
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read transcript file %s: %w", path, err)
		}
	}
	return text, nil
}

// deriveRecord maps a flac path to its record parts: ID from the filename
// stem, speaker from the first two dash-separated ID components.
func deriveRecord(path string, text map[string]string, logger *log.Logger) (corpus.Derived, error) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	speaker := stem
	if parts := strings.Split(stem, "-"); len(parts) >= 2 {
		speaker = parts[0] + "-" + parts[1]
	}

	words, ok := text[stem]
	if !ok {
		logger.Error("transcript missing, emitting degraded record", "id", stem)
	}

	return corpus.Derived{
		ID: stem,
		Fields: []manifest.Field{
			{Key: "wav", Value: path, Type: "flac"},
			{Key: "spk_id", Value: speaker, Type: "string"},
			{Key: "wrd", Value: words, Type: "string"},
		},
	}, nil
}

func manifestPath(saveDir, split string) string {
	return filepath.Join(saveDir, split+".scp")
}
