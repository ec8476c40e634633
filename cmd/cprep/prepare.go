package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/urfave/cli/v3"

	"github.com/avasant/corpusprep/options"
)

// prepareFlagOptions maps CLI flag names to their schema option names. Flags
// override values from the --config file; options a corpus does not declare
// are rejected at resolution.
var prepareFlagOptions = map[string]string{
	"data-folder":       "data_folder",
	"save-folder":       "save_folder",
	"splits":            "splits",
	"ali-train":         "ali_train",
	"ali-dev":           "ali_dev",
	"ali-test":          "ali_test",
	"lab-missing-ratio": "lab_missing_ratio",
	"select-n":          "select_n",
}

func prepareCmd() *cli.Command {
	return &cli.Command{
		Name:  "prepare",
		Usage: "Build split manifests for a corpus",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "corpus",
				Usage:    "Corpus kind (timit, libri)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to a TOML options file; flags override its values",
			},
			&cli.StringFlag{
				Name:  "data-folder",
				Usage: "Root directory of the raw corpus",
			},
			&cli.StringFlag{
				Name:  "save-folder",
				Usage: "Directory where manifests are written",
			},
			&cli.StringFlag{
				Name:  "splits",
				Usage: "Comma-separated split names, e.g. train,dev,test",
			},
			&cli.StringFlag{
				Name:  "ali-train",
				Usage: "Directory of train alignment labels (timit)",
			},
			&cli.StringFlag{
				Name:  "ali-dev",
				Usage: "Directory of dev alignment labels (timit)",
			},
			&cli.StringFlag{
				Name:  "ali-test",
				Usage: "Directory of test alignment labels (timit)",
			},
			&cli.StringFlag{
				Name:  "lab-missing-ratio",
				Usage: "Tolerated fraction of utterances without labels (timit)",
			},
			&cli.StringFlag{
				Name:  "select-n",
				Usage: "Comma-separated record caps per split, for debugging (libri)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a := newApp()

			p, err := a.preparer(cmd.String("corpus"))
			if err != nil {
				return err
			}

			raw, err := rawOptions(cmd)
			if err != nil {
				return err
			}
			cfg, err := options.Resolve(p.Schema(), raw)
			if err != nil {
				return err
			}

			saveDir := cfg.String("save_folder")
			if err := os.MkdirAll(saveDir, 0o755); err != nil {
				return fmt.Errorf("create save folder: %w", err)
			}

			lock := flock.New(filepath.Join(saveDir, ".cprep.lock"))
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire save folder lock: %w", err)
			}
			if !locked {
				return fmt.Errorf("another preparation run is active in %s", saveDir)
			}
			defer lock.Unlock()

			logger := runLogger().With("corpus", p.Name())
			return p.Prepare(ctx, cfg, logger)
		},
	}
}

// rawOptions assembles the raw option mapping: the TOML file first, then any
// set flags on top.
func rawOptions(cmd *cli.Command) (map[string]any, error) {
	raw := make(map[string]any)
	if path := cmd.String("config"); path != "" {
		loaded, err := options.LoadTOML(path)
		if err != nil {
			return nil, err
		}
		raw = loaded
	}
	for flag, option := range prepareFlagOptions {
		if v := cmd.String(flag); v != "" {
			raw[option] = v
		}
	}
	return raw, nil
}
