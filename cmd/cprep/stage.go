package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/avasant/corpusprep/options"
	"github.com/avasant/corpusprep/stager"
)

func stageCmd() *cli.Command {
	return &cli.Command{
		Name:  "stage",
		Usage: "Copy and decompress archived corpora into a local working directory",
		Description: `Stages each archive next to the destination directory and unpacks it
into the directory with the top-level wrapper stripped. Archives whose
destination already exists are skipped, so staging is safe to rerun.`,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "archive",
				Usage: "Archive to stage (repeatable)",
			},
			&cli.StringFlag{
				Name:  "dest",
				Usage: "Local directory the dataset is unpacked into",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to a TOML options file; flags override its values",
			},
			&cli.StringFlag{
				Name:  "copy-cmd",
				Usage: "Copy command (default rsync)",
			},
			&cli.StringFlag{
				Name:  "copy-opts",
				Usage: "Flags passed to the copy command",
			},
			&cli.StringFlag{
				Name:  "uncompress-cmd",
				Usage: "Decompress command (default tar)",
			},
			&cli.StringFlag{
				Name:  "uncompress-opts",
				Usage: "Flags passed to the decompress command (default -zxf)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			raw := make(map[string]any)
			if path := cmd.String("config"); path != "" {
				loaded, err := options.LoadTOML(path)
				if err != nil {
					return err
				}
				raw = loaded
			}
			if v := cmd.StringSlice("archive"); len(v) > 0 {
				raw["data_file"] = v
			}
			for flag, option := range map[string]string{
				"dest":            "local_folder",
				"copy-cmd":        "copy_cmd",
				"copy-opts":       "copy_opts",
				"uncompress-cmd":  "uncompress_cmd",
				"uncompress-opts": "uncompress_opts",
			} {
				if v := cmd.String(flag); v != "" {
					raw[option] = v
				}
			}

			cfg, err := options.Resolve(stager.Schema(), raw)
			if err != nil {
				return err
			}

			s := stager.New(stager.ConfigFrom(cfg), nil, runLogger())
			return s.Stage(ctx, cfg.Strings("data_file"), cfg.String("local_folder"))
		},
	}
}
