package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/avasant/corpusprep/manifest"
	"github.com/avasant/corpusprep/report"
)

func showCmd() *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Summarize a built manifest",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "manifest",
				Aliases:  []string{"m"},
				Usage:    "Path to a manifest file",
				Required: true,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.String("manifest")
			records, err := manifest.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read manifest: %w", err)
			}
			return report.Render(os.Stdout, path, records)
		},
	}
}
