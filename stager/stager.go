// Package stager copies and decompresses archived corpora into a local
// working directory. Staging is idempotent: an archive whose destination
// path already exists is skipped, so repeated invocations with the same
// archive list are no-ops after the first successful run.
package stager

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/avasant/corpusprep/options"
)

// Runner executes an external command. Injectable so tests can count
// invocations without shelling out.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// ExecRunner runs commands through os/exec, forwarding output to stderr.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Config holds the copy and decompress command templates. Tool names and
// flags are configuration, not hardcoded.
type Config struct {
	CopyCmd        string
	CopyOpts       string
	UncompressCmd  string
	UncompressOpts string
}

// Schema declares the staging options with their reference defaults.
func Schema() options.Schema {
	return options.Schema{
		{Name: "data_file", Kind: options.StringList, Required: true},
		{Name: "local_folder", Kind: options.String, Required: true},
		{Name: "copy_cmd", Kind: options.String, Default: "rsync"},
		{Name: "copy_opts", Kind: options.String, Default: ""},
		{Name: "uncompress_cmd", Kind: options.String, Default: "tar"},
		{Name: "uncompress_opts", Kind: options.String, Default: "-zxf"},
	}
}

// ConfigFrom extracts the command templates from a resolved config.
func ConfigFrom(cfg options.Config) Config {
	return Config{
		CopyCmd:        cfg.String("copy_cmd"),
		CopyOpts:       cfg.String("copy_opts"),
		UncompressCmd:  cfg.String("uncompress_cmd"),
		UncompressOpts: cfg.String("uncompress_opts"),
	}
}

// StageError reports a failed copy or decompress step for one archive.
type StageError struct {
	Archive string
	Step    string
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %s: %v", e.Archive, e.Step, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Stager stages archives into a working directory.
type Stager struct {
	cfg    Config
	runner Runner
	logger *log.Logger
}

// New creates a Stager. A nil runner defaults to ExecRunner.
func New(cfg Config, runner Runner, logger *log.Logger) *Stager {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Stager{cfg: cfg, runner: runner, logger: logger}
}

// Stage ensures destDir exists and stages each archive into it. An archive's
// destination is sibling-of(destDir)/basename(archive); if that path already
// exists the archive is skipped. Otherwise the archive is copied there and
// decompressed into destDir with one leading path component stripped, so
// archives with a top-level wrapper directory unpack flat. The first failing
// step aborts with a StageError.
func (s *Stager) Stage(ctx context.Context, archives []string, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create local folder %s: %w", destDir, err)
	}
	parent := filepath.Dir(filepath.Clean(destDir))

	for _, archive := range archives {
		dest := filepath.Join(parent, filepath.Base(archive))

		if _, err := os.Stat(dest); err == nil {
			s.logger.Debug("archive already staged", "archive", archive, "dest", dest)
			continue
		}

		s.logger.Debug("copying archive", "archive", archive, "dest", dest)
		args := append(splitOpts(s.cfg.CopyOpts), archive, dest)
		if err := s.runner.Run(ctx, s.cfg.CopyCmd, args...); err != nil {
			return &StageError{Archive: archive, Step: "copy", Err: err}
		}

		s.logger.Debug("uncompressing archive", "archive", dest, "into", destDir)
		args = append(splitOpts(s.cfg.UncompressOpts), dest, "-C", destDir, "--strip-components=1")
		if err := s.runner.Run(ctx, s.cfg.UncompressCmd, args...); err != nil {
			return &StageError{Archive: archive, Step: "uncompress", Err: err}
		}
	}

	return nil
}

func splitOpts(opts string) []string {
	return strings.Fields(opts)
}
