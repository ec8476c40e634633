package stager

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avasant/corpusprep/options"
)

// fakeRunner records invocations and optionally fails a given step. On a
// successful copy it creates the destination file so idempotence checks see
// the staged archive.
type fakeRunner struct {
	calls    []string
	failStep string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) error {
	call := name + " " + strings.Join(args, " ")
	f.calls = append(f.calls, call)
	if f.failStep != "" && name == f.failStep {
		return errors.New("exit status 1")
	}
	if name == "rsync" {
		dest := args[len(args)-1]
		if err := os.WriteFile(dest, []byte("archive"), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func defaultConfig() Config {
	return Config{CopyCmd: "rsync", UncompressCmd: "tar", UncompressOpts: "-zxf"}
}

func TestStageRunsCopyAndUncompress(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "timit")
	archive := "/datasets/TIMIT.tar.gz"

	runner := &fakeRunner{}
	s := New(defaultConfig(), runner, testLogger())
	require.NoError(t, s.Stage(context.Background(), []string{archive}, dest))

	require.Len(t, runner.calls, 2)
	staged := filepath.Join(filepath.Dir(dest), "TIMIT.tar.gz")
	assert.Equal(t, "rsync /datasets/TIMIT.tar.gz "+staged, runner.calls[0])
	assert.Equal(t, "tar -zxf "+staged+" -C "+dest+" --strip-components=1", runner.calls[1])
}

func TestStageIdempotent(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "timit")
	archives := []string{"/datasets/TIMIT.tar.gz", "/datasets/extra.tar.gz"}

	runner := &fakeRunner{}
	s := New(defaultConfig(), runner, testLogger())

	require.NoError(t, s.Stage(context.Background(), archives, dest))
	assert.Len(t, runner.calls, 4, "one copy and one uncompress per archive")

	// Second run: destinations exist, zero shell invocations.
	require.NoError(t, s.Stage(context.Background(), archives, dest))
	assert.Len(t, runner.calls, 4)
}

func TestStageCopyFailure(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "timit")

	runner := &fakeRunner{failStep: "rsync"}
	s := New(defaultConfig(), runner, testLogger())
	err := s.Stage(context.Background(), []string{"/datasets/TIMIT.tar.gz"}, dest)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "copy", se.Step)
	assert.Equal(t, "/datasets/TIMIT.tar.gz", se.Archive)
}

func TestStageUncompressFailure(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "timit")

	runner := &fakeRunner{failStep: "tar"}
	s := New(defaultConfig(), runner, testLogger())
	err := s.Stage(context.Background(), []string{"/datasets/TIMIT.tar.gz"}, dest)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "uncompress", se.Step)
}

func TestStageCreatesDestDir(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "nested", "timit")

	s := New(defaultConfig(), &fakeRunner{}, testLogger())
	require.NoError(t, s.Stage(context.Background(), nil, dest))

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestSchemaDefaults(t *testing.T) {
	cfg, err := options.Resolve(Schema(), map[string]any{
		"data_file":    "/datasets/TIMIT.tar.gz",
		"local_folder": "/scratch/timit",
	})
	require.NoError(t, err)

	c := ConfigFrom(cfg)
	assert.Equal(t, "rsync", c.CopyCmd)
	assert.Equal(t, "tar", c.UncompressCmd)
	assert.Equal(t, "-zxf", c.UncompressOpts)
	assert.Equal(t, []string{"/datasets/TIMIT.tar.gz"}, cfg.Strings("data_file"))
}
