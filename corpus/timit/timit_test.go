package timit

import (
	"context"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avasant/corpusprep/corpus"
	"github.com/avasant/corpusprep/manifest"
	"github.com/avasant/corpusprep/options"
)

func writeWAV(t *testing.T, path string, frames int) {
	t.Helper()
	dataSize := uint32(frames * 2)

	buf := make([]byte, 0, 44+int(dataSize))
	buf = append(buf, "RIFF"...)
	buf = binary.LittleEndian.AppendUint32(buf, 36+dataSize)
	buf = append(buf, "WAVE"...)
	buf = append(buf, "fmt "...)
	buf = binary.LittleEndian.AppendUint32(buf, 16)
	buf = binary.LittleEndian.AppendUint16(buf, 1)
	buf = binary.LittleEndian.AppendUint16(buf, 1)
	buf = binary.LittleEndian.AppendUint32(buf, 16000)
	buf = binary.LittleEndian.AppendUint32(buf, 32000)
	buf = binary.LittleEndian.AppendUint16(buf, 2)
	buf = binary.LittleEndian.AppendUint16(buf, 16)
	buf = append(buf, "data"...)
	buf = binary.LittleEndian.AppendUint32(buf, dataSize)
	buf = append(buf, make([]byte, dataSize)...)

	require.NoError(t, os.WriteFile(path, buf, 0o644))
}

// writeUtterance drops a one-second wav plus its .wrd and .phn siblings into
// a speaker directory.
func writeUtterance(t *testing.T, speakerDir, stem string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(speakerDir, 0o755))

	writeWAV(t, filepath.Join(speakerDir, stem+".wav"), 16000)

	wrd := "0 8000 she\n8000 16000 had\n"
	require.NoError(t, os.WriteFile(filepath.Join(speakerDir, stem+".wrd"), []byte(wrd), 0o644))

	phn := "0 1000 h#\n1000 3000 sh\n3000 16000 h#\n"
	require.NoError(t, os.WriteFile(filepath.Join(speakerDir, stem+".phn"), []byte(phn), 0o644))
}

// corpusTree builds a miniature TIMIT layout: one train speaker with a real
// sentence and a calibration sentence, and a test tree holding one core test
// speaker, one development speaker, and one speaker outside both lists.
func corpusTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeUtterance(t, filepath.Join(root, "train", "dr1", "fabc0"), "si100")
	writeUtterance(t, filepath.Join(root, "train", "dr1", "fabc0"), "sa1")
	writeUtterance(t, filepath.Join(root, "test", "dr1", "fdhc0"), "si200")
	writeUtterance(t, filepath.Join(root, "test", "dr2", "fadg0"), "si300")
	writeUtterance(t, filepath.Join(root, "test", "dr1", "zzzz0"), "si400")
	return root
}

func resolveConfig(t *testing.T, raw map[string]any) options.Config {
	t.Helper()
	cfg, err := options.Resolve(Preparer{}.Schema(), raw)
	require.NoError(t, err)
	return cfg
}

func prepare(cfg options.Config) error {
	return Preparer{}.Prepare(context.Background(), cfg, log.New(io.Discard))
}

func TestPrepareBuildsManifests(t *testing.T) {
	root := corpusTree(t)
	saveDir := filepath.Join(t.TempDir(), "save")

	cfg := resolveConfig(t, map[string]any{
		"data_folder": root,
		"splits":      "train,dev,test",
		"save_folder": saveDir,
	})
	require.NoError(t, prepare(cfg))

	train, err := manifest.ReadFile(filepath.Join(saveDir, "train.scp"))
	require.NoError(t, err)
	require.Len(t, train, 1, "calibration sentences are excluded")
	rec := train[0]
	assert.Equal(t, "fabc0_si100", rec.ID)
	assert.Equal(t, 1.0, rec.Duration)
	assert.Equal(t, []manifest.Field{
		{Key: "wav", Value: filepath.Join(root, "train", "dr1", "fabc0", "si100.wav"), Type: "wav"},
		{Key: "spk_id", Value: "fabc0", Type: "string"},
		{Key: "phn", Value: "sil_sh_sil", Type: "string"},
		{Key: "wrd", Value: "she_had", Type: "string"},
	}, rec.Fields)

	dev, err := manifest.ReadFile(filepath.Join(saveDir, "dev.scp"))
	require.NoError(t, err)
	require.Len(t, dev, 1)
	assert.Equal(t, "fadg0_si300", dev[0].ID)

	test, err := manifest.ReadFile(filepath.Join(saveDir, "test.scp"))
	require.NoError(t, err)
	require.Len(t, test, 1, "speakers outside the core list are excluded")
	assert.Equal(t, "fdhc0_si200", test[0].ID)

	assert.FileExists(t, filepath.Join(saveDir, "opt_timit_prepare.yaml"))
}

func TestPrepareSkipsWhenUpToDate(t *testing.T) {
	root := corpusTree(t)
	saveDir := filepath.Join(t.TempDir(), "save")

	cfg := resolveConfig(t, map[string]any{
		"data_folder": root,
		"splits":      "train",
		"save_folder": saveDir,
	})
	require.NoError(t, prepare(cfg))

	// The corpus tree is gone, so a second run can only succeed by
	// skipping before validation.
	require.NoError(t, os.RemoveAll(filepath.Join(root, "train")))
	require.NoError(t, os.RemoveAll(filepath.Join(root, "test")))
	require.NoError(t, prepare(cfg))
}

func TestPrepareRerunsOnOptionChange(t *testing.T) {
	root := corpusTree(t)
	saveDir := filepath.Join(t.TempDir(), "save")

	cfg := resolveConfig(t, map[string]any{
		"data_folder": root,
		"splits":      "train",
		"save_folder": saveDir,
	})
	require.NoError(t, prepare(cfg))

	require.NoError(t, os.RemoveAll(filepath.Join(root, "test")))

	changed := resolveConfig(t, map[string]any{
		"data_folder":       root,
		"splits":            "train",
		"save_folder":       saveDir,
		"lab_missing_ratio": "0.1",
	})
	err := prepare(changed)

	var se *corpus.StructureError
	require.ErrorAs(t, err, &se, "a changed option must invalidate the fingerprint")
}

func TestPrepareRejectsMalformedRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "train", "dr1"), 0o755))

	cfg := resolveConfig(t, map[string]any{
		"data_folder": root,
		"splits":      "train",
		"save_folder": filepath.Join(t.TempDir(), "save"),
	})
	err := prepare(cfg)

	var se *corpus.StructureError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Path, filepath.Join("test", "dr1"))
}

func TestPrepareAttachesAlignments(t *testing.T) {
	root := corpusTree(t)
	saveDir := filepath.Join(t.TempDir(), "save")

	aliDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(aliDir, "train.ali"), []byte("fabc0_si100 1 2 3\n"), 0o644))

	cfg := resolveConfig(t, map[string]any{
		"data_folder": root,
		"splits":      "train",
		"save_folder": saveDir,
		"ali_train":   aliDir,
	})
	require.NoError(t, prepare(cfg))

	records, err := manifest.ReadFile(filepath.Join(saveDir, "train.scp"))
	require.NoError(t, err)
	require.Len(t, records, 1)

	last := records[0].Fields[len(records[0].Fields)-1]
	assert.Equal(t, "ali", last.Key)
	assert.Equal(t, filepath.Join(saveDir, "labels", "fabc0_si100.yaml"), last.Value)
	assert.Equal(t, "yaml", last.Type)
	assert.FileExists(t, last.Value)
}

func TestPrepareMissingAnnotationDegrades(t *testing.T) {
	root := corpusTree(t)
	require.NoError(t, os.Remove(filepath.Join(root, "train", "dr1", "fabc0", "si100.wrd")))
	saveDir := filepath.Join(t.TempDir(), "save")

	cfg := resolveConfig(t, map[string]any{
		"data_folder": root,
		"splits":      "train",
		"save_folder": saveDir,
	})
	require.NoError(t, prepare(cfg))

	records, err := manifest.ReadFile(filepath.Join(saveDir, "train.scp"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "", fieldValue(records[0], "wrd"))
}

// fieldValue returns the value of the named field, or empty.
func fieldValue(rec manifest.Record, key string) string {
	for _, f := range rec.Fields {
		if f.Key == key {
			return f.Value
		}
	}
	return ""
}
