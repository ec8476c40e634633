package audio

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeWAV writes a minimal 16-bit mono PCM file with the given number of
// sample frames.
func writeWAV(t *testing.T, path string, frames int) {
	t.Helper()
	dataSize := uint32(frames * 2)

	buf := make([]byte, 0, 44+int(dataSize))
	buf = append(buf, "RIFF"...)
	buf = binary.LittleEndian.AppendUint32(buf, 36+dataSize)
	buf = append(buf, "WAVE"...)
	buf = append(buf, "fmt "...)
	buf = binary.LittleEndian.AppendUint32(buf, 16)
	buf = binary.LittleEndian.AppendUint16(buf, 1)     // PCM
	buf = binary.LittleEndian.AppendUint16(buf, 1)     // mono
	buf = binary.LittleEndian.AppendUint32(buf, 16000) // sample rate
	buf = binary.LittleEndian.AppendUint32(buf, 32000) // byte rate
	buf = binary.LittleEndian.AppendUint16(buf, 2)     // block align
	buf = binary.LittleEndian.AppendUint16(buf, 16)    // bits per sample
	buf = append(buf, "data"...)
	buf = binary.LittleEndian.AppendUint32(buf, dataSize)
	buf = append(buf, make([]byte, dataSize)...)

	require.NoError(t, os.WriteFile(path, buf, 0o644))
}

// writeFLAC writes a stream marker and STREAMINFO block declaring the given
// total sample count. No frames follow; only the header is read.
func writeFLAC(t *testing.T, path string, samples int64) {
	t.Helper()

	buf := []byte("fLaC")
	buf = append(buf, 0x80, 0x00, 0x00, 0x22) // last block, type 0, 34 bytes

	info := make([]byte, 34)
	binary.BigEndian.PutUint16(info[0:2], 4096) // min block size
	binary.BigEndian.PutUint16(info[2:4], 4096) // max block size
	packed := uint64(16000)<<44 | uint64(0)<<41 | uint64(15)<<36 | uint64(samples)
	binary.BigEndian.PutUint64(info[10:18], packed)
	buf = append(buf, info...)

	require.NoError(t, os.WriteFile(path, buf, 0o644))
}

func TestWAVSampleCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.wav")
	writeWAV(t, path, 32000)

	n, err := SampleCount(path)
	require.NoError(t, err)
	assert.Equal(t, int64(32000), n)
}

func TestWAVDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.wav")
	writeWAV(t, path, 8000)

	d, err := Duration(path, 16000)
	require.NoError(t, err)
	assert.Equal(t, 0.5, d)
}

func TestFLACSampleCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.flac")
	writeFLAC(t, path, 48000)

	n, err := SampleCount(path)
	require.NoError(t, err)
	assert.Equal(t, int64(48000), n)
}

func TestFLACDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.flac")
	writeFLAC(t, path, 24000)

	d, err := Duration(path, 16000)
	require.NoError(t, err)
	assert.Equal(t, 1.5, d)
}

func TestUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.mp3")
	require.NoError(t, os.WriteFile(path, []byte("junk"), 0o644))

	_, err := SampleCount(path)
	assert.Error(t, err)
}

func TestNotAWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.wav")
	require.NoError(t, os.WriteFile(path, []byte("this is not riff data!!"), 0o644))

	_, err := SampleCount(path)
	assert.Error(t, err)
}

func TestInvalidSampleRate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.wav")
	writeWAV(t, path, 100)

	_, err := Duration(path, 0)
	assert.Error(t, err)
}
