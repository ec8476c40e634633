// Package audio reads sample counts from WAV and FLAC headers. Manifest
// building only needs the utterance duration, so files are never decoded;
// the count comes straight from the container metadata.
package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Duration returns the length in seconds of the audio file at path, given
// the corpus-declared sample rate.
func Duration(path string, sampleRate int) (float64, error) {
	if sampleRate <= 0 {
		return 0, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	samples, err := SampleCount(path)
	if err != nil {
		return 0, err
	}
	return float64(samples) / float64(sampleRate), nil
}

// SampleCount returns the number of sample frames in the file, dispatching
// on the file extension.
func SampleCount(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return wavSampleCount(f)
	case ".flac":
		return flacSampleCount(f)
	default:
		return 0, fmt.Errorf("unsupported audio format %s", filepath.Ext(path))
	}
}

// wavSampleCount walks RIFF chunks for fmt and data, returning
// dataSize / blockAlign.
func wavSampleCount(r io.Reader) (int64, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return 0, fmt.Errorf("read RIFF header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return 0, fmt.Errorf("not a WAV file")
	}

	var blockAlign uint16
	for {
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return 0, fmt.Errorf("read chunk header: %w", err)
		}
		id := string(hdr[0:4])
		size := binary.LittleEndian.Uint32(hdr[4:8])

		switch id {
		case "fmt ":
			if size < 16 {
				return 0, fmt.Errorf("fmt chunk too short: %d bytes", size)
			}
			var fmtChunk [16]byte
			if _, err := io.ReadFull(r, fmtChunk[:]); err != nil {
				return 0, fmt.Errorf("read fmt chunk: %w", err)
			}
			blockAlign = binary.LittleEndian.Uint16(fmtChunk[12:14])
			if err := skip(r, int64(size)-16+pad(size)); err != nil {
				return 0, err
			}
		case "data":
			if blockAlign == 0 {
				return 0, fmt.Errorf("data chunk before fmt chunk")
			}
			return int64(size) / int64(blockAlign), nil
		default:
			if err := skip(r, int64(size)+pad(size)); err != nil {
				return 0, err
			}
		}
	}
}

// pad returns the RIFF alignment byte for odd-sized chunks.
func pad(size uint32) int64 {
	if size%2 == 1 {
		return 1
	}
	return 0
}

func skip(r io.Reader, n int64) error {
	if n <= 0 {
		return nil
	}
	if _, err := io.CopyN(io.Discard, r, n); err != nil {
		return fmt.Errorf("skip chunk: %w", err)
	}
	return nil
}

// flacSampleCount reads the total-samples field from the STREAMINFO block,
// which is always the first metadata block after the stream marker.
func flacSampleCount(r io.Reader) (int64, error) {
	var marker [4]byte
	if _, err := io.ReadFull(r, marker[:]); err != nil {
		return 0, fmt.Errorf("read stream marker: %w", err)
	}
	if string(marker[:]) != "fLaC" {
		return 0, fmt.Errorf("not a FLAC file")
	}

	var blockHdr [4]byte
	if _, err := io.ReadFull(r, blockHdr[:]); err != nil {
		return 0, fmt.Errorf("read metadata block header: %w", err)
	}
	if blockHdr[0]&0x7f != 0 {
		return 0, fmt.Errorf("first metadata block is not STREAMINFO")
	}

	var info [34]byte
	if _, err := io.ReadFull(r, info[:]); err != nil {
		return 0, fmt.Errorf("read STREAMINFO: %w", err)
	}

	// Bytes 10-17 pack sample rate (20 bits), channels (3), bits per
	// sample (5), and total samples (36).
	packed := binary.BigEndian.Uint64(info[10:18])
	return int64(packed & (1<<36 - 1)), nil
}
