// Package manifest models utterance records and the line-oriented manifest
// file consumed by downstream training code. One line per record,
// space-separated key=value tokens: ID and duration are bare scalars, every
// other field is a (payload,type) pair. Payloads never contain spaces; text
// fields are underscore-joined before they reach a record.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Field is one typed payload of a record, e.g. wav=(/corpus/a.wav,wav).
type Field struct {
	Key   string
	Value string
	Type  string
}

// Record is a single utterance entry.
type Record struct {
	ID       string
	Duration float64
	Fields   []Field
}

// Line serializes the record in the manifest wire format. Any residual
// spaces in payloads are replaced with underscores so a line always splits
// cleanly on spaces.
func (r Record) Line() string {
	var b strings.Builder
	b.WriteString("ID=")
	b.WriteString(sanitize(r.ID))
	b.WriteString(" duration=")
	b.WriteString(FormatDuration(r.Duration))
	for _, f := range r.Fields {
		b.WriteString(" ")
		b.WriteString(f.Key)
		b.WriteString("=(")
		b.WriteString(sanitize(f.Value))
		b.WriteString(",")
		b.WriteString(f.Type)
		b.WriteString(")")
	}
	return b.String()
}

// FormatDuration renders seconds with the minimal digits that round-trip.
func FormatDuration(d float64) string {
	return strconv.FormatFloat(d, 'g', -1, 64)
}

func sanitize(s string) string {
	return strings.ReplaceAll(s, " ", "_")
}

// WriteFile emits one line per record, in input order, as a full rewrite of
// path. The write is atomic (temp file + rename) so an aborted build never
// leaves a manifest that looks complete at the final path.
func WriteFile(records []Record, path string) error {
	var b strings.Builder
	for _, r := range records {
		b.WriteString(r.Line())
		b.WriteString("\n")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".manifest-*.scp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(b.String()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	return os.Rename(tmpPath, path)
}

// ReadFile parses a manifest back into records.
func ReadFile(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var records []Record
	for i, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		r, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, i+1, err)
		}
		records = append(records, r)
	}
	return records, nil
}

func parseLine(line string) (Record, error) {
	var r Record
	for _, tok := range strings.Fields(line) {
		key, value, ok := strings.Cut(tok, "=")
		if !ok {
			return Record{}, fmt.Errorf("malformed token %q", tok)
		}
		switch key {
		case "ID":
			r.ID = value
		case "duration":
			d, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return Record{}, fmt.Errorf("malformed duration %q", value)
			}
			r.Duration = d
		default:
			payload, typ, err := parsePair(value)
			if err != nil {
				return Record{}, fmt.Errorf("field %s: %w", key, err)
			}
			r.Fields = append(r.Fields, Field{Key: key, Value: payload, Type: typ})
		}
	}
	if r.ID == "" {
		return Record{}, fmt.Errorf("record has no ID")
	}
	return r, nil
}

func parsePair(value string) (payload, typ string, err error) {
	if !strings.HasPrefix(value, "(") || !strings.HasSuffix(value, ")") {
		return "", "", fmt.Errorf("malformed pair %q", value)
	}
	inner := value[1 : len(value)-1]
	idx := strings.LastIndex(inner, ",")
	if idx < 0 {
		return "", "", fmt.Errorf("pair %q has no type tag", value)
	}
	return inner[:idx], inner[idx+1:], nil
}
