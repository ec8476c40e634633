// Package labels loads externally produced per-utterance alignment labels.
// An alignment directory holds .ali text files, one utterance per line:
// the utterance ID followed by space-separated integer states. The store is
// read-only; consumed labels are persisted as per-utterance YAML artifacts
// next to the manifests.
package labels

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/avasant/corpusprep/discover"
	"github.com/avasant/corpusprep/store"
)

// Store maps utterance IDs to alignment state sequences.
type Store struct {
	byID map[string][]int
}

// Load reads every .ali file under dir into a Store.
func Load(dir string) (*Store, error) {
	files, err := discover.Files(dir, []string{".ali"}, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("scan alignment directory: %w", err)
	}

	s := &Store{byID: make(map[string][]int)}
	for _, path := range files {
		if err := s.loadFile(path); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open alignment file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		states := make([]int, 0, len(fields)-1)
		for _, fld := range fields[1:] {
			n, err := strconv.Atoi(fld)
			if err != nil {
				return fmt.Errorf("alignment file %s: utterance %s: %q is not an integer", path, fields[0], fld)
			}
			states = append(states, n)
		}
		s.byID[fields[0]] = states
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read alignment file %s: %w", path, err)
	}
	return nil
}

// Lookup returns the alignment states for an utterance ID.
func (s *Store) Lookup(id string) ([]int, bool) {
	states, ok := s.byID[id]
	return states, ok
}

// Len returns the number of utterances in the store.
func (s *Store) Len() int {
	return len(s.byID)
}

// SaveArtifact persists the label for id as dir/<id>.yaml and returns the
// artifact path.
func (s *Store) SaveArtifact(dir, id string) (string, error) {
	states, ok := s.byID[id]
	if !ok {
		return "", fmt.Errorf("no label for utterance %s", id)
	}
	path := filepath.Join(dir, id+".yaml")
	if err := store.Save(path, states); err != nil {
		return "", fmt.Errorf("save label artifact for %s: %w", id, err)
	}
	return path, nil
}
