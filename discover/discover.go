// Package discover enumerates corpus files by substring predicates over the
// full path. Corpus directory and file naming conventions (speaker codes,
// split names, extensions) are reliably substring-distinguishable, so no
// glob or regex engine is involved.
package discover

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// Files walks root and returns every regular file whose path contains all
// matchAll tokens, at least one matchAny token when that list is non-empty,
// and no excludeAny token. Order follows the lexical traversal of
// filepath.WalkDir. An empty result is a valid outcome, not an error.
func Files(root string, matchAll, matchAny, excludeAny []string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if matches(path, matchAll, matchAny, excludeAny) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func matches(path string, matchAll, matchAny, excludeAny []string) bool {
	for _, tok := range matchAll {
		if !strings.Contains(path, tok) {
			return false
		}
	}
	for _, tok := range excludeAny {
		if strings.Contains(path, tok) {
			return false
		}
	}
	if len(matchAny) == 0 {
		return true
	}
	for _, tok := range matchAny {
		if strings.Contains(path, tok) {
			return true
		}
	}
	return false
}
