package main

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/avasant/corpusprep/corpus"
	"github.com/avasant/corpusprep/corpus/libri"
	"github.com/avasant/corpusprep/corpus/timit"
)

// app holds the preparer registry used by CLI commands.
type app struct {
	preparers map[string]func() corpus.Preparer
}

func newApp() *app {
	return &app{
		preparers: map[string]func() corpus.Preparer{
			"timit": func() corpus.Preparer { return timit.Preparer{} },
			"libri": func() corpus.Preparer { return libri.Preparer{} },
		},
	}
}

func (a *app) preparer(name string) (corpus.Preparer, error) {
	fn, ok := a.preparers[name]
	if !ok {
		return nil, fmt.Errorf("unknown corpus %q", name)
	}
	return fn(), nil
}

// runLogger returns the default logger tagged with a short run ID so log
// lines from concurrent or consecutive runs stay distinguishable.
func runLogger() *log.Logger {
	return log.With("run", uuid.NewString()[:8])
}
