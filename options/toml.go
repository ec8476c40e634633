package options

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// LoadTOML reads a raw option mapping from a TOML file. Values are returned
// untyped; Resolve casts them against the schema. Callers overlay CLI flag
// values on top of the returned map, so flags win over the file.
func LoadTOML(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read options file: %w", err)
	}

	raw := make(map[string]any)
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse options file %s: %w", path, err)
	}
	return raw, nil
}
