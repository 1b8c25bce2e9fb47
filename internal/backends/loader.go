// Package backends loads and validates the backends.yaml file that
// declares which remote endpoints the sync engine replicates to.
package backends

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Loader handles loading and parsing of backends.yaml.
type Loader struct {
	filePath string
}

func NewLoader(filePath string) *Loader {
	return &Loader{filePath: filePath}
}

// Load reads, parses and validates the backends file. Disabled entries
// are filtered out here so callers only ever see active backends.
func (l *Loader) Load() ([]Definition, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read backends file: %w", err)
	}
	return Parse(data)
}

// Parse validates a raw backends.yaml payload.
func Parse(data []byte) ([]Definition, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse backends yaml: %w", err)
	}

	seen := map[string]bool{}
	active := make([]Definition, 0, len(cfg.Backends))
	for i, def := range cfg.Backends {
		if def.Name == "" {
			return nil, fmt.Errorf("backend %d: missing name", i)
		}
		if seen[def.Name] {
			return nil, fmt.Errorf("backend %q: duplicate name", def.Name)
		}
		seen[def.Name] = true

		switch def.Type {
		case TypeBlob:
			if def.URL == "" {
				return nil, fmt.Errorf("backend %q: blob backends need a url", def.Name)
			}
		case TypeObject:
			if def.Addr == "" {
				return nil, fmt.Errorf("backend %q: object backends need an addr", def.Name)
			}
		default:
			return nil, fmt.Errorf("backend %q: unknown type %q", def.Name, def.Type)
		}

		if def.Disabled {
			continue
		}
		active = append(active, def)
	}
	return active, nil
}
