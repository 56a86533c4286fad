package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// overrideFile is the shape of an operator-supplied dataset override file.
type overrideFile struct {
	Datasets []Dataset `yaml:"datasets"`
}

// ApplyOverrides merges dataset contracts from a YAML file into the catalog.
// A dataset with a name matching a built-in replaces it entirely; new names
// are added. An empty path is a no-op.
func (c *Catalog) ApplyOverrides(path string) error {
	if path == "" {
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read schema overrides: %w", err)
	}

	var file overrideFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("failed to parse schema overrides: %w", err)
	}

	for _, ds := range file.Datasets {
		if err := c.put(ds); err != nil {
			return fmt.Errorf("invalid schema override: %w", err)
		}
	}

	return nil
}
