package probe

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type targetsFile struct {
	Targets []Target `yaml:"targets"`
}

// LoadTargets reads extra probe targets from a YAML file. These cover
// endpoints that are swept but not registered in the provider directory
// (staging integrations, legacy suppliers mid-migration). An empty path
// means no extras.
func LoadTargets(path string) ([]Target, error) {
	if path == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read probe targets %s: %w", path, err)
	}

	var f targetsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse probe targets %s: %w", path, err)
	}

	for i, t := range f.Targets {
		if t.Name == "" {
			return nil, fmt.Errorf("probe targets %s: entry %d has no name", path, i)
		}
	}
	return f.Targets, nil
}
