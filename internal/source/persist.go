package source

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// registryFile is the on-disk shape of a persisted registry.
type registryFile struct {
	Version int      `yaml:"version"`
	Sources []Source `yaml:"sources"`
}

// SaveFile persists the registry (removed sources included) as YAML,
// creating parent directories as needed.
func (r *Registry) SaveFile(path string) error {
	data, err := yaml.Marshal(registryFile{
		Version: 1,
		Sources: r.Snapshot(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create registry directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

// LoadFile restores a registry persisted by SaveFile. A missing file is
// not an error; the registry is simply left empty.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read registry file: %w", err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse registry file: %w", err)
	}

	r.Restore(file.Sources)
	return nil
}
