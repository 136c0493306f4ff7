package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/skiff-data/skiff-engine/pkg/models"
)

// BootstrapSource declares a source to attach at startup. Credential
// material never belongs in the bootstrap file; kinds that need it are
// attached in credentials-required until someone supplies it.
type BootstrapSource struct {
	Kind        models.SourceKind `yaml:"kind"`
	DisplayName string            `yaml:"display_name"`
	Config      map[string]any    `yaml:"config"`
}

type bootstrapFile struct {
	Sources []BootstrapSource `yaml:"sources"`
}

// LoadBootstrap reads declarative source definitions from path. A
// missing file is not an error; bootstrap is optional.
func LoadBootstrap(path string) ([]BootstrapSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read bootstrap file: %w", err)
	}

	var file bootstrapFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse bootstrap file %s: %w", path, err)
	}

	for i, src := range file.Sources {
		if !src.Kind.Valid() {
			return nil, fmt.Errorf("bootstrap source %d has unknown kind %q", i, src.Kind)
		}
	}
	return file.Sources, nil
}
