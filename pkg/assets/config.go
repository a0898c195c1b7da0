package assets

import (
	"fmt"
	"os"
	"path/filepath"

	"sigs.k8s.io/yaml"

	apierr "mlregistry.io/assetx/pkg/errors"
)

const (
	ConfigFileName  = "asset.yaml"
	DefaultSpecFile = "spec.yaml"
)

// AssetConfig describes one versioned asset found on disk. It is immutable
// once loaded.
type AssetConfig struct {
	Type        AssetType         `json:"type"`
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Spec        string            `json:"spec,omitempty"`
	Description string            `json:"description,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
	Categories  []string          `json:"categories,omitempty"`

	// Model carries model-only extra configuration.
	Model *ModelOrigin `json:"model,omitempty"`

	dir string
}

// ModelOrigin declares where a model's artifacts live before publishing.
type ModelOrigin struct {
	Path ModelPath `json:"path"`
}

type ModelPath struct {
	// Type is "local" or "s3".
	Type string `json:"type"`
	// URI is a path relative to the asset directory for local artifacts, or
	// an s3://bucket/prefix URI.
	URI string `json:"uri"`
}

func LoadAssetConfig(path string) (*AssetConfig, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	config := &AssetConfig{}
	if err := yaml.Unmarshal(content, config); err != nil {
		return nil, apierr.NewConfigInvalidError(fmt.Sprintf("parse %s: %s", path, err))
	}
	if _, err := ParseAssetType(string(config.Type)); err != nil {
		return nil, apierr.NewConfigInvalidError(fmt.Sprintf("%s: %s", path, err))
	}
	if config.Name == "" || config.Version == "" {
		return nil, apierr.NewConfigInvalidError(fmt.Sprintf("%s: name and version are required", path))
	}
	if config.Type == AssetTypeModel && config.Model == nil {
		return nil, apierr.NewConfigInvalidError(fmt.Sprintf("%s: model assets require a model section", path))
	}
	config.dir = filepath.Dir(path)
	return config, nil
}

// Dir returns the directory the asset config was loaded from.
func (a *AssetConfig) Dir() string {
	return a.dir
}

// SpecPath returns the absolute path of the asset's spec file.
func (a *AssetConfig) SpecPath() string {
	spec := a.Spec
	if spec == "" {
		spec = DefaultSpecFile
	}
	return filepath.Join(a.dir, spec)
}

// ComponentKind peeks at the component spec's type field. Components without
// an explicit type are command components.
func (a *AssetConfig) ComponentKind() (ComponentKind, error) {
	if a.Type != AssetTypeComponent {
		return "", fmt.Errorf("asset %s is not a component", a.Name)
	}
	content, err := os.ReadFile(a.SpecPath())
	if err != nil {
		return "", err
	}
	spec := struct {
		Type string `json:"type"`
	}{}
	if err := yaml.Unmarshal(content, &spec); err != nil {
		return "", apierr.NewConfigInvalidError(fmt.Sprintf("parse %s: %s", a.SpecPath(), err))
	}
	if spec.Type == "" {
		return ComponentKindCommand, nil
	}
	return ComponentKind(spec.Type), nil
}
