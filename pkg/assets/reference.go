package assets

import (
	"fmt"
	"regexp"

	"mlregistry.io/assetx/pkg/errors"
)

const (
	// ProdSystemRegistry is the shared production registry that dependencies
	// may always be read from.
	ProdSystemRegistry = "azureml"

	// LatestLabel is the only label a reference may carry; any other label
	// fails resolution.
	LatestLabel = "latest"

	assetIDFormat       = "azureml://registries/%s/%s/%s/versions/%s"
	registryAssetFormat = `^azureml://registries/(.+)/%s/(.+)/(?:versions/(.+)|labels/(.+))$`
)

var workspaceAssetPattern = regexp.MustCompile(`^(?:azureml:)?(.+)(?::(.+)|@(.+))$`)

var registryAssetPatterns = func() map[AssetType]*regexp.Regexp {
	patterns := map[AssetType]*regexp.Regexp{}
	for _, t := range CreateOrder {
		patterns[t] = regexp.MustCompile(fmt.Sprintf(registryAssetFormat, t.Pluralize()))
	}
	return patterns
}()

// Reference is a parsed asset URI. Label and Registry are empty for the
// workspace short form.
type Reference struct {
	Name     string
	Version  string
	Label    string
	Registry string
}

func (r Reference) String() string {
	if r.Label != "" {
		return fmt.Sprintf("%s@%s", r.Name, r.Label)
	}
	return fmt.Sprintf("%s:%s", r.Name, r.Version)
}

// ParseReference parses an asset URI against the two accepted shapes: the
// long registry form azureml://registries/<reg>/<types>/<name>/versions/<v>
// (or .../labels/<label>) and the workspace short form <name>:<version> or
// <name>@<label>. Anything else is a resolution error.
func ParseReference(assetType AssetType, uri string) (Reference, error) {
	if match := registryAssetPatterns[assetType].FindStringSubmatch(uri); match != nil {
		return Reference{
			Registry: match[1],
			Name:     match[2],
			Version:  match[3],
			Label:    match[4],
		}, nil
	}
	if match := workspaceAssetPattern.FindStringSubmatch(uri); match != nil {
		return Reference{
			Name:    match[1],
			Version: match[2],
			Label:   match[3],
		}, nil
	}
	return Reference{}, errors.NewResolutionError(
		fmt.Sprintf("%s doesn't match workspace or registry pattern", uri))
}

// AssetID builds the fully qualified registry asset ID. IDs built here
// round-trip through ParseReference.
func AssetID(registry string, assetType AssetType, name string, version string) string {
	return fmt.Sprintf(assetIDFormat, registry, assetType.Pluralize(), name, version)
}
