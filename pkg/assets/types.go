package assets

import (
	"fmt"
)

type AssetType string

const (
	AssetTypeData        AssetType = "data"
	AssetTypeEnvironment AssetType = "environment"
	AssetTypeComponent   AssetType = "component"
	AssetTypeModel       AssetType = "model"
)

// CreateOrder is the fixed publishing order across asset types: environments
// must exist before the components that reference them, components before the
// models and pipelines that reference them.
var CreateOrder = []AssetType{AssetTypeData, AssetTypeEnvironment, AssetTypeComponent, AssetTypeModel}

func ParseAssetType(s string) (AssetType, error) {
	switch t := AssetType(s); t {
	case AssetTypeData, AssetTypeEnvironment, AssetTypeComponent, AssetTypeModel:
		return t, nil
	default:
		return "", fmt.Errorf("unknown asset type: %q", s)
	}
}

func (t AssetType) String() string {
	return string(t)
}

// Pluralize returns the registry URI path segment for the type.
// "data" is its own plural.
func (t AssetType) Pluralize() string {
	if t == AssetTypeData {
		return string(t)
	}
	return string(t) + "s"
}

type ComponentKind string

const (
	ComponentKindCommand  ComponentKind = "command"
	ComponentKindParallel ComponentKind = "parallel"
	ComponentKindPipeline ComponentKind = "pipeline"
)
