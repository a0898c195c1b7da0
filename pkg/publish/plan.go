package publish

import (
	"os"

	"sigs.k8s.io/yaml"

	"mlregistry.io/assetx/pkg/assets"
)

// Wildcard in a create list matches every asset of that type.
const Wildcard = "*"

// CreateList is the user supplied publish plan: asset type to allow-list of
// names, or the wildcard.
type CreateList map[string][]string

// LoadCreateList reads the create section of a publish list file. A missing
// path yields an empty list.
func LoadCreateList(path string) (CreateList, error) {
	if path == "" {
		return CreateList{}, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	config := struct {
		Create CreateList `json:"create"`
	}{}
	if err := yaml.Unmarshal(content, &config); err != nil {
		return nil, err
	}
	if config.Create == nil {
		return CreateList{}, nil
	}
	return config.Create, nil
}

func (l CreateList) Empty() bool {
	return len(l) == 0
}

// HasType reports whether any assets of the type are planned at all.
func (l CreateList) HasType(t assets.AssetType) bool {
	_, ok := l[string(t)]
	return ok
}

// Wants reports whether the named asset is in the plan.
func (l CreateList) Wants(t assets.AssetType, name string) bool {
	for _, entry := range l[string(t)] {
		if entry == Wildcard || entry == name {
			return true
		}
	}
	return false
}
