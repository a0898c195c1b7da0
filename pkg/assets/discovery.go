package assets

import (
	"io/fs"
	"path/filepath"
	"strings"

	"golang.org/x/exp/slices"
)

// FindAssets walks root and loads every asset.yaml below it. The result is
// sorted by type then name so a publish run is deterministic.
func FindAssets(root string) ([]*AssetConfig, error) {
	found := []*AssetConfig{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != ConfigFileName {
			return nil
		}
		asset, err := LoadAssetConfig(path)
		if err != nil {
			return err
		}
		found = append(found, asset)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(found, func(a, b *AssetConfig) bool {
		if a.Type != b.Type {
			return strings.Compare(string(a.Type), string(b.Type)) < 0
		}
		return strings.Compare(a.Name, b.Name) < 0
	})
	return found, nil
}

// GroupByType buckets discovered assets by their declared type.
func GroupByType(list []*AssetConfig) map[AssetType][]*AssetConfig {
	grouped := map[AssetType][]*AssetConfig{}
	for _, asset := range list {
		grouped[asset.Type] = append(grouped[asset.Type], asset)
	}
	return grouped
}
