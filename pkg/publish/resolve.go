package publish

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	"mlregistry.io/assetx/pkg/assets"
	apierr "mlregistry.io/assetx/pkg/errors"
	"mlregistry.io/assetx/pkg/registry"
)

// RegistryAPI is the read side of the registry client the resolver needs.
type RegistryAPI interface {
	GetAsset(ctx context.Context, assetType string, name string, version string, registryName string) (*registry.AssetDetails, error)
	ListVersions(ctx context.Context, assetType string, name string, registryName string) ([]string, error)
}

// Resolver turns asset references into fully qualified registry asset IDs,
// trying the bare version first and the suffixed release variant second.
type Resolver struct {
	Registry       RegistryAPI
	TargetRegistry string
	VersionSuffix  string
}

// Resolve parses uri and looks it up until a published version is found.
// Version candidates are tried in order: the resolved version itself, then
// the suffix-appended variant when a suffix is configured. The first hit
// wins; no hit fails the dependent asset.
func (r *Resolver) Resolve(ctx context.Context, assetType assets.AssetType, uri string) (string, error) {
	log := logr.FromContextOrDiscard(ctx)

	ref, err := assets.ParseReference(assetType, uri)
	if err != nil {
		return "", err
	}
	log.V(1).Info("parsed dependency reference",
		"type", assetType.String(), "name", ref.Name, "version", ref.Version,
		"label", ref.Label, "registry", ref.Registry)

	if ref.Registry != "" && ref.Registry != assets.ProdSystemRegistry && ref.Registry != r.TargetRegistry {
		log.Info(fmt.Sprintf(
			"dependencies should exist in %q or %q: the URI for %s %q references registry %q, "+
				"and publishing will fail if the release process cannot read it",
			r.TargetRegistry, assets.ProdSystemRegistry, assetType, ref.Name, ref.Registry))
	}

	lookupRegistry := ref.Registry
	if lookupRegistry == "" {
		lookupRegistry = r.TargetRegistry
	}

	version := ref.Version
	if ref.Label != "" {
		version, err = r.resolveLabel(ctx, assetType, ref, lookupRegistry)
		if err != nil {
			return "", err
		}
	}

	candidates := []string{version}
	if r.VersionSuffix != "" {
		candidates = append(candidates, version+"-"+r.VersionSuffix)
	}
	for _, candidate := range candidates {
		details, err := r.Registry.GetAsset(ctx, assetType.String(), ref.Name, candidate, lookupRegistry)
		if err != nil {
			if apierr.IsErrCode(err, apierr.ErrCodeAssetNotFound) {
				continue
			}
			return "", err
		}
		return details.ID, nil
	}
	return "", apierr.NewResolutionError(fmt.Sprintf(
		"%s %s not found in registry %s, tried version(s) %s",
		assetType, ref.Name, lookupRegistry, strings.Join(candidates, ", ")))
}

// resolveLabel maps a label to a concrete version. Only the latest label is
// supported: the registry lists versions newest first, so latest is the
// first element.
func (r *Resolver) resolveLabel(ctx context.Context, assetType assets.AssetType, ref assets.Reference, registryName string) (string, error) {
	if ref.Label != assets.LatestLabel {
		return "", apierr.NewResolutionError(fmt.Sprintf(
			"resolving %s %s with label %q is not supported", assetType, ref.Name, ref.Label))
	}
	versions, err := r.Registry.ListVersions(ctx, assetType.String(), ref.Name, registryName)
	if err != nil {
		return "", err
	}
	if len(versions) == 0 {
		return "", apierr.NewResolutionError(fmt.Sprintf(
			"unable to retrieve versions for %s %s", assetType, ref.Name))
	}
	return versions[0], nil
}
