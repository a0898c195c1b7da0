package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"golang.org/x/exp/slices"
	"sigs.k8s.io/yaml"

	"mlregistry.io/assetx/pkg/assets"
	apierr "mlregistry.io/assetx/pkg/errors"
	"mlregistry.io/assetx/pkg/registry"
)

// Status is the terminal state an asset reaches in one publish pass.
type Status string

const (
	StatusSkipped Status = "skipped"
	StatusExists  Status = "exists"
	StatusCreated Status = "created"
	StatusFailed  Status = "failed"
)

// RegistryClient is everything the publisher needs from the registry CLI.
type RegistryClient interface {
	RegistryAPI
	CreateAsset(ctx context.Context, assetType string, opts registry.CreateOptions) error
	UpdateModelMetadata(ctx context.Context, name string, version string, registryName string, description string, tags map[string]string) error
}

// ModelPreparer materializes model artifacts into workDir and points the
// model spec at them before creation.
type ModelPreparer interface {
	Prepare(ctx context.Context, asset *assets.AssetConfig, workDir string) error
}

// Publisher runs a full publish pass: one asset at a time, one blocking
// registry command at a time, in the fixed type order.
type Publisher struct {
	Registry      RegistryClient
	RegistryName  string
	ResourceGroup string
	Workspace     string
	VersionSuffix string
	Preparer      ModelPreparer
}

// Result is the outcome for a single discovered asset.
type Result struct {
	Asset   *assets.AssetConfig
	Status  Status
	Version string
	AssetID string
	Err     error
}

// Report accumulates per-asset results and the IDs assets were published
// under, for the later test-file rewrite.
type Report struct {
	Results  []Result
	AssetIDs map[string]string
}

// Failed groups failed asset names by type for the failed-list manifest.
func (r *Report) Failed() map[string][]string {
	failed := map[string][]string{}
	for _, result := range r.Results {
		if result.Status == StatusFailed {
			t := result.Asset.Type.String()
			failed[t] = append(failed[t], result.Asset.Name)
		}
	}
	return failed
}

// Run discovers assets under assetsDir and publishes everything the create
// list asks for. Per-asset failures are recorded, never fatal to the run.
func (p *Publisher) Run(ctx context.Context, assetsDir string, create CreateList) (*Report, error) {
	log := logr.FromContextOrDiscard(ctx)

	found, err := assets.FindAssets(assetsDir)
	if err != nil {
		return nil, err
	}
	grouped := assets.GroupByType(found)

	report := &Report{AssetIDs: map[string]string{}}
	for _, assetType := range assets.CreateOrder {
		if !create.HasType(assetType) {
			continue
		}
		log.Info("creating assets", "type", assetType.String())

		toPublish := grouped[assetType]
		if assetType == assets.AssetTypeComponent {
			// pipeline components depend on already published plain
			// components, so they go last
			orderComponents(toPublish)
		}
		for _, asset := range toPublish {
			report.Results = append(report.Results, p.publishOne(ctx, asset, create, report.AssetIDs))
		}
	}
	return report, nil
}

func (p *Publisher) publishOne(ctx context.Context, asset *assets.AssetConfig, create CreateList, assetIDs map[string]string) Result {
	log := logr.FromContextOrDiscard(ctx)

	if !create.Wants(asset.Type, asset.Name) {
		log.Info("skipping asset, not in the create list", "name", asset.Name)
		return Result{Asset: asset, Status: StatusSkipped}
	}

	finalVersion := asset.Version
	if p.VersionSuffix != "" {
		finalVersion = asset.Version + "-" + p.VersionSuffix
	}
	log.Info("creating asset", "name", asset.Name, "version", finalVersion)
	assetIDs[asset.Name] = assets.AssetID(p.RegistryName, asset.Type, asset.Name, finalVersion)

	if existing := p.lookupExisting(ctx, asset); existing != nil {
		log.Info("asset already exists, refreshing metadata", "name", asset.Name, "version", asset.Version)
		if err := p.updateMetadata(ctx, asset); err != nil {
			log.Error(err, "failed to update metadata", "name", asset.Name, "version", asset.Version)
		}
		return Result{Asset: asset, Status: StatusExists, Version: asset.Version, AssetID: existing.ID}
	}

	resolver := &Resolver{Registry: p.Registry, TargetRegistry: p.RegistryName, VersionSuffix: p.VersionSuffix}

	switch asset.Type {
	case assets.AssetTypeComponent:
		kind, err := asset.ComponentKind()
		if err != nil {
			return Result{Asset: asset, Status: StatusFailed, Version: finalVersion, Err: err}
		}
		update := UpdateComponentSpec
		if kind == assets.ComponentKindPipeline {
			update = UpdatePipelineSpec
		}
		if err := update(ctx, resolver, asset.SpecPath()); err != nil {
			log.Error(err, "component preparation failed", "name", asset.Name)
			return Result{Asset: asset, Status: StatusFailed, Version: finalVersion, Err: err}
		}
	case assets.AssetTypeModel:
		// models are registered at their bare version, the release suffix
		// never applies to them
		finalVersion = asset.Version
		workDir, err := os.MkdirTemp("", "assetx-model-")
		if err != nil {
			return Result{Asset: asset, Status: StatusFailed, Version: finalVersion, Err: err}
		}
		defer os.RemoveAll(workDir)
		if p.Preparer == nil {
			err = apierr.NewConfigInvalidError("no model preparer configured")
		} else {
			err = p.Preparer.Prepare(ctx, asset, workDir)
		}
		if err != nil {
			log.Error(err, "model preparation failed", "name", asset.Name)
			return Result{Asset: asset, Status: StatusFailed, Version: finalVersion, Err: err}
		}
	}

	err := p.Registry.CreateAsset(ctx, asset.Type.String(), registry.CreateOptions{
		SpecFile:      asset.SpecPath(),
		RegistryName:  p.RegistryName,
		Version:       finalVersion,
		ResourceGroup: p.ResourceGroup,
		Workspace:     p.Workspace,
	})
	if err != nil {
		log.Error(err, "asset creation failed", "type", asset.Type.String(), "name", asset.Name)
		return Result{Asset: asset, Status: StatusFailed, Version: finalVersion, Err: err}
	}
	return Result{Asset: asset, Status: StatusCreated, Version: finalVersion, AssetID: assetIDs[asset.Name]}
}

// lookupExisting checks pre-existence at the bare version. Lookup errors are
// treated as absence: creation will surface the real problem.
func (p *Publisher) lookupExisting(ctx context.Context, asset *assets.AssetConfig) *registry.AssetDetails {
	details, err := p.Registry.GetAsset(ctx, asset.Type.String(), asset.Name, asset.Version, p.RegistryName)
	if err != nil {
		return nil
	}
	return details
}

// updateMetadata refreshes mutable metadata of an existing asset version.
// Only models support this, matching the registry CLI.
func (p *Publisher) updateMetadata(ctx context.Context, asset *assets.AssetConfig) error {
	log := logr.FromContextOrDiscard(ctx)
	if asset.Type != assets.AssetTypeModel {
		log.Info("skipping metadata update, not supported for type", "name", asset.Name, "type", asset.Type.String())
		return nil
	}
	tags, err := specTags(asset.SpecPath())
	if err != nil {
		return fmt.Errorf("get tags for model %s: %w", asset.Name, err)
	}
	return p.Registry.UpdateModelMetadata(ctx, asset.Name, asset.Version, p.RegistryName, asset.Description, tags)
}

// specTags reads the tags block of a spec file, stringifying structured
// values the way the registry expects them.
func specTags(specPath string) (map[string]string, error) {
	content, err := os.ReadFile(specPath)
	if err != nil {
		return nil, err
	}
	spec := struct {
		Tags map[string]any `json:"tags"`
	}{}
	if err := yaml.Unmarshal(content, &spec); err != nil {
		return nil, err
	}
	tags := map[string]string{}
	for name, value := range spec.Tags {
		switch v := value.(type) {
		case string:
			tags[name] = v
		case map[string]any, []any:
			encoded, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			tags[name] = string(encoded)
		default:
			tags[name] = fmt.Sprint(v)
		}
	}
	return tags, nil
}

// orderComponents moves pipeline components to the end of the publishing
// list. Reading a spec may fail here; those assets sort as non-pipeline and
// fail later with a proper record.
func orderComponents(list []*assets.AssetConfig) {
	isPipeline := func(a *assets.AssetConfig) bool {
		kind, err := a.ComponentKind()
		return err == nil && kind == assets.ComponentKindPipeline
	}
	slices.SortStableFunc(list, func(a, b *assets.AssetConfig) bool {
		return !isPipeline(a) && isPipeline(b)
	})
}

// WriteFailedList persists the failures of a run grouped by asset type, for
// the downstream reporting step.
func WriteFailedList(path string, failed map[string][]string) error {
	content, err := yaml.Marshal(failed)
	if err != nil {
		return err
	}
	return os.WriteFile(path, content, 0o644)
}
