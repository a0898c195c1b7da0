package publish

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"

	"mlregistry.io/assetx/pkg/assets"
)

func writeAsset(t *testing.T, root string, name string, config string, spec string) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, assets.ConfigFileName), []byte(config), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, assets.DefaultSpecFile), []byte(spec), 0o644))
}

func TestPublishComponentWithExistingEnvironment(t *testing.T) {
	root := t.TempDir()
	writeAsset(t, root, "train", `
type: component
name: train_model
version: 0.0.1
`, `name: train_model
type: command
environment: azureml://registries/myreg/environments/sklearn-env/versions/1
`)

	reg := newFakeRegistry()
	reg.publish("myreg", assets.AssetTypeEnvironment, "sklearn-env", "1")

	p := &Publisher{Registry: reg, RegistryName: "myreg"}
	report, err := p.Run(context.Background(), root, CreateList{"component": {"*"}})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)

	result := report.Results[0]
	assert.Equal(t, StatusCreated, result.Status)
	assert.Empty(t, report.Failed())
	// environment reference already existed at the target version: spec
	// keeps it verbatim
	content, err := os.ReadFile(filepath.Join(root, "train", assets.DefaultSpecFile))
	require.NoError(t, err)
	assert.Contains(t, string(content), "environment: azureml://registries/myreg/environments/sklearn-env/versions/1")
	require.Len(t, reg.created, 1)
}

func TestPublishPipelineMissingDependency(t *testing.T) {
	root := t.TempDir()
	spec := `name: pipe
type: pipeline
jobs:
  train:
    component: missing_comp:3
`
	writeAsset(t, root, "pipe", `
type: component
name: pipe
version: 1.0.0
`, spec)

	p := &Publisher{Registry: newFakeRegistry(), RegistryName: "myreg", VersionSuffix: "rc1"}
	report, err := p.Run(context.Background(), root, CreateList{"component": {"pipe"}})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, StatusFailed, report.Results[0].Status)
	assert.Equal(t, map[string][]string{"component": {"pipe"}}, report.Failed())

	// failed resolution never touches the spec on disk
	content, err := os.ReadFile(filepath.Join(root, "pipe", assets.DefaultSpecFile))
	require.NoError(t, err)
	assert.Equal(t, spec, string(content))
}

func TestPublishSkipsAssetsNotInCreateList(t *testing.T) {
	root := t.TempDir()
	writeAsset(t, root, "env", "type: environment\nname: sklearn-env\nversion: 1\n", "name: sklearn-env\n")
	writeAsset(t, root, "other", "type: environment\nname: other-env\nversion: 1\n", "name: other-env\n")

	reg := newFakeRegistry()
	p := &Publisher{Registry: reg, RegistryName: "myreg"}
	report, err := p.Run(context.Background(), root, CreateList{"environment": {"sklearn-env"}})
	require.NoError(t, err)
	require.Len(t, report.Results, 2)

	byName := map[string]Status{}
	for _, result := range report.Results {
		byName[result.Asset.Name] = result.Status
	}
	assert.Equal(t, StatusSkipped, byName["other-env"])
	assert.Equal(t, StatusCreated, byName["sklearn-env"])
}

func TestPublishExistingAssetRefreshesModelMetadata(t *testing.T) {
	root := t.TempDir()
	writeAsset(t, root, "yolo", `
type: model
name: yolo
version: 4
description: detector base model
model:
  path:
    type: local
    uri: artifacts
`, `name: yolo
tags:
  task: object-detection
  metrics:
    mAP: 0.42
`)

	reg := newFakeRegistry()
	reg.publish("myreg", assets.AssetTypeModel, "yolo", "4")

	p := &Publisher{Registry: reg, RegistryName: "myreg"}
	report, err := p.Run(context.Background(), root, CreateList{"model": {"*"}})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, StatusExists, report.Results[0].Status)
	assert.Empty(t, reg.created)
	require.Len(t, reg.updated, 1)
	assert.Equal(t, "yolo/4", reg.updated[0])
	assert.Equal(t, "object-detection", reg.tags["yolo/4"]["task"])
	// structured tag values are stringified
	assert.JSONEq(t, `{"mAP":0.42}`, reg.tags["yolo/4"]["metrics"])
}

func TestPublishVersionSuffix(t *testing.T) {
	root := t.TempDir()
	writeAsset(t, root, "env", "type: environment\nname: sklearn-env\nversion: 3\n", "name: sklearn-env\n")

	reg := newFakeRegistry()
	p := &Publisher{Registry: reg, RegistryName: "myreg", VersionSuffix: "rc2"}
	report, err := p.Run(context.Background(), root, CreateList{"environment": {"*"}})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "3-rc2", report.Results[0].Version)
	assert.Equal(t,
		assets.AssetID("myreg", assets.AssetTypeEnvironment, "sklearn-env", "3-rc2"),
		report.AssetIDs["sklearn-env"])
}

func TestOrderComponentsPipelinesLast(t *testing.T) {
	root := t.TempDir()
	writeAsset(t, root, "a_pipe", "type: component\nname: a_pipe\nversion: 1\n", "type: pipeline\njobs: {}\n")
	writeAsset(t, root, "z_cmd", "type: component\nname: z_cmd\nversion: 1\n", "type: command\nenvironment: e:1\n")

	found, err := assets.FindAssets(root)
	require.NoError(t, err)
	orderComponents(found)
	assert.Equal(t, "z_cmd", found[0].Name)
	assert.Equal(t, "a_pipe", found[1].Name)
}

func TestWriteFailedList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "failed.yaml")
	require.NoError(t, WriteFailedList(path, map[string][]string{
		"component": {"pipe", "train"},
		"model":     {"yolo"},
	}))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	parsed := map[string][]string{}
	require.NoError(t, yaml.Unmarshal(content, &parsed))
	assert.Equal(t, []string{"pipe", "train"}, parsed["component"])
	assert.Equal(t, []string{"yolo"}, parsed["model"])
}

func TestLoadCreateList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "publish-list.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
create:
  component:
  - "*"
  environment:
  - sklearn-env
`), 0o644))

	create, err := LoadCreateList(path)
	require.NoError(t, err)
	assert.False(t, create.Empty())
	assert.True(t, create.Wants(assets.AssetTypeComponent, "anything"))
	assert.True(t, create.Wants(assets.AssetTypeEnvironment, "sklearn-env"))
	assert.False(t, create.Wants(assets.AssetTypeEnvironment, "other"))
	assert.False(t, create.HasType(assets.AssetTypeModel))

	empty, err := LoadCreateList("")
	require.NoError(t, err)
	assert.True(t, empty.Empty())
}
