package publish

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"gopkg.in/yaml.v3"

	"mlregistry.io/assetx/pkg/assets"
	apierr "mlregistry.io/assetx/pkg/errors"
)

// UpdateComponentSpec rewrites the environment reference of a command or
// parallel component spec to the resolved registry asset ID. The reference
// sits at the top level for command components and under the task block for
// parallel components. Formatting and comments survive the rewrite.
func UpdateComponentSpec(ctx context.Context, r *Resolver, path string) error {
	log := logr.FromContextOrDiscard(ctx)

	doc, root, err := loadSpec(path)
	if err != nil {
		return err
	}
	name := mapValue(root, "name")

	envNode := mapValue(root, "environment")
	if envNode == nil {
		if task := mapValue(root, "task"); task != nil {
			envNode = mapValue(task, "environment")
		}
	}
	if envNode == nil {
		return apierr.NewResolutionError(fmt.Sprintf(
			"environment reference not found in %s", nodeString(name)))
	}

	resolved, err := r.Resolve(ctx, assets.AssetTypeEnvironment, envNode.Value)
	if err != nil {
		return err
	}
	if resolved == envNode.Value {
		log.Info("existing environment reference is valid", "environment", resolved)
		return nil
	}
	log.Info("updating environment reference", "environment", resolved)
	setScalar(envNode, resolved)
	return saveSpec(path, doc)
}

// UpdatePipelineSpec rewrites every job's component reference in a pipeline
// component spec. Jobs without a component reference pass through untouched.
// The file is written only after every job resolves; a mid-loop failure
// leaves it unmodified on disk.
func UpdatePipelineSpec(ctx context.Context, r *Resolver, path string) error {
	log := logr.FromContextOrDiscard(ctx)

	doc, root, err := loadSpec(path)
	if err != nil {
		return err
	}
	jobs := mapValue(root, "jobs")
	if jobs == nil || jobs.Kind != yaml.MappingNode {
		return apierr.NewResolutionError(fmt.Sprintf("no jobs found in %s", path))
	}

	changed := false
	for i := 0; i+1 < len(jobs.Content); i += 2 {
		jobName, job := jobs.Content[i].Value, jobs.Content[i+1]
		component := mapValue(job, "component")
		if component == nil {
			// inline or control-flow job
			log.V(1).Info("job has no component reference", "job", jobName)
			continue
		}
		resolved, err := r.Resolve(ctx, assets.AssetTypeComponent, component.Value)
		if err != nil {
			return fmt.Errorf("job %s: %w", jobName, err)
		}
		if resolved != component.Value {
			setScalar(component, resolved)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return saveSpec(path, doc)
}

func loadSpec(path string) (*yaml.Node, *yaml.Node, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	doc := &yaml.Node{}
	if err := yaml.Unmarshal(content, doc); err != nil {
		return nil, nil, apierr.NewConfigInvalidError(fmt.Sprintf("parse %s: %s", path, err))
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, nil, apierr.NewConfigInvalidError(fmt.Sprintf("%s is not a mapping", path))
	}
	return doc, doc.Content[0], nil
}

func saveSpec(path string, doc *yaml.Node) error {
	buf := bytes.Buffer{}
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// mapValue returns the value node for key in a mapping node, or nil.
func mapValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

func setScalar(node *yaml.Node, value string) {
	node.SetString(value)
}

func nodeString(node *yaml.Node) string {
	if node == nil {
		return "<unnamed>"
	}
	return node.Value
}
