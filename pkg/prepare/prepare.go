package prepare

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-logr/logr"
	"github.com/opencontainers/go-digest"
	"gopkg.in/yaml.v3"

	"mlregistry.io/assetx/pkg/assets"
	apierr "mlregistry.io/assetx/pkg/errors"
)

// ObjectStore downloads every object below an s3://bucket/prefix URI into a
// local directory.
type ObjectStore interface {
	Download(ctx context.Context, uri string, into string) error
}

// Preparer materializes model artifacts into a scoped work directory before
// registration and points the model spec at them. Each artifact file is
// digested and the digests are recorded as spec properties.
type Preparer struct {
	Store ObjectStore
}

func (p *Preparer) Prepare(ctx context.Context, asset *assets.AssetConfig, workDir string) error {
	log := logr.FromContextOrDiscard(ctx)

	if asset.Model == nil {
		return apierr.NewConfigInvalidError(fmt.Sprintf("model %s has no model section", asset.Name))
	}
	artifactsDir := filepath.Join(workDir, "artifacts")
	if err := os.MkdirAll(artifactsDir, 0o755); err != nil {
		return err
	}

	switch asset.Model.Path.Type {
	case "local":
		src := asset.Model.Path.URI
		if !filepath.IsAbs(src) {
			src = filepath.Join(asset.Dir(), src)
		}
		if err := copyDir(src, artifactsDir); err != nil {
			return fmt.Errorf("copy model artifacts for %s: %w", asset.Name, err)
		}
	case "s3":
		if p.Store == nil {
			return apierr.NewConfigInvalidError("no object store configured for s3 model artifacts")
		}
		if err := p.Store.Download(ctx, asset.Model.Path.URI, artifactsDir); err != nil {
			return fmt.Errorf("download model artifacts for %s: %w", asset.Name, err)
		}
	default:
		return apierr.NewConfigInvalidError(fmt.Sprintf(
			"model %s has unsupported artifact path type %q", asset.Name, asset.Model.Path.Type))
	}

	digests, err := digestDir(artifactsDir)
	if err != nil {
		return err
	}
	if len(digests) == 0 {
		return apierr.NewConfigInvalidError(fmt.Sprintf("model %s has no artifact files", asset.Name))
	}
	log.Info("materialized model artifacts", "model", asset.Name, "files", len(digests))

	return rewriteModelSpec(asset.SpecPath(), artifactsDir, digests)
}

// digestDir walks dir and returns relative path to canonical digest for every
// regular file, in path order.
func digestDir(dir string) (map[string]digest.Digest, error) {
	digests := map[string]digest.Digest{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		dgst, err := digest.FromReader(f)
		_ = f.Close()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		digests[rel] = dgst
		return nil
	})
	if err != nil {
		return nil, err
	}
	return digests, nil
}

// rewriteModelSpec points the spec's path at the materialized directory and
// records the artifact digests under properties, keeping the rest of the
// file intact.
func rewriteModelSpec(specPath string, artifactsDir string, digests map[string]digest.Digest) error {
	content, err := os.ReadFile(specPath)
	if err != nil {
		return err
	}
	doc := &yaml.Node{}
	if err := yaml.Unmarshal(content, doc); err != nil {
		return apierr.NewConfigInvalidError(fmt.Sprintf("parse %s: %s", specPath, err))
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return apierr.NewConfigInvalidError(fmt.Sprintf("%s is not a mapping", specPath))
	}
	root := doc.Content[0]

	pathNode := childValue(root, "path")
	if pathNode == nil {
		pathNode = appendMapEntry(root, "path")
	}
	pathNode.SetString(artifactsDir)

	properties := childValue(root, "properties")
	if properties == nil {
		properties = appendMapEntry(root, "properties")
		properties.Kind = yaml.MappingNode
		properties.Tag = "!!map"
	}
	names := make([]string, 0, len(digests))
	for name := range digests {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		entry := childValue(properties, name)
		if entry == nil {
			entry = appendMapEntry(properties, name)
		}
		entry.SetString(digests[name].String())
	}

	out, err := os.Create(specPath)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		_ = out.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func childValue(node *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

func appendMapEntry(node *yaml.Node, key string) *yaml.Node {
	keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
	valueNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str"}
	node.Content = append(node.Content, keyNode, valueNode)
	return valueNode
}

func copyDir(src string, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()
		out, err := os.Create(target)
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, in); err != nil {
			_ = out.Close()
			return err
		}
		return out.Close()
	})
}
