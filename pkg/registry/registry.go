package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/go-logr/logr"

	apierr "mlregistry.io/assetx/pkg/errors"
)

const DefaultBin = "az"

// notFoundMarker is how the CLI reports a missing asset on stderr.
const notFoundMarker = "Could not find asset"

// Client wraps the registry CLI. Every operation is one blocking external
// process invocation with captured output.
type Client struct {
	// Bin is the CLI binary, DefaultBin when empty.
	Bin string
	// SubscriptionID is passed through to creation commands when set.
	SubscriptionID string
	// Debug adds --debug to creation commands and logs redacted output.
	Debug bool
}

// AssetDetails is the subset of the CLI's show output this tool cares about.
type AssetDetails struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Description string            `json:"description"`
	Tags        map[string]string `json:"tags"`
}

// GetAsset shows an asset at an exact version. A missing asset is an
// ErrCodeAssetNotFound error; any other failure surfaces as an external
// command error with redacted output.
func (c *Client) GetAsset(ctx context.Context, assetType string, name string, version string, registryName string) (*AssetDetails, error) {
	stdout, stderr, err := c.run(ctx,
		"ml", assetType, "show",
		"--name", name,
		"--version", version,
		"--registry-name", registryName,
	)
	if err != nil {
		if strings.Contains(stderr, notFoundMarker) {
			return nil, apierr.NewAssetNotFoundError(assetType, name, version)
		}
		return nil, apierr.NewExternalCommandError(c.bin()+" ml "+assetType+" show", Sanitize(stderr))
	}
	details := &AssetDetails{}
	if err := json.Unmarshal([]byte(stdout), details); err != nil {
		return nil, fmt.Errorf("decode %s show output: %w", assetType, err)
	}
	return details, nil
}

// ListVersions lists the known versions of an asset, newest first (the CLI's
// own ordering contract).
func (c *Client) ListVersions(ctx context.Context, assetType string, name string, registryName string) ([]string, error) {
	stdout, stderr, err := c.run(ctx,
		"ml", assetType, "list",
		"--name", name,
		"--registry-name", registryName,
	)
	if err != nil {
		return nil, apierr.NewExternalCommandError(c.bin()+" ml "+assetType+" list", Sanitize(stderr))
	}
	entries := []struct {
		Version string `json:"version"`
	}{}
	if err := json.Unmarshal([]byte(stdout), &entries); err != nil {
		return nil, fmt.Errorf("decode %s list output: %w", assetType, err)
	}
	versions := make([]string, 0, len(entries))
	for _, entry := range entries {
		versions = append(versions, entry.Version)
	}
	return versions, nil
}

// CreateOptions parameterize a single asset creation.
type CreateOptions struct {
	SpecFile      string
	RegistryName  string
	Version       string
	ResourceGroup string
	Workspace     string
}

// CreateAsset creates one asset in the registry from its spec file.
func (c *Client) CreateAsset(ctx context.Context, assetType string, opts CreateOptions) error {
	args := c.createArgs(assetType, opts)
	log := logr.FromContextOrDiscard(ctx)
	stdout, stderr, err := c.run(ctx, args...)
	if c.Debug {
		log.Info("executed", "command", c.bin()+" "+strings.Join(args, " "))
		if redacted := Sanitize(stdout); redacted != "" {
			log.Info("stdout", "output", redacted)
		}
	}
	if err != nil {
		return apierr.NewExternalCommandError(c.bin()+" ml "+assetType+" create", Sanitize(stderr))
	}
	return nil
}

func (c *Client) createArgs(assetType string, opts CreateOptions) []string {
	args := []string{
		"ml", assetType, "create",
		"--file", opts.SpecFile,
		"--registry-name", opts.RegistryName,
		"--version", opts.Version,
	}
	if c.SubscriptionID != "" {
		args = append(args, "--subscription", c.SubscriptionID)
	}
	if opts.ResourceGroup != "" {
		args = append(args, "--resource-group", opts.ResourceGroup)
	}
	if opts.Workspace != "" {
		args = append(args, "--workspace", opts.Workspace)
	}
	if c.Debug {
		args = append(args, "--debug")
	}
	return args
}

// UpdateModelMetadata refreshes the mutable metadata (tags, description) of
// an already published model version.
func (c *Client) UpdateModelMetadata(ctx context.Context, name string, version string, registryName string, description string, tags map[string]string) error {
	args := []string{
		"ml", "model", "update",
		"--name", name,
		"--version", version,
		"--registry-name", registryName,
	}
	if description != "" {
		args = append(args, "--set", "description="+description)
	}
	keys := make([]string, 0, len(tags))
	for key := range tags {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		args = append(args, "--set", fmt.Sprintf("tags.%s=%s", key, tags[key]))
	}
	_, stderr, err := c.run(ctx, args...)
	if err != nil {
		return apierr.NewExternalCommandError(c.bin()+" ml model update", Sanitize(stderr))
	}
	return nil
}

func (c *Client) bin() string {
	if c.Bin == "" {
		return DefaultBin
	}
	return c.Bin
}

func (c *Client) run(ctx context.Context, args ...string) (string, string, error) {
	stdout, stderr := bytes.Buffer{}, bytes.Buffer{}
	cmd := exec.CommandContext(ctx, c.bin(), args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}
