package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"mlregistry.io/assetx/pkg/prepare"
	"mlregistry.io/assetx/pkg/publish"
	"mlregistry.io/assetx/pkg/registry"
	"mlregistry.io/assetx/pkg/version"
)

type PublishOptions struct {
	RegistryName    string
	SubscriptionID  string
	ResourceGroup   string
	Workspace       string
	AssetsDirectory string
	TestsDirectory  string
	VersionSuffix   string
	PublishList     string
	FailedList      string
	Debug           bool
}

func NewPublishCmd() *cobra.Command {
	opts := &PublishOptions{}
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "publish assets into a registry",
		Example: `
  assetx publish -r myregistry -a ./assets -l publish-list.yaml
  assetx publish -r myregistry -a ./assets -t ./tests -v dev20240101 -f failed.yaml
		`,
		Version:      version.Get().String(),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
			defer cancel()

			log.SetFlags(log.LstdFlags | log.Lshortfile)
			if opts.Debug {
				stdr.SetVerbosity(4)
			}
			ctx = logr.NewContext(ctx, stdr.NewWithOptions(log.Default(), stdr.Options{LogCaller: stdr.Error}))

			return RunPublish(ctx, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.RegistryName, "registry-name", "r", "", "name of the registry to create assets in")
	flags.StringVarP(&opts.SubscriptionID, "subscription-id", "s", "", "subscription of the registry")
	flags.StringVarP(&opts.ResourceGroup, "resource-group", "g", "", "resource group of the registry")
	flags.StringVarP(&opts.Workspace, "workspace", "w", "", "workspace to run asset validation in")
	flags.StringVarP(&opts.AssetsDirectory, "assets-directory", "a", "", "directory to search for assets under")
	flags.StringVarP(&opts.TestsDirectory, "tests-directory", "t", "", "directory of test jobs to rewrite with published asset IDs")
	flags.StringVarP(&opts.VersionSuffix, "version-suffix", "v", "", "suffix appended to asset versions on creation")
	flags.StringVarP(&opts.PublishList, "publish-list", "l", "", "file listing asset names to create")
	flags.StringVarP(&opts.FailedList, "failed-list", "f", "", "file to write names of assets that failed to publish")
	flags.BoolVarP(&opts.Debug, "debug", "d", false, "debug mode")
	cmd.MarkFlagRequired("registry-name")
	cmd.MarkFlagRequired("assets-directory")
	return cmd
}

// RunPublish drives one full publish pass. Individual asset failures end up
// in the failed list, not in the exit code, so that one broken asset does not
// block the rest of a release.
func RunPublish(ctx context.Context, opts *PublishOptions) error {
	log := logr.FromContextOrDiscard(ctx)

	create, err := publish.LoadCreateList(opts.PublishList)
	if err != nil {
		return err
	}
	if create.Empty() {
		log.Info("create list is empty, nothing to publish")
		return nil
	}

	preparer := &prepare.Preparer{}
	if store, err := prepare.NewS3Store(ctx); err != nil {
		log.Error(err, "object store unavailable, only local model artifacts will resolve")
	} else {
		preparer.Store = store
	}

	publisher := &publish.Publisher{
		Registry: &registry.Client{
			SubscriptionID: opts.SubscriptionID,
			Debug:          opts.Debug,
		},
		RegistryName:  opts.RegistryName,
		ResourceGroup: opts.ResourceGroup,
		Workspace:     opts.Workspace,
		VersionSuffix: opts.VersionSuffix,
		Preparer:      preparer,
	}

	report, err := publisher.Run(ctx, opts.AssetsDirectory, create)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"TYPE", "NAME", "VERSION", "STATUS", "DETAIL"})
	for _, result := range report.Results {
		detail := ""
		if result.Err != nil {
			detail = result.Err.Error()
		}
		t.AppendRow(table.Row{result.Asset.Type.String(), result.Asset.Name, result.Version, string(result.Status), detail})
	}
	t.Render()

	if failed := report.Failed(); len(failed) > 0 {
		log.Info("some assets failed to publish", "types", len(failed))
		if opts.FailedList != "" {
			if err := publish.WriteFailedList(opts.FailedList, failed); err != nil {
				log.Error(err, "write failed list", "path", opts.FailedList)
			}
		}
	}

	if opts.TestsDirectory != "" {
		jobFiles, err := publish.FindTestJobs(ctx, opts.TestsDirectory)
		if err != nil {
			log.Error(err, "find test jobs", "dir", opts.TestsDirectory)
		} else if err := publish.RewriteTestJobs(ctx, jobFiles, report.AssetIDs); err != nil {
			log.Error(err, "rewrite test jobs")
		}
	}
	return nil
}
