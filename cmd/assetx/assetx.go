package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mlregistry.io/assetx/pkg/version"
)

const ErrExitCode = 1

func main() {
	if err := NewAssetxCmd().Execute(); err != nil {
		os.Exit(ErrExitCode)
	}
}

func NewAssetxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "assetx",
		Short:   "assetx",
		Version: version.Get().String(),
	}
	cmd.AddCommand(
		NewPublishCmd(),
		NewVersionCmd(),
	)
	return cmd
}

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print build version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.Get().String())
		},
	}
}
