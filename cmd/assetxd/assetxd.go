package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"mlregistry.io/assetx/pkg/scoring"
	"mlregistry.io/assetx/pkg/version"
)

const ErrExitCode = 1

func main() {
	if err := NewScoringCmd().Execute(); err != nil {
		fmt.Println(err.Error())
		os.Exit(ErrExitCode)
	}
}

func NewScoringCmd() *cobra.Command {
	// the .env file and environment provide the flag defaults; Load never
	// overrides variables already set in the environment
	_ = godotenv.Load()
	options := scoring.DefaultOptions()
	options.ApplyEnv()
	cmd := &cobra.Command{
		Use:     "assetxd",
		Short:   "assetxd",
		Version: version.Get().String(),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
			defer cancel()

			log.SetFlags(log.LstdFlags | log.Lshortfile)
			ctx = logr.NewContext(ctx, stdr.NewWithOptions(log.Default(), stdr.Options{LogCaller: stdr.Error}))

			return scoring.Run(ctx, options)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&options.Listen, "listen", options.Listen, "listen address")
	flags.StringVar(&options.Task, "task", options.Task, "inference task, object-detection or instance-segmentation")
	flags.Int64Var(&options.MaxBodyBytes, "max-body-bytes", options.MaxBodyBytes, "request body size limit")
	flags.StringVar(&options.TLS.CertFile, "tls-cert", options.TLS.CertFile, "tls cert file")
	flags.StringVar(&options.TLS.KeyFile, "tls-key", options.TLS.KeyFile, "tls key file")

	return cmd
}
