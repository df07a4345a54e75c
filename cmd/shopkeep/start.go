// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shopkeep-dev/shopkeep/internal/config"
	"github.com/shopkeep-dev/shopkeep/internal/secrets"
	shoperr "github.com/shopkeep-dev/shopkeep/pkg/errors"
)

func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the shopkeep API server",
		Long:  "Load configuration, connect the model providers and sentence index, and serve the HTTP API until interrupted.",
		RunE:  runStart,
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")

	return cmd
}

func runStart(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlag("networking.listen", cmd.Flags().Lookup("listen")); err != nil {
		return shoperr.Errorf(shoperr.CodeCLISetupFailure, "binding listen flag: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := WireApp(ctx, cfg, dataDir())
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Starting shopkeep on %s\n", cfg.Networking.Listen); err != nil {
		return err
	}
	return app.Start(ctx)
}

// loadConfig resolves keyring references in the global Viper and decodes
// the validated configuration.
func loadConfig() (*config.Config, error) {
	v := viper.GetViper()
	if err := secrets.ResolveViperSecrets(v, secretStoreFactory()); err != nil {
		return nil, err
	}
	return config.FromViper(v)
}

// commandContext returns the command's context, or Background when run
// outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
