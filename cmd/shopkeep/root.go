// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package main

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shopkeep-dev/shopkeep/internal/config"
	shoperr "github.com/shopkeep-dev/shopkeep/pkg/errors"
)

const defaultEnvFile = ".env"

// NewRootCmd creates the root shopkeep command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "shopkeep",
		Short:         "Shopkeep: store knowledge and certificate OCR backend",
		Long:          "Shopkeep indexes store descriptions for question answering and reads business registration certificates.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := initViper(cmd); err != nil {
				return err
			}
			setupLogging(cmd.ErrOrStderr(), viper.GetBool("verbose"))
			return nil
		},
	}

	// Global flags; bound to viper keys in initViper.
	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("env-file", "", "load environment variables from this file (default .env if present)")
	root.PersistentFlags().String("data-dir", "", "path to data directory")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")

	root.AddCommand(
		newStartCmd(),
		newVersionCmd(),
		newRegisterCmd(),
		newImportCmd(),
		newAskCmd(),
		newForgetCmd(),
		newExtractCmd(),
		newSecretCmd(),
		newConfigCmd(),
	)

	return root
}

// initViper sets up the global Viper with defaults, env bindings, flag
// bindings, and optional config file so the standard precedence
// (flag > env > file > defaults) is handled uniformly.
func initViper(cmd *cobra.Command) error {
	if err := loadEnvFile(cmd); err != nil {
		return err
	}

	v := viper.GetViper()
	config.SetDefaults(v)
	config.SetupEnv(v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return shoperr.Errorf(shoperr.CodeConfigLoadReadFailure, "reading config file: %w", err)
		}
	} else {
		// SetConfigType is left unset: with it Viper also tries the bare
		// name, which collides with a ./shopkeep binary.
		v.SetConfigName("shopkeep")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/shopkeep")
		v.AddConfigPath("/etc/shopkeep")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return shoperr.Errorf(shoperr.CodeConfigLoadReadFailure, "reading config: %w", err)
			}
			if path := config.BootstrapConfig(); path != "" {
				v.SetConfigFile(path)
				if err := v.ReadInConfig(); err != nil {
					return shoperr.Errorf(shoperr.CodeConfigLoadReadFailure, "reading bootstrapped config: %w", err)
				}
			}
		}
	}

	config.WarnInsecurePermissions(v.ConfigFileUsed(), config.PlaintextSecretKeys(v))

	if err := v.BindPFlag("data_dir", cmd.Root().PersistentFlags().Lookup("data-dir")); err != nil {
		return shoperr.Errorf(shoperr.CodeCLISetupFailure, "binding data-dir flag: %w", err)
	}
	if err := v.BindPFlag("verbose", cmd.Root().PersistentFlags().Lookup("verbose")); err != nil {
		return shoperr.Errorf(shoperr.CodeCLISetupFailure, "binding verbose flag: %w", err)
	}
	return nil
}

// loadEnvFile loads --env-file, or ./.env when it exists. Variables
// already set in the environment win.
func loadEnvFile(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("env-file")
	if path == "" {
		if _, err := os.Stat(defaultEnvFile); err != nil {
			return nil
		}
		path = defaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		return shoperr.Errorf(shoperr.CodeConfigLoadReadFailure, "loading env file %s: %w", path, err)
	}
	slog.Debug("loaded env file", "path", path)
	return nil
}

func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// dataDir returns --data-dir, falling back to ~/.local/share/shopkeep.
func dataDir() string {
	if dir := viper.GetString("data_dir"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "data"
	}
	return filepath.Join(home, ".local", "share", "shopkeep")
}
