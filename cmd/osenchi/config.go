package main

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/JaimeStill/osenchi/internal/config"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the resolved configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Load and validate the configuration, then print it as TOML",
		Long: `Check loads the base file named by OSENCHI_CONFIG, applies the environment
overlay and variable overrides, and validates the result. Secrets are redacted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			out, err := toml.Marshal(redact(*cfg))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "# env: %s\n%s", cfg.Env(), out)
			return nil
		},
	})

	return cmd
}

func redact(cfg config.Config) config.Config {
	const mask = "********"
	if cfg.Classifier.APIKey != "" {
		cfg.Classifier.APIKey = mask
	}
	if cfg.Notify.APIKey != "" {
		cfg.Notify.APIKey = mask
	}
	if cfg.Storage.ConnectionString != "" {
		cfg.Storage.ConnectionString = mask
	}
	if cfg.Database.Password != "" {
		cfg.Database.Password = mask
	}
	return cfg
}
