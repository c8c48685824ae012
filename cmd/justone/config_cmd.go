package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	justone "github.com/mattkeenan/justone/pkg"
)

func newConfigCmd(o *rootOptions, stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Print the configuration justone would use, after applying --set
overrides, in ini form.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, o)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "# %s\n%s", cfg.Path(), cfg.String())
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a default config file and ignore file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := o.configPath
			if path == "" {
				path = justone.DefaultConfigPath()
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("config file %s already exists", path)
			}

			cfg := justone.NewDefaultConfig(path)
			if err := cfg.ApplyOverrides(o.overrides); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.Save(); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			if err := justone.NewIgnoreManager(cfg.IgnoreFilePath()).CreateDefaultIgnoreFile(); err != nil {
				return fmt.Errorf("failed to create ignore file: %w", err)
			}

			fmt.Fprintf(stdout, "Wrote %s\n", path)
			return nil
		},
	})
	return cmd
}
