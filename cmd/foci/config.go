package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aherbert/gdsc-sub001/internal/config"
)

func defaultProfileDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "foci", "profiles")
	}
	return "."
}

func newConfigCommand() *cobra.Command {
	var profileDir string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and persist named configuration profiles",
	}
	cmd.PersistentFlags().StringVar(&profileDir, "profile-dir", defaultProfileDir(), "directory holding named profiles")

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSaveCommand(&profileDir))
	cmd.AddCommand(newConfigLoadCommand(&profileDir))
	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgFile)
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshalling config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newConfigSaveCommand(profileDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "save <name>",
		Short: "Save the current configuration as a named profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgFile)
			if err != nil {
				return err
			}
			if err := config.WriteProfile(*profileDir, args[0], cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved profile %q to %s\n", args[0], *profileDir)
			return nil
		},
	}
}

func newConfigLoadCommand(profileDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "load <name>",
		Short: "Print a previously saved named profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.ReadProfile(*profileDir, args[0])
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshalling profile: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
