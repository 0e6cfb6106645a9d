package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nhle/tolerance-rules/internal/model"
	"github.com/nhle/tolerance-rules/internal/ui/setup"
)

func configCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or inspect the config file",
	}
	cmd.AddCommand(configInitCmd(a), configShowCmd(a))
	return cmd
}

func configInitCmd(a *app) *cobra.Command {
	var force, interactive bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(a.configPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", a.configPath)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}

			cfg := model.DefaultConfig()
			if interactive {
				if err := a.askConfig(cfg); err != nil {
					return err
				}
			}

			if err := model.SaveConfig(a.configPath, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", a.configPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Fill in the config with a form")
	return cmd
}

func configShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long:  "Print the configuration as YAML after defaults and TOLERANCE_* environment overrides.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := model.LoadConfig(a.configPath)
			if err != nil {
				return err
			}
			encoder := yaml.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent(2)
			if err := encoder.Encode(cfg); err != nil {
				return err
			}
			return encoder.Close()
		},
	}
}

// askConfig fills cfg from the setup form and stores any database password
// in the keyring.
func (a *app) askConfig(cfg *model.AppConfig) error {
	answers := setup.FromConfig(cfg)
	if err := setup.NewForm(answers).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return errors.New("aborted")
		}
		return err
	}
	if err := answers.Apply(cfg); err != nil {
		return err
	}

	if cfg.Database.PasswordKey == "" {
		return nil
	}
	ring, err := a.openSecrets()
	if err != nil {
		return err
	}
	return ring.Set(cfg.Database.PasswordKey, answers.Password)
}
