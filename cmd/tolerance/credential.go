package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func credentialCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credential",
		Short: "Manage secrets in the system keyring",
		Long: `Manage secrets in the system keyring. Set database.password_key in the
config to the key holding the PostgreSQL password.`,
	}
	cmd.AddCommand(credentialSetCmd(a), credentialDeleteCmd(a))
	return cmd
}

func credentialSetCmd(a *app) *cobra.Command {
	var value string

	cmd := &cobra.Command{
		Use:   "set <key>",
		Short: "Store a secret (read from stdin unless --value is given)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("value") {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("reading secret from stdin: %w", err)
				}
				value = strings.TrimRight(line, "\r\n")
			}
			if value == "" {
				return errors.New("secret is empty")
			}

			ring, err := a.openSecrets()
			if err != nil {
				return err
			}
			if err := ring.Set(args[0], value); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&value, "value", "", "Secret value (visible in shell history)")
	return cmd
}

func credentialDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Remove a secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ring, err := a.openSecrets()
			if err != nil {
				return err
			}
			if err := ring.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}
