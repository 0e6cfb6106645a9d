package main

import (
	"github.com/spf13/cobra"

	"github.com/nhle/tolerance-rules/internal/credential"
	"github.com/nhle/tolerance-rules/internal/model"
)

// secrets is the part of *credential.Store the CLI uses.
type secrets interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// app holds the global flags and the hooks tests override.
type app struct {
	configPath string
	outputFmt  string

	openSecrets func() (secrets, error)
}

func newApp() *app {
	return &app{
		openSecrets: func() (secrets, error) { return credential.Open() },
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "tolerance",
		Short: "Evaluate tolerance rules for organizations",
		Long: `tolerance checks an organization's data against its tolerance rules
(1:1 cadence, initiative check-ins, 360 feedback, span of control) and
records an exception plus notifications for every new violation.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", model.DefaultConfigPath(), "Path to the config file")
	root.PersistentFlags().StringVarP(&a.outputFmt, "output", "o", "table", "Output format: table, json, yaml")

	root.AddCommand(
		runCmd(a),
		scheduleCmd(a),
		watchCmd(a),
		importCmd(a),
		rulesCmd(a),
		exceptionsCmd(a),
		notificationsCmd(a),
		credentialCmd(a),
		configCmd(a),
	)
	return root
}
