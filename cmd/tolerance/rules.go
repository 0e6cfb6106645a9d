package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nhle/tolerance-rules/internal/model"
	"github.com/nhle/tolerance-rules/internal/rules"
)

type ruleList []model.ToleranceRule

func (ruleList) headers() []string {
	return []string{"ID", "NAME", "TYPE", "ENABLED", "CONFIG"}
}

func (r ruleList) rows() [][]string {
	rows := make([][]string, len(r))
	for i, rule := range r {
		rows[i] = []string{
			rule.ID,
			rule.Name,
			string(rule.RuleType),
			strconv.FormatBool(rule.IsEnabled),
			string(rule.Config),
		}
	}
	return rows
}

func rulesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and toggle tolerance rules",
	}
	cmd.AddCommand(
		rulesListCmd(a),
		rulesValidateCmd(),
		rulesToggleCmd(a, "enable", "Enable a rule", true),
		rulesToggleCmd(a, "disable", "Disable a rule", false),
	)
	return cmd
}

func rulesListCmd(a *app) *cobra.Command {
	var org string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List an organization's rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := a.setup(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			list, err := e.store.GetRules(cmd.Context(), org)
			if err != nil {
				return err
			}
			return outputResult(cmd.OutOrStdout(), a.outputFmt, ruleList(list))
		},
	}

	cmd.Flags().StringVar(&org, "org", "", "Organization id")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}

func rulesValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <type> <config-json>",
		Short: "Check a rule config without saving it",
		Long: `Decode and validate a rule config for the given rule type.

Examples:
  tolerance rules validate one_on_one_frequency '{"warningThresholdDays":7,"urgentThresholdDays":14}'
  tolerance rules validate manager_span '{"maxDirectReports":8}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := rules.DefaultRegistry(rules.Deps{})
			if err := registry.Validate(model.RuleType(args[0]), json.RawMessage(args[1])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s config is valid\n", args[0])
			return nil
		},
	}
}

func rulesToggleCmd(a *app, verb, short string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <rule-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.setup(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.store.SetRuleEnabled(cmd.Context(), args[0], enabled); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rule %s %sd\n", args[0], verb)
			return nil
		},
	}
}
