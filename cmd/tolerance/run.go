package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/tolerance-rules/internal/rules"
)

// runReport is one organization's evaluation outcome.
type runReport struct {
	OrganizationID string `json:"organizationId"`
	rules.Result
}

type runReports []runReport

func (runReports) headers() []string {
	return []string{"ORGANIZATION", "CREATED", "ERRORS"}
}

func (r runReports) rows() [][]string {
	rows := make([][]string, len(r))
	for i, rep := range r {
		rows[i] = []string{
			rep.OrganizationID,
			strconv.Itoa(rep.ExceptionsCreated),
			strings.Join(rep.Errors, "; "),
		}
	}
	return rows
}

func runCmd(a *app) *cobra.Command {
	var orgs []string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate every enabled rule once",
		Long: `Evaluate the enabled tolerance rules of one or more organizations
and print how many exceptions were created.

Examples:
  # Evaluate one organization
  tolerance run --org org-acme

  # Evaluate every organization listed under scheduler.organizations
  tolerance run -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := a.setup(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			targets, err := e.organizations(orgs)
			if err != nil {
				return err
			}

			eval := e.evaluator()
			reports := make(runReports, 0, len(targets))
			for _, org := range targets {
				result, err := eval.EvaluateAllRules(cmd.Context(), org)
				if err != nil {
					return fmt.Errorf("evaluating %s: %w", org, err)
				}
				reports = append(reports, runReport{OrganizationID: org, Result: result})
			}
			return outputResult(cmd.OutOrStdout(), a.outputFmt, reports)
		},
	}

	cmd.Flags().StringSliceVar(&orgs, "org", nil, "Organization id (repeatable)")
	return cmd
}
