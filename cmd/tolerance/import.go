package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/tolerance-rules/internal/orgimport"
)

type importSummary orgimport.Summary

func (importSummary) headers() []string { return []string{"KIND", "ROWS"} }

func (s importSummary) rows() [][]string {
	return [][]string{
		{"users", strconv.Itoa(s.Users)},
		{"people", strconv.Itoa(s.People)},
		{"one_on_ones", strconv.Itoa(s.OneOnOnes)},
		{"initiatives", strconv.Itoa(s.Initiatives)},
		{"check_ins", strconv.Itoa(s.CheckIns)},
		{"feedback_campaigns", strconv.Itoa(s.FeedbackCampaigns)},
		{"rules", strconv.Itoa(s.Rules)},
	}
}

func importCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Load an organization snapshot from YAML",
		Long: `Validate a YAML organization snapshot and upsert its users, people,
1:1s, initiatives, check-ins, feedback campaigns and rules. Nothing is
written when any part of the snapshot is invalid.

Timestamps may be RFC3339 or relative to now ("-3d", "-2w", "-6h").`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.setup(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			summary, err := orgimport.Import(cmd.Context(), e.store, e.registry, f, time.Now())
			if err != nil {
				return fmt.Errorf("importing %s: %w", args[0], err)
			}
			if a.outputFmt == "table" {
				fmt.Fprintf(cmd.OutOrStdout(), "Imported organization %s\n", summary.OrganizationID)
			}
			return outputResult(cmd.OutOrStdout(), a.outputFmt, importSummary(summary))
		},
	}
}
