package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/tolerance-rules/internal/model"
	"github.com/nhle/tolerance-rules/internal/store"
)

type exceptionList []model.Exception

func (exceptionList) headers() []string {
	return []string{"ID", "SEVERITY", "STATUS", "ENTITY", "CREATED", "MESSAGE"}
}

func (l exceptionList) rows() [][]string {
	rows := make([][]string, len(l))
	for i, ex := range l {
		rows[i] = []string{
			ex.ID,
			string(ex.Severity),
			string(ex.Status),
			ex.EntityType + " " + ex.EntityID,
			ex.CreatedAt.Format("2006-01-02 15:04"),
			ex.Message,
		}
	}
	return rows
}

func exceptionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "exceptions",
		Aliases: []string{"ex"},
		Short:   "List and close exceptions",
	}
	cmd.AddCommand(exceptionsListCmd(a), exceptionsResolveCmd(a))
	return cmd
}

func exceptionsListCmd(a *app) *cobra.Command {
	var (
		org    string
		rule   string
		status string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List an organization's exceptions, newest first",
		Long: `List an organization's exceptions, newest first.

Examples:
  tolerance exceptions list --org org-acme
  tolerance exceptions list --org org-acme --status all --limit 100`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := store.ExceptionFilter{OrganizationID: &org, Limit: limit}
			if rule != "" {
				filter.RuleID = &rule
			}
			if status != "all" {
				st := model.ExceptionStatus(status)
				switch st {
				case model.ExceptionStatusActive, model.ExceptionStatusResolved, model.ExceptionStatusDismissed:
				default:
					return fmt.Errorf("unknown status %q (want active, resolved, dismissed or all)", status)
				}
				filter.Status = &st
			}

			e, err := a.setup(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			list, err := e.store.GetExceptions(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return outputResult(cmd.OutOrStdout(), a.outputFmt, exceptionList(list))
		},
	}

	cmd.Flags().StringVar(&org, "org", "", "Organization id")
	cmd.Flags().StringVar(&rule, "rule", "", "Only exceptions raised by this rule id")
	cmd.Flags().StringVar(&status, "status", string(model.ExceptionStatusActive), "active, resolved, dismissed or all")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum rows (0 for no limit)")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}

func exceptionsResolveCmd(a *app) *cobra.Command {
	var dismiss bool

	cmd := &cobra.Command{
		Use:   "resolve <exception-id>",
		Short: "Mark an exception resolved so the rule may raise it again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.setup(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			status := model.ExceptionStatusResolved
			if dismiss {
				status = model.ExceptionStatusDismissed
			}
			if err := e.store.SetExceptionStatus(cmd.Context(), args[0], status); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exception %s %s\n", args[0], status)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dismiss, "dismiss", false, "Mark the exception dismissed instead of resolved")
	return cmd
}
