package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tukey-analytics/tukey/internal/client"
	"github.com/tukey-analytics/tukey/internal/hooks"
	"github.com/tukey-analytics/tukey/internal/types"
)

func newDashboardsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dashboards",
		Aliases: []string{"dash"},
		Short:   "List dashboards and fetch embed URLs",
	}
	cmd.AddCommand(newDashboardsListCmd(opts), newDashboardsEmbedCmd(opts))
	return cmd
}

func newDashboardsListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the dashboards available to you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, cmd.OutOrStdout(), false)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.requireSession(); err != nil {
				return err
			}

			dashboards, err := hooks.Dashboards(a.cache, a.api).Fetch(cmd.Context())
			if err != nil {
				return userError(err)
			}
			if a.jsonOut {
				return a.printJSON(dashboards)
			}
			if len(dashboards) == 0 {
				a.printf("No dashboards found\n")
				return nil
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ID\tNAME\tDESCRIPTION\tUPDATED")
			for _, d := range dashboards {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.ID, d.Name, d.Description, d.UpdatedAt)
			}
			return tw.Flush()
		},
	}
}

func newDashboardsEmbedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "embed DASHBOARD_ID",
		Short: "Print the embed URL for a dashboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, cmd.OutOrStdout(), false)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.requireSession(); err != nil {
				return err
			}

			tok, err := hooks.DashboardEmbedToken(a.api, hooks.Callbacks[*types.EmbedToken]{}).Mutate(cmd.Context(), args[0])
			if err != nil {
				return userError(err)
			}

			u, err := client.EmbedURL(tok, a.cfg.DashboardServerURL)
			if err != nil {
				return userError(err)
			}
			if a.jsonOut {
				return a.printJSON(map[string]string{
					"dashboard_id": args[0],
					"url":          u,
					"expires_at":   tok.ExpiresAt,
				})
			}
			a.printf("%s\n", u)
			return nil
		},
	}
}
