package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/tukey-analytics/tukey/internal/client"
	"github.com/tukey-analytics/tukey/internal/hooks"
	"github.com/tukey-analytics/tukey/internal/types"
)

func newHealthCmd(opts *rootOptions) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check the analytics API health",
		Long:  "Check the analytics API health. With --watch the check repeats every minute until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, cmd.OutOrStdout(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			q := hooks.Health(a.cache, a.api, true)
			if !watch {
				h, err := q.Fetch(cmd.Context())
				if err != nil {
					return userError(err)
				}
				return a.printHealth(h)
			}

			err = q.Poll(cmd.Context(), func(h *types.Health, err error) {
				if err != nil {
					a.printf("unhealthy: %s\n", client.ErrorMessage(err))
					return
				}
				_ = a.printHealth(h)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "poll every minute")
	return cmd
}

func (a *app) printHealth(h *types.Health) error {
	if a.jsonOut {
		return a.printJSON(h)
	}
	a.printf("status: %s", h.Status)
	if h.Version != "" {
		a.printf(" version: %s", h.Version)
	}
	if h.Timestamp != "" {
		a.printf(" at: %s", h.Timestamp)
	}
	a.printf("\n")
	return nil
}
