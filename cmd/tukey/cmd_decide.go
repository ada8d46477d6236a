package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tukey-analytics/tukey/internal/hooks"
	"github.com/tukey-analytics/tukey/internal/insights"
	"github.com/tukey-analytics/tukey/internal/types"
)

func newDecideCmd(opts *rootOptions) *cobra.Command {
	var q types.AIQuery

	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Ask the decision service for a recommendation",
		Example: `  tukey decide --period "Q4 2024" --region "North America" \
    --product "Espresso Beans" --product "Oat Milk" --trend increasing`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, cmd.OutOrStdout(), false)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.requireSession(); err != nil {
				return err
			}

			for i, p := range q.TopProducts {
				q.TopProducts[i] = strings.TrimSpace(p)
			}
			if err := insights.ValidateQuery(q); err != nil {
				var qerr *insights.QueryError
				if errors.As(err, &qerr) {
					return errors.New(qerr.Message)
				}
				return err
			}

			var result insights.Insight
			decide := hooks.AIDecision(a.api, hooks.AIDecisionCallbacks{
				OnSuccess: func(d *types.AIDecision, submitted types.AIQuery) {
					result = insights.FromDecision(submitted, d)
				},
			})
			if _, err := decide.Mutate(cmd.Context(), q); err != nil {
				return userError(err)
			}

			if a.jsonOut {
				return a.printJSON(result)
			}
			a.printf("Decision:   %s\n", result.Decision)
			a.printf("Confidence: %d%%\n", result.Confidence)
			a.printf("Reason:     %s\n", result.Reason)
			return nil
		},
	}

	cmd.Flags().StringVar(&q.TimePeriod, "period", "", "time period, e.g. \"Q4 2024\"")
	cmd.Flags().StringVar(&q.Region, "region", "", "sales region")
	cmd.Flags().StringArrayVar(&q.TopProducts, "product", nil, "top product (repeat, at most 5)")
	cmd.Flags().StringVar(&q.SalesTrend, "trend", "", "sales trend, e.g. increasing")
	return cmd
}
