package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tukey-analytics/tukey/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// rootOptions are the flags shared by every command; they override the environment
type rootOptions struct {
	apiURL   string
	logLevel string
	jsonOut  bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "tukey",
		Short: "Tukey analytics command-line client",
		Long: `tukey signs in to the Tukey analytics API, lists and embeds dashboards,
uploads point-of-sale data and asks the decision service for recommendations.

The session is kept in durable storage (see STORAGE_BACKEND) so it survives between runs.
"tukey serve" exposes the same session to a browser front-end over HTTP.`,
		SilenceUsage: true,
	}

	v := version.Get()
	cmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	cmd.PersistentFlags().StringVar(&opts.apiURL, "api-url", "", "analytics API base URL (default from API_BASE_URL)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (default from LOG_LEVEL)")
	cmd.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "print results as JSON")

	cmd.AddCommand(
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newWhoamiCmd(opts),
		newDashboardsCmd(opts),
		newUploadCmd(opts),
		newDecideCmd(opts),
		newHealthCmd(opts),
		newServeCmd(opts),
	)
	return cmd
}
