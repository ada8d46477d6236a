package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tukey-analytics/tukey/internal/hooks"
	"github.com/tukey-analytics/tukey/internal/pos"
	"github.com/tukey-analytics/tukey/internal/types"
)

func newUploadCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload a point-of-sale CSV or JSON file (admins only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, cmd.OutOrStdout(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			sess, err := a.session.Require()
			if err != nil {
				return a.requireSession()
			}

			path := args[0]
			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("cannot read %s: %w", path, err)
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory", path)
			}

			f, err := pos.Check(sess, filepath.Base(path), info.Size())
			if err != nil {
				return err
			}

			file, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("cannot open %s: %w", path, err)
			}
			defer file.Close()

			a.printf("Uploading %s (%s, %s)...\n", f.Name, f.Type, f.HumanSize())

			upload := hooks.UploadPOS(a.api, hooks.Callbacks[*types.UploadResult]{
				OnSuccess: func(res *types.UploadResult) {
					a.cache.Invalidate(hooks.DashboardsKey)
				},
			})
			res, err := upload.Mutate(cmd.Context(), hooks.POSFile{Name: f.Name, Body: file})
			if err != nil {
				return userError(err)
			}

			if a.jsonOut {
				return a.printJSON(res)
			}
			a.printf("%s\n", pos.Summary(res))
			if len(res.Columns) > 0 {
				a.printf("columns: %s\n", strings.Join(res.Columns, ", "))
			}
			return nil
		},
	}
}
