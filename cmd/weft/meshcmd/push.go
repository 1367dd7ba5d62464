package meshcmd

import (
	"context"
	"fmt"

	"weft/cmd/weft/ui"
	"weft/internal/mesh"

	"github.com/spf13/cobra"
)

func pushCmd() *cobra.Command {
	var cf CommonFlags

	cmd := &cobra.Command{
		Use:   "push <net>",
		Short: "Resynchronize every member with current membership",
		Long: "Copies the complete descriptor directory to every member and signals " +
			"each one to reload, unconditionally. Unreachable peers are skipped with " +
			"a warning; re-run push until the report is clean.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			net, err := netArg(args)
			if err != nil {
				return err
			}
			mgr, done, err := cf.manager(net)
			if err != nil {
				return err
			}
			defer done()

			var report mesh.SyncReport
			err = ui.RunWithSpinner(cmd.Context(), "pushing descriptors for "+net, func(ctx context.Context) error {
				r, err := mgr.Push(ctx, cf.source())
				report = r
				return err
			})
			if err != nil {
				return err
			}

			if len(report.Synced) == 0 && len(report.Skipped) == 0 {
				fmt.Println(ui.Muted("no members to synchronize"))
				return nil
			}
			printReport(report)
			return nil
		},
	}

	cf.Bind(cmd)
	return cmd
}
