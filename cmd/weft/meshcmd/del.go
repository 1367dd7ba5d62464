package meshcmd

import (
	"context"
	"errors"
	"fmt"

	"weft/cmd/weft/ui"
	"weft/internal/mesh"

	"github.com/spf13/cobra"
)

func delCmd() *cobra.Command {
	var cf CommonFlags
	var yes bool

	cmd := &cobra.Command{
		Use:     "del <net> <name>",
		Aliases: []string{"rm", "remove"},
		Short:   "Remove a member from the mesh",
		Long: "Tears down the peer's daemon and configuration (best effort), retracts " +
			"its descriptor from every remaining member, and removes its membership " +
			"record. The record is removed even when the peer is unreachable.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			net, err := netArg(args)
			if err != nil {
				return err
			}
			name := args[1]

			if !yes {
				ok, err := ui.Confirm(
					fmt.Sprintf("remove %s from mesh %s?", ui.Accent(name), ui.Accent(net)),
					"use --yes to skip",
				)
				if err != nil {
					return err
				}
				if !ok {
					return ui.ErrCancelled
				}
			}

			mgr, done, err := cf.manager(net)
			if err != nil {
				return err
			}
			defer done()

			var report mesh.SyncReport
			err = ui.RunWithSpinner(cmd.Context(), "removing "+name, func(ctx context.Context) error {
				r, err := mgr.Del(ctx, name, cf.source())
				report = r
				return err
			})
			if err != nil {
				if errors.Is(err, mesh.ErrAnchorProtected) {
					return fmt.Errorf("%s is the anchor and cannot be removed", name)
				}
				return err
			}

			fmt.Println(ui.SuccessMsg("removed %s from mesh %s", ui.Accent(name), ui.Accent(net)))
			printReport(report)
			return nil
		},
	}

	cf.Bind(cmd)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}
