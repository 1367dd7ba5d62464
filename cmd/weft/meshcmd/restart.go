package meshcmd

import (
	"context"
	"fmt"

	"weft/cmd/weft/ui"

	"github.com/spf13/cobra"
)

func restartCmd() *cobra.Command {
	var cf CommonFlags

	cmd := &cobra.Command{
		Use:   "restart <net>",
		Short: "Rewrite the anchor's interface script and reload its daemon",
		Args:  cobra.ExactArgs(1),
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

			err = ui.RunWithSpinner(cmd.Context(), "reloading anchor daemon", func(ctx context.Context) error {
				return mgr.Restart(ctx)
			})
			if err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("anchor daemon reloaded for mesh %s", ui.Accent(net)))
			return nil
		},
	}

	cf.Bind(cmd)
	return cmd
}
