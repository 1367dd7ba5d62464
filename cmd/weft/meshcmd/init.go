package meshcmd

import (
	"context"
	"fmt"

	"weft/cmd/weft/ui"
	"weft/internal/mesh"

	"github.com/spf13/cobra"
)

func initCmd() *cobra.Command {
	var cf CommonFlags

	cmd := &cobra.Command{
		Use:   "init <net> <name> <public_address> <private_address> <netmask>",
		Short: "Create a mesh with this host as its anchor",
		Long: "Writes the anchor's configuration and descriptor, generates its key pair, " +
			"starts the local daemon, and records the anchor as the first member.",
		Args: cobra.ExactArgs(5),
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

			req := mesh.InitRequest{
				Name:        args[1],
				PublicAddr:  args[2],
				PrivateAddr: args[3],
				Netmask:     args[4],
				Port:        cf.Port,
				MTU:         cf.MTU,
			}

			err = ui.RunWithSpinner(cmd.Context(), "initializing mesh "+net, func(ctx context.Context) error {
				return mgr.Init(ctx, req)
			})
			if err != nil {
				return err
			}

			fmt.Println(ui.SuccessMsg("mesh %s initialized", ui.Accent(net)))
			fmt.Print(ui.KeyValues("  ",
				ui.KV("anchor", req.Name),
				ui.KV("public", req.PublicAddr),
				ui.KV("private", req.PrivateAddr),
				ui.KV("netmask", req.Netmask),
			))
			return nil
		},
	}

	cf.Bind(cmd)
	return cmd
}
