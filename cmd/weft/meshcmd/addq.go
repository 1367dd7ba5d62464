package meshcmd

import (
	"context"
	"fmt"

	"weft/cmd/weft/ui"
	"weft/internal/mesh"

	"github.com/spf13/cobra"
)

func addqCmd() *cobra.Command {
	var cf CommonFlags
	var name string
	var private string

	cmd := &cobra.Command{
		Use:   "addq <net> <public_address> [ssh_user]",
		Short: "Add a member, deriving the name and private address",
		Long: "Convenience form of add: a missing name is resolved from the peer's " +
			"hostname and a missing private address from the first free slot in the " +
			"mesh subnet.",
		Args: cobra.RangeArgs(2, 3),
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

			sshUser := "root"
			if len(args) == 3 {
				sshUser = args[2]
			}

			req := mesh.AddAutoRequest{
				PublicAddr:  args[1],
				SSHUser:     sshUser,
				Name:        name,
				PrivateAddr: private,
				Port:        cf.Port,
				MTU:         cf.MTU,
			}

			creds, err := cf.credentialsFor(sshUser, req.PublicAddr)
			if err != nil {
				return err
			}

			report, err := runAdd(cmd.Context(), mgr, func(ctx context.Context) (mesh.SyncReport, error) {
				return mgr.AddAuto(ctx, req, creds, cf.source())
			})
			if err != nil {
				return err
			}

			// The resolved identity is whatever record is newest for the host.
			nodes, listErr := mgr.List()
			if listErr == nil {
				for _, n := range nodes {
					if n.PublicAddr == req.PublicAddr && !n.IsAnchor() {
						fmt.Println(ui.SuccessMsg("added %s to mesh %s", ui.Accent(n.Name), ui.Accent(net)))
						fmt.Print(ui.KeyValues("  ",
							ui.KV("public", n.PublicAddr),
							ui.KV("private", n.PrivateAddr),
							ui.KV("ssh user", n.SSHUser),
						))
					}
				}
			}
			printReport(report)
			return nil
		},
	}

	cf.Bind(cmd)
	cmd.Flags().StringVar(&name, "name", "", "Node name (defaults to the peer's hostname)")
	cmd.Flags().StringVar(&private, "private", "", "Private mesh address (defaults to first free)")
	return cmd
}
