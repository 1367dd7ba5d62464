package meshcmd

import (
	"fmt"
	"strconv"

	"weft/cmd/weft/ui"

	"github.com/spf13/cobra"
)

func listCmd() *cobra.Command {
	var cf CommonFlags
	var interactive bool

	cmd := &cobra.Command{
		Use:     "list <net>",
		Aliases: []string{"ls"},
		Short:   "List mesh members",
		Args:    cobra.ExactArgs(1),
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

			nodes, err := mgr.List()
			if err != nil {
				return err
			}
			if len(nodes) == 0 {
				fmt.Println(ui.Muted("no members recorded"))
				return nil
			}

			headers := []string{"#", "Name", "Role", "Public", "Private", "Port", "MTU"}
			rows := make([][]string, len(nodes))
			for i, n := range nodes {
				rows[i] = []string{
					strconv.Itoa(i + 1),
					n.Name,
					string(n.Role),
					n.PublicAddr,
					n.PrivateAddr,
					strconv.Itoa(n.Port),
					strconv.Itoa(n.MTU),
				}
			}

			if interactive {
				_, err := ui.InteractiveTable(headers, rows)
				return err
			}
			fmt.Println(ui.Table(headers, rows))
			return nil
		},
	}

	cf.Bind(cmd)
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Browse members in an interactive table")
	return cmd
}
