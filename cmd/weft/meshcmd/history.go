package meshcmd

import (
	"fmt"
	"time"

	"weft/cmd/weft/ui"
	"weft/internal/journal"

	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	var cf CommonFlags
	var limit int

	cmd := &cobra.Command{
		Use:   "history <net>",
		Short: "Show recorded workflow invocations for a mesh",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			net, err := netArg(args)
			if err != nil {
				return err
			}

			j, err := journal.Open(cf.journalPath())
			if err != nil {
				return err
			}
			defer j.Close()

			entries, err := j.List(cmd.Context(), net, limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println(ui.Muted("no recorded operations"))
				return nil
			}

			rows := make([][]string, len(entries))
			for i, e := range entries {
				at := "-"
				if !e.At.IsZero() {
					at = e.At.Local().Format(time.RFC3339)
				}
				target := e.Target
				if target == "" {
					target = "-"
				}
				outcome := e.Outcome
				if outcome != "ok" {
					outcome = ui.Warn(outcome)
				}
				rows[i] = []string{at, e.Op, target, outcome, e.Detail}
			}

			fmt.Println(ui.Table([]string{"When", "Op", "Target", "Outcome", "Detail"}, rows))
			return nil
		},
	}

	cf.Bind(cmd)
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries to show")
	return cmd
}
