package meshcmd

import (
	"context"
	"fmt"

	"weft/cmd/weft/ui"
	"weft/internal/mesh"
	"weft/pkg/telemetry"

	"github.com/spf13/cobra"
)

func addCmd() *cobra.Command {
	var cf CommonFlags

	cmd := &cobra.Command{
		Use:   "add <net> <name> <public_address> <private_address> <ssh_user>",
		Short: "Add a member with every field supplied explicitly",
		Args:  cobra.ExactArgs(5),
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

			req := mesh.AddRequest{
				Name:        args[1],
				PublicAddr:  args[2],
				PrivateAddr: args[3],
				SSHUser:     args[4],
				Port:        cf.Port,
				MTU:         cf.MTU,
			}

			creds, err := cf.credentialsFor(req.SSHUser, req.PublicAddr)
			if err != nil {
				return err
			}

			report, err := runAdd(cmd.Context(), mgr, func(ctx context.Context) (mesh.SyncReport, error) {
				return mgr.Add(ctx, req, creds, cf.source())
			})
			if err != nil {
				return err
			}

			fmt.Println(ui.SuccessMsg("added %s to mesh %s", ui.Accent(req.Name), ui.Accent(net)))
			fmt.Print(ui.KeyValues("  ",
				ui.KV("public", req.PublicAddr),
				ui.KV("private", req.PrivateAddr),
				ui.KV("ssh user", req.SSHUser),
			))
			printReport(report)
			return nil
		},
	}

	cf.Bind(cmd)
	return cmd
}

// runAdd drives one add workflow under a telemetry plan so the terminal
// shows bootstrap progress as a checklist.
func runAdd(ctx context.Context, mgr *mesh.Manager, add func(context.Context) (mesh.SyncReport, error)) (mesh.SyncReport, error) {
	telemetryOut := ui.NewTelemetryOutput()
	defer telemetryOut.Close()
	tracer := telemetryOut.Tracer("weft/cmd/add")

	op, err := telemetry.EmitPlan(ctx, tracer, "mesh.add", telemetry.Plan{Steps: []telemetry.PlannedStep{
		{ID: "bootstrap", Title: "bootstrapping peer and exchanging descriptors"},
		{ID: "sync", Title: "synchronizing membership"},
	}})
	if err != nil {
		return mesh.SyncReport{}, err
	}

	var report mesh.SyncReport
	var opErr error
	defer func() { op.End(opErr) }()

	// The manager performs bootstrap and fan-out in one call; the sync step
	// reflects the returned report rather than a separate invocation.
	opErr = op.RunStep(op.Context(), "bootstrap", func(stepCtx context.Context) error {
		r, err := add(stepCtx)
		report = r
		return err
	})
	if opErr != nil {
		return mesh.SyncReport{}, opErr
	}

	opErr = op.RunStep(op.Context(), "sync", func(context.Context) error {
		if !report.OK() {
			return fmt.Errorf("%d peer(s) skipped", len(report.Skipped))
		}
		return nil
	})
	if opErr != nil {
		// Partial sync is a warning at the workflow level, not a failure.
		opErr = nil
	}
	return report, nil
}
