package meshcmd

import (
	"errors"
	"fmt"
	"time"

	"weft/cmd/weft/ui"
	"weft/internal/daemon"
	"weft/internal/mesh"
	"weft/internal/ntpcheck"

	"github.com/spf13/cobra"
)

func doctorCmd() *cobra.Command {
	var cf CommonFlags
	var ntpPool string
	var skipNTP bool

	cmd := &cobra.Command{
		Use:   "doctor <net>",
		Short: "Diagnose anchor-side mesh health",
		Long: "Checks the local daemon installation, the mesh state on disk, and the " +
			"anchor's clock offset. A skewed clock breaks tinc handshakes in ways that " +
			"look like random peer drops.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			net, err := netArg(args)
			if err != nil {
				return err
			}
			if ntpPool == "" && cf.cfg != nil {
				ntpPool = cf.cfg.NTPPool
			}

			paths := mesh.Paths{DataRoot: cf.DataRoot, Net: net}

			daemonOK := true
			daemonDetail := "tincd and systemctl found"
			tinc := &daemon.Tinc{Net: net, ConfigRoot: cf.DataRoot}
			if err := tinc.Installed(); err != nil {
				daemonOK = false
				daemonDetail = err.Error()
			}

			stateOK := true
			stateDetail := ""
			store := mesh.NewStore(paths.MembersFile())
			nodes, err := store.Load()
			switch {
			case errors.Is(err, mesh.ErrNotInitialized):
				stateOK = false
				stateDetail = "mesh is not initialized (run weft init)"
			case err != nil:
				stateOK = false
				stateDetail = err.Error()
			default:
				stateDetail = fmt.Sprintf("%d member(s) recorded", len(nodes))
				if _, err := mesh.LoadSettings(paths.SettingsFile()); err != nil {
					stateOK = false
					stateDetail = "membership present but mesh settings unreadable: " + err.Error()
				}
			}

			clockOK := true
			clockDetail := "skipped"
			if !skipNTP {
				checker := &ntpcheck.Checker{Pool: ntpPool}
				status := checker.Check()
				switch status.Phase {
				case ntpcheck.Healthy:
					clockDetail = fmt.Sprintf("offset %s against %s", status.Offset.Round(time.Millisecond), ntpPool)
				case ntpcheck.SkewedClock:
					clockOK = false
					clockDetail = fmt.Sprintf("clock is off by %s, tinc handshakes will misbehave", status.Offset.Round(time.Millisecond))
				default:
					clockOK = false
					clockDetail = "NTP pool unreachable: " + status.Error
				}
			}

			fmt.Println(ui.InfoMsg("mesh %s diagnostic", ui.Accent(net)))
			fmt.Print(ui.KeyValues("  ",
				ui.KV("daemon", ui.Bool(daemonOK)),
				ui.KV("state", ui.Bool(stateOK)),
				ui.KV("clock", ui.Bool(clockOK)),
			))
			fmt.Print(ui.KeyValues("  ",
				ui.KV("daemon", ui.Muted(daemonDetail)),
				ui.KV("state", ui.Muted(stateDetail)),
				ui.KV("clock", ui.Muted(clockDetail)),
			))

			if daemonOK && stateOK && clockOK {
				fmt.Println(ui.SuccessMsg("no issues detected"))
				return nil
			}
			return fmt.Errorf("doctor found issues")
		},
	}

	cf.Bind(cmd)
	cmd.Flags().StringVar(&ntpPool, "ntp-pool", "", "NTP pool for the clock probe")
	cmd.Flags().BoolVar(&skipNTP, "skip-ntp", false, "Skip the clock offset probe")
	return cmd
}
