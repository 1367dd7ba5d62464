package main

import (
	"fmt"
	"os"

	"weft/cmd/weft/meshcmd"
	"weft/cmd/weft/ui"
	"weft/internal/logging"
	"weft/internal/support/buildinfo"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	var (
		debug         bool
		noInteraction bool
	)

	// A .env next to the working directory may carry WEFT_SSH_PASSWORD for
	// unattended runs; absence is fine.
	_ = godotenv.Load()

	if err := logging.Configure(logging.LevelWarn); err != nil {
		_, _ = os.Stderr.WriteString("configure logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	root := &cobra.Command{
		Use:           "weft",
		Short:         "Mesh VPN control plane for tinc",
		Version:       buildinfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := logging.LevelWarn
			if debug {
				level = logging.LevelDebug
			}
			if err := logging.Configure(level); err != nil {
				return err
			}
			ui.ConfigureInteraction(noInteraction)
			return nil
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().BoolVar(&noInteraction, "no-interaction", false, "Disable prompts and animations")

	for _, cmd := range meshcmd.Commands() {
		root.AddCommand(cmd)
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
