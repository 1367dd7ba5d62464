package meshcmd

import "github.com/spf13/cobra"

// Commands returns every mesh workflow command.
func Commands() []*cobra.Command {
	return []*cobra.Command{
		initCmd(),
		addCmd(),
		addqCmd(),
		delCmd(),
		listCmd(),
		pushCmd(),
		restartCmd(),
		doctorCmd(),
		historyCmd(),
	}
}
