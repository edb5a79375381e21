package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/nexuslearn/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:       "view [name]",
		Short:     "Show or set the active view",
		Long:      "Show or set the active view: dashboard, budget, calendar or settings.",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"dashboard", "budget", "calendar", "settings"},
		Run:       runView,
	}

	RootCmd.AddCommand(cmd)
}

func runView(cmd *cobra.Command, args []string) {
	a := mustOpenApp(cmd)
	defer a.Close()

	if len(args) == 1 {
		if err := a.ws.SetActiveView(model.View(args[0])); err != nil {
			exitErr("view", err)
		}
	}
	fmt.Printf(`{"view":%q}`+"\n", a.ws.ActiveView())
}
