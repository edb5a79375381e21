package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	goalCmd := &cobra.Command{
		Use:   "goal",
		Short: "Manage a subject's goals",
	}

	addCmd := &cobra.Command{
		Use:   "add [subject-id] [text]",
		Short: "Add a goal",
		Args:  cobra.MinimumNArgs(2),
		Run:   runGoalAdd,
	}
	toggleCmd := &cobra.Command{
		Use:   "toggle [subject-id] [goal-id]",
		Short: "Mark a goal done or not done",
		Args:  cobra.ExactArgs(2),
		Run:   runGoalToggle,
	}
	rmCmd := &cobra.Command{
		Use:   "rm [subject-id] [goal-id]",
		Short: "Delete a goal",
		Args:  cobra.ExactArgs(2),
		Run:   runGoalRm,
	}

	goalCmd.AddCommand(addCmd, toggleCmd, rmCmd)
	RootCmd.AddCommand(goalCmd)
}

func runGoalAdd(cmd *cobra.Command, args []string) {
	a := mustOpenApp(cmd)
	defer a.Close()

	g, err := a.ws.AddGoal(args[0], strings.Join(args[1:], " "))
	if err != nil {
		exitErr("goal add", err)
	}
	printJSON(g)
}

func runGoalToggle(cmd *cobra.Command, args []string) {
	a := mustOpenApp(cmd)
	defer a.Close()

	if _, err := a.ws.ToggleGoal(args[0], args[1]); err != nil {
		exitErr("goal toggle", err)
	}
	s, _ := a.ws.FindSubject(args[0])
	printJSON(s)
}

func runGoalRm(cmd *cobra.Command, args []string) {
	a := mustOpenApp(cmd)
	defer a.Close()

	if err := a.ws.DeleteGoal(args[0], args[1]); err != nil {
		exitErr("goal rm", err)
	}
	fmt.Printf(`{"ok":true,"deleted":%q}`+"\n", args[1])
}
