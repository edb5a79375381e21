package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/nexuslearn/internal/model"
	"github.com/rcliao/nexuslearn/internal/workspace"
)

func init() {
	subjectCmd := &cobra.Command{
		Use:   "subject",
		Short: "Manage subjects",
	}

	addCmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Add a subject",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSubjectAdd,
	}
	addCmd.Flags().String("description", "", "Course description")
	addCmd.Flags().String("color", "", "Color as #rrggbb (default: random palette color)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List subjects with goals and progress",
		Run:   runSubjectList,
	}
	listCmd.Flags().Bool("goals", false, "Include goals in text output")

	editCmd := &cobra.Command{
		Use:   "edit [id]",
		Short: "Edit a subject",
		Args:  cobra.ExactArgs(1),
		Run:   runSubjectEdit,
	}
	editCmd.Flags().String("title", "", "New title")
	editCmd.Flags().String("description", "", "New description")
	editCmd.Flags().String("color", "", "New color as #rrggbb")

	rmCmd := &cobra.Command{
		Use:   "rm [id]",
		Short: "Delete a subject",
		Args:  cobra.ExactArgs(1),
		Run:   runSubjectRm,
	}

	subjectCmd.AddCommand(addCmd, listCmd, editCmd, rmCmd)
	RootCmd.AddCommand(subjectCmd)
}

func runSubjectAdd(cmd *cobra.Command, args []string) {
	desc, _ := cmd.Flags().GetString("description")
	col, _ := cmd.Flags().GetString("color")

	a := mustOpenApp(cmd)
	defer a.Close()

	s, err := a.ws.AddSubject(strings.Join(args, " "), desc, col)
	if err != nil {
		exitErr("subject add", err)
	}
	printJSON(s)
}

func runSubjectList(cmd *cobra.Command, args []string) {
	withGoals, _ := cmd.Flags().GetBool("goals")

	a := mustOpenApp(cmd)
	defer a.Close()

	subjects := a.ws.Subjects()
	if !textFormat() {
		printJSON(subjects)
		return
	}

	rows := make([][]any, 0, len(subjects))
	for _, s := range subjects {
		rows = append(rows, []any{swatch(s.Color), s.ID, s.Title, fmt.Sprintf("%.0f%%", s.Progress), len(s.Goals)})
		if withGoals {
			for _, g := range s.Goals {
				rows = append(rows, []any{"", "", goalLine(g), "", ""})
			}
		}
	}
	printTable([]string{"", "ID", "TITLE", "PROGRESS", "GOALS"}, rows)
}

func goalLine(g model.Goal) string {
	box := "[ ]"
	if g.Completed {
		box = "[x]"
	}
	return fmt.Sprintf("  %s %s (%s)", box, g.Text, g.ID)
}

func runSubjectEdit(cmd *cobra.Command, args []string) {
	var upd workspace.SubjectUpdate
	if cmd.Flags().Changed("title") {
		v, _ := cmd.Flags().GetString("title")
		upd.Title = &v
	}
	if cmd.Flags().Changed("description") {
		v, _ := cmd.Flags().GetString("description")
		upd.Description = &v
	}
	if cmd.Flags().Changed("color") {
		v, _ := cmd.Flags().GetString("color")
		upd.Color = &v
	}

	a := mustOpenApp(cmd)
	defer a.Close()

	s, err := a.ws.UpdateSubject(args[0], upd)
	if err != nil {
		exitErr("subject edit", err)
	}
	printJSON(s)
}

func runSubjectRm(cmd *cobra.Command, args []string) {
	a := mustOpenApp(cmd)
	defer a.Close()

	if err := a.ws.DeleteSubject(args[0]); err != nil {
		exitErr("subject rm", err)
	}
	fmt.Printf(`{"ok":true,"deleted":%q}`+"\n", args[0])
}
