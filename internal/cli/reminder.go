package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/nexuslearn/internal/model"
	"github.com/rcliao/nexuslearn/internal/workspace"
)

func init() {
	reminderCmd := &cobra.Command{
		Use:   "reminder",
		Short: "Study reminders",
	}

	addCmd := &cobra.Command{
		Use:   "add [subject-title]",
		Short: "Add a reminder",
		Args:  cobra.MinimumNArgs(1),
		Run:   runReminderAdd,
	}
	addCmd.Flags().String("at", "", "Reminder time")
	addCmd.Flags().Duration("in", workspace.DefaultReminderDelay, "Remind after this long (ignored with --at)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List reminders, earliest first",
		Run:   runReminderList,
	}
	listCmd.Flags().Bool("due", false, "Only reminders that are due now")

	dismissCmd := &cobra.Command{
		Use:   "dismiss [reminder-id]",
		Short: "Dismiss a reminder",
		Args:  cobra.ExactArgs(1),
		Run:   runReminderDismiss,
	}
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Dismiss every reminder",
		Run:   runReminderClear,
	}

	reminderCmd.AddCommand(addCmd, listCmd, dismissCmd, clearCmd)
	RootCmd.AddCommand(reminderCmd)
}

func runReminderAdd(cmd *cobra.Command, args []string) {
	when, err := reminderTime(cmd)
	if err != nil {
		exitErr("reminder add", err)
	}

	a := mustOpenApp(cmd)
	defer a.Close()

	r, err := a.ws.AddReminder(strings.Join(args, " "), when, "")
	if err != nil {
		exitErr("reminder add", err)
	}
	printJSON(r)
}

func runReminderList(cmd *cobra.Command, args []string) {
	due, _ := cmd.Flags().GetBool("due")

	a := mustOpenApp(cmd)
	defer a.Close()

	reminders := a.ws.Reminders()
	if due {
		reminders = a.ws.DueReminders(time.Now())
	}
	if reminders == nil {
		reminders = []model.Reminder{}
	}

	if !textFormat() {
		printJSON(reminders)
		return
	}
	rows := make([][]any, 0, len(reminders))
	for _, r := range reminders {
		rows = append(rows, []any{r.ID, r.SubjectTitle, localTime(r.RemindAt), r.PlanID})
	}
	printTable([]string{"ID", "SUBJECT", "REMIND AT", "PLAN"}, rows)
}

func runReminderDismiss(cmd *cobra.Command, args []string) {
	a := mustOpenApp(cmd)
	defer a.Close()

	if err := a.ws.DismissReminder(args[0]); err != nil {
		exitErr("reminder dismiss", err)
	}
	fmt.Printf(`{"ok":true,"dismissed":%q}`+"\n", args[0])
}

func runReminderClear(cmd *cobra.Command, args []string) {
	a := mustOpenApp(cmd)
	defer a.Close()

	if err := a.ws.ClearReminders(); err != nil {
		exitErr("reminder clear", err)
	}
	fmt.Println(`{"ok":true}`)
}
