package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rcliao/nexuslearn/internal/generator"
	"github.com/rcliao/nexuslearn/internal/markup"
	"github.com/rcliao/nexuslearn/internal/model"
	"github.com/rcliao/nexuslearn/internal/workspace"
)

func init() {
	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Generate and manage study plans",
	}

	generateCmd := &cobra.Command{
		Use:   "generate [subject-id]",
		Short: "Generate a one-month study plan for a subject",
		Long:  "Generate a one-month study plan for a subject with web-grounded sources. The plan is saved to the history.",
		Args:  cobra.ExactArgs(1),
		Run:   runPlanGenerate,
	}
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List generated plans, newest first",
		Run:   runPlanHistory,
	}
	showCmd := &cobra.Command{
		Use:   "show [plan-id]",
		Short: "Show a saved plan",
		Args:  cobra.ExactArgs(1),
		Run:   runPlanShow,
	}
	showCmd.Flags().IntP("width", "w", markup.DefaultWidth, "Wrap width for text output")

	scheduleCmd := &cobra.Command{
		Use:   "schedule [plan-id]",
		Short: "Add a one hour study session for a plan to the calendar",
		Args:  cobra.ExactArgs(1),
		Run:   runPlanSchedule,
	}
	scheduleCmd.Flags().String("at", "", "Start time (default: now)")

	remindCmd := &cobra.Command{
		Use:   "remind [plan-id]",
		Short: "Set a reminder for a plan",
		Args:  cobra.ExactArgs(1),
		Run:   runPlanRemind,
	}
	remindCmd.Flags().String("at", "", "Reminder time")
	remindCmd.Flags().Duration("in", workspace.DefaultReminderDelay, "Remind after this long (ignored with --at)")

	planCmd.AddCommand(generateCmd, historyCmd, showCmd, scheduleCmd, remindCmd)
	RootCmd.AddCommand(planCmd)
}

func runPlanGenerate(cmd *cobra.Command, args []string) {
	a := mustOpenApp(cmd)
	defer a.Close()

	subject, err := a.ws.FindSubject(args[0])
	if err != nil {
		exitErr("plan generate", err)
	}
	client, err := newGeminiClient(cmd.Context())
	if err != nil {
		exitErr("plan generate", err)
	}

	plan, err := generator.New(client).StudyPlan(cmd.Context(), subject.Title, subject.Description)
	if err != nil {
		exitErr("plan generate", err)
	}
	h, err := a.ws.RecordPlan(subject.Title, plan)
	if err != nil {
		exitErr("plan generate", err)
	}
	printPlan(h, markup.DefaultWidth)
}

func runPlanHistory(cmd *cobra.Command, args []string) {
	a := mustOpenApp(cmd)
	defer a.Close()

	history := a.ws.History()
	if !textFormat() {
		printJSON(history)
		return
	}
	rows := make([][]any, 0, len(history))
	for _, h := range history {
		rows = append(rows, []any{h.ID, h.SubjectTitle, localTime(h.Date), len(h.Plan.Sources)})
	}
	printTable([]string{"ID", "SUBJECT", "DATE", "SOURCES"}, rows)
}

func runPlanShow(cmd *cobra.Command, args []string) {
	width, _ := cmd.Flags().GetInt("width")

	a := mustOpenApp(cmd)
	defer a.Close()

	h, err := a.ws.FindPlan(args[0])
	if err != nil {
		exitErr("plan show", err)
	}
	printPlan(h, width)
}

func printPlan(h model.HistoricalStudyPlan, width int) {
	if !textFormat() {
		printJSON(h)
		return
	}
	title := color.New(color.Bold, color.Underline)
	faint := color.New(color.Faint)

	_, _ = title.Fprintf(color.Output, "Study Plan: %s\n", h.SubjectTitle)
	_, _ = faint.Fprintf(color.Output, "%s  %s\n\n", h.ID, localTime(h.Date))
	body, err := markup.Render(h.Plan.Plan, width, renderStyle())
	if err != nil {
		exitErr("render plan", err)
	}
	fmt.Fprint(color.Output, body)

	if len(h.Plan.Sources) > 0 {
		_, _ = title.Fprintln(color.Output, "\nFurther Reading")
		for _, s := range h.Plan.Sources {
			fmt.Fprintf(color.Output, "  • %s\n    ", s.Title)
			_, _ = faint.Fprintln(color.Output, s.URI)
		}
	}
}

func runPlanSchedule(cmd *cobra.Command, args []string) {
	at, _ := cmd.Flags().GetString("at")
	start := time.Now()
	if at != "" {
		t, err := parseTime(at)
		if err != nil {
			exitErr("plan schedule", err)
		}
		start = t
	}

	a := mustOpenApp(cmd)
	defer a.Close()

	ev, err := a.ws.ScheduleStudySession(args[0], start)
	if err != nil {
		exitErr("plan schedule", err)
	}
	printJSON(ev)
}

func runPlanRemind(cmd *cobra.Command, args []string) {
	when, err := reminderTime(cmd)
	if err != nil {
		exitErr("plan remind", err)
	}

	a := mustOpenApp(cmd)
	defer a.Close()

	r, err := a.ws.SetPlanReminder(args[0], when)
	if err != nil {
		exitErr("plan remind", err)
	}
	printJSON(r)
}

// reminderTime reads --at, falling back to now plus --in.
func reminderTime(cmd *cobra.Command) (time.Time, error) {
	at, _ := cmd.Flags().GetString("at")
	if at != "" {
		return parseTime(at)
	}
	in, _ := cmd.Flags().GetDuration("in")
	return time.Now().Add(in), nil
}
