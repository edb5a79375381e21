package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/nexuslearn/internal/model"
)

func init() {
	calendarCmd := &cobra.Command{
		Use:   "calendar",
		Short: "In-app calendar",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List calendar events",
		Run:   runCalendarList,
	}
	listCmd.Flags().String("day", "", "Only events on this day (YYYY-MM-DD, or 'today')")

	rmCmd := &cobra.Command{
		Use:   "rm [event-id]",
		Short: "Delete an event",
		Args:  cobra.ExactArgs(1),
		Run:   runCalendarRm,
	}

	calendarCmd.AddCommand(listCmd, rmCmd)
	RootCmd.AddCommand(calendarCmd)
}

func runCalendarList(cmd *cobra.Command, args []string) {
	day, _ := cmd.Flags().GetString("day")

	a := mustOpenApp(cmd)
	defer a.Close()

	var events []model.CalendarEvent
	switch day {
	case "":
		events = a.ws.Events()
	case "today":
		events = a.ws.EventsOn(time.Now())
	default:
		d, err := time.ParseInLocation("2006-01-02", day, time.Local)
		if err != nil {
			exitErr("calendar list", fmt.Errorf("bad --day %q: %w", day, err))
		}
		events = a.ws.EventsOn(d)
	}
	if events == nil {
		events = []model.CalendarEvent{}
	}

	if !textFormat() {
		printJSON(events)
		return
	}
	rows := make([][]any, 0, len(events))
	for _, e := range events {
		rows = append(rows, []any{swatch(e.Color), e.ID, e.Title, localTime(e.Start), localTime(e.End)})
	}
	printTable([]string{"", "ID", "TITLE", "START", "END"}, rows)
}

func runCalendarRm(cmd *cobra.Command, args []string) {
	a := mustOpenApp(cmd)
	defer a.Close()

	if err := a.ws.DeleteEvent(args[0]); err != nil {
		exitErr("calendar rm", err)
	}
	fmt.Printf(`{"ok":true,"deleted":%q}`+"\n", args[0])
}
