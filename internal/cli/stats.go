package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/nexuslearn/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	sq, ok := s.(*store.SQLiteStore)
	if !ok {
		exitErr("stats", fmt.Errorf("stats needs the sqlite backend, not %q", getBackend()))
	}
	stats, err := sq.Stats(cmd.Context(), getDBPath())
	if err != nil {
		exitErr("stats", err)
	}

	if !textFormat() {
		printJSON(stats)
		return
	}
	fmt.Printf("%s  %d bytes  %d keys  %d writes\n", stats.DBPath, stats.DBSizeBytes, stats.TotalKeys, stats.TotalWrites)
	rows := make([][]any, 0, len(stats.Owners))
	for _, o := range stats.Owners {
		rows = append(rows, []any{o.Email, o.Keys, o.Writes})
	}
	printTable([]string{"ACCOUNT", "KEYS", "WRITES"}, rows)
}
