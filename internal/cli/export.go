package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/nexuslearn/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored records as JSON",
		Long:  "Export stored records as a JSON array of {key, value}. Filter by key prefix with -p.",
		Run:   runExport,
	}

	cmd.Flags().StringP("prefix", "p", "", "Filter by key prefix")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	prefix, _ := cmd.Flags().GetString("prefix")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	records, err := store.Export(cmd.Context(), s, prefix)
	if err != nil {
		exitErr("export", err)
	}
	printJSON(records)
}
