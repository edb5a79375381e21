package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/nexuslearn/internal/state"
	"github.com/rcliao/nexuslearn/internal/workspace"
)

func init() {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "List storage keys",
		Run:   runKeys,
	}

	cmd.Flags().StringP("prefix", "p", "", "Only keys with this prefix")
	cmd.Flags().Bool("mine", false, "Only keys of the logged in account")

	RootCmd.AddCommand(cmd)
}

func runKeys(cmd *cobra.Command, args []string) {
	prefix, _ := cmd.Flags().GetString("prefix")
	mine, _ := cmd.Flags().GetBool("mine")

	a, err := openApp(cmd)
	if err != nil {
		exitErr("open store", err)
	}
	defer a.Close()

	var keys []string
	if mine {
		sess := a.ids.Current()
		if sess == nil {
			exitErr("keys", fmt.Errorf("--mine needs a logged in account"))
		}
		for _, lk := range workspace.LogicalKeys {
			k := state.ScopedKey(lk, sess.Email)
			if _, ok, _ := a.kv.Get(cmd.Context(), k); ok {
				keys = append(keys, k)
			}
		}
	} else {
		keys, err = a.kv.Keys(cmd.Context(), prefix)
		if err != nil {
			exitErr("list keys", err)
		}
	}
	if keys == nil {
		keys = []string{}
	}

	if textFormat() {
		for _, k := range keys {
			fmt.Println(k)
		}
		return
	}
	printJSON(keys)
}
